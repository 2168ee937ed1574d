package rules

import "fmt"

// Topology decides which document pairs must agree for a cross-document rule
// to pass. values are in document order; values[0] is the reference.
type Topology interface {
	Name() string
	Agree(values []string, eq func(a, b string) bool) bool
}

// Topology names accepted by TopologyByName.
const (
	TopologyStar     = "star"
	TopologyAllPairs = "all_pairs"
	TopologyMajority = "majority"
)

// TopologyByName returns the topology registered under name.
func TopologyByName(name string) (Topology, error) {
	switch name {
	case "", TopologyStar:
		return Star{}, nil
	case TopologyAllPairs:
		return AllPairs{}, nil
	case TopologyMajority:
		return Majority{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTopology, name)
}

// Star compares the reference against every other document. One document
// agrees with itself.
type Star struct{}

func (Star) Name() string { return TopologyStar }

func (Star) Agree(values []string, eq func(a, b string) bool) bool {
	for i := 1; i < len(values); i++ {
		if !eq(values[0], values[i]) {
			return false
		}
	}
	return true
}

// AllPairs requires every pair of documents to agree.
type AllPairs struct{}

func (AllPairs) Name() string { return TopologyAllPairs }

func (AllPairs) Agree(values []string, eq func(a, b string) bool) bool {
	for i := 0; i < len(values); i++ {
		for j := i + 1; j < len(values); j++ {
			if !eq(values[i], values[j]) {
				return false
			}
		}
	}
	return true
}

// Majority passes when some document agrees with a strict majority of the
// documents, itself included.
type Majority struct{}

func (Majority) Name() string { return TopologyMajority }

func (Majority) Agree(values []string, eq func(a, b string) bool) bool {
	n := len(values)
	if n <= 1 {
		return true
	}
	for i := range values {
		count := 1
		for j := range values {
			if i != j && eq(values[i], values[j]) {
				count++
			}
		}
		if count*2 > n {
			return true
		}
	}
	return false
}
