package rules

import (
	"fmt"

	"github.com/okian/doccheck/internal/domain/fuzzy"
	model "github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/internal/domain/validate"
)

// Engine evaluates an ordered rule list. It holds no mutable state after
// construction and is safe for concurrent use.
type Engine struct {
	rules    []Rule
	vocab    model.Vocabulary
	topology Topology
	scorer   fuzzy.Scorer
	formats  map[string]validate.Predicate
}

// NewEngine builds an engine with the default rules, star topology and token
// sort scorer unless overridden. Rules are validated up front.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		rules:    DefaultRules(DefaultThresholds()),
		vocab:    model.DefaultVocabulary(),
		topology: Star{},
		scorer:   fuzzy.TokenSort{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := ValidateRules(e.rules, e.vocab); err != nil {
		return nil, err
	}
	e.formats = make(map[string]validate.Predicate)
	for _, r := range e.rules {
		if r.Kind != KindFormat {
			continue
		}
		p, err := validate.Lookup(r.Format)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, err)
		}
		e.formats[r.Name] = p
	}
	return e, nil
}

// Rules returns a copy of the rule list.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// RuleNames returns the rule names in evaluation order.
func (e *Engine) RuleNames() []string { return Names(e.rules) }

// Topology returns the configured topology.
func (e *Engine) Topology() Topology { return e.topology }

// Evaluate runs every rule over the group. A group without documents fails
// every rule. The verdict is VERIFIED iff every rule passes.
func (e *Engine) Evaluate(g model.PersonDocumentGroup, opts ...EvalOption) (model.RuleResults, model.OverallStatus) {
	var ev evalOptions
	for _, opt := range opts {
		opt(&ev)
	}

	results := make(model.RuleResults, 0, len(e.rules))
	for _, r := range e.rules {
		if t, ok := ev.thresholds[r.Name]; ok {
			r.Threshold = t
		}
		results = append(results, e.evaluate(r, g))
	}
	return results, results.Overall()
}

func (e *Engine) evaluate(r Rule, g model.PersonDocumentGroup) model.RuleResult {
	res := model.RuleResult{Name: r.Name, Status: model.StatusFail}
	if len(g.Documents) == 0 {
		return res
	}

	values := g.Values(r.Field)
	var ok bool
	switch r.Kind {
	case KindFuzzy:
		threshold := r.Threshold
		ok = e.topology.Agree(values, func(a, b string) bool {
			return fuzzy.MatchWith(e.scorer, a, b, threshold)
		})
	case KindExact:
		ok = e.topology.Agree(values, func(a, b string) bool { return a == b })
	case KindFormat:
		pred := e.formats[r.Name]
		ok = true
		for _, v := range values {
			if !validate.ValidOrEmpty(pred, v) {
				ok = false
				break
			}
		}
	}
	if ok {
		res.Status = model.StatusPass
	}

	if r.Kind != KindFormat {
		for _, d := range g.Documents {
			if d.Fields.IsDegraded(r.Field) {
				res.Unparsed = append(res.Unparsed, d.ID)
			}
		}
	}
	return res
}
