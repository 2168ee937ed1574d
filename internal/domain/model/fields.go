// Package model contains domain models passed between layers.
package model

// Field names a value extracted from an identity document. The string form is
// the exact key used in persisted output, apostrophe included.
type Field string

// Default field vocabulary.
const (
	FullName        Field = "Full Name"
	FatherName      Field = "Father's Name"
	DateOfBirth     Field = "Date of Birth"
	CompleteAddress Field = "Complete Address"
	PhoneNumber     Field = "Phone Number"
	EmailAddress    Field = "Email Address"
	AadhaarNumber   Field = "Aadhaar Number"
	PANNumber       Field = "PAN Number"
	EmployeeID      Field = "Employee ID"
	AccountNumber   Field = "Account Number"
)

// Vocabulary is an ordered list of fields. Order drives output ordering.
type Vocabulary []Field

// DefaultVocabulary returns a fresh copy of the ten default fields.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		FullName,
		FatherName,
		DateOfBirth,
		CompleteAddress,
		PhoneNumber,
		EmailAddress,
		AadhaarNumber,
		PANNumber,
		EmployeeID,
		AccountNumber,
	}
}

// Contains reports whether f is part of the vocabulary.
func (v Vocabulary) Contains(f Field) bool {
	for _, x := range v {
		if x == f {
			return true
		}
	}
	return false
}

// VocabularyFromStrings converts configured names into a Vocabulary.
func VocabularyFromStrings(names []string) Vocabulary {
	v := make(Vocabulary, 0, len(names))
	for _, n := range names {
		v = append(v, Field(n))
	}
	return v
}

// RawFieldSet holds the values extracted from one document. Any value may be
// empty, meaning "not found".
type RawFieldSet map[Field]string

// Get returns the value for f, or "" when the key is missing.
func (r RawFieldSet) Get(f Field) string {
	if r == nil {
		return ""
	}
	return r[f]
}

// Project returns a new set holding exactly the vocabulary keys.
func (r RawFieldSet) Project(vocab Vocabulary) RawFieldSet {
	out := make(RawFieldSet, len(vocab))
	for _, f := range vocab {
		out[f] = r.Get(f)
	}
	return out
}

// EmptyFieldSet returns a set with every vocabulary field present and empty.
func EmptyFieldSet(vocab Vocabulary) RawFieldSet {
	return RawFieldSet(nil).Project(vocab)
}

// NormalizedFieldSet holds canonicalized values for one document.
type NormalizedFieldSet struct {
	Values map[Field]string

	// Degraded marks date fields whose non-empty value could not be parsed
	// and was kept verbatim.
	Degraded map[Field]bool
}

// Get returns the normalized value for f, or "".
func (n NormalizedFieldSet) Get(f Field) string {
	if n.Values == nil {
		return ""
	}
	return n.Values[f]
}

// IsDegraded reports whether f fell back to its raw value during normalization.
func (n NormalizedFieldSet) IsDegraded(f Field) bool {
	return n.Degraded[f]
}

// Raw converts the normalized values back into a RawFieldSet so a normalized
// set can be fed through normalization again.
func (n NormalizedFieldSet) Raw() RawFieldSet {
	out := make(RawFieldSet, len(n.Values))
	for k, v := range n.Values {
		out[k] = v
	}
	return out
}
