package normalize

import (
	"fmt"

	model "github.com/okian/doccheck/internal/domain/model"
)

// Kind selects the normalization applied to a field.
type Kind string

const (
	KindName    Kind = "name"
	KindPhone   Kind = "phone"
	KindDate    Kind = "date"
	KindAddress Kind = "address"
	KindEmail   Kind = "email"
	KindDigits  Kind = "digits"
	KindUpper   Kind = "upper"
	KindNone    Kind = "none"
)

// ParseKind validates a configured kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindName, KindPhone, KindDate, KindAddress, KindEmail, KindDigits, KindUpper, KindNone:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// DefaultKinds returns the field to kind mapping for the default vocabulary.
func DefaultKinds() map[model.Field]Kind {
	return map[model.Field]Kind{
		model.FullName:        KindName,
		model.FatherName:      KindName,
		model.DateOfBirth:     KindDate,
		model.CompleteAddress: KindAddress,
		model.PhoneNumber:     KindPhone,
		model.EmailAddress:    KindEmail,
		model.AadhaarNumber:   KindDigits,
		model.PANNumber:       KindUpper,
		model.EmployeeID:      KindNone,
		model.AccountNumber:   KindNone,
	}
}

// Apply runs the normalization for k. parsed is false only for a non-empty
// date that fell back to its raw value.
func (k Kind) Apply(s string) (out string, parsed bool) {
	switch k {
	case KindName:
		return Name(s), true
	case KindPhone:
		return Phone(s), true
	case KindDate:
		if s == "" {
			return s, true
		}
		return Date(s)
	case KindAddress:
		return Address(s), true
	case KindEmail:
		return Email(s), true
	case KindDigits:
		return Digits(s), true
	case KindUpper:
		return Upper(s), true
	default:
		return Identity(s), true
	}
}

// Normalizer normalizes whole field sets according to a field to kind map.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	vocab      model.Vocabulary
	kinds      map[model.Field]Kind
	onFallback func(model.Field)
}

// New builds a Normalizer for the default vocabulary and kinds unless
// overridden by options.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		vocab: model.DefaultVocabulary(),
		kinds: DefaultKinds(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Vocabulary returns the fields this normalizer emits.
func (n *Normalizer) Vocabulary() model.Vocabulary {
	out := make(model.Vocabulary, len(n.vocab))
	copy(out, n.vocab)
	return out
}

// KindOf returns the kind used for f. Unmapped fields pass through.
func (n *Normalizer) KindOf(f model.Field) Kind {
	if k, ok := n.kinds[f]; ok {
		return k
	}
	return KindNone
}

// Value normalizes a single field value.
func (n *Normalizer) Value(f model.Field, s string) (string, bool) {
	return n.KindOf(f).Apply(s)
}

// NormalizeFieldSet returns the normalized form of raw over the vocabulary.
// Missing keys are treated as empty strings.
func (n *Normalizer) NormalizeFieldSet(raw model.RawFieldSet) model.NormalizedFieldSet {
	out := model.NormalizedFieldSet{
		Values:   make(map[model.Field]string, len(n.vocab)),
		Degraded: map[model.Field]bool{},
	}
	for _, f := range n.vocab {
		v, ok := n.Value(f, raw.Get(f))
		out.Values[f] = v
		if !ok {
			out.Degraded[f] = true
			if n.onFallback != nil {
				n.onFallback(f)
			}
		}
	}
	return out
}
