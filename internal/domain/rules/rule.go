// Package rules evaluates verification rules across the documents of one
// person and derives the overall verdict.
package rules

import (
	"fmt"

	model "github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/internal/domain/validate"
)

// Kind is how a rule compares values.
type Kind string

const (
	// KindFuzzy compares values across documents with a similarity threshold.
	KindFuzzy Kind = "fuzzy"
	// KindExact compares values across documents for equality.
	KindExact Kind = "exact"
	// KindFormat checks every document's value against a named format.
	KindFormat Kind = "format"
)

// Default rule names, also the keys of verification_results.
const (
	RuleNameMatch       = "rule_1_name_match"
	RuleDOBMatch        = "rule_2_dob_match"
	RuleAddressMatch    = "rule_3_address_match"
	RulePhoneMatch      = "rule_4_phone_match"
	RuleFatherNameMatch = "rule_5_father_name_match"
	RulePANFormat       = "rule_6_pan_format"
	RuleAadhaarFormat   = "rule_7_aadhaar_format"
)

// Rule is one verification rule. Threshold applies to fuzzy rules, Format to
// format rules.
type Rule struct {
	Name      string      `koanf:"name" json:"name"`
	Field     model.Field `koanf:"field" json:"field"`
	Kind      Kind        `koanf:"kind" json:"kind"`
	Threshold float64     `koanf:"threshold" json:"threshold,omitempty"`
	Format    string      `koanf:"format" json:"format,omitempty"`
}

// Thresholds are the fuzzy thresholds of the default rule list.
type Thresholds struct {
	Name       float64
	FatherName float64
	Address    float64
}

// DefaultThresholds returns 85 for names and 80 for addresses.
func DefaultThresholds() Thresholds {
	return Thresholds{Name: 85, FatherName: 85, Address: 80}
}

// DefaultRules returns the seven standard rules in evaluation order.
func DefaultRules(t Thresholds) []Rule {
	return []Rule{
		{Name: RuleNameMatch, Field: model.FullName, Kind: KindFuzzy, Threshold: t.Name},
		{Name: RuleDOBMatch, Field: model.DateOfBirth, Kind: KindExact},
		{Name: RuleAddressMatch, Field: model.CompleteAddress, Kind: KindFuzzy, Threshold: t.Address},
		{Name: RulePhoneMatch, Field: model.PhoneNumber, Kind: KindExact},
		{Name: RuleFatherNameMatch, Field: model.FatherName, Kind: KindFuzzy, Threshold: t.FatherName},
		{Name: RulePANFormat, Field: model.PANNumber, Kind: KindFormat, Format: "pan"},
		{Name: RuleAadhaarFormat, Field: model.AadhaarNumber, Kind: KindFormat, Format: "aadhaar"},
	}
}

// Validate checks the rule against a vocabulary.
func (r Rule) Validate(vocab model.Vocabulary) error {
	if r.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRule)
	}
	if len(vocab) > 0 && !vocab.Contains(r.Field) {
		return fmt.Errorf("%w: %s: field %q not in vocabulary", ErrInvalidRule, r.Name, r.Field)
	}
	switch r.Kind {
	case KindFuzzy:
		if r.Threshold < 0 || r.Threshold > 100 {
			return fmt.Errorf("%w: %s: threshold %v out of range", ErrInvalidRule, r.Name, r.Threshold)
		}
	case KindExact:
	case KindFormat:
		if _, err := validate.Lookup(r.Format); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidRule, r.Name, err)
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidRule, r.Name, r.Kind)
	}
	return nil
}

// ValidateRules checks every rule and that names are unique.
func ValidateRules(rules []Rule, vocab model.Vocabulary) error {
	if len(rules) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalidRule)
	}
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if err := r.Validate(vocab); err != nil {
			return err
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("%w: duplicate rule %q", ErrInvalidRule, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// Names returns the rule names in order.
func Names(rules []Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Name
	}
	return out
}
