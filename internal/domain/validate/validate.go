// Package validate holds format checks for identity numbers.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/okian/doccheck/internal/domain/normalize"
)

// Predicate reports whether a value has a valid format.
type Predicate func(string) bool

var (
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)
)

// PAN checks five letters, four digits and a letter, case-insensitively.
func PAN(s string) bool {
	return panPattern.MatchString(strings.ToUpper(s))
}

// Aadhaar checks for exactly twelve digits once separators are removed.
func Aadhaar(s string) bool {
	return aadhaarPattern.MatchString(normalize.Digits(s))
}

// ValidOrEmpty treats a missing value as valid.
func ValidOrEmpty(p Predicate, s string) bool {
	return s == "" || p(s)
}

var registry = map[string]Predicate{
	"pan":     PAN,
	"aadhaar": Aadhaar,
}

// Lookup returns the predicate registered under name.
func Lookup(name string) (Predicate, error) {
	p, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return p, nil
}

// Names lists the registered format names.
func Names() []string {
	return []string{"aadhaar", "pan"}
}
