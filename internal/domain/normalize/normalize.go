// Package normalize canonicalizes raw document field values so that the same
// fact written differently on two documents compares equal.
//
// Every function here is pure and total: it never fails and never mutates its
// input. Normalizing an already normalized value returns it unchanged.
package normalize

import "strings"

// Name collapses whitespace runs to one space, trims and uppercases.
func Name(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// Phone keeps digits only; more than ten digits are cut down to the last ten
// so country prefixes are dropped.
func Phone(s string) string {
	d := Digits(s)
	if len(d) > 10 {
		return d[len(d)-10:]
	}
	return d
}

// Address uppercases only. Spacing and punctuation are kept.
func Address(s string) string {
	return strings.ToUpper(s)
}

// Email lowercases only.
func Email(s string) string {
	return strings.ToLower(s)
}

// Upper uppercases, used for PAN.
func Upper(s string) string {
	return strings.ToUpper(s)
}

// Digits drops every non-digit rune, used for Aadhaar.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Identity returns s unchanged.
func Identity(s string) string { return s }
