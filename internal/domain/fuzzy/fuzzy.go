// Package fuzzy scores string similarity on a 0..100 scale, insensitive to
// token order.
package fuzzy

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Scorer returns a similarity in [0, 100]. Implementations are symmetric.
type Scorer interface {
	Score(a, b string) float64
}

// Scorer names accepted by ByName.
const (
	NameTokenSort   = "token_sort"
	NameLevenshtein = "levenshtein"
)

// TokenSort compares whitespace tokens sorted and rejoined with one space,
// scored by the indel ratio.
type TokenSort struct{}

// Score implements Scorer.
func (TokenSort) Score(a, b string) float64 {
	return indelRatio(sortTokens(a), sortTokens(b))
}

// LevenshteinTokenSort is TokenSort scored by edit distance instead of indel
// distance, so a substitution costs one instead of two.
type LevenshteinTokenSort struct{}

// Score implements Scorer.
func (LevenshteinTokenSort) Score(a, b string) float64 {
	a, b = sortTokens(a), sortTokens(b)
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// ByName returns the scorer registered under name.
func ByName(name string) (Scorer, error) {
	switch name {
	case "", NameTokenSort:
		return TokenSort{}, nil
	case NameLevenshtein:
		return LevenshteinTokenSort{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScorer, name)
}

// TokenSortRatio is the default scorer as a function.
func TokenSortRatio(a, b string) float64 {
	return TokenSort{}.Score(a, b)
}

// Match reports whether a and b score at least threshold with the default
// scorer. A missing value never matches.
func Match(a, b string, threshold float64) bool {
	return MatchWith(TokenSort{}, a, b, threshold)
}

// MatchWith is Match with an explicit scorer.
func MatchWith(s Scorer, a, b string, threshold float64) bool {
	if a == "" || b == "" {
		return false
	}
	return s.Score(a, b) >= threshold
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// indelRatio is 100 * (1 - indel/(len(a)+len(b))) where indel is the number
// of insertions and deletions turning a into b, i.e. lensum - 2*LCS.
func indelRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	lcs := lcsLength(ra, rb)
	return 100 * float64(2*lcs) / float64(total)
}

func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
