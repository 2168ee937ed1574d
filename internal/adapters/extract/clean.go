package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	blankRun  = regexp.MustCompile(`\n\s+\n`)
	hSpaceRun = regexp.MustCompile(`[ \t]+`)
)

// CleanText canonicalises OCR output: NFKC, carriage returns become line
// breaks, whitespace-only lines collapse into one blank line and runs of
// spaces and tabs become a single space.
func CleanText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return hSpaceRun.ReplaceAllString(s, " ")
}
