package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayout is the canonical date form.
const DateLayout = "2006-01-02"

// now is swapped in tests to pin the two-digit year pivot.
var now = time.Now

var (
	numericDate = regexp.MustCompile(`(?:^|[^\d])(\d{1,4})[./\-](\d{1,2})[./\-](\d{1,4})(?:$|[^\d])`)
	textualDate = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)?[\s\-.,/]*(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?[\s\-.,/]*(\d{4}|\d{2})(?:$|[^\d])`)
	textualUS   = regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})(?:$|[^\d])`)
	allDigits   = regexp.MustCompile(`^\d+$`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "sept": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

// Date parses s leniently, day first, and renders it as YYYY-MM-DD. Noise
// around the date is tolerated ("DOB: 01/01/1990"). When nothing parses the
// input is returned unchanged with parsed=false.
func Date(s string) (string, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return s, false
	}
	if d, ok := numeric(t); ok {
		return d.Format(DateLayout), true
	}
	if d, ok := textual(t); ok {
		return d.Format(DateLayout), true
	}
	if allDigits.MatchString(t) && len(t) != 8 {
		// bare integers are not dates (dateparse would read them as epochs)
		return s, false
	}
	if d, err := dateparse.ParseAny(t, dateparse.PreferMonthFirst(false)); err == nil {
		return d.Format(DateLayout), true
	}
	return s, false
}

// numeric handles dd/mm/yyyy style dates and ISO yyyy-mm-dd. Day-first is
// swapped to month-first only when day-first cannot be a real date.
func numeric(s string) (time.Time, bool) {
	m := numericDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	a, b, c := m[1], m[2], m[3]
	if len(a) == 4 {
		if len(c) > 2 {
			return time.Time{}, false
		}
		return civil(atoi(a), atoi(b), atoi(c))
	}
	if len(a) > 2 || len(c) == 1 || len(c) == 3 {
		return time.Time{}, false
	}
	year := atoi(c)
	if len(c) == 2 {
		year = pivotYear(year)
	}
	if d, ok := civil(year, atoi(b), atoi(a)); ok {
		return d, true
	}
	return civil(year, atoi(a), atoi(b))
}

// textual handles month names: "12 March 1990", "12-Mar-90", "March 12, 1990".
func textual(s string) (time.Time, bool) {
	if m := textualDate.FindStringSubmatch(s); m != nil {
		return civil(yearOf(m[3]), int(months[strings.ToLower(m[2])]), atoi(m[1]))
	}
	if m := textualUS.FindStringSubmatch(s); m != nil {
		return civil(yearOf(m[3]), int(months[strings.ToLower(m[1])]), atoi(m[2]))
	}
	return time.Time{}, false
}

func yearOf(s string) int {
	y := atoi(s)
	if len(s) == 2 {
		return pivotYear(y)
	}
	return y
}

// pivotYear places a two-digit year within fifty years of the current year.
func pivotYear(y int) int {
	cur := now().Year()
	y += cur / 100 * 100
	switch {
	case y >= cur+50:
		y -= 100
	case y < cur-50:
		y += 100
	}
	return y
}

// civil builds a date and rejects overflow such as 31/02.
func civil(y, m, d int) (time.Time, bool) {
	if y <= 0 || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
