package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/pkg/metrics"
)

// labelled matches "Label: value" and "Label - value" lines.
var labelled = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z'./ ]{1,30}?)\s*[:\-]\s*(.+?)\s*$`)

var labels = map[string]model.Field{
	"name":             model.FullName,
	"full name":        model.FullName,
	"father's name":    model.FatherName,
	"father name":      model.FatherName,
	"fathers name":     model.FatherName,
	"s/o":              model.FatherName,
	"dob":              model.DateOfBirth,
	"d.o.b":            model.DateOfBirth,
	"d.o.b.":           model.DateOfBirth,
	"date of birth":    model.DateOfBirth,
	"birth date":       model.DateOfBirth,
	"address":          model.CompleteAddress,
	"complete address": model.CompleteAddress,
	"phone":            model.PhoneNumber,
	"phone number":     model.PhoneNumber,
	"mobile":           model.PhoneNumber,
	"mobile no":        model.PhoneNumber,
	"email":            model.EmailAddress,
	"email address":    model.EmailAddress,
	"aadhaar":          model.AadhaarNumber,
	"aadhaar no":       model.AadhaarNumber,
	"aadhaar number":   model.AadhaarNumber,
	"pan":              model.PANNumber,
	"pan no":           model.PANNumber,
	"pan number":       model.PANNumber,
	"employee id":      model.EmployeeID,
	"emp id":           model.EmployeeID,
	"account number":   model.AccountNumber,
	"account no":       model.AccountNumber,
	"a/c no":           model.AccountNumber,
}

// patterns find unlabelled values anywhere in the text.
var patterns = []struct {
	field model.Field
	re    *regexp.Regexp
}{
	{model.PANNumber, regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]\b`)},
	{model.AadhaarNumber, regexp.MustCompile(`\b[0-9]{4}\s?[0-9]{4}\s?[0-9]{4}\b`)},
	{model.EmailAddress, regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{model.PhoneNumber, regexp.MustCompile(`(?:\+91[\s\-]?)?\b[6-9][0-9]{9}\b`)},
	{model.DateOfBirth, regexp.MustCompile(`\b[0-9]{1,2}[/.\-][0-9]{1,2}[/.\-][0-9]{2,4}\b`)},
}

// Heuristic extracts fields from "Label: value" lines, then fills the
// remaining gaps with value patterns. It needs no model and is deterministic.
type Heuristic struct {
	vocab model.Vocabulary
}

// NewHeuristic creates a heuristic field parser.
func NewHeuristic(vocab model.Vocabulary) *Heuristic {
	if len(vocab) == 0 {
		vocab = model.DefaultVocabulary()
	}
	return &Heuristic{vocab: vocab}
}

// ParseFields implements FieldParser.
func (h *Heuristic) ParseFields(_ context.Context, text string) (model.RawFieldSet, error) {
	start := time.Now()
	defer func() {
		metrics.RecordExtractionLatency(StageRules, float64(time.Since(start).Milliseconds()))
	}()

	out := model.RawFieldSet{}
	for _, line := range strings.Split(text, "\n") {
		m := labelled.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		f, ok := labels[strings.ToLower(strings.TrimSpace(m[1]))]
		if !ok || !h.vocab.Contains(f) || out[f] != "" {
			continue
		}
		out[f] = m[2]
	}

	for _, p := range patterns {
		if !h.vocab.Contains(p.field) || out[p.field] != "" {
			continue
		}
		if v := p.re.FindString(text); v != "" {
			out[p.field] = v
		}
	}
	return out, nil
}
