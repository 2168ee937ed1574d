package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/pkg/metrics"
)

// JSONFile reads documents that were extracted ahead of time and stored as
// a flat JSON object of field name to value.
type JSONFile struct {
	vocab model.Vocabulary
}

// NewJSONFile creates a reader for pre-extracted documents.
func NewJSONFile(vocab model.Vocabulary) *JSONFile {
	if len(vocab) == 0 {
		vocab = model.DefaultVocabulary()
	}
	return &JSONFile{vocab: vocab}
}

// Extract reads the field set stored at source.
func (j *JSONFile) Extract(_ context.Context, source string) (model.RawFieldSet, error) {
	start := time.Now()
	defer func() {
		metrics.RecordExtractionLatency(StageJSON, float64(time.Since(start).Milliseconds()))
	}()

	b, err := os.ReadFile(source)
	if err != nil {
		metrics.RecordExtractionError(StageJSON)
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	fields, err := decodeFields(b, j.vocab)
	if err != nil {
		metrics.RecordExtractionError(StageJSON)
		return nil, fmt.Errorf("decoding %s: %w", source, err)
	}
	return fields, nil
}

// decodeFields decodes a JSON object into the fields of vocab. A key equal
// to a vocabulary name wins; otherwise keys match case-insensitively, the
// first in sorted order taking the field. Other keys are dropped. Non-string
// values are rendered as text and null becomes the empty string.
func decodeFields(b []byte, vocab model.Vocabulary) (model.RawFieldSet, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}

	byName := make(map[string]model.Field, len(vocab))
	for _, f := range vocab {
		byName[strings.ToLower(string(f))] = f
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(model.RawFieldSet, len(vocab))
	exact := make(map[model.Field]bool, len(vocab))
	for _, k := range keys {
		name := strings.TrimSpace(k)
		f, ok := byName[strings.ToLower(name)]
		if !ok || exact[f] {
			continue
		}
		if name == string(f) {
			out[f] = coerce(obj[k])
			exact[f] = true
			continue
		}
		if _, seen := out[f]; !seen {
			out[f] = coerce(obj[k])
		}
	}
	return out, nil
}

func coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
