// Package extract turns document files into raw field sets.
//
// Extraction happens in two steps: a TextReader acquires the text of a
// source (plain text, PDF text layer or OCR of an image) and a FieldParser
// turns that text into named fields. Pre-extracted JSON documents skip both
// steps. Router picks the path by file extension.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/okian/doccheck/internal/domain/model"
)

// Extractor produces the raw fields of one document source.
type Extractor interface {
	Extract(ctx context.Context, source string) (model.RawFieldSet, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, source string) (model.RawFieldSet, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, source string) (model.RawFieldSet, error) {
	return f(ctx, source)
}

// TextReader acquires the text content of a source.
type TextReader interface {
	ReadText(ctx context.Context, source string) (string, error)
}

// FieldParser turns document text into raw fields.
type FieldParser interface {
	ParseFields(ctx context.Context, text string) (model.RawFieldSet, error)
}

// Stage names used in metrics and logs.
const (
	StageText  = "text"
	StagePDF   = "pdf"
	StageOCR   = "ocr"
	StageLLM   = "llm"
	StageRules = "heuristic"
	StageJSON  = "json"
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
	".bmp": true, ".gif": true, ".webp": true, ".pnm": true,
}

var textExts = map[string]bool{
	".txt": true, ".text": true, ".md": true,
}

func ext(source string) string {
	return strings.ToLower(filepath.Ext(source))
}

// IsImage reports whether source is an image handled by OCR.
func IsImage(source string) bool { return imageExts[ext(source)] }
