package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/doccheck/internal/config"
	"github.com/okian/doccheck/internal/domain/model"
)

// Router sends .json sources to the pre-extracted reader and everything
// else through text acquisition and field parsing.
type Router struct {
	reader TextReader
	parser FieldParser
	json   *JSONFile
}

// NewRouter creates a Router. A nil parser means only pre-extracted JSON
// sources can be handled.
func NewRouter(reader TextReader, parser FieldParser, vocab model.Vocabulary) *Router {
	return &Router{
		reader: reader,
		parser: parser,
		json:   NewJSONFile(vocab),
	}
}

// Extract implements Extractor.
func (r *Router) Extract(ctx context.Context, source string) (model.RawFieldSet, error) {
	if ext(source) == ".json" {
		return r.json.Extract(ctx, source)
	}
	if r.reader == nil || r.parser == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoExtractor, source)
	}

	text, err := r.reader.ReadText(ctx, source)
	if err != nil {
		return nil, err
	}
	fields, err := r.parser.ParseFields(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extracting fields from %s: %w", source, err)
	}
	return fields, nil
}

// NewFromConfig builds the extractor described by cfg.
func NewFromConfig(cfg *config.Config) (*Router, error) {
	vocab := cfg.Vocabulary()
	reader := NewFileReader(
		WithPDFMaxPages(cfg.PDFMaxPages),
		WithOCR(NewTesseract(cfg.OCRCommand, cfg.OCRLang)),
	)

	var parser FieldParser
	switch cfg.Extractor {
	case config.ExtractorLLM:
		parser = NewLLM(LLMConfig{
			BaseURL:     cfg.LLMBaseURL,
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			PromptChars: cfg.LLMPromptChars,
			Timeout:     time.Duration(cfg.LLMTimeoutMS) * time.Millisecond,
			Vocabulary:  vocab,
		})
	case config.ExtractorHeuristic:
		parser = NewHeuristic(vocab)
	default:
		return nil, fmt.Errorf("%w: %q", ErrNoExtractor, cfg.Extractor)
	}

	return NewRouter(reader, parser, vocab), nil
}
