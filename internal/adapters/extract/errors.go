package extract

import "errors"

// Sentinel kinds for extraction errors.
var (
	ErrNoExtractor       = errors.New("no extractor for source")
	ErrUnsupportedSource = errors.New("unsupported source type")
	ErrEmptyText         = errors.New("no text found in source")
	ErrNoJSONObject      = errors.New("no JSON object in model output")
	ErrLLMRequest        = errors.New("language model request failed")
	ErrOCR               = errors.New("ocr failed")
)
