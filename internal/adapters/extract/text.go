package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/okian/doccheck/pkg/metrics"
)

const defaultPDFMaxPages = 50

// FileReader reads the text of files on disk: text files directly, PDFs
// through their text layer and images through OCR.
type FileReader struct {
	pdfMaxPages int
	ocr         *Tesseract
}

// ReaderOption configures a FileReader.
type ReaderOption func(*FileReader)

// WithPDFMaxPages limits how many PDF pages are read.
func WithPDFMaxPages(n int) ReaderOption {
	return func(r *FileReader) {
		if n > 0 {
			r.pdfMaxPages = n
		}
	}
}

// WithOCR sets the OCR engine used for images.
func WithOCR(t *Tesseract) ReaderOption {
	return func(r *FileReader) {
		if t != nil {
			r.ocr = t
		}
	}
}

// NewFileReader creates a FileReader.
func NewFileReader(opts ...ReaderOption) *FileReader {
	r := &FileReader{
		pdfMaxPages: defaultPDFMaxPages,
		ocr:         NewTesseract("", ""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadText returns the cleaned text of source.
func (r *FileReader) ReadText(ctx context.Context, source string) (string, error) {
	var (
		stage string
		text  string
		err   error
	)
	start := time.Now()

	switch e := ext(source); {
	case textExts[e]:
		stage = StageText
		var b []byte
		b, err = os.ReadFile(source)
		text = string(b)
	case e == ".pdf":
		stage = StagePDF
		text, err = readPDF(source, r.pdfMaxPages)
	case imageExts[e]:
		stage = StageOCR
		text, err = r.ocr.Recognize(ctx, source)
	default:
		metrics.RecordExtractionError(StageText)
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}

	metrics.RecordExtractionLatency(stage, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordExtractionError(stage)
		return "", fmt.Errorf("reading %s: %w", source, err)
	}

	text = CleanText(text)
	if strings.TrimSpace(text) == "" {
		metrics.RecordExtractionError(stage)
		return "", fmt.Errorf("%w: %s", ErrEmptyText, source)
	}
	return text, nil
}
