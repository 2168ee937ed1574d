package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const (
	defaultOCRCommand = "tesseract"
	defaultOCRLang    = "eng"
)

// Tesseract runs the tesseract command line tool on an image and reads the
// recognised text from its stdout.
type Tesseract struct {
	command string
	lang    string
}

// NewTesseract creates an OCR engine. Empty arguments use "tesseract" and "eng".
func NewTesseract(command, lang string) *Tesseract {
	if command == "" {
		command = defaultOCRCommand
	}
	if lang == "" {
		lang = defaultOCRLang
	}
	return &Tesseract{command: command, lang: lang}
}

// Recognize returns the raw OCR text of the image at path.
func (t *Tesseract) Recognize(ctx context.Context, path string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.command, path, "stdout", "-l", t.lang)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s: %s", ErrOCR, msg, err)
		}
		return "", fmt.Errorf("%w: %w", ErrOCR, err)
	}
	return stdout.String(), nil
}
