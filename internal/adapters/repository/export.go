package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/doccheck/internal/domain/model"
)

// EncodeRecords writes records as a 2-space indented JSON array.
func EncodeRecords(w io.Writer, records []model.PersonVerificationRecord) error {
	if records == nil {
		records = []model.PersonVerificationRecord{}
	}
	return encodeIndented(w, records)
}

func encodeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	return nil
}

// WriteJSONFile writes records to path, creating parent directories. The
// file is written next to its destination and renamed into place.
func WriteJSONFile(path string, records []model.PersonVerificationRecord) error {
	if records == nil {
		records = []model.PersonVerificationRecord{}
	}
	return WriteJSON(path, records)
}

// WriteJSON is WriteJSONFile for any JSON value.
func WriteJSON(path string, v any) error {
	if path == "" {
		return ErrNoOutputPath
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if err := encodeIndented(tmp, v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("setting output file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadJSONFile loads records previously written by WriteJSONFile.
func ReadJSONFile(path string) ([]model.PersonVerificationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var out []model.PersonVerificationRecord
	if err := json.NewDecoder(f).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return out, nil
}
