// Package discovery groups document files on disk into per-person sets.
//
// Files are walked recursively in lexical order. Every file whose name
// contains a dot is a document; documents are grouped by the first few
// characters of their file name, groups appear in first-seen order and each
// group keeps at most the configured number of documents.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/pkg/logger"
)

const defaultPrefixLen = 4

// ErrDataDir is returned when the root cannot be used as a data directory.
var ErrDataDir = errors.New("invalid data directory")

type options struct {
	prefixLen int
	maxDocs   int
	logger    logger.Logger
}

// Option configures Discover.
type Option func(*options)

// WithPrefixLen sets how many leading characters of a file name identify the person.
func WithPrefixLen(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.prefixLen = n
		}
	}
}

// WithMaxDocuments caps the number of documents kept per person.
func WithMaxDocuments(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDocs = n
		}
	}
}

// WithLogger sets the logger used for truncation warnings.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Discover walks root and returns one group per person.
func Discover(ctx context.Context, root string, opts ...Option) ([]model.PersonGroup, error) {
	o := options{
		prefixLen: defaultPrefixLen,
		maxDocs:   model.DefaultMaxDocuments,
		logger:    logger.Get().Named("discovery"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDataDir, root)
	}

	var order []string
	files := make(map[string][]string)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			o.logger.Warn(ctx, "skipping unreadable path", logger.String("path", path), logger.Error(err))
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() || !strings.Contains(d.Name(), ".") {
			return nil
		}
		id := PersonID(d.Name(), o.prefixLen)
		if _, ok := files[id]; !ok {
			order = append(order, id)
		}
		files[id] = append(files[id], path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	groups := make([]model.PersonGroup, 0, len(order))
	for _, id := range order {
		sources := files[id]
		if len(sources) > o.maxDocs {
			o.logger.Warn(ctx, "too many documents for person, keeping the first ones",
				logger.String("person_id", id),
				logger.Int("found", len(sources)),
				logger.Int("kept", o.maxDocs),
			)
			sources = sources[:o.maxDocs]
		}
		groups = append(groups, model.PersonGroup{PersonID: id, Sources: sources})
	}
	return groups, nil
}

// PersonID returns the first n characters of a file name.
func PersonID(name string, n int) string {
	r := []rune(name)
	if len(r) <= n {
		return name
	}
	return string(r[:n])
}
