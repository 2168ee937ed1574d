package service

import (
	"fmt"
	"path/filepath"
	"strings"
)

// confineSources resolves every source against root and returns the absolute
// paths. A source that leaves root, textually or through a symlink, fails
// with ErrOutsideData.
func confineSources(root string, sources []string) ([]string, error) {
	if strings.TrimSpace(root) == "" {
		return nil, ErrNoDataDir
	}
	base, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	realBase := base
	if r, err := filepath.EvalSymlinks(base); err == nil {
		realBase = r
	}

	out := make([]string, 0, len(sources))
	for _, src := range sources {
		p := src
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		p = filepath.Clean(p)
		if !within(base, p) && !within(realBase, p) {
			return nil, fmt.Errorf("%w: %s", ErrOutsideData, src)
		}
		// Missing files are left to the extractor; existing ones must not
		// point out of the data directory.
		if r, err := filepath.EvalSymlinks(p); err == nil && !within(realBase, r) {
			return nil, fmt.Errorf("%w: %s", ErrOutsideData, src)
		}
		out = append(out, p)
	}
	return out, nil
}

// within reports whether p is strictly below root.
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
