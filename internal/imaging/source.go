package imaging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultPattern is the file pattern used when none is given. It also
// matches the four-letter ".tiff" spelling.
const DefaultPattern = "*.tif"

// ErrNoImages is returned when a directory contains no files matching the
// requested pattern.
var ErrNoImages = errors.New("no images found")

// Source is an ordered list of image files taken from one directory.
type Source struct {
	dir     string
	pattern string
	paths   []string
}

// NewSource lists the image files of dir whose base name matches pattern.
//
// Parameters:
//   - dir: Directory to scan. Subdirectories are not descended into.
//   - pattern: filepath.Match pattern applied to base names, case-sensitive.
//     Empty means DefaultPattern, which also matches "*.tiff".
//   - limit: When > 0, only the first limit files are kept.
//
// Returns:
//   - *Source: Files in lexical order of their names.
//   - error: ErrNoImages when nothing matches, or the directory read or
//     pattern error.
func NewSource(dir, pattern string, limit int) (*Source, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	patterns := []string{pattern}
	if pattern == DefaultPattern {
		patterns = append(patterns, "*.tiff")
	}
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if matchesAny(patterns, e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoImages, pattern, dir)
	}

	sort.Strings(paths)
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}

	return &Source{dir: dir, pattern: pattern, paths: paths}, nil
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Paths returns a copy of the selected file paths in order.
func (s *Source) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Len returns the number of selected files.
func (s *Source) Len() int {
	return len(s.paths)
}

// Dir returns the scanned directory.
func (s *Source) Dir() string {
	return s.dir
}

// Pattern returns the effective file pattern.
func (s *Source) Pattern() string {
	return s.pattern
}
