package fsutil

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob expands a brace/star pattern rooted at dir (e.g.
// "src/**/*.{cpp,cc}") into a sorted, deduplicated list of paths relative to
// dir. Patterns with no magic characters are returned as-is if the file
// exists, matching the source build description's "files" key semantics
// where a literal path is also a valid single-file entry.
func Glob(dir, pattern string) ([]string, error) {
	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// GlobAll expands every pattern in patterns against dir and returns the
// deduplicated, sorted union.
func GlobAll(dir string, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range patterns {
		matches, err := Glob(dir, p)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Abs joins dir and rel unless rel is already absolute.
func Abs(dir, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(dir, rel)
}
