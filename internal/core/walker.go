// ABOUTME: FileWalker enumerates repository files matching include globs
// ABOUTME: Prunes excluded and hidden directories while walking
package core

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileWalker finds candidate files under a repository root
type FileWalker struct {
	root    string
	include []string
	exclude []string
}

// NewFileWalker validates the glob patterns and returns a walker for root.
// Patterns use forward slashes and are matched against root-relative paths.
func NewFileWalker(root string, include, exclude []string) (*FileWalker, error) {
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return &FileWalker{root: root, include: include, exclude: exclude}, nil
}

// Walk returns the sorted root-relative paths of every included file
func (w *FileWalker) Walk(ctx context.Context) ([]string, error) {
	var files []string

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtrees are skipped, an unreadable root is not
			if path == w.root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if isHidden(d.Name()) || w.prunes(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || isHidden(d.Name()) {
			return nil
		}
		if w.Matches(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", w.root, err)
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether a root-relative file path is included and not excluded
func (w *FileWalker) Matches(rel string) bool {
	if !matchAny(w.include, rel) {
		return false
	}
	return !matchAny(w.exclude, rel)
}

// prunes reports whether every file below dir is excluded, so the walk can
// skip the directory entirely. Only patterns ending in /** qualify.
func (w *FileWalker) prunes(dir string) bool {
	probe := dir + "/probe"
	for _, p := range w.exclude {
		if !strings.HasSuffix(p, "/**") {
			continue
		}
		if ok, _ := doublestar.Match(p, probe); ok {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
