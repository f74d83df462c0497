// Package scan enumerates media files under a dataset root and computes the
// work left after a previous, possibly interrupted, run.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrRootNotFound is returned when the root directory is missing or is not
// a directory.
var ErrRootNotFound = errors.New("root directory not found")

// WalkError records a subtree that could not be read.
type WalkError struct {
	Path string
	Err  error
}

func (e WalkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Result is the outcome of a walk: absolute, sorted file paths plus any
// subtrees that were skipped.
type Result struct {
	Paths  []string
	Errors []WalkError
}

// HasExtension reports whether path ends in ext, ignoring case.
func HasExtension(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}

// Enumerate walks root and collects every file ending in ext (case-insensitive).
// An unreadable subdirectory is recorded and skipped; the walk continues.
func Enumerate(root, ext string) (*Result, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootNotFound, root, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}

	res := &Result{}
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == abs {
				return err
			}
			res.Errors = append(res.Errors, WalkError{Path: path, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if HasExtension(path, ext) {
			res.Paths = append(res.Paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(res.Paths)
	return res, nil
}
