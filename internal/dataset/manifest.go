// Package dataset holds the K600 housekeeping utilities that sit beside the
// quality filter: the caption manifest and the flat-to-categorized move.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vmunix/kprep/internal/fsx"
	"github.com/vmunix/kprep/internal/scan"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Entry is one manifest record.
type Entry struct {
	Video   string `json:"video"`
	Caption string `json:"caption"`
}

var (
	lower = cases.Lower(language.Und)
	upper = cases.Upper(language.Und)
)

// Caption derives a caption from an action directory name: first letter
// upper-cased, the rest lower-cased ("playing GUITAR" -> "Playing guitar").
func Caption(action string) string {
	s := norm.NFC.String(strings.TrimSpace(action))
	if s == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(s)
	return upper.String(s[:size]) + lower.String(s[size:])
}

// BuildManifest lists each immediate subdirectory of root as an action and
// emits one entry per file with extension ext directly inside it. Entries
// are sorted by video path.
func BuildManifest(root, ext string) ([]Entry, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", scan.ErrRootNotFound, root, err)
	}

	entries := make([]Entry, 0)
	for _, d := range dirs {
		if !isDir(root, d) {
			continue
		}
		action := d.Name()

		files, err := os.ReadDir(filepath.Join(root, action))
		if err != nil {
			return nil, fmt.Errorf("read action %s: %w", action, err)
		}
		caption := Caption(action)
		for _, f := range files {
			if f.IsDir() || !scan.HasExtension(f.Name(), ext) {
				continue
			}
			entries = append(entries, Entry{
				Video:   norm.NFC.String(action + "/" + f.Name()),
				Caption: caption,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Video < entries[j].Video })
	return entries, nil
}

// isDir follows symlinked action directories.
func isDir(root string, d os.DirEntry) bool {
	if d.IsDir() {
		return true
	}
	if d.Type()&os.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(filepath.Join(root, d.Name()))
	return err == nil && fi.IsDir()
}

// WriteManifest writes entries as indented JSON, replacing path atomically.
func WriteManifest(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	if err := fsx.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}
