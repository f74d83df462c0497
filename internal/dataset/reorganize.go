package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
)

// SuggestThreshold is the minimum Jaro-Winkler similarity for a
// "did you mean" hint on a missing file.
const SuggestThreshold = 0.90

// Group is the set of files that belong in one category directory.
type Group struct {
	Category string
	Files    []string
}

// Plan lists the moves to perform, grouped by category.
type Plan struct {
	Groups []Group
}

// Len returns the number of files named by the plan.
func (p *Plan) Len() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Files)
	}
	return n
}

// LoadPlan reads a plan from path. A .json file must hold an object mapping
// category to file names; keys in skipKeys are ignored. Any other file is a
// line list of "category/file" or "category file" entries.
func LoadPlan(path string, skipKeys []string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read plan: %w", err)
		}
		return ParsePlanJSON(data, skipKeys)
	}
	return ParsePlanList(f)
}

// ParsePlanJSON decodes a category -> files object. Categories are sorted.
func ParsePlanJSON(data []byte, skipKeys []string) (*Plan, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		if slices.Contains(skipKeys, k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	plan := &Plan{}
	for _, k := range keys {
		var files []string
		if err := json.Unmarshal(raw[k], &files); err != nil {
			return nil, fmt.Errorf("%w: category %q: expected a list of file names", ErrInvalidPlan, k)
		}
		if err := plan.add(k, files...); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// ParsePlanList reads one entry per line. Blank lines and lines starting
// with # are ignored. Entries for the same category are merged in order.
func ParsePlanList(r io.Reader) (*Plan, error) {
	plan := &Plan{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		category, file, ok := strings.Cut(line, "/")
		if !ok {
			// Categories may contain spaces ("playing guitar"); the file
			// name is whatever follows the last run of whitespace.
			i := strings.LastIndexFunc(line, unicode.IsSpace)
			if i < 0 {
				return nil, fmt.Errorf("%w: line %d: want \"category/file\" or \"category file\", got %q",
					ErrInvalidPlan, lineNo, line)
			}
			category, file = line[:i], strings.TrimLeftFunc(line[i:], unicode.IsSpace)
		}
		if err := plan.add(strings.TrimSpace(category), strings.TrimSpace(file)); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return plan, nil
}

func (p *Plan) add(category string, files ...string) error {
	if err := validateName(category); err != nil {
		return fmt.Errorf("category: %w", err)
	}
	for _, f := range files {
		if err := validateName(f); err != nil {
			return fmt.Errorf("category %s: file: %w", category, err)
		}
	}
	for i := range p.Groups {
		if p.Groups[i].Category == category {
			p.Groups[i].Files = append(p.Groups[i].Files, files...)
			return nil
		}
	}
	p.Groups = append(p.Groups, Group{Category: category, Files: append([]string(nil), files...)})
	return nil
}

// Move is a single source -> destination relocation.
type Move struct {
	Src string
	Dst string
}

// Missing is a planned file that was not found in the base directory.
type Missing struct {
	Category   string
	File       string
	Suggestion string
}

// Failure is a move that could not be completed.
type Failure struct {
	Move
	Err error
}

// Report describes what Apply did (or would do, in dry-run mode).
type Report struct {
	Moved     []Move
	Missing   []Missing
	Conflicts []Move
	Failed    []Failure
	DryRun    bool
}

// Reorganizer moves flat files under a base directory into per-category
// subdirectories.
type Reorganizer struct {
	base   string
	dryRun bool
	logger *slog.Logger
}

// NewReorganizer creates a reorganizer rooted at base.
func NewReorganizer(base string, logger *slog.Logger) *Reorganizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reorganizer{base: filepath.Clean(base), logger: logger}
}

// SetDryRun makes Apply plan moves without touching the filesystem.
func (r *Reorganizer) SetDryRun(v bool) { r.dryRun = v }

// Apply performs the plan. Per-file problems are collected in the report;
// the returned error is reserved for conditions that stop the whole pass.
func (r *Reorganizer) Apply(ctx context.Context, plan *Plan) (*Report, error) {
	rep := &Report{DryRun: r.dryRun}

	if r.dryRun {
		if fi, err := os.Stat(r.base); err != nil || !fi.IsDir() {
			return rep, fmt.Errorf("base directory %s: %w", r.base, os.ErrNotExist)
		}
	} else if err := os.MkdirAll(r.base, 0o755); err != nil {
		return rep, fmt.Errorf("create base directory: %w", err)
	}

	loose, err := r.looseFiles()
	if err != nil {
		return rep, err
	}
	// claimed tracks sources and destinations already used by this pass so a
	// dry run reports the same result a real run would.
	claimed := make(map[string]bool)

	for _, g := range plan.Groups {
		dir := filepath.Join(r.base, g.Category)
		if err := validatePath(dir, r.base); err != nil {
			return rep, err
		}
		if !r.dryRun {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return rep, fmt.Errorf("create category %s: %w", g.Category, err)
			}
		}

		for _, name := range g.Files {
			if err := ctx.Err(); err != nil {
				return rep, err
			}

			m := Move{Src: filepath.Join(r.base, name), Dst: filepath.Join(dir, name)}
			if err := validatePath(m.Dst, r.base); err != nil {
				rep.Failed = append(rep.Failed, Failure{Move: m, Err: err})
				continue
			}

			if claimed[m.Src] || !isRegular(m.Src) {
				rep.Missing = append(rep.Missing, Missing{
					Category:   g.Category,
					File:       name,
					Suggestion: suggest(name, loose),
				})
				r.logger.Warn("file not found, skipping", "path", m.Src)
				continue
			}
			if claimed[m.Dst] || exists(m.Dst) {
				rep.Conflicts = append(rep.Conflicts, m)
				r.logger.Warn("destination exists, skipping", "path", m.Dst)
				continue
			}

			if !r.dryRun {
				if err := moveFile(m.Src, m.Dst); err != nil {
					if errors.Is(err, ErrDestinationExists) {
						rep.Conflicts = append(rep.Conflicts, m)
						continue
					}
					rep.Failed = append(rep.Failed, Failure{Move: m, Err: err})
					r.logger.Error("move failed", "src", m.Src, "error", err)
					continue
				}
			}
			claimed[m.Src], claimed[m.Dst] = true, true
			delete(loose, name)
			rep.Moved = append(rep.Moved, m)
			r.logger.Debug("moved", "src", m.Src, "dst", m.Dst, "dry_run", r.dryRun)
		}
	}
	return rep, nil
}

// looseFiles lists the regular files directly under base, which are the
// candidates for "did you mean" suggestions.
func (r *Reorganizer) looseFiles() (map[string]struct{}, error) {
	entries, err := os.ReadDir(r.base)
	if err != nil {
		return nil, fmt.Errorf("read base directory: %w", err)
	}
	out := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			out[e.Name()] = struct{}{}
		}
	}
	return out, nil
}

// suggest returns the closest candidate to name, or "" if none reaches
// SuggestThreshold.
func suggest(name string, candidates map[string]struct{}) string {
	target := strings.ToLower(name)
	best, bestScore := "", float32(0)
	for c := range candidates {
		score := edlib.JaroWinklerSimilarity(target, strings.ToLower(c))
		if score > bestScore || (score == bestScore && c < best) {
			best, bestScore = c, score
		}
	}
	if bestScore < SuggestThreshold {
		return ""
	}
	return best
}

func isRegular(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
