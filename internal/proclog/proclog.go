// Package proclog implements the processing log: a durable, append-only
// text file holding one absolute path per line for every file the quality
// filter has evaluated, regardless of outcome. It is the resume store.
package proclog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DefaultName is the log file name used next to the executable.
const DefaultName = "processed_videos.log"

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("processing log closed")

// Log is safe for concurrent use. Appends are serialized by a mutex and each
// one is flushed to stable storage before Append returns.
type Log struct {
	mu   sync.Mutex
	path string
	f    *os.File
	seen map[string]struct{}
}

// DefaultPath returns DefaultName in the directory of the running binary.
func DefaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), DefaultName), nil
}

// Open loads the log at path into memory, creating an empty file if absent,
// and keeps it open for appending.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open processing log: %w", err)
	}

	seen, valid, partial, err := load(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read processing log %s: %w", path, err)
	}

	// A crash mid-write can leave a final line without its newline. That
	// fragment is not a finished entry: drop it so the file is evaluated
	// again and the next entry starts on its own line.
	if partial {
		if err := f.Truncate(valid); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("repair processing log: %w", err)
		}
	}

	return &Log{path: path, f: f, seen: seen}, nil
}

// load returns the complete lines of r and the byte length they span.
func load(r io.Reader) (seen map[string]struct{}, valid int64, partial bool, err error) {
	seen = make(map[string]struct{})
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if !strings.HasSuffix(line, "\n") {
			partial = len(line) > 0
		} else {
			valid += int64(len(line))
			if p := strings.TrimRight(line, "\r\n"); strings.TrimSpace(p) != "" {
				seen[p] = struct{}{}
			}
		}
		if err == io.EOF {
			return seen, valid, partial, nil
		}
		if err != nil {
			return nil, 0, false, err
		}
	}
}

// Path returns the file backing the log.
func (l *Log) Path() string { return l.path }

// Contains reports whether path has been logged.
func (l *Log) Contains(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[path]
	return ok
}

// Len returns the number of distinct logged paths.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// Paths returns a sorted copy of the logged paths.
func (l *Log) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.seen))
	for p := range l.seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Append records path. Already-logged paths are not written again.
func (l *Log) Append(path string) error {
	if strings.ContainsAny(path, "\r\n") {
		return fmt.Errorf("processing log: path contains a line break: %q", path)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return ErrClosed
	}
	if _, ok := l.seen[path]; ok {
		return nil
	}
	if _, err := l.f.WriteString(path + "\n"); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync processing log: %w", err)
	}
	l.seen[path] = struct{}{}
	return nil
}

// Close releases the file handle. Contains and Len keep working.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
