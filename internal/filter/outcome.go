package filter

import (
	"fmt"
	"io"
	"time"

	"github.com/vmunix/kprep/internal/history"
	"github.com/vmunix/kprep/internal/probe"
	"github.com/vmunix/kprep/internal/scan"
)

// Status is the terminal outcome of evaluating one file.
type Status string

const (
	StatusKept     Status = "kept"
	StatusRemoved  Status = "removed"
	StatusError    Status = "error"    // delete failed or evaluation panicked
	StatusUnprobed Status = "unprobed" // probe failed and the failure action is skip
)

// Result is what a worker reports back to the coordinator.
type Result struct {
	Path    string
	Status  Status
	Reason  string
	Info    *probe.Info
	Elapsed time.Duration

	// aborted marks a task dropped because the run was cancelled. It was
	// neither deleted nor logged and will be retried next run.
	aborted bool
}

// Tally counts outcomes for one run. Only the coordinator mutates it.
type Tally struct {
	Kept     int
	Removed  int
	Errored  int
	Unprobed int
}

// Add counts one outcome.
func (t *Tally) Add(s Status) {
	switch s {
	case StatusKept:
		t.Kept++
	case StatusRemoved:
		t.Removed++
	case StatusError:
		t.Errored++
	case StatusUnprobed:
		t.Unprobed++
	}
}

// Total returns the number of counted outcomes.
func (t Tally) Total() int {
	return t.Kept + t.Removed + t.Errored + t.Unprobed
}

// Summary describes a finished (or interrupted) run.
type Summary struct {
	Root        string
	Found       int
	Skipped     int
	Pending     int
	Tally       Tally
	WalkErrors  []scan.WalkError
	Elapsed     time.Duration
	Interrupted bool
}

func (s Summary) historySummary() history.RunSummary {
	return history.RunSummary{
		Found:       s.Found,
		Skipped:     s.Skipped,
		Kept:        s.Tally.Kept,
		Removed:     s.Tally.Removed,
		Errored:     s.Tally.Errored,
		Unprobed:    s.Tally.Unprobed,
		Interrupted: s.Interrupted,
	}
}

// WriteSummary prints the end-of-run report.
func WriteSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w)
	if s.Interrupted {
		fmt.Fprintln(w, "Run interrupted; unfinished files will be retried next run.")
	}
	fmt.Fprintf(w, "Files found:     %d\n", s.Found)
	fmt.Fprintf(w, "Already done:    %d\n", s.Skipped)
	fmt.Fprintf(w, "Processed:       %d/%d\n", s.Tally.Total(), s.Pending)
	fmt.Fprintf(w, "  Kept:          %d\n", s.Tally.Kept)
	fmt.Fprintf(w, "  Removed:       %d\n", s.Tally.Removed)
	fmt.Fprintf(w, "  Errors:        %d\n", s.Tally.Errored)
	if s.Tally.Unprobed > 0 {
		fmt.Fprintf(w, "  Unprobed:      %d (left on disk)\n", s.Tally.Unprobed)
	}
	if len(s.WalkErrors) > 0 {
		fmt.Fprintf(w, "Unreadable dirs: %d\n", len(s.WalkErrors))
	}
	fmt.Fprintf(w, "Elapsed:         %s\n", s.Elapsed.Round(time.Millisecond))
}
