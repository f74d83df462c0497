// Package filter runs the resumable parallel quality pass: enumerate clips,
// skip those already in the processing log, probe the rest on a bounded
// worker pool, delete the ones that fail the acceptance policy, and log
// every evaluated path so an interrupted run can pick up where it stopped.
package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vmunix/kprep/internal/history"
	"github.com/vmunix/kprep/internal/probe"
	"github.com/vmunix/kprep/internal/quality"
	"github.com/vmunix/kprep/internal/scan"
	"golang.org/x/sync/errgroup"
)

// Config for a filter run.
type Config struct {
	Extension      string
	Workers        int
	OnProbeFailure quality.FailureAction
	Thresholds     quality.Thresholds
	ProgressEvery  int
}

// ProcessingLog is the resume store shared by all workers. Append must be
// safe for concurrent use.
type ProcessingLog interface {
	scan.Membership
	Append(path string) error
}

// Remover deletes a rejected file.
type Remover interface {
	Remove(path string) error
}

// RemoverFunc adapts a function to Remover.
type RemoverFunc func(path string) error

func (f RemoverFunc) Remove(path string) error { return f(path) }

// Recorder persists run history. Only the coordinator calls it.
type Recorder interface {
	BeginRun(ctx context.Context, root string, startedAt time.Time) (int64, error)
	Record(ctx context.Context, o history.Outcome) error
	EndRun(ctx context.Context, runID int64, sum history.RunSummary, finishedAt time.Time) error
}

// Runner executes filter runs.
type Runner struct {
	cfg      Config
	prober   probe.Prober
	plog     ProcessingLog
	remover  Remover
	recorder Recorder
	out      io.Writer
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a runner that deletes with os.Remove and prints progress to
// stdout.
func New(cfg Config, prober probe.Prober, plog ProcessingLog, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Extension == "" {
		cfg.Extension = ".mp4"
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.OnProbeFailure == "" {
		cfg.OnProbeFailure = quality.FailureDelete
	}
	return &Runner{
		cfg:     cfg,
		prober:  prober,
		plog:    plog,
		remover: RemoverFunc(os.Remove),
		out:     os.Stdout,
		logger:  logger,
		now:     time.Now,
	}
}

// SetRemover replaces the file deleter.
func (r *Runner) SetRemover(rm Remover) { r.remover = rm }

// SetRecorder enables history persistence.
func (r *Runner) SetRecorder(rec Recorder) { r.recorder = rec }

// SetOutput redirects human-readable progress lines.
func (r *Runner) SetOutput(w io.Writer) { r.out = w }

// Run evaluates every pending file under root. On cancellation it returns
// the partial summary with Interrupted set and the context's error.
func (r *Runner) Run(ctx context.Context, root string) (Summary, error) {
	start := r.now()
	sum := Summary{Root: root}

	res, err := scan.Enumerate(root, r.cfg.Extension)
	if err != nil {
		return sum, err
	}
	for _, we := range res.Errors {
		r.logger.Warn("skipped unreadable directory", "path", we.Path, "error", we.Err)
	}
	sum.WalkErrors = res.Errors

	plan := scan.Resume(res.Paths, r.plog)
	sum.Found, sum.Skipped, sum.Pending = plan.Found, plan.Skipped, len(plan.Pending)
	fmt.Fprintf(r.out, "Found %d files: %d already processed, %d to process\n",
		sum.Found, sum.Skipped, sum.Pending)

	runID := r.beginRun(ctx, root, start)

	if len(plan.Pending) > 0 {
		err = r.execute(ctx, plan.Pending, runID, &sum)
	}
	sum.Interrupted = err != nil && ctx.Err() != nil
	sum.Elapsed = r.now().Sub(start)

	r.endRun(ctx, runID, sum)
	return sum, err
}

func (r *Runner) execute(ctx context.Context, paths []string, runID int64, sum *Summary) error {
	workers := min(r.cfg.Workers, len(paths))
	r.logger.Debug("starting worker pool", "workers", workers, "files", len(paths))

	tasks := make(chan string)
	results := make(chan Result, workers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(tasks)
		for _, p := range paths {
			select {
			case tasks <- p:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for p := range tasks {
				results <- r.evaluate(gctx, p)
			}
			return nil
		})
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- g.Wait()
		close(results)
	}()

	prog := newProgress(r.out, len(paths), r.cfg.ProgressEvery, r.now)
	for res := range results {
		if res.aborted {
			continue
		}
		sum.Tally.Add(res.Status)
		r.report(res)
		r.record(ctx, runID, res)
		prog.step()
	}

	if err := <-waitErr; err != nil {
		return err
	}
	return ctx.Err()
}

// evaluate runs one task to completion. It never panics and never returns
// an error: every failure becomes a Result.
func (r *Runner) evaluate(ctx context.Context, path string) (res Result) {
	start := r.now()
	if ctx.Err() != nil {
		return Result{Path: path, aborted: true}
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("evaluation panicked", "path", path, "panic", p)
			res = r.onProbeFailure(path, fmt.Sprintf("panic: %v", p))
			if res.Status != StatusError {
				res.Reason = fmt.Sprintf("%s (%s)", res.Reason, res.Status)
				res.Status = StatusError
			}
			r.appendLog(path)
			res.Elapsed = r.now().Sub(start)
		}
	}()

	info, err := r.prober.Probe(ctx, path)
	if ctx.Err() != nil {
		// The probe may have been killed by the cancellation; its verdict
		// is meaningless. Leave the file for the next run.
		return Result{Path: path, aborted: true}
	}
	if errors.Is(err, probe.ErrInterrupted) {
		r.logger.Warn("ffprobe killed by a signal, leaving file for the next run", "path", path, "error", err)
		return Result{Path: path, aborted: true}
	}
	if err == nil && info == nil {
		err = probe.ErrNoDuration
	}

	if err != nil {
		res = r.onProbeFailure(path, probe.Reason(err))
	} else {
		d := r.cfg.Thresholds.Evaluate(*info)
		if d.Keep {
			res = Result{Path: path, Status: StatusKept, Reason: d.Reason}
		} else {
			res = r.remove(path, d.Reason)
		}
		res.Info = info
	}

	r.appendLog(path)
	res.Elapsed = r.now().Sub(start)
	return res
}

func (r *Runner) onProbeFailure(path, reason string) Result {
	if r.cfg.OnProbeFailure == quality.FailureSkip {
		return Result{Path: path, Status: StatusUnprobed, Reason: reason}
	}
	return r.remove(path, reason)
}

func (r *Runner) remove(path, reason string) Result {
	err := r.remover.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Result{
			Path:   path,
			Status: StatusError,
			Reason: fmt.Sprintf("%s; delete failed: %v", reason, err),
		}
	}
	return Result{Path: path, Status: StatusRemoved, Reason: reason}
}

func (r *Runner) appendLog(path string) {
	if err := r.plog.Append(path); err != nil {
		r.logger.Error("CRITICAL: failed to record processed path; it will be re-evaluated next run",
			"path", path, "error", err)
	}
}

func (r *Runner) report(res Result) {
	name := filepath.Base(res.Path)
	switch res.Status {
	case StatusKept:
		r.logger.Debug("kept", "file", name)
	case StatusRemoved:
		r.logger.Info("removed", "file", name, "reason", res.Reason)
	case StatusUnprobed:
		r.logger.Warn("unprobeable, left on disk", "path", res.Path, "reason", res.Reason)
	case StatusError:
		r.logger.Error("error", "path", res.Path, "reason", res.Reason)
	}
}

func (r *Runner) beginRun(ctx context.Context, root string, start time.Time) int64 {
	if r.recorder == nil {
		return 0
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	id, err := r.recorder.BeginRun(ctx, abs, start)
	if err != nil {
		r.logger.Warn("history unavailable for this run", "error", err)
		return 0
	}
	return id
}

func (r *Runner) record(ctx context.Context, runID int64, res Result) {
	if r.recorder == nil || runID == 0 {
		return
	}
	o := history.Outcome{
		RunID:       runID,
		Path:        res.Path,
		Status:      string(res.Status),
		Reason:      res.Reason,
		Elapsed:     res.Elapsed,
		ProcessedAt: r.now(),
	}
	if res.Info != nil {
		d, fps := res.Info.Duration, res.Info.FPS
		o.Duration, o.FPS = &d, &fps
	}
	// History must outlive an interrupt so the partial run is still visible.
	if err := r.recorder.Record(context.WithoutCancel(ctx), o); err != nil {
		r.logger.Warn("failed to record outcome", "path", res.Path, "error", err)
	}
}

func (r *Runner) endRun(ctx context.Context, runID int64, sum Summary) {
	if r.recorder == nil || runID == 0 {
		return
	}
	if err := r.recorder.EndRun(context.WithoutCancel(ctx), runID, sum.historySummary(), r.now()); err != nil {
		r.logger.Warn("failed to finalize run history", "run", runID, "error", err)
	}
}
