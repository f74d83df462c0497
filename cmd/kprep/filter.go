package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vmunix/kprep/internal/config"
	"github.com/vmunix/kprep/internal/filter"
	"github.com/vmunix/kprep/internal/history"
	"github.com/vmunix/kprep/internal/probe"
	"github.com/vmunix/kprep/internal/proclog"
	"github.com/vmunix/kprep/internal/quality"
	"github.com/vmunix/kprep/internal/scan"
)

var filterCmd = &cobra.Command{
	Use:   "filter [root]",
	Short: "Probe every clip and delete the ones outside the quality window",
	Long: `Walk the dataset root, probe each clip with ffprobe, and delete clips whose
duration or frame rate falls outside the configured thresholds.

Every evaluated path is appended to the processing log, so an interrupted
run resumes where it stopped. Press Ctrl-C to stop; in-flight files are
left untouched and retried next time.

Examples:
  kprep filter                          # Use filter.root from config
  kprep filter /data/k600/train -w 8
  kprep filter --on-probe-failure skip  # Keep files ffprobe cannot read`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFilterCmd,
}

func init() {
	rootCmd.AddCommand(filterCmd)
	f := filterCmd.Flags()
	f.IntP("workers", "w", 0, "Worker pool size (default min(2*CPUs, 16))")
	f.String("log-file", "", "Processing log path (default next to the executable)")
	f.String("on-probe-failure", "", "What to do with unprobeable files: delete or skip")
	f.Duration("probe-timeout", 0, "Per-file ffprobe timeout")
	f.String("ext", "", "Video file extension")
	f.Int("progress-every", 0, "Print progress every N completions")
	f.Bool("no-history", false, "Do not record outcomes in the history database")
}

// applyFilterFlags copies explicitly set flags over the config.
func applyFilterFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Filter.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("log-file") {
		cfg.Filter.LogFile, _ = f.GetString("log-file")
	}
	if f.Changed("on-probe-failure") {
		cfg.Filter.OnProbeFailure, _ = f.GetString("on-probe-failure")
	}
	if f.Changed("probe-timeout") {
		cfg.Filter.ProbeTimeout, _ = f.GetDuration("probe-timeout")
	}
	if f.Changed("ext") {
		cfg.Filter.Extension, _ = f.GetString("ext")
	}
	if f.Changed("progress-every") {
		cfg.Filter.ProgressEvery, _ = f.GetInt("progress-every")
	}
	if noHistory, _ := f.GetBool("no-history"); noHistory {
		cfg.History.Enabled = false
	}
}

func runFilterCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFilterFlags(cmd, cfg)
	if errs := cfg.Validate(); len(errs) > 0 {
		return &config.ConfigError{Errors: errs}
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log)
	out := cmd.OutOrStdout()

	root := cfg.Filter.Root
	if len(args) > 0 {
		root = args[0]
	}

	logPath := cfg.Filter.LogFile
	if logPath == "" {
		if logPath, err = proclog.DefaultPath(); err != nil {
			return err
		}
	}
	plog, err := proclog.Open(logPath)
	if err != nil {
		return fmt.Errorf("processing log: %w", err)
	}
	defer func() { _ = plog.Close() }()

	action, err := quality.ParseFailureAction(cfg.Filter.OnProbeFailure)
	if err != nil {
		return err
	}

	runner := filter.New(filter.Config{
		Extension:      cfg.Filter.Extension,
		Workers:        cfg.Filter.EffectiveWorkers(),
		OnProbeFailure: action,
		Thresholds: quality.Thresholds{
			MinDuration:  cfg.Filter.Thresholds.MinDuration,
			MaxDuration:  cfg.Filter.Thresholds.MaxDuration,
			TargetFPS:    cfg.Filter.Thresholds.TargetFPS,
			FPSTolerance: cfg.Filter.Thresholds.FPSTolerance,
		},
		ProgressEvery: cfg.Filter.ProgressEvery,
	}, probe.NewFFProbe(cfg.Filter.FFprobe, cfg.Filter.ProbeTimeout), plog, logger.With("component", "filter"))
	runner.SetOutput(out)

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Database)
		if err != nil {
			logger.Warn("history disabled for this run", "database", cfg.History.Database, "error", err)
		} else {
			defer func() { _ = store.Close() }()
			runner.SetRecorder(store)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	noticed := make(chan struct{})
	stopNotice := context.AfterFunc(ctx, func() {
		defer close(noticed)
		fmt.Fprintln(cmd.ErrOrStderr(), "\nShutting down: waiting for in-flight probes, progress is saved...")
	})

	logger.Info("starting filter", "root", root, "workers", cfg.Filter.EffectiveWorkers(),
		"log", logPath, "on_probe_failure", action)
	sum, runErr := runner.Run(ctx, root)
	if !stopNotice() {
		<-noticed
	}
	if errors.Is(runErr, scan.ErrRootNotFound) {
		return runErr
	}

	if jsonOutput {
		printJSON(out, summaryJSON(sum))
	} else {
		filter.WriteSummary(out, sum)
	}

	if sum.Interrupted {
		return errInterrupted
	}
	return runErr
}

type filterSummary struct {
	Root        string   `json:"root"`
	Found       int      `json:"found"`
	Skipped     int      `json:"skipped"`
	Pending     int      `json:"pending"`
	Kept        int      `json:"kept"`
	Removed     int      `json:"removed"`
	Errored     int      `json:"errored"`
	Unprobed    int      `json:"unprobed"`
	WalkErrors  []string `json:"walk_errors,omitempty"`
	ElapsedMS   int64    `json:"elapsed_ms"`
	Interrupted bool     `json:"interrupted"`
}

func summaryJSON(s filter.Summary) filterSummary {
	out := filterSummary{
		Root:        s.Root,
		Found:       s.Found,
		Skipped:     s.Skipped,
		Pending:     s.Pending,
		Kept:        s.Tally.Kept,
		Removed:     s.Tally.Removed,
		Errored:     s.Tally.Errored,
		Unprobed:    s.Tally.Unprobed,
		ElapsedMS:   s.Elapsed.Milliseconds(),
		Interrupted: s.Interrupted,
	}
	for _, we := range s.WalkErrors {
		out.WalkErrors = append(out.WalkErrors, we.Error())
	}
	return out
}
