package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vmunix/kprep/internal/dataset"
)

var reorganizeCmd = &cobra.Command{
	Use:   "reorganize <plan>",
	Short: "Move flat clips into per-category directories",
	Long: `Read a plan and move base/<file> to base/<category>/<file>.

A .json plan maps category to a list of file names (keys listed in
reorganize.skip_keys are ignored). Any other file is a line list of
"category/file" or "category file" entries; # starts a comment.

Examples:
  kprep reorganize k600_train.json
  kprep reorganize moves.txt --base /data/k600/train --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runReorganizeCmd,
}

func init() {
	rootCmd.AddCommand(reorganizeCmd)
	reorganizeCmd.Flags().String("base", "", "Directory holding the flat clips (default reorganize.base_dir)")
	reorganizeCmd.Flags().Bool("dry-run", false, "Show what would move without touching files")
}

func runReorganizeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log).With("component", "reorganize")

	base := cfg.Reorganize.BaseDir
	if cmd.Flags().Changed("base") {
		base, _ = cmd.Flags().GetString("base")
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	plan, err := dataset.LoadPlan(args[0], cfg.Reorganize.SkipKeys)
	if err != nil {
		return err
	}
	logger.Info("loaded plan", "path", args[0], "categories", len(plan.Groups), "files", plan.Len())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := dataset.NewReorganizer(base, logger)
	r.SetDryRun(dryRun)
	rep, applyErr := r.Apply(ctx, plan)

	if jsonOutput {
		printJSON(cmd.OutOrStdout(), reportJSON(rep))
	} else {
		printReport(cmd.OutOrStdout(), rep)
	}

	if applyErr != nil && ctx.Err() != nil {
		return errInterrupted
	}
	if applyErr != nil {
		return applyErr
	}
	if len(rep.Failed) > 0 {
		return fmt.Errorf("%d moves failed", len(rep.Failed))
	}
	return nil
}

func printReport(w io.Writer, rep *dataset.Report) {
	verb := "Moved"
	if rep.DryRun {
		verb = "Would move"
	}
	for _, m := range rep.Moved {
		fmt.Fprintf(w, "%s: %s -> %s\n", verb, m.Src, m.Dst)
	}
	for _, m := range rep.Missing {
		if m.Suggestion != "" {
			fmt.Fprintf(w, "File not found: %s (did you mean %s?). Skipping.\n", m.File, m.Suggestion)
		} else {
			fmt.Fprintf(w, "File not found: %s. Skipping.\n", m.File)
		}
	}
	for _, c := range rep.Conflicts {
		fmt.Fprintf(w, "Already exists: %s. Skipping.\n", c.Dst)
	}
	for _, f := range rep.Failed {
		fmt.Fprintf(w, "Error moving %s: %v\n", f.Src, f.Err)
	}

	fmt.Fprintf(w, "\n%s %d, missing %d, conflicts %d, failed %d\n",
		verb, len(rep.Moved), len(rep.Missing), len(rep.Conflicts), len(rep.Failed))
}

type moveJSON struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

type missingJSON struct {
	Category   string `json:"category"`
	File       string `json:"file"`
	Suggestion string `json:"suggestion,omitempty"`
}

type failureJSON struct {
	moveJSON
	Error string `json:"error"`
}

type reorganizeReport struct {
	DryRun    bool          `json:"dry_run"`
	Moved     []moveJSON    `json:"moved"`
	Missing   []missingJSON `json:"missing"`
	Conflicts []moveJSON    `json:"conflicts"`
	Failed    []failureJSON `json:"failed"`
}

func reportJSON(rep *dataset.Report) reorganizeReport {
	out := reorganizeReport{
		DryRun:    rep.DryRun,
		Moved:     []moveJSON{},
		Missing:   []missingJSON{},
		Conflicts: []moveJSON{},
		Failed:    []failureJSON{},
	}
	for _, m := range rep.Moved {
		out.Moved = append(out.Moved, moveJSON{Src: m.Src, Dst: m.Dst})
	}
	for _, m := range rep.Missing {
		out.Missing = append(out.Missing, missingJSON{Category: m.Category, File: m.File, Suggestion: m.Suggestion})
	}
	for _, c := range rep.Conflicts {
		out.Conflicts = append(out.Conflicts, moveJSON{Src: c.Src, Dst: c.Dst})
	}
	for _, f := range rep.Failed {
		out.Failed = append(out.Failed, failureJSON{moveJSON: moveJSON{Src: f.Src, Dst: f.Dst}, Error: f.Err.Error()})
	}
	return out
}
