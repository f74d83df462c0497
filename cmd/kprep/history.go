package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/vmunix/kprep/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past filter runs and per-file outcomes",
	Long: `Without --run, list recent filter runs. With --run, list that run's
outcomes, optionally narrowed by --status.

Examples:
  kprep history
  kprep history --run 3 --status removed
  kprep history --status error --limit 200`,
	Args: cobra.NoArgs,
	RunE: runHistoryCmd,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int64("run", 0, "Show outcomes for this run ID")
	historyCmd.Flags().String("status", "", "Filter outcomes by status (kept, removed, error, unprobed)")
	historyCmd.Flags().Int("limit", 50, "Maximum rows to show (0 for all)")
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.History.Database); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no history database at %s (run 'kprep filter' first)", cfg.History.Database)
		}
		return err
	}

	store, err := history.Open(cfg.History.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runID, _ := cmd.Flags().GetInt64("run")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if runID == 0 && status == "" {
		runs, err := store.Runs(ctx, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(out, runs)
			return nil
		}
		printRuns(out, runs)
		return nil
	}

	outcomes, err := store.Outcomes(ctx, history.OutcomeFilter{RunID: runID, Status: status, Limit: limit})
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(out, outcomes)
		return nil
	}
	printOutcomes(out, outcomes)

	if runID != 0 {
		counts, err := store.StatusCounts(ctx, runID)
		if err != nil {
			return err
		}
		printCounts(out, counts)
	}
	return nil
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}

	fmt.Fprintf(w, "%-5s %-19s %-10s %7s %7s %7s %7s %6s  %s\n",
		"ID", "STARTED", "DURATION", "FOUND", "KEPT", "REMOVED", "ERRORS", "STATE", "ROOT")
	for _, r := range runs {
		duration, state := "-", "running"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			state = "done"
		}
		if r.Interrupted {
			state = "intr"
		}
		fmt.Fprintf(w, "%-5d %-19s %-10s %7d %7d %7d %7d %6s  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), duration,
			r.Found, r.Kept, r.Removed, r.Errored, state, r.Root)
	}
}

func printOutcomes(w io.Writer, outcomes []history.Outcome) {
	if len(outcomes) == 0 {
		fmt.Fprintln(w, "No outcomes match")
		return
	}

	for _, o := range outcomes {
		probe := ""
		if o.Duration != nil && o.FPS != nil {
			probe = fmt.Sprintf(" (%.2fs @ %.2f fps)", *o.Duration, *o.FPS)
		}
		fmt.Fprintf(w, "%-8s %-40s %s%s\n", o.Status, filepath.Base(o.Path), o.Reason, probe)
	}
}

func printCounts(w io.Writer, counts map[string]int) {
	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	fmt.Fprintln(w)
	for _, s := range statuses {
		fmt.Fprintf(w, "  %-9s %d\n", s+":", counts[s])
	}
}
