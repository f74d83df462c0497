package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vmunix/kprep/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates TOML syntax, thresholds, and environment variable substitution without touching any files.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd)
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		p, err := config.Discover()
		if err != nil {
			return err
		}
		path = p
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			printConfigErrors(out, cfgErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(out, cfg)
	fmt.Fprintln(out, "\nConfiguration valid!")
	return nil
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	f := cfg.Filter
	fmt.Fprintln(w, "Configuration Summary:")
	fmt.Fprintf(w, "  Log:        %s (%s)\n", cfg.Log.Level, cfg.Log.Format)
	fmt.Fprintf(w, "  Root:       %s (*%s)\n", f.Root, f.Extension)
	fmt.Fprintf(w, "  Workers:    %d\n", f.EffectiveWorkers())
	fmt.Fprintf(w, "  Window:     %.2f-%.2fs @ %.2f±%.2f fps\n",
		f.Thresholds.MinDuration, f.Thresholds.MaxDuration, f.Thresholds.TargetFPS, f.Thresholds.FPSTolerance)
	fmt.Fprintf(w, "  Probe:      %s (timeout %s, on failure: %s)\n", f.FFprobe, f.ProbeTimeout, f.OnProbeFailure)

	logFile := f.LogFile
	if logFile == "" {
		logFile = "(next to executable)"
	}
	fmt.Fprintf(w, "  Log file:   %s\n", logFile)

	if cfg.History.Enabled {
		fmt.Fprintf(w, "  History:    %s\n", cfg.History.Database)
	} else {
		fmt.Fprintln(w, "  History:    disabled")
	}
	fmt.Fprintf(w, "  Manifest:   %s -> %s\n", cfg.Manifest.Root, cfg.Manifest.Output)
	fmt.Fprintf(w, "  Reorganize: %s (skip keys: %s)\n", cfg.Reorganize.BaseDir, strings.Join(cfg.Reorganize.SkipKeys, ", "))
}
