package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vmunix/kprep/internal/config"
)

// exitInterrupted follows the shell convention of 128+SIGINT.
const exitInterrupted = 130

var (
	configPath string
	logLevel   string
	jsonOutput bool
)

// errInterrupted is returned by commands that stopped on a signal after
// saving their progress.
var errInterrupted = errors.New("interrupted")

var rootCmd = &cobra.Command{
	Use:   "kprep",
	Short: "Kinetics dataset preparation toolkit",
	Long: `kprep - prepare a Kinetics/K600-style video dataset

Filters clips by duration and frame rate, generates caption manifests,
and sorts flat directories into per-action folders.

Examples:
  kprep filter ./train/train     # Probe and drop clips outside 9.5-10.5s @ 30fps
  kprep manifest . -o kinetics.json
  kprep reorganize k600_train.json --base ./train
  kprep history --status removed`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps the outcome to a process exit code.
func Execute() int {
	return exitCode(rootCmd.Execute(), os.Stderr)
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInterrupted), errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: discovered)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("kprep {{.Version}}\n")
}

// loadConfig reads the explicit or discovered config file, falling back to
// built-in defaults when none exists. --log-level wins over the file.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		p, err := config.Discover()
		switch {
		case errors.Is(err, config.ErrNotFound):
			p = ""
		case err != nil:
			return nil, err
		}
		path = p
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			var cfgErr *config.ConfigError
			if errors.As(err, &cfgErr) {
				printConfigErrors(os.Stderr, cfgErr)
				return nil, fmt.Errorf("configuration invalid: %s", path)
			}
			return nil, err
		}
		cfg = loaded
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func printConfigErrors(w io.Writer, e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Fprintln(w, "Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(w, "Validation errors:")
		for _, err := range e.Errors {
			fmt.Fprintf(w, "  - %s\n", err)
		}
		fmt.Fprintln(w)
	}
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
