package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vmunix/kprep/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file",
	Long: `Write the commented default configuration to path, or to
$XDG_CONFIG_HOME/kprep/config.toml when no path is given.

With --from-current, write the effective configuration instead: the
discovered (or --config) file with --log-level applied.

Examples:
  kprep init
  kprep init ./kprep.toml
  kprep init frozen.toml --from-current --config /etc/kprep/config.toml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInitCmd,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")
	initCmd.Flags().Bool("from-current", false, "Write the effective configuration instead of the defaults")
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	fromCurrent, _ := cmd.Flags().GetBool("from-current")
	if fromCurrent {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Write(path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	} else if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
