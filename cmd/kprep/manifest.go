package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vmunix/kprep/internal/dataset"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest [root]",
	Short: "Generate a video/caption JSON manifest",
	Long: `Treat each subdirectory of root as an action and write one
{"video": "<action>/<file>", "caption": "<Action>"} entry per clip.

Examples:
  kprep manifest                      # manifest.root from config
  kprep manifest ./train -o train.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runManifestCmd,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
	manifestCmd.Flags().StringP("output", "o", "", "Output file (default manifest.output)")
	manifestCmd.Flags().String("ext", "", "Video file extension")
}

func runManifestCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log).With("component", "manifest")

	root := cfg.Manifest.Root
	if len(args) > 0 {
		root = args[0]
	}
	output := cfg.Manifest.Output
	if cmd.Flags().Changed("output") {
		output, _ = cmd.Flags().GetString("output")
	}
	ext := cfg.Manifest.Extension
	if cmd.Flags().Changed("ext") {
		ext, _ = cmd.Flags().GetString("ext")
	}

	entries, err := dataset.BuildManifest(root, ext)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		logger.Warn("no clips found", "root", root, "ext", ext)
	}
	if err := dataset.WriteManifest(output, entries); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(cmd.OutOrStdout(), map[string]any{"output": output, "entries": len(entries)})
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Manifest written to %s with %d entries.\n", output, len(entries))
	return nil
}
