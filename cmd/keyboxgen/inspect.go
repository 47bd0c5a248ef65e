package main

import (
	"fmt"

	"github.com/sensiblebit/keyboxgen/internal"
	"github.com/spf13/cobra"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect [keybox-dir]",
	Short: "Show which slots a keybox would populate",
	Long:  "Scan and decode keybox.xml without writing anything, reporting the status, size, and SHA-256 of each slot.",
	Example: `  keyboxgen inspect ./keys
  keyboxgen inspect --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format: text or json")

	registerCompletion(inspectCmd, completionInput{"format", fixedCompletion("text", "json")})
	inspectCmd.ValidArgsFunction = directoryCompletion
}

func runInspect(cmd *cobra.Command, args []string) error {
	var dir string
	if len(args) == 1 {
		dir = args[0]
	}
	cfg, err := resolveConfig(cmd, dir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	report, err := internal.InspectManifest(cfg)
	if err != nil {
		return err
	}

	output, err := internal.FormatInspectReport(report, inspectFormat)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
