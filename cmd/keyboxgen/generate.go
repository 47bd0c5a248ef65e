package main

import (
	"fmt"
	"os"

	"github.com/sensiblebit/keyboxgen"
	"github.com/sensiblebit/keyboxgen/internal"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the EC constants artifact",
	Long: `Scan <keybox-dir>/keybox.xml and write EC_CERTIFICATE_1..3 and EC_PRIVATE_KEY.

A missing keybox.xml is not an error: every declaration is written as an
empty value. Malformed XML and output failures abort with a non-zero exit.`,
	Example: `  keyboxgen generate --keybox-dir ./keys
  KEYBOX_PATH=./keys keyboxgen generate --package creds -o creds/ec_constants.go
  keyboxgen generate -k ./keys --lang rust`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("out", "o", "", "Output file (default: ec_constants.go, or src/ec_constants.rs for rust)")
	generateCmd.Flags().String("lang", string(keyboxgen.LanguageGo), "Output language: go or rust")
	generateCmd.Flags().String("package", keyboxgen.DefaultPackage, "Go package name of the generated file")

	langs := make([]string, 0, len(keyboxgen.Languages()))
	for _, l := range keyboxgen.Languages() {
		langs = append(langs, string(l))
	}
	registerCompletion(generateCmd, completionInput{"lang", fixedCompletion(langs...)})
	registerCompletion(generateCmd, completionInput{"out", extensionCompletion("go", "rs")})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, "")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	result, err := internal.Generate(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Wrote %s (%d of %d slot(s) populated)\n", result.OutputPath, result.Populated(), len(result.Slots))
	return nil
}
