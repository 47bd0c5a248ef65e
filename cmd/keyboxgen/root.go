package main

import (
	"github.com/sensiblebit/keyboxgen/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	logLevel   string
	logFormat  string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "keyboxgen",
	Short: "Generate EC credential constants from a keybox manifest",
	Long: `Extract the ecdsa certificates and private key from <dir>/keybox.xml and
write them as fixed-name byte constants for the rest of the build.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return internal.SetupLogger(logLevel, logFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", internal.LogFormatAuto, "Log format: auto (text on a terminal, JSON otherwise), text, json")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Optional YAML config file")
	rootCmd.PersistentFlags().StringP("keybox-dir", "k", "", "Directory containing keybox.xml (default: $"+internal.KeyboxPathEnv+")")

	registerCompletion(rootCmd, completionInput{"log-level", fixedCompletion("debug", "info", "warn", "error")})
	registerCompletion(rootCmd, completionInput{"log-format", fixedCompletion(internal.LogFormatAuto, internal.LogFormatText, internal.LogFormatJSON)})
	registerCompletion(rootCmd, completionInput{"config", extensionCompletion("yaml", "yml")})
	registerCompletion(rootCmd, completionInput{"keybox-dir", directoryCompletion})

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)
}

// changedValue returns the flag's value only when it was set explicitly on
// the command line, so unset flags fall through to lower config layers.
func changedValue(flags *pflag.FlagSet, name string) string {
	f := flags.Lookup(name)
	if f == nil || !f.Changed {
		return ""
	}
	return f.Value.String()
}

// resolveConfig merges command line flags, the environment, and the optional
// config file.
func resolveConfig(cmd *cobra.Command, overrideDir string) (*internal.Config, error) {
	var file *internal.Settings
	if configPath != "" {
		var err error
		if file, err = internal.LoadConfigFile(configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	dir := changedValue(flags, "keybox-dir")
	if overrideDir != "" {
		dir = overrideDir
	}
	return internal.ResolveConfig(internal.ConfigInput{
		Flags: internal.Settings{
			KeyboxDir: dir,
			Output:    changedValue(flags, "out"),
			Language:  changedValue(flags, "lang"),
			Package:   changedValue(flags, "package"),
		},
		File: file,
	})
}
