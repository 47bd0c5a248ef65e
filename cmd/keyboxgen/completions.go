package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type completionFunc = func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective)

// completionInput names a flag and the shell completion to attach to it.
type completionInput struct {
	flagName     string
	completeFunc completionFunc
}

// registerCompletion attaches a completion to a local or persistent flag of
// cmd. A missing flag is a programming error and panics at init.
func registerCompletion(cmd *cobra.Command, in completionInput) {
	if err := cmd.RegisterFlagCompletionFunc(in.flagName, in.completeFunc); err != nil {
		panic(fmt.Sprintf("%s --%s: %v", cmd.Name(), in.flagName, err))
	}
}

// fixedCompletion offers exactly values.
func fixedCompletion(values ...string) completionFunc {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// extensionCompletion offers files with one of the given extensions.
func extensionCompletion(exts ...string) completionFunc {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return exts, cobra.ShellCompDirectiveFilterFileExt
	}
}

func directoryCompletion(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveFilterDirs
}
