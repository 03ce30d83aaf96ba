package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for FixCry.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixcry",
		Short: "Duplicate detection for FixCry issue reports",
		Long: `FixCry tooling for the civic issue data repository.

detect-duplicates loads a directory of issue files, groups reports that
describe the same problem and writes a report of the groups. Every run is
kept in a local history so earlier results can be listed and reopened.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write log records as JSON")

	cmd.AddCommand(NewDetectCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
