package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fixcry/fixcry/internal/config"
	"github.com/fixcry/fixcry/internal/database"
	"github.com/fixcry/fixcry/internal/report"
)

// NewHistoryCmd creates the history command.
// This command lists and reopens runs stored by detect-duplicates.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List earlier duplicate detection runs",
		Long: `History lists the runs recorded by detect-duplicates, newest first.

Each run keeps its full report, so an earlier result can be printed again
without re-running detection.

Examples:
  # List every recorded run
  fixcry history

  # List runs over one issue directory
  fixcry history --input ../../data/issues

  # Print the summary of an earlier run
  fixcry history --show 6f1c9a4e-5b0d-4c1e-9a63-2f0f8f2d7b11

  # Print an earlier report as JSON
  fixcry history --show 6f1c9a4e-5b0d-4c1e-9a63-2f0f8f2d7b11 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("input", "i", "",
		"Only list runs over this issue directory")
	cmd.Flags().StringP("show", "s", "",
		"Print the report of the run with this id")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("history-dir", config.XDGDataDir(),
		"History database directory")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	input, err := cmd.Flags().GetString("input")
	if err != nil {
		return err
	}
	showID, err := cmd.Flags().GetString("show")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	dir, err := cmd.Flags().GetString("history-dir")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// Listing must not create an empty database as a side effect.
	if _, err := os.Stat(filepath.Join(dir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'fixcry detect-duplicates' to check an issue directory.")
		return nil
	}

	db, err := database.Open(dir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if showID != "" {
		return showRun(ctx, db, showID, jsonOutput, getVerboseFlag(cmd), out)
	}

	if input != "" {
		if abs, err := filepath.Abs(input); err == nil {
			input = abs
		}
	}
	return listRuns(ctx, db, input, jsonOutput, out)
}

// showRun prints one stored report.
func showRun(ctx context.Context, db *database.HistoryDB, runID string, jsonOutput, verbose bool, out io.Writer) error {
	rep, err := db.GetReport(ctx, runID)
	if err != nil {
		return err
	}

	if jsonOutput {
		_, err = report.NewJSONWriter(out).Write(rep)
		return err
	}

	fmt.Fprintf(out, "Run %s\n", rep.RunID)
	fmt.Fprintf(out, "  Date:      %s\n", rep.Timestamp.Local().Format(time.DateTime))
	fmt.Fprintf(out, "  Input:     %s\n", rep.InputDir)
	fmt.Fprintf(out, "  Threshold: %.2f\n", rep.Threshold)
	fmt.Fprintf(out, "  Issues:    %d\n", rep.RecordsLoaded)

	_, err = report.NewSummaryWriter(out, report.WithVerbose(verbose)).Write(rep)
	return err
}

// listRuns prints the stored runs, newest first.
func listRuns(ctx context.Context, db *database.HistoryDB, inputDir string, jsonOutput bool, out io.Writer) error {
	runs, err := db.ListRuns(ctx, inputDir)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	}

	if len(runs) == 0 {
		if inputDir != "" {
			fmt.Fprintf(out, "No runs recorded for %s\n", inputDir)
		} else {
			fmt.Fprintln(out, "No runs recorded yet.")
		}
		return nil
	}

	fmt.Fprintf(out, "Recorded runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %6s  %10s  %s\n", "Run ID", "Date", "Groups", "Duplicates", "Input")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 96))

	for _, r := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %6d  %10d  %s\n",
			r.RunID,
			r.Timestamp.Local().Format(time.DateTime),
			r.TotalGroups,
			r.TotalDuplicates,
			r.InputDir,
		)
	}

	fmt.Fprintln(out, "\nUse 'fixcry history --show <run-id>' to print a run's report.")
	return nil
}
