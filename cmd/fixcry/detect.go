package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fixcry/fixcry/internal/config"
	"github.com/fixcry/fixcry/internal/database"
	fixlog "github.com/fixcry/fixcry/internal/log"
	"github.com/fixcry/fixcry/internal/loader"
	"github.com/fixcry/fixcry/internal/model"
	"github.com/fixcry/fixcry/internal/pipeline"
	"github.com/fixcry/fixcry/internal/report"
)

var (
	// ErrNoIssues is returned when a run loaded no records at all.
	ErrNoIssues = errors.New("no issues found")

	// errNoArguments is returned when detect-duplicates is called without flags.
	errNoArguments = errors.New("no arguments given")
)

// NewDetectCmd creates the detect-duplicates command.
func NewDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect-duplicates",
		Short: "Find issue reports that describe the same problem",
		Long: `detect-duplicates loads every issue file in a directory and groups
reports whose title, description and location are close enough to be the
same problem reported twice.

Each group has an original (the first report seen) and its duplicates with
a similarity score from 0 (identical) to 1 (unrelated). The report is
written to --output and a summary is printed.

Examples:
  # Scan the default data directory
  fixcry detect-duplicates --input ../../data/issues

  # Stricter matching, with merge suggestions
  fixcry detect-duplicates -i data/issues -t 0.2 --suggestions

  # Markdown report for a pull request comment
  fixcry detect-duplicates -i data/issues --markdown -o duplicates.md

  # Compact JSON report on stdout, summary on stderr
  fixcry detect-duplicates -i data/issues --compact -o - | jq .total_groups

Configuration file (.fixcry) example:
  defaults:
    threshold: 0.3
  dirs:
    data/issues:
      suggestions: true`,
		Args: cobra.NoArgs,
		RunE: runDetectCmd,
	}

	cmd.Flags().StringP("input", "i", config.DefaultInputDir,
		"Directory of issue files")
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Report file path (creates directories if needed; - for stdout)")
	cmd.Flags().Float64P("threshold", "t", config.DefaultThreshold,
		"Score below which two issues are duplicates (0..1; also raises the field cutoff)")
	cmd.Flags().BoolP("suggestions", "s", false,
		"Propose which issue to keep for every group")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of issue files parsed concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .fixcry in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Write a JSON report (default; mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Write a Markdown report (mutually exclusive with --json)")
	cmd.Flags().Bool("compact", false,
		"Write the JSON report on a single line")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the history database")
	cmd.Flags().String("history-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runDetectCmd executes the detect-duplicates command.
func runDetectCmd(cmd *cobra.Command, _ []string) error {
	if countSetFlags(cmd.Flags()) == 0 {
		_ = cmd.Usage() //nolint:errcheck // Usage output is best effort
		return errNoArguments
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDetect(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// newLogger creates the PII-masking logger selected by cfg.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return fixlog.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return fixlog.NewSecureLogger(w, cfg.Verbose)
}

// countSetFlags counts the flags given on the command line. The global
// logging flags do not count: "detect-duplicates -v" still has nothing
// to work with.
func countSetFlags(flags *pflag.FlagSet) int {
	n := 0
	flags.Visit(func(f *pflag.Flag) {
		if f.Name != "verbose" && f.Name != "log-json" {
			n++
		}
	})
	return n
}

// getLogJSONFlag retrieves the log-json flag from the command or its parent.
func getLogJSONFlag(cmd *cobra.Command) bool {
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		logJSON, err = cmd.Root().PersistentFlags().GetBool("log-json")
		if err != nil {
			return false
		}
	}
	return logJSON
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the config file and cobra command flags.
// Precedence: flags given on the command line, then the config file entry
// for the input directory, then the config file defaults, then built-in
// defaults.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	// If no path is specified, silently run without a config file.
	cf := &config.File{Dirs: make(map[string]config.Settings)}
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cf, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	// The input directory selects the dir settings, so resolve it first.
	switch {
	case flags.Changed("input"):
		if cfg.InputDir, err = flags.GetString("input"); err != nil {
			return nil, err
		}
	case cf.Defaults.Input != "":
		cfg.InputDir = cf.Defaults.Input
	}
	cfg.Apply(cf.GetDirSettings(cfg.InputDir))

	if err := applyFlags(cfg, flags); err != nil {
		return nil, err
	}

	// A Markdown report without an explicit path gets a Markdown file name.
	if cfg.MarkdownReport && cfg.OutputFile == config.DefaultOutputFile {
		cfg.OutputFile = strings.TrimSuffix(cfg.OutputFile, filepath.Ext(cfg.OutputFile)) + ".md"
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogJSON = getLogJSONFlag(cmd)
	return cfg, nil
}

// applyFlags copies every flag set on the command line into cfg.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	var err error

	if flags.Changed("output") {
		if cfg.OutputFile, err = flags.GetString("output"); err != nil {
			return err
		}
	}
	if flags.Changed("threshold") {
		if cfg.Threshold, err = flags.GetFloat64("threshold"); err != nil {
			return err
		}
	}
	if flags.Changed("suggestions") {
		if cfg.Suggestions, err = flags.GetBool("suggestions"); err != nil {
			return err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return err
		}
	}

	// A format flag replaces the format chosen by the config file. Both
	// flags together are left for Validate to reject.
	jsonSet, mdSet := flags.Changed("json"), flags.Changed("markdown")
	if jsonSet {
		if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
			return err
		}
		if cfg.JSONReport && !mdSet {
			cfg.MarkdownReport = false
		}
	}
	if mdSet {
		if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
			return err
		}
		if cfg.MarkdownReport && !jsonSet {
			cfg.JSONReport = false
		}
	}

	if flags.Changed("compact") {
		if cfg.CompactReport, err = flags.GetBool("compact"); err != nil {
			return err
		}
	}

	if flags.Changed("no-history") {
		noHistory, err := flags.GetBool("no-history")
		if err != nil {
			return err
		}
		cfg.SaveHistory = !noHistory
	}
	if flags.Changed("history-dir") {
		if cfg.HistoryDir, err = flags.GetString("history-dir"); err != nil {
			return err
		}
	}

	return nil
}

// runDetect executes one detection run and writes its results.
// Report and history failures are logged and do not fail the run.
//
// Progress and the summary go to out. When the report itself goes to
// stdout (output "-"), out carries the report alone and everything else
// goes to errOut.
func runDetect(ctx context.Context, cfg *config.Config, logger *slog.Logger, out, errOut io.Writer) error {
	toStdout := cfg.OutputFile == config.StdoutOutput
	status := out
	if toStdout {
		status = errOut
	}

	inputDir := cfg.InputDir
	if abs, err := filepath.Abs(inputDir); err == nil {
		inputDir = abs
	}

	logger.Info("starting duplicate detection",
		"input", inputDir,
		"threshold", cfg.Threshold,
		"workers", cfg.Workers,
		"suggestions", cfg.Suggestions,
	)

	p := createDetectionPipeline(cfg, logger)

	run := model.NewRun(inputDir, cfg.Threshold)
	run.Suggestions = cfg.Suggestions

	fmt.Fprintf(status, "Loading issues from %s...\n", cfg.InputDir)
	startTime := time.Now()

	if err := p.Execute(ctx, run); err != nil {
		if run.Cancelled || ctx.Err() != nil {
			return fmt.Errorf("detection cancelled: %w", err)
		}
		if !errors.Is(err, loader.ErrDirectoryRead) {
			return err
		}
	}

	if len(run.Records) == 0 {
		fmt.Fprintln(status, "No issues found")
		return ErrNoIssues
	}

	fmt.Fprintf(status, "Checked %d issues in %s\n", len(run.Records), time.Since(startTime).Round(time.Millisecond))

	rep := report.Build(run, time.Now())
	summary := report.NewSummaryWriter(status, report.WithVerbose(cfg.Verbose))

	if toStdout {
		// One report, two destinations: the report on stdout and the
		// summary next to the progress lines.
		w := report.NewMultiWriter(reportFactory(cfg)(out), summary)
		if _, err := w.Write(rep); err != nil {
			logger.Error("failed to write report", "path", config.StdoutOutput, "error", err)
		}
	} else {
		if err := report.WriteFile(cfg.OutputFile, reportFactory(cfg), rep); err != nil {
			logger.Error("failed to write report", "path", cfg.OutputFile, "error", err)
		} else {
			fmt.Fprintf(status, "Report written to %s\n", cfg.OutputFile)
		}
		if _, err := summary.Write(rep); err != nil {
			logger.Error("failed to print summary", "error", err)
		}
	}

	if cfg.SaveHistory {
		if err := saveHistory(ctx, cfg.HistoryDir, rep, status, logger); err != nil {
			logger.Error("failed to save run history", "dir", cfg.HistoryDir, "error", err)
		}
	}

	return nil
}

// createDetectionPipeline creates the detection pipeline for cfg.
func createDetectionPipeline(cfg *config.Config, logger *slog.Logger) *pipeline.Pipeline {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
	}

	return pipeline.DetectionPipeline(pipelineOpts,
		pipeline.WithPipelineExtensions(cfg.Extensions),
		pipeline.WithPipelineWorkers(cfg.Workers),
		pipeline.WithPipelineWeights(cfg.Weights),
		pipeline.WithPipelineFieldCutoff(cfg.FieldCutoff),
		pipeline.WithPipelineSuggestions(cfg.Suggestions),
	)
}

// reportFactory returns the report writer for the configured format.
func reportFactory(cfg *config.Config) report.WriterFactory {
	switch {
	case cfg.MarkdownReport:
		return report.MarkdownFile()
	case cfg.CompactReport:
		return report.JSONFile(report.WithCompact())
	default:
		return report.JSONFile(report.WithIndent("", "  "))
	}
}

// saveHistory records rep in the history database and notes when the same
// input was already checked by an earlier run.
func saveHistory(ctx context.Context, dir string, rep *model.DuplicateReport, out io.Writer, logger *slog.Logger) error {
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	prev, err := db.LatestForFingerprint(ctx, rep.InputFingerprint)
	if err != nil {
		logger.Warn("failed to look up earlier runs", "error", err)
	} else if prev != nil {
		fmt.Fprintf(out, "\nInput unchanged since run %s (%s): %d groups, %d duplicates\n",
			prev.RunID, prev.Timestamp.Local().Format(time.DateTime), prev.TotalGroups, prev.TotalDuplicates)
	}

	if err := db.SaveReport(ctx, rep); err != nil {
		return err
	}

	logger.Info("run saved to history", "run_id", rep.RunID, "db", db.Path())
	return nil
}
