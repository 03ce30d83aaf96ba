package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/adrg/xdg"

	"github.com/fixcry/fixcry/internal/detect"
	"github.com/fixcry/fixcry/internal/loader"
	"github.com/fixcry/fixcry/internal/model"
	"github.com/fixcry/fixcry/internal/similarity"
)

// Default configuration values.
// These match what the FixCry scripts have always used, so an existing
// data checkout works without any configuration.
const (
	// DefaultInputDir is the issue directory relative to tools/scripts in
	// the FixCry data repository layout.
	DefaultInputDir = "../../data/issues"

	// DefaultOutputFile is the report file written when --output is not given.
	DefaultOutputFile = "duplicate-report.json"

	// StdoutOutput as the output path writes the report to stdout.
	StdoutOutput = "-"

	// DefaultThreshold is the score below which a match is a duplicate.
	// 0.3 catches reworded reports without grouping neighbours that merely
	// share a street name.
	DefaultThreshold = detect.DefaultThreshold

	// DefaultFieldCutoff is the per-field distance above which a field does
	// not count as matching.
	DefaultFieldCutoff = similarity.DefaultFieldCutoff

	// DefaultWorkers parses issue files one after another. Issue files are
	// small and the directory is local, so parallel parsing only pays off
	// on large checkouts.
	DefaultWorkers = 1

	// AppName is the application name used for XDG directory paths.
	AppName = "fixcry"
)

// Config holds all configuration options for FixCry.
// This struct is populated from built-in defaults, the optional config
// file and CLI flags, in that order, and passed down explicitly rather
// than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs.
// The number of options is manageable and each maps to one flag.
type Config struct {
	// InputDir is the directory holding one JSON file per issue.
	InputDir string

	// OutputFile is the path the report is written to.
	OutputFile string

	// Threshold is the score below which a match counts as a duplicate.
	// Must be within [0,1].
	Threshold float64

	// FieldCutoff is the per-field match cutoff used by the index.
	// Must be within (0,1].
	FieldCutoff float64

	// Weights maps record fields to their weight in the record score.
	// Weights must be non-negative and sum to more than zero.
	Weights map[model.Field]float64

	// Extensions are the recognized issue file extensions.
	Extensions []string

	// Workers is the number of issue files parsed concurrently.
	Workers int

	// Suggestions adds merge suggestions to the report.
	Suggestions bool

	// JSONReport selects the JSON report format (the default).
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown report format.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// CompactReport writes the JSON report on a single line.
	// Ignored for Markdown reports.
	CompactReport bool

	// LogJSON writes log records as JSON instead of text.
	LogJSON bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the usual locations.
	ConfigFilePath string

	// SaveHistory stores every run in the history database.
	SaveHistory bool

	// HistoryDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/fixcry on Linux).
	HistoryDir string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (threshold, weights).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		InputDir:    DefaultInputDir,
		OutputFile:  DefaultOutputFile,
		Threshold:   DefaultThreshold,
		FieldCutoff: DefaultFieldCutoff,
		Weights:     similarity.DefaultWeights(),
		Extensions:  []string{loader.DefaultExtension},
		Workers:     DefaultWorkers,
		SaveHistory: true,
		HistoryDir:  XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for FixCry.
// On Linux: ~/.local/share/fixcry
// On macOS: ~/Library/Application Support/fixcry
// On Windows: %LOCALAPPDATA%\fixcry
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for FixCry.
// On Linux: ~/.config/fixcry
// On macOS: ~/Library/Application Support/fixcry
// On Windows: %APPDATA%\fixcry
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after flags and the config file are merged.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return ErrNoInput
	}

	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, c.Threshold)
	}

	if c.FieldCutoff <= 0 || c.FieldCutoff > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidFieldCutoff, c.FieldCutoff)
	}

	if err := validateWeights(c.Weights); err != nil {
		return err
	}

	if len(c.Extensions) == 0 {
		return ErrNoExtensions
	}

	if c.Workers < 1 {
		return ErrInvalidWorkers
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

func validateWeights(weights map[model.Field]float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("%w: no weights", ErrInvalidWeights)
	}

	var sum float64
	// Sorted so the reported field does not depend on map order.
	for _, f := range slices.Sorted(maps.Keys(weights)) {
		w := weights[f]
		if !slices.Contains(model.AllFields, f) {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidWeights, f)
		}
		if w < 0 {
			return fmt.Errorf("%w: negative weight for %q", ErrInvalidWeights, f)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidWeights)
	}
	return nil
}
