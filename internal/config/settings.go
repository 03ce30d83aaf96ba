package config

import (
	"maps"
	"path/filepath"

	"github.com/fixcry/fixcry/internal/model"
)

// Settings holds the options a config file may set. Every field is
// optional; unset fields leave the current value alone.
type Settings struct {
	// Input is the issue directory.
	Input string `yaml:"input,omitempty"`

	// Output is the report file path.
	Output string `yaml:"output,omitempty"`

	// Threshold overrides the duplicate threshold.
	Threshold *float64 `yaml:"threshold,omitempty"`

	// FieldCutoff overrides the per-field match cutoff.
	FieldCutoff *float64 `yaml:"fieldCutoff,omitempty"`

	// Weights replaces the field weights. Keys are field names such as
	// "title" or "location.city".
	Weights map[string]float64 `yaml:"weights,omitempty"`

	// Extensions replaces the recognized issue file extensions.
	Extensions []string `yaml:"extensions,omitempty"`

	// Workers overrides the number of concurrent file parsers.
	Workers int `yaml:"workers,omitempty"`

	// Suggestions turns merge suggestions on or off.
	Suggestions *bool `yaml:"suggestions,omitempty"`

	// Format selects the report format: "json" or "markdown".
	Format string `yaml:"format,omitempty"`

	// Compact writes the JSON report on a single line.
	Compact *bool `yaml:"compact,omitempty"`

	// History turns the run history on or off.
	History *bool `yaml:"history,omitempty"`

	// HistoryDir overrides the history database directory.
	HistoryDir string `yaml:"historyDir,omitempty"`
}

// File represents the structure of the .fixcry configuration file.
type File struct {
	// Defaults apply to every run.
	Defaults Settings `yaml:"defaults,omitempty"`

	// Dirs maps an issue directory to settings that apply only to runs
	// over that directory. They take precedence over Defaults.
	Dirs map[string]Settings `yaml:"dirs,omitempty"`
}

// GetDirSettings returns the settings for a run over inputDir: Defaults
// merged with the matching Dirs entry. Directory keys are compared after
// cleaning, so "data/issues/" matches "data/issues".
func (cf *File) GetDirSettings(inputDir string) Settings {
	result := cf.Defaults
	result.Weights = maps.Clone(cf.Defaults.Weights)

	dir, ok := cf.lookupDir(inputDir)
	if !ok {
		return result
	}

	if dir.Output != "" {
		result.Output = dir.Output
	}
	if dir.Threshold != nil {
		result.Threshold = dir.Threshold
	}
	if dir.FieldCutoff != nil {
		result.FieldCutoff = dir.FieldCutoff
	}
	if len(dir.Weights) > 0 {
		if result.Weights == nil {
			result.Weights = make(map[string]float64)
		}
		maps.Copy(result.Weights, dir.Weights)
	}
	if len(dir.Extensions) > 0 {
		result.Extensions = dir.Extensions
	}
	if dir.Workers != 0 {
		result.Workers = dir.Workers
	}
	if dir.Suggestions != nil {
		result.Suggestions = dir.Suggestions
	}
	if dir.Format != "" {
		result.Format = dir.Format
	}
	if dir.Compact != nil {
		result.Compact = dir.Compact
	}
	if dir.History != nil {
		result.History = dir.History
	}
	if dir.HistoryDir != "" {
		result.HistoryDir = dir.HistoryDir
	}

	return result
}

func (cf *File) lookupDir(inputDir string) (Settings, bool) {
	if s, ok := cf.Dirs[inputDir]; ok {
		return s, true
	}
	clean := filepath.Clean(inputDir)
	for k, s := range cf.Dirs {
		if filepath.Clean(k) == clean {
			return s, true
		}
	}
	return Settings{}, false
}

// Apply copies every set field of s into c. Input is not applied here:
// the input directory decides which settings apply, so callers resolve it
// first.
func (c *Config) Apply(s Settings) {
	if s.Output != "" {
		c.OutputFile = s.Output
	}
	if s.Threshold != nil {
		c.Threshold = *s.Threshold
	}
	if s.FieldCutoff != nil {
		c.FieldCutoff = *s.FieldCutoff
	}
	if len(s.Weights) > 0 {
		weights := make(map[model.Field]float64, len(s.Weights))
		for k, v := range s.Weights {
			weights[model.Field(k)] = v
		}
		c.Weights = weights
	}
	if len(s.Extensions) > 0 {
		c.Extensions = s.Extensions
	}
	if s.Workers != 0 {
		c.Workers = s.Workers
	}
	if s.Suggestions != nil {
		c.Suggestions = *s.Suggestions
	}
	switch s.Format {
	case "json":
		c.JSONReport, c.MarkdownReport = true, false
	case "markdown", "md":
		c.JSONReport, c.MarkdownReport = false, true
	}
	if s.Compact != nil {
		c.CompactReport = *s.Compact
	}
	if s.History != nil {
		c.SaveHistory = *s.History
	}
	if s.HistoryDir != "" {
		c.HistoryDir = s.HistoryDir
	}
}
