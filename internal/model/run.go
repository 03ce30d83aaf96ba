package model

import "time"

// Run carries the state of a single detection run through the pipeline.
// It is created fresh for every run and owned by it; nothing in a Run is
// shared with other runs.
type Run struct {
	// InputDir is the directory records are loaded from.
	InputDir string

	// Threshold is the score below which a match counts as a duplicate.
	Threshold float64

	// Suggestions requests merge suggestions for every group.
	Suggestions bool

	// StartedAt is when the run was created.
	StartedAt time.Time

	// Records are the loaded issues in input order.
	Records []*IssueRecord

	// Skipped lists files that were not loaded and why.
	Skipped []SkippedFile

	// Fingerprint is a digest over the loaded files.
	Fingerprint string

	// Index answers similarity queries over Records.
	// It is built once and never modified afterwards.
	Index Matcher

	// Groups are the duplicate clusters in formation order.
	Groups []DuplicateGroup

	// MergeSuggestions has one entry per group when Suggestions is set.
	MergeSuggestions []MergeSuggestion

	// PerformedSteps names the pipeline steps that ran.
	PerformedSteps []string

	// Cancelled is set when the run context ended before all steps ran.
	Cancelled bool

	// Error is the last step error, if any.
	Error error `json:"-"`

	// ErrorMessage is the text of Error.
	ErrorMessage string
}

// NewRun creates a Run for the given input directory and threshold.
func NewRun(inputDir string, threshold float64) *Run {
	return &Run{
		InputDir:  inputDir,
		Threshold: threshold,
		StartedAt: time.Now(),
	}
}

// TotalDuplicates returns the number of matched records across all groups.
// Originals are not counted.
func (r *Run) TotalDuplicates() int {
	total := 0
	for _, g := range r.Groups {
		total += len(g.Matches)
	}
	return total
}
