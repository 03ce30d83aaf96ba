package model

import "time"

// DuplicateReport is the serialized result of a detection run.
// The field names follow the report files the FixCry tooling has always
// produced so existing consumers keep working.
type DuplicateReport struct {
	// Timestamp is when the report was generated.
	Timestamp time.Time `json:"timestamp"`

	// RunID uniquely identifies the run in the history store.
	RunID string `json:"run_id"`

	// InputDir is the directory the records were loaded from.
	InputDir string `json:"input_dir"`

	// Threshold is the similarity threshold the groups were built with.
	Threshold float64 `json:"threshold"`

	// RecordsLoaded is the number of records that took part in matching.
	RecordsLoaded int `json:"records_loaded"`

	// InputFingerprint is a digest of the loaded files.
	// Two runs over unchanged input share the same fingerprint.
	InputFingerprint string `json:"input_fingerprint,omitempty"`

	// SkippedFiles lists input files that could not be used.
	SkippedFiles []SkippedFile `json:"skipped_files,omitempty"`

	Summary ReportSummary `json:"summary"`

	Groups []GroupEntry `json:"groups"`

	// Suggestions is only present when merge suggestions were requested.
	Suggestions []SuggestionEntry `json:"suggestions,omitempty"`
}

// ReportSummary holds the headline counts of a report.
type ReportSummary struct {
	TotalGroups     int `json:"total_groups"`
	TotalDuplicates int `json:"total_duplicates"`

	// ScoreStats describes the member scores across all groups.
	// Nil when no duplicates were found.
	ScoreStats *ScoreStats `json:"score_stats,omitempty"`
}

// ScoreStats summarizes a set of similarity scores.
type ScoreStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
}

// RecordRef identifies a record inside a report.
type RecordRef struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	File      string `json:"file"`
	CreatedAt string `json:"created_at,omitempty"`
}

// NewRecordRef creates a RecordRef for r.
func NewRecordRef(r *IssueRecord) RecordRef {
	return RecordRef{
		ID:        r.ID,
		Title:     r.Title,
		File:      r.File,
		CreatedAt: r.SubmittedAt.String(),
	}
}

// DuplicateEntry is one duplicate inside a group.
type DuplicateEntry struct {
	RecordRef

	SimilarityScore float64  `json:"similarity_score"`
	MatchingFields  []string `json:"matching_fields"`
}

// GroupEntry is the serialized form of a DuplicateGroup.
type GroupEntry struct {
	Original   RecordRef        `json:"original"`
	Duplicates []DuplicateEntry `json:"duplicates"`
	Confidence float64          `json:"confidence"`
}

// SuggestionEntry is the serialized form of a MergeSuggestion.
type SuggestionEntry struct {
	Action     string      `json:"action"`
	Keep       RecordRef   `json:"keep"`
	Merge      []RecordRef `json:"merge"`
	Reason     string      `json:"reason"`
	Confidence float64     `json:"confidence"`
}

// HasDuplicates reports whether the report contains at least one group.
func (r *DuplicateReport) HasDuplicates() bool {
	return len(r.Groups) > 0
}
