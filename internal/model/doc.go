// Package model defines the data structures shared across FixCry.
//
// This package contains the following main types:
//   - IssueRecord: one civic issue loaded from a JSON file
//   - Match, DuplicateGroup, MergeSuggestion: results of duplicate detection
//   - Run: the state of one detection run, threaded through the pipeline
//   - DuplicateReport: the serialized report written at the end of a run
//
// Models live in their own package because the loader, the similarity
// index, the pipeline and the report writers all need them.
package model
