package report

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/fixcry/fixcry/internal/model"
)

// Build assembles the report of a finished run.
//
// Every report gets a fresh run id. Groups keep their formation order and
// duplicates keep their ranking order. Suggestions are included only when
// the run asked for them.
func Build(run *model.Run, now time.Time) *model.DuplicateReport {
	report := &model.DuplicateReport{
		Timestamp:        now,
		RunID:            uuid.NewString(),
		InputDir:         run.InputDir,
		Threshold:        run.Threshold,
		RecordsLoaded:    len(run.Records),
		InputFingerprint: run.Fingerprint,
		SkippedFiles:     run.Skipped,
		Groups:           make([]model.GroupEntry, 0, len(run.Groups)),
	}

	var scores []float64
	for _, g := range run.Groups {
		entry := model.GroupEntry{
			Original:   model.NewRecordRef(g.Original),
			Duplicates: make([]model.DuplicateEntry, 0, len(g.Matches)),
			Confidence: g.Confidence,
		}
		for _, m := range g.Matches {
			fields := make([]string, 0, len(m.MatchedFields))
			for _, f := range m.MatchedFields {
				fields = append(fields, string(f))
			}
			entry.Duplicates = append(entry.Duplicates, model.DuplicateEntry{
				RecordRef:       model.NewRecordRef(m.Record),
				SimilarityScore: m.Score,
				MatchingFields:  fields,
			})
			scores = append(scores, m.Score)
		}
		report.Groups = append(report.Groups, entry)
	}

	report.Summary = model.ReportSummary{
		TotalGroups:     len(report.Groups),
		TotalDuplicates: len(scores),
		ScoreStats:      scoreStats(scores),
	}

	if run.Suggestions {
		report.Suggestions = make([]model.SuggestionEntry, 0, len(run.MergeSuggestions))
		for _, s := range run.MergeSuggestions {
			merge := make([]model.RecordRef, 0, len(s.Merge))
			for _, r := range s.Merge {
				merge = append(merge, model.NewRecordRef(r))
			}
			report.Suggestions = append(report.Suggestions, model.SuggestionEntry{
				Action:     s.Action,
				Keep:       model.NewRecordRef(s.Keep),
				Merge:      merge,
				Reason:     s.Reason,
				Confidence: s.Confidence,
			})
		}
	}

	return report
}

// scoreStats summarizes scores, or returns nil when there are none.
func scoreStats(scores []float64) *model.ScoreStats {
	if len(scores) == 0 {
		return nil
	}

	sorted := slices.Clone(scores)
	slices.Sort(sorted)

	// Population deviation: a single duplicate has a spread of zero.
	mean, std := stat.PopMeanStdDev(sorted, nil)

	return &model.ScoreStats{
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Mean:   mean,
		Median: median(sorted),
		StdDev: std,
	}
}

// median of an ascending, non-empty slice. Even lengths average the two
// middle values.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
