package detect

import (
	"sort"

	"github.com/fixcry/fixcry/internal/model"
)

// Merge suggestion constants.
const (
	// ActionMerge is the only action a suggestion proposes.
	ActionMerge = "merge"

	// MergeReason explains every suggestion.
	MergeReason = "Similar content and location"
)

// SuggestMerges proposes, for every group, the earliest submitted record as
// the one to keep and the rest as records to merge into it. The group
// confidence is carried through unchanged.
//
// Records without a submission time sort after all timestamped ones because
// they cannot be shown to be the earliest. Records with equal times keep
// their group order (original first, then members by rank).
//
// Suggestions are advisory: nothing is deleted or rewritten.
func SuggestMerges(groups []model.DuplicateGroup) []model.MergeSuggestion {
	suggestions := make([]model.MergeSuggestion, 0, len(groups))

	for i := range groups {
		records := groups[i].Records()
		sort.SliceStable(records, func(a, b int) bool {
			return submittedBefore(records[a], records[b])
		})

		suggestions = append(suggestions, model.MergeSuggestion{
			Action:     ActionMerge,
			Keep:       records[0],
			Merge:      records[1:],
			Reason:     MergeReason,
			Confidence: groups[i].Confidence,
		})
	}

	return suggestions
}

// submittedBefore orders records by submission time, undated last.
func submittedBefore(a, b *model.IssueRecord) bool {
	switch {
	case a.SubmittedAt.IsZero():
		return false
	case b.SubmittedAt.IsZero():
		return true
	default:
		return a.SubmittedAt.Before(b.SubmittedAt.Time)
	}
}
