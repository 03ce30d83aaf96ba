package detect

import (
	"github.com/fixcry/fixcry/internal/model"
)

// DefaultThreshold is the score below which a match counts as a duplicate.
const DefaultThreshold = 0.3

// FindDuplicates groups records that describe the same issue.
//
// Records are visited in input order. Each record not yet placed in a group
// queries the index with its title; results with a different id, not yet
// placed, and scoring strictly below threshold join a new group opened by
// that record. Every member of a group is marked as placed, so no record
// ends up in two groups and each record costs at most one query.
//
// The confidence of a group is the worst (highest) score among its members.
func FindDuplicates(records []*model.IssueRecord, index model.Matcher, threshold float64) []model.DuplicateGroup {
	groups := make([]model.DuplicateGroup, 0)
	visited := make(map[string]struct{}, len(records))

	for _, r := range records {
		if _, ok := visited[r.ID]; ok {
			continue
		}

		var members []model.Match
		for _, m := range index.Query(r.Title) {
			if m.Record.ID == r.ID {
				continue
			}
			if _, ok := visited[m.Record.ID]; ok {
				continue
			}
			if m.Score >= threshold {
				continue
			}
			members = append(members, m)
		}
		if len(members) == 0 {
			continue
		}

		group := model.DuplicateGroup{
			Original: r,
			Matches:  members,
		}
		visited[r.ID] = struct{}{}
		for _, m := range members {
			visited[m.Record.ID] = struct{}{}
			group.Confidence = max(group.Confidence, m.Score)
		}
		groups = append(groups, group)
	}

	return groups
}
