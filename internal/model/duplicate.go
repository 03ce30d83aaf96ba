package model

// Match is one result of a similarity query.
type Match struct {
	// Record is the matched issue.
	Record *IssueRecord

	// Score is the normalized distance in [0,1]; 0 is an exact match.
	Score float64

	// MatchedFields lists the fields that were close enough to count,
	// most heavily weighted first.
	MatchedFields []Field
}

// Matcher answers approximate text queries over a fixed set of records.
// Implementations must not change their contents while a run uses them.
type Matcher interface {
	// Query returns matches for text ranked from most to least similar.
	Query(text string) []Match
}

// DuplicateGroup is a cluster of records judged to describe the same issue.
type DuplicateGroup struct {
	// Original is the record whose query opened the group.
	Original *IssueRecord

	// Matches are the other members in the ranking order of the index.
	Matches []Match

	// Confidence is the worst (highest) score among Matches.
	Confidence float64
}

// Records returns the original followed by all matched records.
func (g *DuplicateGroup) Records() []*IssueRecord {
	records := make([]*IssueRecord, 0, len(g.Matches)+1)
	records = append(records, g.Original)
	for _, m := range g.Matches {
		records = append(records, m.Record)
	}
	return records
}

// Size returns the number of records in the group, original included.
func (g *DuplicateGroup) Size() int {
	return len(g.Matches) + 1
}

// MergeSuggestion proposes which record of a group to keep.
// It is advisory only; nothing on disk is changed.
type MergeSuggestion struct {
	Action     string
	Keep       *IssueRecord
	Merge      []*IssueRecord
	Reason     string
	Confidence float64
}

// SkippedFile records an input file the loader could not use.
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}
