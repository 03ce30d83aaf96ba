package similarity

import (
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/fixcry/fixcry/internal/model"
)

func issue(id, title string) *model.IssueRecord {
	return &model.IssueRecord{ID: id, Title: title}
}

func issueAt(id, title, city, street string) *model.IssueRecord {
	return &model.IssueRecord{
		ID:       id,
		Title:    title,
		Location: &model.Location{City: city, Street: street},
	}
}

// matchIDs returns the ids of matches in order.
func matchIDs(matches []model.Match) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Record.ID)
	}
	return ids
}

// bruteForceQuery scores every record field without candidate filtering.
func bruteForceQuery(ix *Index, text string) []model.Match {
	q := Normalize(text)
	if q == "" {
		return nil
	}
	qRunes, qTokens := []rune(q), Tokens(q)

	var matches []model.Match
	for i, r := range ix.records {
		score := 1.0
		var fields []model.Field
		for _, fi := range ix.fields {
			e := fi.entries[i]
			if e == nil {
				continue
			}
			d := min(tokenDistance(qTokens, e.tokens), charDistance(qRunes, e.runes))
			if d > ix.cutoff {
				continue
			}
			score *= math.Pow(d, fi.weight/ix.fields[0].weight)
			fields = append(fields, fi.field)
		}
		if len(fields) == 0 {
			continue
		}
		matches = append(matches, model.Match{Record: r, Score: score, MatchedFields: fields})
	}
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Score < matches[b].Score })
	return matches
}

// TestSubstringEdits tests approximate substring matching.
func TestSubstringEdits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern, text string
		want          int
	}{
		{"", "anything", 0},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "xxabcxx", 0},
		{"abc", "xxabxx", 1},
		{"abcd", "abxd", 1},
		{"herzl street", "herzl st", 4},
		{"abc", "xyz", 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s in %s", tt.pattern, tt.text), func(t *testing.T) {
			t.Parallel()
			if got := substringEdits([]rune(tt.pattern), []rune(tt.text)); got != tt.want {
				t.Errorf("substringEdits(%q, %q) = %d, want %d", tt.pattern, tt.text, got, tt.want)
			}
		})
	}
}

// TestDistances tests the normalized distances.
func TestDistances(t *testing.T) {
	t.Parallel()

	t.Run("charDistance is clamped", func(t *testing.T) {
		t.Parallel()
		if d := charDistance([]rune("ab"), []rune("xyzxyz")); d != 1 {
			t.Errorf("expected 1, got %v", d)
		}
		if d := charDistance(nil, []rune("x")); d != 1 {
			t.Errorf("expected 1 for empty pattern, got %v", d)
		}
	})

	t.Run("tokenDistance ignores order", func(t *testing.T) {
		t.Parallel()
		field := map[string]struct{}{"herzl": {}, "pothole": {}}
		if d := tokenDistance([]string{"pothole", "herzl"}, field); d != 0 {
			t.Errorf("expected 0, got %v", d)
		}
		if d := tokenDistance([]string{"pothole", "bench"}, field); d != 0.5 {
			t.Errorf("expected 0.5, got %v", d)
		}
		if d := tokenDistance(nil, field); d != 1 {
			t.Errorf("expected 1, got %v", d)
		}
	})
}

// TestBuild tests index construction.
func TestBuild(t *testing.T) {
	t.Parallel()

	records := []*model.IssueRecord{
		issueAt("1", "Pothole", "Haifa", ""),
		issue("2", "Bench"),
	}

	t.Run("defaults for zero options", func(t *testing.T) {
		t.Parallel()

		ix := Build(records, Options{})
		if ix.Len() != 2 {
			t.Errorf("expected 2 records, got %d", ix.Len())
		}
		if ix.Cutoff() != DefaultFieldCutoff {
			t.Errorf("expected default cutoff, got %v", ix.Cutoff())
		}
		if len(ix.fields) != len(model.AllFields) {
			t.Errorf("expected %d fields, got %d", len(model.AllFields), len(ix.fields))
		}
	})

	t.Run("zero weight fields are not indexed", func(t *testing.T) {
		t.Parallel()

		ix := Build(records, Options{Weights: map[model.Field]float64{model.FieldTitle: 1, model.FieldCity: 0}})
		if len(ix.fields) != 1 || ix.fields[0].field != model.FieldTitle {
			t.Errorf("expected only the title field, got %d fields", len(ix.fields))
		}
	})

	t.Run("missing fields are skipped", func(t *testing.T) {
		t.Parallel()

		ix := Build(records, DefaultOptions())
		for _, fi := range ix.fields {
			switch fi.field {
			case model.FieldCity:
				if diff := cmp.Diff([]int{0}, fi.present); diff != "" {
					t.Errorf("city presence mismatch (-want +got):\n%s", diff)
				}
			case model.FieldStreet, model.FieldDescription:
				if len(fi.present) != 0 {
					t.Errorf("%s: expected no entries, got %v", fi.field, fi.present)
				}
			}
		}
	})

	t.Run("later changes to the input slice do not leak in", func(t *testing.T) {
		t.Parallel()

		input := []*model.IssueRecord{issue("1", "Pothole")}
		ix := Build(input, DefaultOptions())
		input[0] = issue("9", "Other")

		if got := matchIDs(ix.Query("Pothole")); len(got) != 1 || got[0] != "1" {
			t.Errorf("expected record 1, got %v", got)
		}
	})
}

// TestQuery tests similarity queries.
func TestQuery(t *testing.T) {
	t.Parallel()

	t.Run("exact title scores zero", func(t *testing.T) {
		t.Parallel()

		ix := Build([]*model.IssueRecord{issue("1", "Broken street light")}, DefaultOptions())
		matches := ix.Query("broken STREET light!")
		if len(matches) != 1 || matches[0].Score != 0 {
			t.Fatalf("expected one exact match, got %+v", matches)
		}
		if diff := cmp.Diff([]model.Field{model.FieldTitle}, matches[0].MatchedFields); diff != "" {
			t.Errorf("fields mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty query", func(t *testing.T) {
		t.Parallel()

		ix := Build([]*model.IssueRecord{issue("1", "x")}, DefaultOptions())
		if got := ix.Query(" ?! "); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("ranked most similar first", func(t *testing.T) {
		t.Parallel()

		ix := Build([]*model.IssueRecord{
			issue("far", "Pothole on Herzl st"),
			issue("exact", "Pothole on Herzl street"),
			issue("none", "Graffiti on the school wall"),
		}, DefaultOptions())

		got := matchIDs(ix.Query("Pothole on Herzl street"))
		if diff := cmp.Diff([]string{"exact", "far"}, got); diff != "" {
			t.Errorf("ranking mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ties keep input order", func(t *testing.T) {
		t.Parallel()

		ix := Build([]*model.IssueRecord{
			issue("b", "Pothole"),
			issue("a", "Pothole"),
			issue("c", "Pothole"),
		}, DefaultOptions())

		if diff := cmp.Diff([]string{"b", "a", "c"}, matchIDs(ix.Query("Pothole"))); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("title found in the description", func(t *testing.T) {
		t.Parallel()

		r := &model.IssueRecord{
			ID:          "1",
			Title:       "Road damage",
			Description: "There is a deep pothole on Herzl street near the bus stop",
		}
		ix := Build([]*model.IssueRecord{r}, DefaultOptions())

		matches := ix.Query("Pothole on Herzl street")
		if len(matches) != 1 {
			t.Fatalf("expected description match, got %+v", matches)
		}
		if diff := cmp.Diff([]model.Field{model.FieldDescription}, matches[0].MatchedFields); diff != "" {
			t.Errorf("fields mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("scores stay within range", func(t *testing.T) {
		t.Parallel()

		ix := Build([]*model.IssueRecord{
			issueAt("1", "Pothole on Herzl", "Haifa", "Herzl"),
			issueAt("2", "Pothole near Herzl", "Haifa", "Herzl"),
		}, DefaultOptions())

		for _, m := range ix.Query("Pothole on Herzl") {
			if m.Score < 0 || m.Score > 1 || math.IsNaN(m.Score) {
				t.Errorf("score out of range: %v", m.Score)
			}
		}
	})
}

// TestQueryExtraFieldNeverRaisesScore verifies that a second matching
// field can only make a record look more similar.
func TestQueryExtraFieldNeverRaisesScore(t *testing.T) {
	t.Parallel()

	const title = "pothole on herzl st near a school"
	const query = "pothole on herzl street near the school"

	t.Run("matching description ranks first", func(t *testing.T) {
		t.Parallel()

		unrelated := &model.IssueRecord{ID: "a", Title: title, Description: "broken bench in park"}
		related := &model.IssueRecord{ID: "b", Title: title, Description: "deep pothole on herzl, close to school gate"}
		ix := Build([]*model.IssueRecord{unrelated, related}, DefaultOptions())

		matches := ix.Query(query)
		if diff := cmp.Diff([]string{"b", "a"}, matchIDs(matches)); diff != "" {
			t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
		}
		want := []model.Field{model.FieldTitle, model.FieldDescription}
		if diff := cmp.Diff(want, matches[0].MatchedFields); diff != "" {
			t.Errorf("fields mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]model.Field{model.FieldTitle}, matches[1].MatchedFields); diff != "" {
			t.Errorf("fields mismatch (-want +got):\n%s", diff)
		}
		if matches[0].Score >= matches[1].Score {
			t.Errorf("extra matching field raised the score: %v >= %v", matches[0].Score, matches[1].Score)
		}
		// Seven edits over a thirty-nine letter query.
		if math.Abs(matches[1].Score-7.0/39) > 1e-9 {
			t.Errorf("expected title-only score 7/39, got %v", matches[1].Score)
		}
	})

	t.Run("any extra field", func(t *testing.T) {
		t.Parallel()

		extras := []*model.IssueRecord{
			{Description: "pothole on herzl street near the school"},
			{Description: "deep pothole on herzl, close to school gate"},
			{Location: &model.Location{City: "pothole on herzl street near the school"}},
			{Location: &model.Location{Street: "pothole herzl street school"}},
			{
				Description: "pothole on herzl street",
				Location:    &model.Location{City: "pothole on herzl street near school", Street: "herzl street near the school"},
			},
		}

		base := &model.IssueRecord{ID: "base", Title: title}
		for i, extra := range extras {
			extra.ID = fmt.Sprintf("extra-%d", i)
			extra.Title = title

			ix := Build([]*model.IssueRecord{base, extra}, DefaultOptions())
			scores := make(map[string]float64)
			for _, m := range ix.Query(query) {
				scores[m.Record.ID] = m.Score
			}
			if scores[extra.ID] > scores[base.ID] {
				t.Errorf("%s: score %v exceeds title-only score %v", extra.ID, scores[extra.ID], scores[base.ID])
			}
		}
	})
}

// TestQueryHebrew tests the near-identical Hebrew titles scenario.
func TestQueryHebrew(t *testing.T) {
	t.Parallel()

	ix := Build([]*model.IssueRecord{
		issue("1", "כביש שבור ברחוב הרצל"),
		issue("2", "כביש שבור ברח' הרצל"),
		issue("3", "פנס רחוב לא עובד"),
	}, DefaultOptions())

	matches := ix.Query("כביש שבור ברחוב הרצל")
	if diff := cmp.Diff([]string{"1", "2"}, matchIDs(matches)); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
	// Two deleted letters over a twenty letter title.
	if math.Abs(matches[1].Score-0.1) > 1e-9 {
		t.Errorf("expected score 0.1, got %v", matches[1].Score)
	}
}

// TestQueryMatchesBruteForce verifies that candidate filtering never drops
// a record a full scan would return.
func TestQueryMatchesBruteForce(t *testing.T) {
	t.Parallel()

	records := []*model.IssueRecord{
		issueAt("1", "Pothole on Herzl street", "Haifa", "Herzl"),
		issueAt("2", "Pothole on Herzl st", "Haifa", "Herzl"),
		issueAt("3", "Large pothole, Herzl street", "Haifa", "Herzl 12"),
		issueAt("4", "Street light broken", "Tel Aviv", "Dizengoff"),
		issueAt("5", "Broken street light on Dizengoff", "Tel Aviv", "Dizengoff"),
		issueAt("6", "Overflowing garbage bins", "Jerusalem", "Jaffa"),
		issueAt("7", "כביש שבור ברחוב הרצל", "חיפה", "הרצל"),
		issueAt("8", "כביש שבור ברח' הרצל", "חיפה", "הרצל"),
		issueAt("9", "פנס רחוב לא עובד", "תל אביב", "דיזנגוף"),
		{ID: "10", Title: "Garbage", Description: "<p>The garbage bins on Jaffa road are overflowing</p>"},
		issue("11", "Pothole"),
		issue("12", "Po"),
	}

	queries := []string{
		"Pothole on Herzl street",
		"pothole",
		"Street light",
		"Overflowing garbage bins on Jaffa",
		"כביש שבור ברחוב הרצל",
		"פנס לא עובד",
		"Po",
		"x",
	}

	for _, cutoff := range []float64{0.1, 0.3, DefaultFieldCutoff, 0.7, 1} {
		ix := Build(records, Options{Weights: DefaultWeights(), FieldCutoff: cutoff})
		for _, q := range queries {
			t.Run(fmt.Sprintf("%v/%s", cutoff, q), func(t *testing.T) {
				t.Parallel()

				want := bruteForceQuery(ix, q)
				got := ix.Query(q)
				if diff := cmp.Diff(want, got, cmpopts.EquateEmpty(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
					t.Errorf("indexed query differs from full scan (-want +got):\n%s", diff)
				}
			})
		}
	}
}

// TestQueryDeterministic verifies that repeated queries give identical results.
func TestQueryDeterministic(t *testing.T) {
	t.Parallel()

	records := []*model.IssueRecord{
		issue("1", "Pothole on Herzl street"),
		issue("2", "Pothole on Herzl st"),
		issue("3", "Pothole Herzl"),
		issue("4", "Pothole on Herzl street"),
	}
	ix := Build(records, DefaultOptions())

	first := ix.Query("Pothole on Herzl street")
	for range 10 {
		if diff := cmp.Diff(first, ix.Query("Pothole on Herzl street")); diff != "" {
			t.Fatalf("query results changed (-first +got):\n%s", diff)
		}
	}
}
