package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fixcry/fixcry/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.DuplicateReport {
	return &model.DuplicateReport{
		Timestamp:     time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		RunID:         "0b9f4a4e-6a53-4b7b-9f43-3d3c2f1d2a10",
		InputDir:      "data/issues",
		Threshold:     0.3,
		RecordsLoaded: 5,
		SkippedFiles: []model.SkippedFile{
			{File: "broken.json", Reason: "invalid issue JSON: unexpected end of JSON input"},
		},
		Summary: model.ReportSummary{
			TotalGroups:     1,
			TotalDuplicates: 2,
			ScoreStats:      &model.ScoreStats{Min: 0, Max: 0.125, Mean: 0.0625, Median: 0.0625},
		},
		Groups: []model.GroupEntry{
			{
				Original: model.RecordRef{ID: "101", Title: "בור בכביש ברחוב הרצל", File: "101.json"},
				Duplicates: []model.DuplicateEntry{
					{
						RecordRef:       model.RecordRef{ID: "102", Title: "בור בכביש ברחוב הרצל", File: "102.json"},
						SimilarityScore: 0,
						MatchingFields:  []string{"title"},
					},
					{
						RecordRef:       model.RecordRef{ID: "105", Title: "בור ברחוב הרצל", File: "105.json"},
						SimilarityScore: 0.125,
						MatchingFields:  []string{"title", "location.street"},
					},
				},
				Confidence: 0.125,
			},
		},
		Suggestions: []model.SuggestionEntry{
			{
				Action:     "merge",
				Keep:       model.RecordRef{ID: "102", Title: "בור בכביש ברחוב הרצל", File: "102.json"},
				Merge:      []model.RecordRef{{ID: "101"}, {ID: "105"}},
				Reason:     "Similar content and location",
				Confidence: 0.125,
			},
		},
	}
}

// createEmptyReport creates a report without duplicates.
func createEmptyReport() *model.DuplicateReport {
	return &model.DuplicateReport{
		Timestamp: time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		RunID:     "run",
		InputDir:  "data/issues",
		Threshold: 0.3,
		Groups:    []model.GroupEntry{},
	}
}

// TestSummaryWriter tests the console summary writer.
func TestSummaryWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes counts and groups", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSummaryWriter(&buf, WithColor(false))

		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"Total groups: 1",
			"Total duplicates: 2",
			"1. בור בכביש ברחוב הרצל",
			"Original: 101 (101.json)",
			"Duplicate: 102 (102.json) - Score: 0.000",
			"Duplicate: 105 (105.json) - Score: 0.125",
			"Skipped files: 1",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("reports no duplicates", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSummaryWriter(&buf, WithColor(false))

		if _, err := w.Write(createEmptyReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "No duplicates found") {
			t.Errorf("expected no duplicates message, got:\n%s", output)
		}
		if strings.Contains(output, "Scores:") {
			t.Error("expected no score line without duplicates")
		}
	})

	t.Run("verbose mode adds suggestions and skipped files", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSummaryWriter(&buf, WithColor(false), WithVerbose(true))

		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "keep 102, merge 101, 105 (confidence 0.125)") {
			t.Errorf("expected suggestion line, got:\n%s", output)
		}
		if !strings.Contains(output, "broken.json: invalid issue JSON") {
			t.Errorf("expected skipped file line, got:\n%s", output)
		}
	})

	t.Run("plain output has no escape codes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSummaryWriter(&buf, WithColor(false))

		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected no ANSI escape codes")
		}
	})

	t.Run("forced color adds escape codes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSummaryWriter(&buf, WithColor(true))

		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected ANSI escape codes")
		}
	})
}

// TestJSONWriter tests JSON output.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON with report field names", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		for _, key := range []string{"timestamp", "run_id", "input_dir", "threshold", "summary", "groups", "suggestions"} {
			if _, ok := decoded[key]; !ok {
				t.Errorf("expected key %q in output", key)
			}
		}

		summary, ok := decoded["summary"].(map[string]any)
		if !ok {
			t.Fatalf("summary has unexpected type %T", decoded["summary"])
		}
		if summary["total_groups"] != float64(1) || summary["total_duplicates"] != float64(2) {
			t.Errorf("unexpected summary %v", summary)
		}

		groups, ok := decoded["groups"].([]any)
		if !ok || len(groups) != 1 {
			t.Fatalf("unexpected groups %v", decoded["groups"])
		}
		group, ok := groups[0].(map[string]any)
		if !ok {
			t.Fatalf("group has unexpected type %T", groups[0])
		}
		duplicates, ok := group["duplicates"].([]any)
		if !ok || len(duplicates) != 2 {
			t.Fatalf("unexpected duplicates %v", group["duplicates"])
		}
		dup, ok := duplicates[1].(map[string]any)
		if !ok {
			t.Fatalf("duplicate has unexpected type %T", duplicates[1])
		}
		if dup["similarity_score"] != 0.125 || dup["id"] != "105" {
			t.Errorf("unexpected duplicate entry %v", dup)
		}
	})

	t.Run("empty report has empty groups array and no suggestions", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithCompact())

		if _, err := w.Write(createEmptyReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, `"groups":[]`) {
			t.Errorf("expected empty groups array, got %s", output)
		}
		if !strings.Contains(output, `"summary":{"total_groups":0,"total_duplicates":0}`) {
			t.Errorf("expected zero summary, got %s", output)
		}
		if strings.Contains(output, "suggestions") {
			t.Errorf("expected no suggestions key, got %s", output)
		}
	})

	t.Run("indented by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(createEmptyReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"run_id\"") {
			t.Errorf("expected indented output, got %s", buf.String())
		}
	})

	t.Run("compact output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithCompact())

		if _, err := w.Write(createEmptyReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Errorf("expected single line, got %d lines", len(lines))
		}
	})
}

// TestWithIndent tests the WithIndent option.
func TestWithIndent(t *testing.T) {
	t.Parallel()

	t.Run("uses custom prefix and indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithIndent(">>", "\t"))

		if _, err := w.Write(createEmptyReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, ">>\t\"run_id\"") {
			t.Errorf("expected custom prefix and tab indent, got %s", output)
		}
	})
}

// TestMultiWriter tests writing to multiple outputs.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		w1 := NewSummaryWriter(&buf1, WithColor(false))
		w2 := NewJSONWriter(&buf2)

		multi := NewMultiWriter(w1, w2)

		n, err := multi.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf1.Len()+buf2.Len() {
			t.Errorf("expected %d bytes, got %d", buf1.Len()+buf2.Len(), n)
		}

		if strings.Contains(buf1.String(), "{") {
			t.Error("expected buf1 (summary) to not be JSON")
		}
		if !strings.Contains(buf2.String(), "{") {
			t.Error("expected buf2 (JSON) to contain JSON")
		}
	})

	t.Run("handles empty writers list", func(t *testing.T) {
		t.Parallel()

		n, err := NewMultiWriter().Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 bytes, got %d", n)
		}
	})
}

// TestMarkdownWriter tests Markdown output.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Duplicate Issue Report",
			"0b9f4a4e-6a53-4b7b-9f43-3d3c2f1d2a10",
			"## Summary",
			"Duplicate Groups",
			"0.125",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("includes pie chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "```mermaid") {
			t.Error("expected mermaid code block")
		}
		if !strings.Contains(output, "Records per Duplicate Group") {
			t.Error("expected pie chart title")
		}
	})

	t.Run("writes group table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "### Group 1: בור בכביש ברחוב הרצל") {
			t.Error("expected group heading")
		}
		if !strings.Contains(output, "title, location.street") {
			t.Error("expected matching fields")
		}
	})

	t.Run("writes suggestions and skipped files", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## Merge Suggestions") {
			t.Error("expected suggestions section")
		}
		if !strings.Contains(output, "into `102`") {
			t.Error("expected keep record in suggestion")
		}
		if !strings.Contains(output, "## Skipped Files") || !strings.Contains(output, "broken.json") {
			t.Error("expected skipped files section")
		}
	})

	t.Run("handles report without duplicates", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createEmptyReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "No duplicate groups.") {
			t.Error("expected no groups message")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no chart without duplicates")
		}
		if strings.Contains(output, "## Merge Suggestions") {
			t.Error("expected no suggestions section")
		}
	})

	t.Run("writes footer with link", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createEmptyReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "https://github.com/fixcry/fixcry") {
			t.Error("expected footer link")
		}
	})
}

// TestTruncateString tests the string truncation helper.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a longer string", 10, "this is..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"ab", 5, "ab"},
		{"בור בכביש ברחוב", 8, "בור ב..."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			result := truncateString(tt.input, tt.maxLen)
			if result != tt.expected {
				t.Errorf("truncateString(%q, %d) = %q, want %q",
					tt.input, tt.maxLen, result, tt.expected)
			}
		})
	}
}

// TestFormatScore tests score formatting.
func TestFormatScore(t *testing.T) {
	t.Parallel()

	if got := formatScore(0.12345); got != "0.123" {
		t.Errorf("formatScore(0.12345) = %q", got)
	}
	if got := formatScore(0); got != "0.000" {
		t.Errorf("formatScore(0) = %q", got)
	}
}
