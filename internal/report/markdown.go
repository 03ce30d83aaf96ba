package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/fixcry/fixcry/internal/model"
)

// pieChartMaxSlices caps the number of groups shown in the size chart.
// Remaining groups are folded into one "other" slice.
const pieChartMaxSlices = 10

// MarkdownWriter outputs reports in Markdown format.
// This format is meant for pasting into a tracker issue or a wiki page
// for the volunteers who do the actual merging.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.DuplicateReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeGroups(md, report)
	w.writeSuggestions(md, report)
	w.writeSkipped(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.DuplicateReport) {
	md.H1("Duplicate Issue Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.RunID + "`"},
			{"Generated", report.Timestamp.Format("2006-01-02 15:04:05 MST")},
			{"Input Directory", "`" + report.InputDir + "`"},
			{"Threshold", formatScore(report.Threshold)},
			{"Records Loaded", strconv.Itoa(report.RecordsLoaded)},
			{"Skipped Files", strconv.Itoa(len(report.SkippedFiles))},
		},
	})
	md.PlainText("")
}

// writeSummary writes the counts, score statistics and group size chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.DuplicateReport) {
	md.H2("Summary")
	md.PlainText("")

	rows := [][]string{
		{"Duplicate Groups", strconv.Itoa(report.Summary.TotalGroups)},
		{"Duplicate Records", strconv.Itoa(report.Summary.TotalDuplicates)},
	}
	if s := report.Summary.ScoreStats; s != nil {
		rows = append(rows,
			[]string{"Best Score", formatScore(s.Min)},
			[]string{"Worst Score", formatScore(s.Max)},
			[]string{"Mean Score", formatScore(s.Mean)},
			[]string{"Median Score", formatScore(s.Median)},
			[]string{"Score Std Dev", formatScore(s.StdDev)},
		)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.HasDuplicates() {
		w.writePieChart(md, report)
		md.Importantf(
			"%d duplicate record(s) found in %d group(s). Review them before merging.",
			report.Summary.TotalDuplicates, report.Summary.TotalGroups,
		)
	} else {
		md.Tip("No duplicate issues found.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of records per group.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.DuplicateReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Records per Duplicate Group"),
		piechart.WithShowData(true),
	)

	var other uint64
	for i, g := range report.Groups {
		size := uint64(len(g.Duplicates) + 1) //nolint:gosec // group sizes are small and positive
		if i >= pieChartMaxSlices {
			other += size
			continue
		}
		chart.LabelAndIntValue(truncateString(g.Original.Title, 30)+" ("+g.Original.ID+")", size)
	}
	if other > 0 {
		chart.LabelAndIntValue("other", other)
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeGroups writes one section per duplicate group.
func (w *MarkdownWriter) writeGroups(md *markdown.Markdown, report *model.DuplicateReport) {
	md.H2("Duplicate Groups")
	md.PlainText("")

	if !report.HasDuplicates() {
		md.PlainText("No duplicate groups.")
		md.PlainText("")
		return
	}

	for i, g := range report.Groups {
		md.H3(fmt.Sprintf("Group %d: %s", i+1, g.Original.Title))
		md.PlainText("")
		md.PlainTextf("Original `%s` (%s), confidence %s", g.Original.ID, g.Original.File, formatScore(g.Confidence))
		md.PlainText("")

		rows := make([][]string, len(g.Duplicates))
		for j, d := range g.Duplicates {
			rows[j] = []string{
				"`" + d.ID + "`",
				truncateString(d.Title, 50),
				d.File,
				formatScore(d.SimilarityScore),
				strings.Join(d.MatchingFields, ", "),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"ID", "Title", "File", "Score", "Matching Fields"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeSuggestions writes the merge suggestions, when present.
func (w *MarkdownWriter) writeSuggestions(md *markdown.Markdown, report *model.DuplicateReport) {
	if len(report.Suggestions) == 0 {
		return
	}

	md.H2("Merge Suggestions")
	md.PlainText("")
	md.Note("Suggestions are advisory. No issue file has been changed.")
	md.PlainText("")

	items := make([]string, 0, len(report.Suggestions))
	for _, s := range report.Suggestions {
		merge := make([]string, 0, len(s.Merge))
		for _, r := range s.Merge {
			merge = append(merge, "`"+r.ID+"`")
		}
		items = append(items, fmt.Sprintf("%s %s into `%s` (%s, confidence %s)",
			s.Action, strings.Join(merge, ", "), s.Keep.ID, s.Reason, formatScore(s.Confidence)))
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeSkipped lists input files that were not used.
func (w *MarkdownWriter) writeSkipped(md *markdown.Markdown, report *model.DuplicateReport) {
	if len(report.SkippedFiles) == 0 {
		return
	}

	md.H2("Skipped Files")
	md.PlainText("")
	md.Warningf("%d file(s) could not be used.", len(report.SkippedFiles))
	md.PlainText("")

	rows := make([][]string, len(report.SkippedFiles))
	for i, s := range report.SkippedFiles {
		rows[i] = []string{s.File, truncateString(s.Reason, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [FixCry](https://github.com/fixcry/fixcry)*")
}

// formatScore formats a score with three decimals.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
