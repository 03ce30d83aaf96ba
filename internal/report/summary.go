package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/fixcry/fixcry/internal/model"
)

// SummaryWriter outputs the human-readable console summary: headline
// counts, then one line per group and one line per duplicate with its
// score.
//
// Design decision: Color comes from fatih/color, which already turns itself
// off when stdout is not a terminal or NO_COLOR is set, so piping the
// summary into a file or another tool yields plain text.
type SummaryWriter struct {
	baseWriter

	// verbose adds skipped files and merge suggestions to the output.
	verbose bool

	heading func(a ...any) string
	ok      func(a ...any) string
	warn    func(a ...any) string
	dim     func(a ...any) string
}

// SummaryWriterOption configures a SummaryWriter.
type SummaryWriterOption func(*SummaryWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SummaryWriterOption {
	return func(w *SummaryWriter) {
		w.verbose = verbose
	}
}

// WithColor forces color on or off regardless of the terminal.
func WithColor(enabled bool) SummaryWriterOption {
	return func(w *SummaryWriter) {
		w.setColors(&enabled)
	}
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer, opts ...SummaryWriterOption) *SummaryWriter {
	w := &SummaryWriter{
		baseWriter: newBaseWriter(output),
	}
	w.setColors(nil)

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// setColors builds the color functions. A nil enabled follows the
// terminal detection of the color package.
func (w *SummaryWriter) setColors(enabled *bool) {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled != nil {
			if *enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
		return c.SprintFunc()
	}
	w.heading = mk(color.FgCyan, color.Bold)
	w.ok = mk(color.FgGreen)
	w.warn = mk(color.FgYellow)
	w.dim = mk(color.FgHiBlack)
}

// Write outputs the summary of report.
func (w *SummaryWriter) Write(report *model.DuplicateReport) (int, error) {
	var sb strings.Builder

	w.writeSummary(&sb, report)
	w.writeGroups(&sb, report)
	if w.verbose {
		w.writeSuggestions(&sb, report)
		w.writeSkipped(&sb, report)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeSummary writes the headline counts.
func (w *SummaryWriter) writeSummary(sb *strings.Builder, report *model.DuplicateReport) {
	sb.WriteString("\n")
	sb.WriteString(w.heading("Summary:"))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "   Total groups: %d\n", report.Summary.TotalGroups)
	fmt.Fprintf(sb, "   Total duplicates: %d\n", report.Summary.TotalDuplicates)
	if s := report.Summary.ScoreStats; s != nil {
		fmt.Fprintf(sb, "   Scores: min %.3f, max %.3f, mean %.3f, median %.3f, stddev %.3f\n",
			s.Min, s.Max, s.Mean, s.Median, s.StdDev)
	}
	if n := len(report.SkippedFiles); n > 0 {
		sb.WriteString(w.warn(fmt.Sprintf("   Skipped files: %d", n)))
		sb.WriteString("\n")
	}
}

// writeGroups writes one line per group and per duplicate.
func (w *SummaryWriter) writeGroups(sb *strings.Builder, report *model.DuplicateReport) {
	sb.WriteString("\n")
	if !report.HasDuplicates() {
		sb.WriteString(w.ok("No duplicates found"))
		sb.WriteString("\n")
		return
	}

	sb.WriteString(w.heading("Duplicate groups found:"))
	sb.WriteString("\n")
	for i, g := range report.Groups {
		fmt.Fprintf(sb, "   %d. %s\n", i+1, g.Original.Title)
		fmt.Fprintf(sb, "      Original: %s %s\n", g.Original.ID, w.dim("("+g.Original.File+")"))
		for _, d := range g.Duplicates {
			fmt.Fprintf(sb, "      Duplicate: %s %s - Score: %s\n",
				d.ID, w.dim("("+d.File+")"), w.warn(fmt.Sprintf("%.3f", d.SimilarityScore)))
		}
	}
}

// writeSuggestions writes one line per merge suggestion.
func (w *SummaryWriter) writeSuggestions(sb *strings.Builder, report *model.DuplicateReport) {
	if len(report.Suggestions) == 0 {
		return
	}

	sb.WriteString("\n")
	sb.WriteString(w.heading("Merge suggestions:"))
	sb.WriteString("\n")
	for _, s := range report.Suggestions {
		ids := make([]string, 0, len(s.Merge))
		for _, r := range s.Merge {
			ids = append(ids, r.ID)
		}
		fmt.Fprintf(sb, "   keep %s, merge %s (confidence %.3f)\n",
			s.Keep.ID, strings.Join(ids, ", "), s.Confidence)
	}
}

// writeSkipped writes one line per skipped file.
func (w *SummaryWriter) writeSkipped(sb *strings.Builder, report *model.DuplicateReport) {
	if len(report.SkippedFiles) == 0 {
		return
	}

	sb.WriteString("\n")
	sb.WriteString(w.warn("Skipped files:"))
	sb.WriteString("\n")
	for _, s := range report.SkippedFiles {
		fmt.Fprintf(sb, "   %s: %s\n", s.File, s.Reason)
	}
}
