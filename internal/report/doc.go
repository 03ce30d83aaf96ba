// Package report assembles duplicate reports and writes them out.
//
// Build turns a finished model.Run into a model.DuplicateReport. Writers
// render that report:
//   - JSONWriter: the report file format, also stored in the run history
//   - MarkdownWriter: a shareable Markdown version with a group size chart
//   - SummaryWriter: the console summary, one line per group and duplicate
//
// Design decision: We separate report writing from report data structures
// (which are in the model package). New output formats are added without
// touching the detection code.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
