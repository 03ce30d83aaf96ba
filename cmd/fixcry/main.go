// Package main provides the entry point for the FixCry CLI.
//
// FixCry collects civic issue reports, one JSON file per issue. This tool
// finds reports that describe the same problem so they can be merged.
//
// Usage:
//
//	fixcry detect-duplicates --input data/issues --output report.json
//	fixcry history
//
// See --help for all available options.
package main

// main is the entry point for FixCry.
func main() {
	Execute()
}
