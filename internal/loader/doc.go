// Package loader reads issue records from a directory of JSON files.
//
// A broken file never hides the other issues. Bad files are logged and
// reported back as skipped; only an unreadable directory fails the load
// as a whole.
package loader
