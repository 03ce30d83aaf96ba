// Package database provides SQLite-based storage for FixCry run history.
//
// Every detection run can be stored with its summary counts and full JSON
// report. The history answers two questions: what did earlier runs over
// this directory find, and has this exact input been checked before.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
package database
