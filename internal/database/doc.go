// Package database provides SQLite-based storage for depscout.
//
// This package implements the HistoryDB, which stores:
//   - Runs of the study and check commands with their outcome
//   - Per-package scores of every run for trend display
//
// The history is write-mostly: it feeds the history command and is never
// read back into scoring.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode provides good concurrent read performance
package database
