// Package ledger provides SQLite-based provenance storage for torcollect.
//
// Every completed fetch is recorded with its URL, local path, digest, and
// timing, so a collection can later answer what was fetched, when, and what
// exactly came back. The full artifact is stored as JSON next to the
// indexed columns; listings read the columns, exports read the JSON.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of an
// append-only log file because:
// 1. No external dependencies - the ledger is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Recent-first listings and URL lookups come free with indexes
// 4. WAL mode provides good concurrent read performance
package ledger
