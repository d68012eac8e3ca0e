// Package ledger records the inference tasks this client submitted.
//
// Entries live in a SQLite database (modernc.org/sqlite, no cgo) under the
// configured data directory. Each row keeps the exact task_args string that
// was sent, the last status reported by the relay, and whether the result
// images have been written to disk. The watcher polls Pending entries and
// moves them forward; the CLI reads History.
//
// The schema is embedded and versioned. A database created by a different
// schema version is rejected with ErrSchemaMismatch rather than migrated.
package ledger
