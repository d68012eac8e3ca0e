// Package watcher follows submitted tasks until their images are on disk.
//
// Each pass reads the ledger's pending entries, polls the relay for their
// status, records changes, and for successful tasks downloads every result
// image to <output_dir>/<task_id>/<n>.<ext>. A failure on one task is logged
// with its transport error kind and the pass moves on; the next pass retries.
// Only one watcher runs per data directory, enforced with a flock lock file.
package watcher
