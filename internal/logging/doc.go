// Package logging assembles structured slog loggers and formatting helpers used
// across sdportal.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so transport and watcher code can
// tag log lines with request correlation IDs and task IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
