// Package notifications delivers task lifecycle events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the watcher can notify unconditionally. Deliveries are single attempts;
// callers log failures and carry on.
package notifications
