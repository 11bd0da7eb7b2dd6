// Package notifications pushes daemon and session events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never check whether notifications are enabled. Session notices
// below the configured minimum level are dropped.
package notifications
