// Package logging builds the slog loggers used across signflow.
//
// New returns a logger with either a compact console handler or a JSON
// handler, optionally wrapped so info and above also reach a StreamHub that
// the daemon exposes over its HTTP API. Helpers such as NewComponentLogger,
// Intent, Generation, and WarnWithContext keep field names consistent.
package logging
