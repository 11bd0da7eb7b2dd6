// Package api defines wire-format types and converters for the daemon HTTP
// API. It turns history entries, log events and captured frames into
// transport-friendly DTOs so CLI clients never depend on storage types.
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// The session snapshot is passed through as translate.Snapshot, which
// already carries camelCase tags.
package api
