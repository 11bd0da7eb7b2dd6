// Package history persists completed translations in SQLite.
//
// Every recomputation that produced sign notation is recorded with its
// source text, languages, pivot text, pose reference and tokens. The
// database is a convenience log rather than an archive: entries older than
// the configured retention are pruned, and schema changes bump the version
// in schema.go so users recreate the file.
package history
