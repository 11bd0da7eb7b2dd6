// Package services defines shared utilities consumed by the orchestrator and
// the remote service clients under it.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, intent names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures from any
//     remote collaborator can be classified (transient, malformed, offline).
//
// Client packages live in subdirectories: normalizer, pivot, describer,
// signwriting, posegen, and the shared HTTP plumbing in remote.
package services
