// Package daemon hosts a long-running translation session behind a local
// HTTP API.
//
// It wires configuration, the session orchestrator, the history store and the
// connectivity monitor into a single lifecycle with flock-based locking to
// prevent multiple instances. Every session intent is exposed as a POST
// endpoint that answers with the resulting snapshot; remote work keeps running
// after the response, and GET /api/state?settle=1 waits for it. Session
// notices are kept in a small ring for polling, and log events are served
// from the in-memory stream hub with optional long-polling.
//
// Keep translation logic in the translate package: the daemon focuses on
// startup, shutdown, transport and high level coordination.
package daemon
