// Package remote provides the HTTP plumbing shared by every signflow service
// client (normalizer, pivot, describer, signwriting).
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 500ms, max 8s, three attempts by default).
// Retry-After headers are honoured up to the max delay. Context cancellation
// aborts retries immediately, which is how the orchestrator abandons requests
// that were superseded by newer input.
//
// # Throttling
//
// WithRateLimit installs a token bucket (golang.org/x/time/rate) that every
// attempt waits on before dialing.
//
// # Errors
//
// Failures carry services markers: 4xx responses are ErrValidation, exhausted
// retries and transport failures are ErrTransient, and undecodable bodies are
// ErrMalformedResponse.
package remote
