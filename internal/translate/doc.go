// Package translate owns the state of a translation session and sequences
// the remote services that derive sign output from spoken text.
//
// Each intent method mutates state synchronously under a mutex and launches
// continuations for remote work. Intents of the same kind supersede each
// other: a continuation whose generation is no longer current is discarded
// and its context cancelled, so only the most recent request can write.
package translate
