// Package preflight provides readiness checks for the directories, history
// database and remote enhancement services that signflow depends on.
//
// The CLI "signflow preflight" command runs RunAll and renders the results.
// Remote checks are skipped when the configuration forces offline mode, since
// every session feature degrades gracefully without them.
package preflight
