// Package logs reads and prunes the daemon's log files. The CLI reads them when the
// daemon API is unreachable, e.g. to inspect why a daemon failed to start.
package logs
