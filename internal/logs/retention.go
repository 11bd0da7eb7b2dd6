package logs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"signflow/internal/logging"
)

// RunLogPattern matches the per-run daemon log files.
const RunLogPattern = "signflow-*.log"

// PruneResult reports which run logs were removed.
type PruneResult struct {
	Removed []string
	Failed  map[string]error
}

// PruneRunLogs removes files in dir matching RunLogPattern whose modification
// time is older than maxAge. keep names files that must survive regardless of
// age, such as the log of the current run. A non-positive maxAge is a no-op.
func PruneRunLogs(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger, keep ...string) PruneResult {
	result := PruneResult{}
	dir = strings.TrimSpace(dir)
	if dir == "" || maxAge <= 0 {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.fail(dir, err)
		}
		return result
	}

	skip := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		if abs, err := filepath.Abs(path); err == nil {
			skip[abs] = struct{}{}
		}
	}
	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(RunLogPattern, entry.Name()); !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(path); err == nil {
			if _, kept := skip[abs]; kept {
				continue
			}
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			result.fail(path, err)
			logging.WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check file permissions and log_dir ownership"),
				logging.String(logging.FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Debug("removed old run log",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "log_retention"),
		)
	}
	return result
}

func (r *PruneResult) fail(path string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]error)
	}
	r.Failed[path] = err
}
