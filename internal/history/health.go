package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Health summarizes the state of the history database for diagnostics.
type Health struct {
	DBPath         string `json:"db_path"`
	Exists         bool   `json:"exists"`
	Readable       bool   `json:"readable"`
	Entries        int    `json:"entries"`
	IntegrityCheck bool   `json:"integrity_ok"`
	Error          string `json:"error,omitempty"`
}

// CheckHealth pings the database and runs an integrity check.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{DBPath: s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat history database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("history database path %q is a directory", s.path)
	}
	health.Exists = true

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping history database: %w", err)
	}
	health.Readable = true

	count, err := s.Count(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.Entries = count

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}
