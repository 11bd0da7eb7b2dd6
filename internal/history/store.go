package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"signflow/internal/config"
)

// Entry is one recorded translation.
type Entry struct {
	ID             int64     `json:"id"`
	SessionID      string    `json:"session_id,omitempty"`
	SourceText     string    `json:"source_text"`
	SpokenLanguage string    `json:"spoken_language,omitempty"`
	SignedLanguage string    `json:"signed_language"`
	PivotText      string    `json:"pivot_text,omitempty"`
	PoseReference  string    `json:"pose_reference,omitempty"`
	Notation       []string  `json:"notation"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store manages translation history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// fixed width so stored timestamps sort lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z"

	entryColumns = "id, session_id, source_text, spoken_language, signed_language, pivot_text, pose_reference, notation_json, created_at"
)

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryDBPath())
}

// OpenPath opens the database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record inserts entry and returns its identifier.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if strings.TrimSpace(entry.SourceText) == "" {
		return 0, errors.New("source text is required")
	}
	notation := entry.Notation
	if notation == nil {
		notation = []string{}
	}
	notationJSON, err := json.Marshal(notation)
	if err != nil {
		return 0, fmt.Errorf("marshal notation: %w", err)
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	res, err := s.execWithRetry(ctx,
		`INSERT INTO translations (
            session_id, source_text, spoken_language, signed_language,
            pivot_text, pose_reference, notation_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(entry.SessionID),
		entry.SourceText,
		nullableString(entry.SpokenLanguage),
		entry.SignedLanguage,
		nullableString(entry.PivotText),
		nullableString(entry.PoseReference),
		string(notationJSON),
		created.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert translation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Get fetches an entry by identifier. A missing entry returns nil.
func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM translations WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get translation: %w", err)
	}
	return entry, nil
}

// ListOptions filter List results.
type ListOptions struct {
	Limit     int
	SessionID string
}

// List returns the most recent entries first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM translations`
	var args []any
	if opts.SessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, opts.SessionID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM translations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return count, nil
}

// Prune deletes entries older than retention and returns how many were
// removed. A non-positive retention keeps everything.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-retention).UTC().Format(timeLayout)
	res, err := s.execWithRetry(ctx, `DELETE FROM translations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune translations: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM translations`)
	if err != nil {
		return 0, fmt.Errorf("clear translations: %w", err)
	}
	return res.RowsAffected()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id             int64
		sessionID      sql.NullString
		sourceText     string
		spokenLanguage sql.NullString
		signedLanguage string
		pivotText      sql.NullString
		poseReference  sql.NullString
		notationJSON   string
		createdRaw     string
	)
	if err := scanner.Scan(
		&id,
		&sessionID,
		&sourceText,
		&spokenLanguage,
		&signedLanguage,
		&pivotText,
		&poseReference,
		&notationJSON,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:             id,
		SessionID:      sessionID.String,
		SourceText:     sourceText,
		SpokenLanguage: spokenLanguage.String,
		SignedLanguage: signedLanguage,
		PivotText:      pivotText.String,
		PoseReference:  poseReference.String,
	}
	if err := json.Unmarshal([]byte(notationJSON), &entry.Notation); err != nil {
		return nil, fmt.Errorf("decode notation: %w", err)
	}
	if created, err := time.Parse(timeLayout, createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}
