package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"qmunlock/internal/config"
	"qmunlock/internal/conversion"
	"qmunlock/internal/services"
)

// Entry is one ledger row.
type Entry struct {
	ID         int64
	RunID      string
	Mode       string
	SourcePath string
	TargetPath string
	Status     conversion.Status
	Reason     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store persists entries in SQLite. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open connects to the ledger configured in cfg, creating it when missing.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("history: config is nil")
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath connects to the ledger at path, creating it when missing.
func OpenPath(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history: database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
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

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record implements conversion.Recorder. Run id and mode come from ctx.
func (s *Store) Record(ctx context.Context, outcome conversion.Outcome) error {
	entry := Entry{
		SourcePath: outcome.Job.SourcePath,
		TargetPath: outcome.Job.TargetPath,
		Status:     outcome.Status,
		Reason:     outcome.Reason,
		StartedAt:  outcome.StartedAt,
		FinishedAt: outcome.StartedAt.Add(outcome.Duration),
	}
	if id, ok := services.RunIDFromContext(ctx); ok {
		entry.RunID = id
	}
	if mode, ok := services.ModeFromContext(ctx); ok {
		entry.Mode = mode
	}
	if outcome.Err != nil {
		entry.Error = outcome.Err.Error()
	}
	_, err := s.Insert(ctx, entry)
	return err
}

// Insert stores entry and returns its assigned id.
func (s *Store) Insert(ctx context.Context, entry Entry) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("history: store is closed")
	}
	if strings.TrimSpace(entry.SourcePath) == "" {
		return 0, errors.New("history: source path is required")
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = entry.StartedAt
	}

	var id int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		res, execErr := s.db.ExecContext(ensureContext(ctx),
			`INSERT INTO conversions
				(run_id, mode, source_path, target_path, status, reason, error_message, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.RunID,
			entry.Mode,
			entry.SourcePath,
			entry.TargetPath,
			string(entry.Status),
			entry.Reason,
			entry.Error,
			formatTime(entry.StartedAt),
			formatTime(entry.FinishedAt),
		)
		if execErr != nil {
			return execErr
		}
		id, execErr = res.LastInsertId()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("insert history entry: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := selectColumns + " ORDER BY started_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ForRun returns the entries written by one run in insertion order.
func (s *Store) ForRun(ctx context.Context, runID string) ([]Entry, error) {
	return s.query(ctx, selectColumns+" WHERE run_id = ? ORDER BY id", runID)
}

const selectColumns = `SELECT id, run_id, mode, source_path, target_path, status, reason, error_message, started_at, finished_at FROM conversions`

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history: store is closed")
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry             Entry
			status            string
			started, finished string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.RunID,
			&entry.Mode,
			&entry.SourcePath,
			&entry.TargetPath,
			&status,
			&entry.Reason,
			&entry.Error,
			&started,
			&finished,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.Status = conversion.Status(status)
		if entry.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse started_at for entry %d: %w", entry.ID, err)
		}
		if entry.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("parse finished_at for entry %d: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
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
	for attempt := range busyRetryAttempts {
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

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
