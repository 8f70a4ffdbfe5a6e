// Package history records download runs in a local SQLite database so
// interrupted and repeated mirrors can be reviewed.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
)

// Status is the state of a recorded run.
type Status string

const (
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusNotStarted Status = "not_started"
)

// Run is one download attempt.
type Run struct {
	ID            int64     `json:"id"`
	CollectionURL string    `json:"collection_url"`
	Destination   string    `json:"destination,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	// FinishedAt is zero while the run is in progress, or if the process
	// died before recording the end.
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Status     Status    `json:"status"`
	Total      int       `json:"total"`
	Downloaded int       `json:"downloaded"`
	Skipped    int       `json:"skipped"`
	Bytes      int64     `json:"bytes"`
	Error      string    `json:"error,omitempty"`
}

// Duration returns the run's wall time, or zero if unfinished.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary is what Finish records about a run.
type Summary struct {
	Status      Status
	Destination string
	Total       int
	Downloaded  int
	Skipped     int
	Bytes       int64
	Err         error
}

// Store is the run history. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
	now    func() time.Time
}

// Open opens or creates the history database at path. An empty path
// opens an in-memory database. A corrupted database file is discarded
// and recreated.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, mirrorerrors.New(mirrorerrors.ErrCodeDirectoryCreate,
				fmt.Sprintf("failed to create directory %s", dir), err)
		}
		if err := resetIfCorrupt(path); err != nil {
			return nil, err
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// Single writer; an in-memory database also lives and dies with its
	// one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite, so set pragmas
	// explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_url TEXT NOT NULL,
		destination TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		downloaded INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		bytes INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// resetIfCorrupt removes a database file that fails its integrity check.
func resetIfCorrupt(path string) error {
	validErr := validate(path)
	if validErr == nil {
		return nil
	}

	slog.Warn("history_database_corrupted",
		slog.String("path", path),
		slog.String("error", validErr.Error()))

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return mirrorerrors.New(mirrorerrors.ErrCodeHistoryCorrupt,
			fmt.Sprintf("history database corrupted at %s and cannot be removed", path), err).
			WithDetail("validation", validErr.Error())
	}
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")

	slog.Info("history_database_cleared", slog.String("path", path))
	return nil
}

func validate(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// Path returns the database file path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Start records a new running download of collectionURL and returns its
// id.
func (s *Store) Start(ctx context.Context, collectionURL string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errStoreClosed
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (collection_url, started_at, status) VALUES (?, ?, ?)`,
		collectionURL, formatTime(s.now()), string(StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// Finish records the end of run id.
func (s *Store) Finish(ctx context.Context, id int64, sum Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}

	var errText string
	if sum.Err != nil {
		errText = sum.Err.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			destination = ?, finished_at = ?, status = ?,
			total = ?, downloaded = ?, skipped = ?, bytes = ?, error = ?
		WHERE id = ?
	`, sum.Destination, formatTime(s.now()), string(sum.Status),
		sum.Total, sum.Downloaded, sum.Skipped, sum.Bytes, errText, id)
	if err != nil {
		return fmt.Errorf("update run %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d not found", id)
	}
	return nil
}

// List returns up to limit runs, newest first. A limit below 1 returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errStoreClosed
	}
	if limit < 1 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection_url, destination, started_at, finished_at,
			status, total, downloaded, skipped, bytes, error
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
			status            string
		)
		if err := rows.Scan(&r.ID, &r.CollectionURL, &r.Destination, &started, &finished,
			&status, &r.Total, &r.Downloaded, &r.Skipped, &r.Bytes, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = Status(status)
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close checkpoints the WAL and closes the database. Close is
// idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.path != "" {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}

var errStoreClosed = mirrorerrors.New(mirrorerrors.ErrCodeInternal, "history store is closed", nil)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
