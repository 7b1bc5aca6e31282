package repository

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

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/services/series"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// Fixed width so saved_at sorts lexically.
	savedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id       TEXT PRIMARY KEY,
		source   TEXT NOT NULL,
		csv_blob BLOB NOT NULL,
		saved_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_saved_at ON runs(saved_at)`,
}

// SQLiteRunStore keeps each run as a CSV blob in a local database file.
type SQLiteRunStore struct {
	db   *sql.DB
	path string
}

func OpenSQLiteRunStore(ctx context.Context, path string) (*SQLiteRunStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, stmt := range append(pragmas, sqliteSchema...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite %q: %w", firstLine(stmt), err)
		}
	}
	return &SQLiteRunStore{db: db, path: path}, nil
}

func (s *SQLiteRunStore) Path() string { return s.path }

func (s *SQLiteRunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteRunStore) Save(ctx context.Context, run *models.Run) error {
	blob, err := series.EncodeBytes(run.Series)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO runs (id, source, csv_blob, saved_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET source = excluded.source, csv_blob = excluded.csv_blob, saved_at = excluded.saved_at`,
			run.ID, run.Source, blob, run.SavedAt.UTC().Format(savedAtLayout),
		)
		if err != nil {
			return fmt.Errorf("save run %s: %w", run.ID, err)
		}
		return nil
	})
}

func (s *SQLiteRunStore) Get(ctx context.Context, id string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source, csv_blob, saved_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, domrepo.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// List returns the newest runs first.
func (s *SQLiteRunStore) List(ctx context.Context, q models.RunQuery) ([]models.Run, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	since := ""
	if !q.Since.IsZero() {
		since = q.Since.UTC().Format(savedAtLayout)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, csv_blob, saved_at FROM runs WHERE saved_at > ? ORDER BY saved_at DESC, id LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func (s *SQLiteRunStore) Delete(ctx context.Context, id string) error {
	return retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete run %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("run %s: %w", id, domrepo.ErrRunNotFound)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		run     models.Run
		blob    []byte
		savedAt string
	)
	if err := row.Scan(&run.ID, &run.Source, &blob, &savedAt); err != nil {
		return nil, err
	}
	ts, err := time.Parse(savedAtLayout, savedAt)
	if err != nil {
		return nil, fmt.Errorf("parse saved_at %q: %w", savedAt, err)
	}
	run.SavedAt = ts
	if run.Series, _, err = series.DecodeBytes(blob); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", run.ID, err)
	}
	return &run, nil
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) {
			return lastErr
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

func isSQLiteBusy(err error) bool {
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var _ domrepo.RunStore = (*SQLiteRunStore)(nil)
