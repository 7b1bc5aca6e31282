package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/services/series"
	pkgch "PQAnalyzer/pkg/clickhouse"
	applogger "PQAnalyzer/pkg/logger"
)

// ClickHouseRunStore keeps runs in a ReplacingMergeTree keyed by id.
type ClickHouseRunStore struct {
	client *pkgch.Client
	table  string
	l      *applogger.Logger
}

func NewClickHouseRunStore(client *pkgch.Client, database string, l *applogger.Logger) *ClickHouseRunStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ClickHouseRunStore{
		client: client,
		table:  fmt.Sprintf("%s.%s", database, runsTable),
		l:      l,
	}
}

func (s *ClickHouseRunStore) Save(ctx context.Context, run *models.Run) error {
	blob, err := series.EncodeBytes(run.Series)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	query := fmt.Sprintf("INSERT INTO %s (id, source, csv_blob, saved_at)", s.table)
	if err := s.client.InsertBatch(ctx, query, [][]any{{run.ID, run.Source, string(blob), run.SavedAt.UTC()}}); err != nil {
		s.l.Error("failed to save run", applogger.String("run_id", run.ID), applogger.Error(err))
		return err
	}
	return nil
}

func (s *ClickHouseRunStore) Get(ctx context.Context, id string) (*models.Run, error) {
	query := fmt.Sprintf("SELECT id, source, csv_blob, saved_at FROM %s FINAL WHERE id = ? LIMIT 1", s.table)
	run, err := scanClickHouseRun(s.client.DB().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, domrepo.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

func (s *ClickHouseRunStore) List(ctx context.Context, q models.RunQuery) ([]models.Run, error) {
	query := fmt.Sprintf("SELECT id, source, csv_blob, saved_at FROM %s FINAL", s.table)
	args := []any{}
	if !q.Since.IsZero() {
		query += " WHERE saved_at > ?"
		args = append(args, q.Since.UTC())
	}
	query += " ORDER BY saved_at DESC, id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	rows, err := s.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		s.l.Error("failed to list runs", applogger.Error(err))
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []models.Run
	for rows.Next() {
		run, err := scanClickHouseRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// Delete issues a synchronous mutation after checking the run exists.
func (s *ClickHouseRunStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	query := fmt.Sprintf("ALTER TABLE %s DELETE WHERE id = ? SETTINGS mutations_sync = 1", s.table)
	if _, err := s.client.DB().ExecContext(ctx, query, id); err != nil {
		s.l.Error("failed to delete run", applogger.String("run_id", id), applogger.Error(err))
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}

// Close leaves the shared client open; its owner closes it.
func (s *ClickHouseRunStore) Close() error { return nil }

func scanClickHouseRun(row rowScanner) (*models.Run, error) {
	var (
		run     models.Run
		blob    string
		savedAt time.Time
	)
	if err := row.Scan(&run.ID, &run.Source, &blob, &savedAt); err != nil {
		return nil, err
	}
	run.SavedAt = savedAt.UTC()
	var err error
	if run.Series, _, err = series.DecodeBytes([]byte(blob)); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", run.ID, err)
	}
	return &run, nil
}

var _ domrepo.RunStore = (*ClickHouseRunStore)(nil)
