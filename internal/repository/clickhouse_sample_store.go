package repository

import (
	"context"
	"fmt"

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	pkgch "PQAnalyzer/pkg/clickhouse"
	applogger "PQAnalyzer/pkg/logger"
)

// ClickHouseSampleStore is the raw sample warehouse fed by the Kafka consumer.
type ClickHouseSampleStore struct {
	client *pkgch.Client
	table  string
	l      *applogger.Logger
}

func NewClickHouseSampleStore(client *pkgch.Client, database string, l *applogger.Logger) *ClickHouseSampleStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ClickHouseSampleStore{
		client: client,
		table:  fmt.Sprintf("%s.%s", database, samplesTable),
		l:      l,
	}
}

func (s *ClickHouseSampleStore) StoreBatch(ctx context.Context, samples []models.RawSample) error {
	if len(samples) == 0 {
		return nil
	}
	rows := make([][]any, len(samples))
	for i, smp := range samples {
		rows[i] = []any{smp.RunID, smp.T, smp.V, smp.Raw}
	}
	query := fmt.Sprintf("INSERT INTO %s (run_id, t, v, raw)", s.table)
	if err := s.client.InsertBatch(ctx, query, rows); err != nil {
		s.l.Error("failed to store samples", applogger.Int("count", len(samples)), applogger.Error(err))
		return err
	}
	return nil
}

// Query returns a run's samples in time order. A non-positive limit returns all.
func (s *ClickHouseSampleStore) Query(ctx context.Context, runID string, limit int) ([]models.RawSample, error) {
	query := fmt.Sprintf("SELECT run_id, t, v, raw FROM %s WHERE run_id = ? ORDER BY t", s.table)
	args := []any{runID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples %s: %w", runID, err)
	}
	defer rows.Close()

	var out []models.RawSample
	for rows.Next() {
		var smp models.RawSample
		if err := rows.Scan(&smp.RunID, &smp.T, &smp.V, &smp.Raw); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

var _ domrepo.SampleWarehouse = (*ClickHouseSampleStore)(nil)
