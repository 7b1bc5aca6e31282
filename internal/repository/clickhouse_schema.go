package repository

import "fmt"

const (
	runsTable    = "pq_runs"
	samplesTable = "samples_raw"
)

// ClickHouseSchema returns the DDL for the run and raw sample tables.
func ClickHouseSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			id       String,
			source   LowCardinality(String),
			csv_blob String,
			saved_at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree(saved_at)
		ORDER BY id`, database, runsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			run_id String,
			t      Float64,
			v      Float64,
			raw    Float64
		) ENGINE = MergeTree
		ORDER BY (run_id, t)`, database, samplesTable),
	}
}
