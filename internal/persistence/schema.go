package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
// Timestamps are stored as Unix nanoseconds.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS gate_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at INTEGER NOT NULL,
		stopped_at INTEGER NOT NULL,
		exit_code INTEGER NOT NULL,
		error TEXT
	);

	CREATE TABLE IF NOT EXISTS gate_tasks (
		run_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		fatal INTEGER NOT NULL,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		stopped_at INTEGER NOT NULL,
		error TEXT,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES gate_runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS bench_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at INTEGER NOT NULL,
		backend TEXT NOT NULL,
		fail_fast INTEGER NOT NULL,
		failure INTEGER NOT NULL,
		not_found INTEGER NOT NULL,
		message TEXT
	);

	CREATE TABLE IF NOT EXISTS bench_results (
		run_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		benchmark_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		message TEXT,
		duration_ns INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES bench_runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_bench_results_benchmark
		ON bench_results(benchmark_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
