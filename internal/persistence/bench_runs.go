package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/rgate/internal/bench"
)

// SaveBenchAggregate stores a finished benchmark dispatch and its results.
func (s *SQLiteStore) SaveBenchAggregate(ctx context.Context, backendName string, opts bench.Options, startedAt time.Time, agg *bench.Aggregate) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bench_runs (started_at, backend, fail_fast, failure, not_found, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`, toUnix(startedAt), backendName, opts.FailFast, agg.Failure, agg.NotFound, errString(agg.Err()))
	if err != nil {
		return 0, fmt.Errorf("failed to insert bench run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read bench run id: %w", err)
	}

	for i, run := range agg.Runs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bench_results (run_id, seq, benchmark_id, outcome, exit_code, message, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, i, run.ID, run.Outcome.String(), run.ExitCode, run.Message, int64(run.Duration))
		if err != nil {
			return 0, fmt.Errorf("failed to insert result for %s: %w", run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return runID, nil
}

// GetBenchRun retrieves a benchmark dispatch with its results.
// Returns a wrapped sql.ErrNoRows if the run does not exist.
func (s *SQLiteStore) GetBenchRun(ctx context.Context, id int64) (*BenchRunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	run := &BenchRunRecord{ID: id}
	var started int64
	var msg sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT started_at, backend, fail_fast, failure, not_found, message
		FROM bench_runs
		WHERE id = ?
	`, id).Scan(&started, &run.Backend, &run.FailFast, &run.Failure, &run.NotFound, &msg)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bench run %d not found: %w", id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bench run: %w", err)
	}
	run.StartedAt = fromUnix(started)
	run.Message = msg.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT benchmark_id, outcome, exit_code, message, duration_ns
		FROM bench_results
		WHERE run_id = ?
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query bench results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r := BenchResultRecord{RunID: id, Backend: run.Backend, RecordedAt: run.StartedAt}
		var rmsg sql.NullString
		var dur int64
		if err := rows.Scan(&r.BenchmarkID, &r.Outcome, &r.ExitCode, &rmsg, &dur); err != nil {
			return nil, fmt.Errorf("failed to scan bench result: %w", err)
		}
		r.Message = rmsg.String
		r.Duration = time.Duration(dur)
		run.Results = append(run.Results, r)
	}
	return run, rows.Err()
}

// ListBenchRuns returns the most recent benchmark dispatches first, without
// results.
func (s *SQLiteStore) ListBenchRuns(ctx context.Context, limit int) ([]*BenchRunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, backend, fail_fast, failure, not_found, message
		FROM bench_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bench runs: %w", err)
	}
	defer rows.Close()

	var runs []*BenchRunRecord
	for rows.Next() {
		run := &BenchRunRecord{}
		var started int64
		var msg sql.NullString
		if err := rows.Scan(&run.ID, &started, &run.Backend, &run.FailFast, &run.Failure, &run.NotFound, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan bench run: %w", err)
		}
		run.StartedAt = fromUnix(started)
		run.Message = msg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// BenchmarkHistory returns the most recent results for one benchmark id
// across all dispatches, newest first.
func (s *SQLiteStore) BenchmarkHistory(ctx context.Context, benchmarkID string, limit int) ([]BenchResultRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, b.backend, b.started_at, r.outcome, r.exit_code, r.message, r.duration_ns
		FROM bench_results r
		JOIN bench_runs b ON b.id = r.run_id
		WHERE r.benchmark_id = ?
		ORDER BY r.run_id DESC
		LIMIT ?
	`, benchmarkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query benchmark history: %w", err)
	}
	defer rows.Close()

	var results []BenchResultRecord
	for rows.Next() {
		r := BenchResultRecord{BenchmarkID: benchmarkID}
		var started, dur int64
		var msg sql.NullString
		if err := rows.Scan(&r.RunID, &r.Backend, &started, &r.Outcome, &r.ExitCode, &msg, &dur); err != nil {
			return nil, fmt.Errorf("failed to scan benchmark history: %w", err)
		}
		r.RecordedAt = fromUnix(started)
		r.Message = msg.String
		r.Duration = time.Duration(dur)
		results = append(results, r)
	}
	return results, rows.Err()
}
