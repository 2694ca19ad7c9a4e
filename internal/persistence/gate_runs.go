package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/rgate/internal/gate"
)

// SaveGateReport stores a finished gate run and its tasks.
func (s *SQLiteStore) SaveGateReport(ctx context.Context, report *gate.Report) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO gate_runs (started_at, stopped_at, exit_code, error)
		VALUES (?, ?, ?, ?)
	`, toUnix(report.StartedAt), toUnix(report.StoppedAt), report.ExitCode, errString(report.Err))
	if err != nil {
		return 0, fmt.Errorf("failed to insert gate run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read gate run id: %w", err)
	}

	for i, task := range report.Tasks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO gate_tasks (run_id, seq, name, fatal, status, started_at, stopped_at, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, i, task.Name, task.Fatal, task.Status.String(), toUnix(task.StartedAt), toUnix(task.StoppedAt), errString(task.Err))
		if err != nil {
			return 0, fmt.Errorf("failed to insert gate task %q: %w", task.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return runID, nil
}

// GetGateRun retrieves a gate run with its tasks.
// Returns a wrapped sql.ErrNoRows if the run does not exist.
func (s *SQLiteStore) GetGateRun(ctx context.Context, id int64) (*GateRunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	run := &GateRunRecord{ID: id}
	var started, stopped int64
	var errText sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT started_at, stopped_at, exit_code, error
		FROM gate_runs
		WHERE id = ?
	`, id).Scan(&started, &stopped, &run.ExitCode, &errText)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("gate run %d not found: %w", id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gate run: %w", err)
	}
	run.StartedAt = fromUnix(started)
	run.StoppedAt = fromUnix(stopped)
	run.Error = errText.String

	tasks, err := s.gateTasks(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Tasks = tasks
	return run, nil
}

// ListGateRuns returns the most recent gate runs first, without tasks.
func (s *SQLiteStore) ListGateRuns(ctx context.Context, limit int) ([]*GateRunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, stopped_at, exit_code, error
		FROM gate_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list gate runs: %w", err)
	}
	defer rows.Close()

	var runs []*GateRunRecord
	for rows.Next() {
		run := &GateRunRecord{}
		var started, stopped int64
		var errText sql.NullString
		if err := rows.Scan(&run.ID, &started, &stopped, &run.ExitCode, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan gate run: %w", err)
		}
		run.StartedAt = fromUnix(started)
		run.StoppedAt = fromUnix(stopped)
		run.Error = errText.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) gateTasks(ctx context.Context, runID int64) ([]GateTaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, fatal, status, started_at, stopped_at, error
		FROM gate_tasks
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gate tasks: %w", err)
	}
	defer rows.Close()

	var tasks []GateTaskRecord
	for rows.Next() {
		var task GateTaskRecord
		var started, stopped int64
		var errText sql.NullString
		if err := rows.Scan(&task.Name, &task.Fatal, &task.Status, &started, &stopped, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan gate task: %w", err)
		}
		task.StartedAt = fromUnix(started)
		task.StoppedAt = fromUnix(stopped)
		task.Error = errText.String
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
