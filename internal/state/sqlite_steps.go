package state

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// SaveStepResults replaces the step results of a job run.
func (s *SQLiteStore) SaveStepResults(jobRunID string, steps []core.StepResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM step_results WHERE job_run_id = ?`, jobRunID); err != nil {
		return fmt.Errorf("failed to clear step results: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO step_results (job_run_id, position, step, rows_in, rows_out, cols_in, cols_out, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, st := range steps {
		if _, err := stmt.Exec(jobRunID, i, st.Step, st.RowsIn, st.RowsOut, st.ColsIn, st.ColsOut,
			st.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("failed to save step %s: %w", st.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit step results: %w", err)
	}
	return nil
}

// GetStepResults returns the step results of a job run in pipeline order.
func (s *SQLiteStore) GetStepResults(jobRunID string) ([]core.StepResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT step, rows_in, rows_out, cols_in, cols_out, duration_ms
		 FROM step_results WHERE job_run_id = ? ORDER BY position`, jobRunID)
	if err != nil {
		return nil, fmt.Errorf("failed to get step results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.StepResult
	for rows.Next() {
		var st core.StepResult
		var ms int64
		if err := rows.Scan(&st.Step, &st.RowsIn, &st.RowsOut, &st.ColsIn, &st.ColsOut, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan step result: %w", err)
		}
		st.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, st)
	}
	return out, rows.Err()
}
