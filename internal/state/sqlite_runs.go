package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// --- Run operations ---

// CreateRun creates a new run in the running state.
func (s *SQLiteStore) CreateRun(trigger string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:        generateID(),
		Trigger:   trigger,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("trigger", trigger))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, triggered_by, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Trigger, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, triggered_by, status, started_at, completed_at, error FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %w: %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), nullString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %w: %s", core.ErrNotFound, id)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.Query(
		`SELECT id, triggered_by, status, started_at, completed_at, error
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*core.Run, error) {
	run := &core.Run{}
	var status string
	var completedAt sql.NullTime
	var errMsg sql.NullString

	if err := row.Scan(&run.ID, &run.Trigger, &status, &run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	run.Status = core.RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	return run, nil
}

// --- Job run operations ---

// RecordJobRun inserts a job run. An empty ID is generated and a zero start
// time is set to now.
func (s *SQLiteStore) RecordJobRun(jr *core.JobRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if jr.ID == "" {
		jr.ID = generateID()
	}
	if jr.StartedAt.IsZero() {
		jr.StartedAt = time.Now().UTC()
	}
	if jr.Status == "" {
		jr.Status = core.JobRunStatusRunning
	}

	_, err := s.db.Exec(
		`INSERT INTO job_runs (id, run_id, job, status, attempts, rows_in, rows_out, started_at, completed_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jr.ID, jr.RunID, jr.Job, string(jr.Status), jr.Attempts, jr.RowsIn, jr.RowsOut,
		jr.StartedAt, jr.CompletedAt, nullString(jr.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record job run: %w", err)
	}
	return nil
}

// CompleteJobRun stores the final status, counters and error of a job run.
// A nil completion time is set to now.
func (s *SQLiteStore) CompleteJobRun(jr *core.JobRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if jr.CompletedAt == nil {
		now := time.Now().UTC()
		jr.CompletedAt = &now
	}

	result, err := s.db.Exec(
		`UPDATE job_runs SET status = ?, attempts = ?, rows_in = ?, rows_out = ?, completed_at = ?, error = ?
		 WHERE id = ?`,
		string(jr.Status), jr.Attempts, jr.RowsIn, jr.RowsOut, *jr.CompletedAt, nullString(jr.Error), jr.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("job run %w: %s", core.ErrNotFound, jr.ID)
	}
	return nil
}

// GetJobRuns returns the job runs of a run in start order.
func (s *SQLiteStore) GetJobRuns(runID string) ([]*core.JobRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, job, status, attempts, rows_in, rows_out, started_at, completed_at, error
		 FROM job_runs WHERE run_id = ? ORDER BY started_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.JobRun
	for rows.Next() {
		jr := &core.JobRun{}
		var status string
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&jr.ID, &jr.RunID, &jr.Job, &status, &jr.Attempts, &jr.RowsIn, &jr.RowsOut,
			&jr.StartedAt, &completedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan job run: %w", err)
		}
		jr.Status = core.JobRunStatus(status)
		if completedAt.Valid {
			t := completedAt.Time
			jr.CompletedAt = &t
		}
		jr.Error = errMsg.String
		out = append(out, jr)
	}
	return out, rows.Err()
}
