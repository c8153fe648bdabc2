package core

import (
	"errors"
	"time"
)

// ErrNotFound is wrapped by store lookups that find nothing.
var ErrNotFound = errors.New("not found")

// Store defines the interface for run history persistence.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(trigger string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	ListRuns(limit int) ([]*Run, error)

	// Job run operations
	RecordJobRun(jobRun *JobRun) error
	CompleteJobRun(jobRun *JobRun) error
	GetJobRuns(runID string) ([]*JobRun, error)

	// Step results of the cleaning pipeline
	SaveStepResults(jobRunID string, steps []StepResult) error
	GetStepResults(jobRunID string) ([]StepResult, error)
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one execution of a set of jobs.
type Run struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"trigger"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// JobRunStatus represents the status of an individual job execution.
type JobRunStatus string

// Job run status constants.
const (
	JobRunStatusRunning JobRunStatus = "running"
	JobRunStatusSuccess JobRunStatus = "success"
	JobRunStatusFailed  JobRunStatus = "failed"
	JobRunStatusSkipped JobRunStatus = "skipped"
)

// JobRun tracks a single job within a run.
type JobRun struct {
	ID          string       `json:"id"`
	RunID       string       `json:"run_id"`
	Job         string       `json:"job"`
	Status      JobRunStatus `json:"status"`
	Attempts    int          `json:"attempts"`
	RowsIn      int64        `json:"rows_in"`
	RowsOut     int64        `json:"rows_out"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// StepResult records the effect of one cleaning step.
type StepResult struct {
	Step     string        `json:"step"`
	RowsIn   int           `json:"rows_in"`
	RowsOut  int           `json:"rows_out"`
	ColsIn   int           `json:"cols_in"`
	ColsOut  int           `json:"cols_out"`
	Duration time.Duration `json:"duration"`
}
