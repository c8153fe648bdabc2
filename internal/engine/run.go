package engine

// run.go - Execution orchestration for running jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/leapetl/internal/config"
	"github.com/leapstack-labs/leapetl/pkg/clean"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// Run triggers.
const (
	TriggerCLI      = "cli"
	TriggerSchedule = "schedule"
	TriggerServer   = "server"
	TriggerWatch    = "watch"
)

// jobResult is the outcome of one successful or failed attempt.
type jobResult struct {
	rowsIn  int
	rowsOut int
	report  *clean.Report
}

// runState tracks job outcomes across the levels of one run.
type runState struct {
	mu sync.Mutex
	// failed holds every job that did not succeed, skipped ones included.
	failed  map[string]bool
	errored []string
	errs    []error
	skipped int
}

func (s *runState) fail(job string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[job] = true
	s.errored = append(s.errored, job)
	s.errs = append(s.errs, err)
}

// blockedBy returns the first failed or skipped parent of a job.
func (s *runState) blockedBy(parents []string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range parents {
		if s.failed[p] {
			return p, true
		}
	}
	return "", false
}

// Run executes jobs level by level. With no selection every job runs; with
// downstream set the selected jobs' dependents run too. Upstream jobs outside
// the selection are assumed to have produced their output already.
//
// A failed job marks everything that depends on it skipped while unrelated
// jobs keep running. The returned error joins all job failures.
func (e *Engine) Run(ctx context.Context, trigger string, selected []string, downstream bool) (*core.Run, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	ids, err := e.resolveSelection(selected, downstream)
	if err != nil {
		return nil, err
	}
	sub := e.graph.Subgraph(ids)

	levels, err := sub.Levels()
	if err != nil {
		return nil, err
	}

	e.logger.Info("starting run",
		slog.String("trigger", trigger),
		slog.Int("jobs", sub.Len()),
		slog.Int("levels", len(levels)))

	run, err := e.store.CreateRun(trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	e.logger.Debug("created run", slog.String("run_id", run.ID))

	rs := &runState{failed: make(map[string]bool)}
	cancelled := false

	for i, level := range levels {
		if ctx.Err() != nil {
			cancelled = true
			for _, rest := range levels[i:] {
				for _, name := range rest {
					e.skipJob(run.ID, name, "run cancelled", rs)
				}
			}
			break
		}

		e.logger.Debug("executing level", slog.Int("level", i), slog.Any("jobs", level))

		var g errgroup.Group
		g.SetLimit(e.parallelism())
		for _, name := range level {
			if parent, blocked := rs.blockedBy(sub.Parents(name)); blocked {
				e.skipJob(run.ID, name, fmt.Sprintf("upstream job %s did not succeed", parent), rs)
				continue
			}
			job, _ := sub.Node(name)
			g.Go(func() error {
				if err := e.runJob(ctx, run.ID, job); err != nil {
					rs.fail(job.Name, err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	runErr := errors.Join(rs.errs...)
	switch {
	case cancelled:
		e.logger.Info("run cancelled", slog.String("run_id", run.ID))
		_ = e.store.CompleteRun(run.ID, core.RunStatusCancelled, "run cancelled")
		if runErr == nil {
			runErr = ctx.Err()
		}
	case runErr != nil:
		e.logger.Info("run failed",
			slog.String("run_id", run.ID),
			slog.Int("failed", len(rs.errs)),
			slog.Int("skipped", rs.skipped))
		_ = e.store.CompleteRun(run.ID, core.RunStatusFailed, failureSummary(rs))
	default:
		e.logger.Info("run completed", slog.String("run_id", run.ID))
		_ = e.store.CompleteRun(run.ID, core.RunStatusCompleted, "")
	}

	if stored, err := e.store.GetRun(run.ID); err == nil {
		run = stored
	}
	return run, runErr
}

// resolveSelection validates the selected job names and expands them.
func (e *Engine) resolveSelection(selected []string, downstream bool) ([]string, error) {
	if len(selected) == 0 {
		return e.graph.IDs(), nil
	}
	for _, name := range selected {
		if _, ok := e.graph.Node(name); !ok {
			return nil, fmt.Errorf("unknown job %q", name)
		}
	}
	if downstream {
		return e.graph.Downstream(selected...), nil
	}
	return selected, nil
}

func (e *Engine) parallelism() int {
	if e.project.Parallelism < 1 {
		return config.DefaultParallelism
	}
	return e.project.Parallelism
}

func (e *Engine) skipJob(runID, name, reason string, rs *runState) {
	e.logger.Info("skipping job", slog.String("job", name), slog.String("reason", reason))

	now := time.Now().UTC()
	jr := &core.JobRun{
		RunID:       runID,
		Job:         name,
		Status:      core.JobRunStatusSkipped,
		StartedAt:   now,
		CompletedAt: &now,
		Error:       reason,
	}
	if err := e.store.RecordJobRun(jr); err != nil {
		e.logger.Warn("failed to record skipped job", slog.String("job", name), slog.Any("error", err))
	}
	e.metrics.JobFinished(name, string(core.JobRunStatusSkipped), 0)

	rs.mu.Lock()
	rs.failed[name] = true
	rs.skipped++
	rs.mu.Unlock()
}

// runJob executes one job with retries and records its outcome.
func (e *Engine) runJob(ctx context.Context, runID string, job *config.JobConfig) error {
	logger := e.logger.With(slog.String("job", job.Name))

	jr := &core.JobRun{RunID: runID, Job: job.Name}
	if err := e.store.RecordJobRun(jr); err != nil {
		return fmt.Errorf("job %s: failed to record job run: %w", job.Name, err)
	}

	start := time.Now()
	var result *jobResult
	err := retry.Do(ctx, backoff(job), func(ctx context.Context) error {
		jr.Attempts++
		res, err := e.executeJob(ctx, job, logger)
		result = res
		if err == nil {
			return nil
		}
		var verr *clean.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		if jr.Attempts <= job.Retries {
			logger.Warn("job attempt failed, retrying",
				slog.Int("attempt", jr.Attempts),
				slog.Duration("delay", job.RetryDelay),
				slog.Any("error", err))
		}
		return retry.RetryableError(err)
	})
	duration := time.Since(start)

	if result != nil {
		jr.RowsIn = int64(result.rowsIn)
		jr.RowsOut = int64(result.rowsOut)
		if result.report != nil {
			if serr := e.store.SaveStepResults(jr.ID, result.report.Steps); serr != nil {
				logger.Warn("failed to save step results", slog.Any("error", serr))
			}
		}
	}

	if err != nil {
		jr.Status = core.JobRunStatusFailed
		jr.Error = err.Error()
		logger.Error("job failed", slog.Int("attempts", jr.Attempts), slog.Any("error", err))
	} else {
		jr.Status = core.JobRunStatusSuccess
		e.recordRows(job.Name, result)
		logger.Info("job completed",
			slog.Int("rows_in", result.rowsIn),
			slog.Int("rows_out", result.rowsOut),
			slog.Int("attempts", jr.Attempts),
			slog.Duration("duration", duration))
	}

	if cerr := e.store.CompleteJobRun(jr); cerr != nil {
		logger.Warn("failed to complete job run", slog.Any("error", cerr))
	}
	e.metrics.JobFinished(job.Name, string(jr.Status), duration)

	if err != nil {
		return fmt.Errorf("job %s: %w", job.Name, err)
	}
	return nil
}

// executeJob runs a single attempt: extract, clean, load.
func (e *Engine) executeJob(ctx context.Context, job *config.JobConfig, logger *slog.Logger) (*jobResult, error) {
	extractor, err := NewExtractor(e.project, job, logger)
	if err != nil {
		return nil, err
	}
	loader, err := NewLoader(e.project, job, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("extracting", slog.String("source", extractor.Describe()))
	tbl, err := extractor.Extract(ctx)
	if err != nil {
		return nil, err
	}
	res := &jobResult{rowsIn: tbl.NumRows(), rowsOut: tbl.NumRows()}

	if !job.SkipClean {
		cleaned, report, err := clean.New(job.CleanOptions(), logger).Run(tbl)
		res.report = report
		if err != nil {
			return res, err
		}
		tbl = cleaned
		res.rowsOut = tbl.NumRows()
	}

	logger.Debug("loading", slog.String("sink", loader.Describe()), slog.Int("rows", tbl.NumRows()))
	if err := loader.Load(ctx, tbl); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) recordRows(job string, res *jobResult) {
	e.metrics.RowsExtracted(job, res.rowsIn)
	e.metrics.RowsLoaded(job, res.rowsOut)
	if res.report == nil {
		return
	}
	for _, st := range res.report.Steps {
		e.metrics.RowsDropped(job, st.Step, st.RowsIn-st.RowsOut)
	}
}

// backoff retries a job up to job.Retries times with a constant delay.
func backoff(job *config.JobConfig) retry.Backoff {
	delay := job.RetryDelay
	if delay <= 0 {
		delay = config.DefaultRetryDelay
	}
	retries := job.Retries
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), retry.NewConstant(delay)) //nolint:gosec // non-negative
}

func failureSummary(rs *runState) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	names := append([]string(nil), rs.errored...)
	sort.Strings(names)
	return fmt.Sprintf("%d job(s) failed (%s), %d skipped", len(names), strings.Join(names, ", "), rs.skipped)
}
