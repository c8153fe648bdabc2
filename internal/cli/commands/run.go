package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/internal/engine"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Select     string
	Downstream bool
	JSONOutput bool
}

// runOutput is the JSON form of a finished run.
type runOutput struct {
	*core.Run
	Jobs []*core.JobRun `json:"jobs"`
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run all jobs or specific jobs",
		Long: `Execute extract, clean and load jobs in dependency order.

By default, runs every job in the project. Use --select to run specific jobs.
Use --downstream to also run jobs that depend on the selected jobs.
Jobs on the same dependency level run in parallel; a failed job skips
everything downstream of it.`,
		Example: `  # Run all jobs
  leapetl run

  # Run specific jobs
  leapetl run --select orders,customers

  # Run a job and its downstream dependents
  leapetl run --select orders --downstream

  # Run with JSON output for CI/CD integration
  leapetl run --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Select, "select", "s", "", "Comma-separated list of jobs to run")
	cmd.Flags().BoolVar(&opts.Downstream, "downstream", false, "Include downstream dependents when using --select")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output as JSON lines for progress tracking")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer
	selected := splitList(opts.Select)
	start := time.Now()

	if opts.JSONOutput {
		jobs := selected
		switch {
		case len(selected) == 0:
			jobs = eng.Graph().IDs()
		case opts.Downstream:
			jobs = eng.Graph().Downstream(selected...)
		}
		emitRunEvent(r.Writer(), output.RunEvent{Event: "run_start", Jobs: jobs})
	}

	run, runErr := eng.Run(cmd.Context(), engine.TriggerCLI, selected, opts.Downstream)
	if run == nil {
		return runErr
	}

	jobRuns, err := eng.Store().GetJobRuns(run.ID)
	if err != nil {
		return fmt.Errorf("failed to load job runs: %w", err)
	}

	if opts.JSONOutput {
		emitJobEvents(r.Writer(), run, jobRuns, time.Since(start))
		return runErr
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if jobRuns == nil {
			jobRuns = []*core.JobRun{}
		}
		if err := r.JSON(runOutput{Run: run, Jobs: jobRuns}); err != nil {
			return err
		}
	default:
		r.Header(2, fmt.Sprintf("Run %s", run.ID))
		for _, jr := range jobRuns {
			r.StatusLine(jr.Job, string(jr.Status), jobRunDetail(jr))
		}
		r.Println("")
		summary := fmt.Sprintf("Run %s in %s", run.Status, time.Since(start).Round(time.Millisecond))
		if run.Status == core.RunStatusCompleted {
			r.Success(summary)
		} else {
			r.Muted(summary)
		}
	}

	return runErr
}

// jobRunDetail summarizes a job run in one line.
func jobRunDetail(jr *core.JobRun) string {
	if jr.Status == core.JobRunStatusSkipped {
		return jr.Error
	}
	detail := fmt.Sprintf("%d → %d rows", jr.RowsIn, jr.RowsOut)
	if jr.Attempts > 1 {
		detail += fmt.Sprintf(", %d attempts", jr.Attempts)
	}
	if jr.Error != "" {
		detail += ": " + jr.Error
	}
	return detail
}

// emitJobEvents writes one job_complete event per job run and a closing
// run_complete event.
func emitJobEvents(w io.Writer, run *core.Run, jobRuns []*core.JobRun, elapsed time.Duration) {
	done := output.RunEvent{
		Event:     "run_complete",
		RunID:     run.ID,
		Status:    string(run.Status),
		TotalJobs: len(jobRuns),
		TotalMS:   elapsed.Milliseconds(),
		Error:     run.Error,
	}

	for _, jr := range jobRuns {
		switch jr.Status {
		case core.JobRunStatusSuccess:
			done.Successful++
		case core.JobRunStatusFailed:
			done.Failed++
		case core.JobRunStatusSkipped:
			done.Skipped++
		}
		emitRunEvent(w, output.RunEvent{
			Event:    "job_complete",
			RunID:    run.ID,
			Job:      jr.Job,
			Status:   string(jr.Status),
			Attempts: jr.Attempts,
			RowsIn:   jr.RowsIn,
			RowsOut:  jr.RowsOut,
			Error:    jr.Error,
		})
	}
	emitRunEvent(w, done)
}

// emitRunEvent outputs a run event as a JSON line.
func emitRunEvent(w io.Writer, event output.RunEvent) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, _ := json.Marshal(event)
	_, _ = fmt.Fprintln(w, string(data))
}
