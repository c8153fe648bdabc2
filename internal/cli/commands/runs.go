package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/spf13/cobra"
)

// DefaultRunsLimit is the number of runs listed by default.
const DefaultRunsLimit = 20

// runDetail is the JSON form of `runs <id>`.
type runDetail struct {
	*core.Run
	Jobs []jobDetail `json:"jobs"`
}

type jobDetail struct {
	*core.JobRun
	Steps []core.StepResult `json:"steps"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show run history",
		Long: `List recent runs, newest first, or show one run with its jobs and
the row counts of every cleaning step.`,
		Example: `  # List the last 20 runs
  leapetl runs

  # Show a single run
  leapetl runs 5f0c...

  # List runs as JSON
  leapetl runs --limit 5 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 1 {
				return showRun(cmdCtx, args[0])
			}
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}
			return listRuns(cmdCtx, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultRunsLimit, "Maximum number of runs to list")

	return cmd
}

func listRuns(cmdCtx *CommandContext, limit int) error {
	r := cmdCtx.Renderer
	runs, err := cmdCtx.Engine.Store().ListRuns(limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*core.Run{}
		}
		return r.JSON(runs)
	}

	if len(runs) == 0 {
		r.Muted("No runs recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Trigger,
			string(run.Status),
			run.StartedAt.Local().Format(time.DateTime),
			runDuration(run),
			run.Error,
		})
	}
	r.Table([]string{"id", "trigger", "status", "started", "duration", "error"}, rows)
	return nil
}

func showRun(cmdCtx *CommandContext, id string) error {
	r := cmdCtx.Renderer
	store := cmdCtx.Engine.Store()

	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	jobRuns, err := store.GetJobRuns(id)
	if err != nil {
		return err
	}

	detail := runDetail{Run: run, Jobs: make([]jobDetail, 0, len(jobRuns))}
	for _, jr := range jobRuns {
		steps, err := store.GetStepResults(jr.ID)
		if err != nil {
			return err
		}
		if steps == nil {
			steps = []core.StepResult{}
		}
		detail.Jobs = append(detail.Jobs, jobDetail{JobRun: jr, Steps: steps})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(detail)
	}

	r.Header(1, "Run "+run.ID)
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	r.Println(output.FormatKeyValue("Trigger", run.Trigger))
	r.Println(output.FormatKeyValue("Started", run.StartedAt.Local().Format(time.DateTime)))
	r.Println(output.FormatKeyValue("Duration", runDuration(run)))
	if run.Error != "" {
		r.Println(output.FormatKeyValue("Error", run.Error))
	}

	for _, jd := range detail.Jobs {
		r.Println("")
		r.Header(2, jd.Job)
		r.StatusLine(jd.Job, string(jd.Status), jobRunDetail(jd.JobRun))
		if len(jd.Steps) == 0 {
			continue
		}
		rows := make([][]string, 0, len(jd.Steps))
		for _, s := range jd.Steps {
			rows = append(rows, []string{
				s.Step,
				strconv.Itoa(s.RowsIn),
				strconv.Itoa(s.RowsOut),
				strconv.Itoa(s.ColsIn),
				strconv.Itoa(s.ColsOut),
				s.Duration.Round(time.Microsecond).String(),
			})
		}
		r.Table([]string{"step", "rows in", "rows out", "cols in", "cols out", "duration"}, rows)
	}
	return nil
}

func runDuration(run *core.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
