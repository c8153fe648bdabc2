package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapetl/internal/engine"
	"github.com/leapstack-labs/leapetl/internal/watch"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rerun jobs when their source files change",
		Long: `Watch the files read by file-source jobs and rerun a job, together with
everything downstream of it, whenever its source is written.

Changes that arrive within the debounce window are batched into one run.
The command runs until interrupted.`,
		Example: `  # Watch with the configured debounce
  leapetl watch

  # Wait two seconds for writes to settle
  leapetl watch --debounce 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			eng := cmdCtx.Engine
			r := cmdCtx.Renderer
			if !cmd.Flags().Changed("debounce") {
				debounce = cmdCtx.Cfg.Watch.Debounce
			}

			trigger := func(ctx context.Context, jobs []string) error {
				r.Muted("change detected: " + strings.Join(jobs, ", "))
				run, err := eng.Run(ctx, engine.TriggerWatch, jobs, true)
				if run != nil {
					r.StatusLine("run "+run.ID, string(run.Status), run.Error)
				}
				return err
			}

			w, err := watch.New(cmdCtx.Cfg, debounce, trigger, cmdCtx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			r.Success(fmt.Sprintf("Watching %d director(ies), press Ctrl+C to stop", len(w.Dirs())))
			return w.Run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before a change triggers a run")

	return cmd
}
