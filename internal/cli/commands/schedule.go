package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapetl/internal/engine"
	"github.com/leapstack-labs/leapetl/internal/schedule"
	"github.com/leapstack-labs/leapetl/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ScheduleOptions holds options for the schedule command.
type ScheduleOptions struct {
	At       string
	Every    time.Duration
	Addr     string
	NoServer bool
	Now      bool
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand() *cobra.Command {
	opts := &ScheduleOptions{}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run all jobs on a schedule",
		Long: `Run every job daily at a fixed time or at a fixed interval, and serve
run history, job triggers and metrics over HTTP while waiting.

Flags override the schedule and server sections of leapetl.yaml.
The command runs until interrupted.`,
		Example: `  # Run every night at midnight
  leapetl schedule --at 00:00

  # Run every 15 minutes without the status server
  leapetl schedule --every 15m --no-server

  # Serve status on another port
  leapetl schedule --at 06:30 --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchedule(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "Daily run time (HH:MM, local time)")
	cmd.Flags().DurationVar(&opts.Every, "every", 0, "Interval between runs")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Status server listen address (default :9090)")
	cmd.Flags().BoolVar(&opts.NoServer, "no-server", false, "Do not start the status server")
	cmd.Flags().BoolVar(&opts.Now, "now", false, "Run once immediately before waiting for the schedule")
	cmd.MarkFlagsMutuallyExclusive("at", "every")

	return cmd
}

func runSchedule(cmd *cobra.Command, opts *ScheduleOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	sched := schedule.Schedule{At: cfg.Schedule.At, Every: cfg.Schedule.Every}
	switch {
	case opts.At != "":
		sched = schedule.Schedule{At: opts.At}
	case opts.Every > 0:
		sched = schedule.Schedule{Every: opts.Every}
	}
	if err := sched.Validate(); err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	eng := cmdCtx.Engine
	logger := cmdCtx.Logger
	r := cmdCtx.Renderer

	srv := server.New(server.Config{
		Addr:    addr,
		Runner:  eng,
		Store:   eng.Store(),
		Metrics: eng.Metrics().Handler(),
		Logger:  logger,
	})

	runAll := func(ctx context.Context) error {
		run, err := eng.Run(ctx, engine.TriggerSchedule, nil, false)
		srv.RunFinished(run)
		if run != nil {
			logger.Info("scheduled run finished", slog.String("run_id", run.ID), slog.String("status", string(run.Status)))
		}
		return err
	}

	r.Success(fmt.Sprintf("Scheduling %d job(s) %s", eng.Graph().Len(), sched))
	if !opts.NoServer {
		r.Muted("status server listening on " + addr)
	}

	g, gctx := errgroup.WithContext(cmd.Context())
	if !opts.NoServer {
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}
	g.Go(func() error {
		if opts.Now {
			if err := runAll(gctx); err != nil {
				logger.Error("initial run failed", slog.Any("error", err))
			}
		}
		return schedule.NewRunner(sched, logger).Run(gctx, runAll)
	})

	return g.Wait()
}
