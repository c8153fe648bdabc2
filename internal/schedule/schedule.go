// Package schedule triggers a function once a day at a wall-clock time or at
// a fixed interval.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Schedule describes when runs happen. At wins over Every.
type Schedule struct {
	// At is a daily wall-clock time in 24h "15:04" form, local time.
	At string
	// Every is a fixed interval between runs.
	Every time.Duration
}

// Validate reports whether exactly one usable trigger is configured.
func (s Schedule) Validate() error {
	if s.At != "" {
		if _, err := time.Parse("15:04", s.At); err != nil {
			return fmt.Errorf("invalid schedule time %q: expected HH:MM", s.At)
		}
		return nil
	}
	if s.Every <= 0 {
		return fmt.Errorf("schedule needs a daily time or a positive interval")
	}
	return nil
}

// String describes the schedule.
func (s Schedule) String() string {
	if s.At != "" {
		return "daily at " + s.At
	}
	return "every " + s.Every.String()
}

// Next returns the first trigger time strictly after now.
func (s Schedule) Next(now time.Time) (time.Time, error) {
	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}
	if s.At == "" {
		return now.Add(s.Every), nil
	}

	at, _ := time.Parse("15:04", s.At)
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// Run calls fn on the schedule until ctx is cancelled, logging nothing.
func (s Schedule) Run(ctx context.Context, fn func(context.Context) error) error {
	return NewRunner(s, nil).Run(ctx, fn)
}

// Runner calls a function on a schedule.
type Runner struct {
	Schedule Schedule
	Logger   *slog.Logger

	// now and after are replaced in tests.
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(s Schedule, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{Schedule: s, Logger: logger, now: time.Now, after: time.After}
}

// Run blocks, calling fn at every trigger time until ctx is cancelled.
// Errors from fn are logged and do not stop the loop. Triggers that fall
// due while fn is running are not queued.
func (r *Runner) Run(ctx context.Context, fn func(context.Context) error) error {
	if err := r.Schedule.Validate(); err != nil {
		return err
	}

	for ctx.Err() == nil {
		now := r.now()
		next, _ := r.Schedule.Next(now)
		r.Logger.Info("next scheduled run", slog.Time("at", next), slog.String("schedule", r.Schedule.String()))

		select {
		case <-ctx.Done():
			return nil
		case <-r.after(next.Sub(now)):
		}

		if err := fn(ctx); err != nil {
			r.Logger.Error("scheduled run failed", slog.Any("error", err))
		}
	}
	return nil
}
