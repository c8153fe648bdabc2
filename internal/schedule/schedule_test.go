package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/leapetl/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_Next(t *testing.T) {
	loc := time.FixedZone("test", 3*3600)
	base := time.Date(2024, 5, 10, 14, 30, 0, 0, loc)

	tests := []struct {
		name     string
		schedule Schedule
		now      time.Time
		want     time.Time
	}{
		{
			name:     "later today",
			schedule: Schedule{At: "18:00"},
			now:      base,
			want:     time.Date(2024, 5, 10, 18, 0, 0, 0, loc),
		},
		{
			name:     "already passed today",
			schedule: Schedule{At: "09:15"},
			now:      base,
			want:     time.Date(2024, 5, 11, 9, 15, 0, 0, loc),
		},
		{
			name:     "exactly now moves to tomorrow",
			schedule: Schedule{At: "14:30"},
			now:      base,
			want:     time.Date(2024, 5, 11, 14, 30, 0, 0, loc),
		},
		{
			name:     "midnight",
			schedule: Schedule{At: "00:00"},
			now:      base,
			want:     time.Date(2024, 5, 11, 0, 0, 0, 0, loc),
		},
		{
			name:     "month rollover",
			schedule: Schedule{At: "00:00"},
			now:      time.Date(2024, 5, 31, 23, 59, 0, 0, loc),
			want:     time.Date(2024, 6, 1, 0, 0, 0, 0, loc),
		},
		{
			name:     "interval",
			schedule: Schedule{Every: 15 * time.Minute},
			now:      base,
			want:     base.Add(15 * time.Minute),
		},
		{
			name:     "time wins over interval",
			schedule: Schedule{At: "15:00", Every: time.Hour},
			now:      base,
			want:     time.Date(2024, 5, 10, 15, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.schedule.Next(tt.now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestSchedule_Validate(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		wantErr  bool
	}{
		{name: "daily", schedule: Schedule{At: "07:45"}},
		{name: "interval", schedule: Schedule{Every: time.Second}},
		{name: "empty", schedule: Schedule{}, wantErr: true},
		{name: "bad time", schedule: Schedule{At: "25:00"}, wantErr: true},
		{name: "not a time", schedule: Schedule{At: "noon"}, wantErr: true},
		{name: "negative interval", schedule: Schedule{Every: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schedule.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				_, nerr := tt.schedule.Next(time.Now())
				assert.Error(t, nerr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSchedule_String(t *testing.T) {
	assert.Equal(t, "daily at 00:00", Schedule{At: "00:00"}.String())
	assert.Equal(t, "every 1h0m0s", Schedule{Every: time.Hour}.String())
}

func TestRunner_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRunner(Schedule{Every: time.Hour}, testutil.NewTestLogger(t))

	var waits []time.Duration
	r.after = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	var calls atomic.Int32
	err := r.Run(ctx, func(context.Context) error {
		if calls.Add(1) == 3 {
			cancel()
		}
		return errors.New("boom")
	})
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load(), "errors do not stop the loop")
	require.NotEmpty(t, waits)
	assert.Equal(t, time.Hour, waits[0])
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(Schedule{At: "00:00"}, nil)

	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, func(context.Context) error {
			t.Error("fn should not run")
			return nil
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_InvalidSchedule(t *testing.T) {
	r := NewRunner(Schedule{}, nil)
	err := r.Run(context.Background(), func(context.Context) error { return nil })
	assert.Error(t, err)
}
