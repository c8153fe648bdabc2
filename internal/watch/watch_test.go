package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapetl/internal/config"
	"github.com/leapstack-labs/leapetl/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func project(dir string) *config.Config {
	return &config.Config{
		Jobs: []*config.JobConfig{
			{
				Name:   "sales",
				Source: config.SourceConfig{Type: config.SourceFile, Path: filepath.Join(dir, "in", "sales.csv")},
				Sink:   config.SinkConfig{Type: config.SinkFile, Path: filepath.Join(dir, "out", "sales.csv")},
			},
			{
				Name:      "publish",
				DependsOn: []string{"sales"},
				Source:    config.SourceConfig{Type: config.SourceFile, Path: filepath.Join(dir, "out", "sales.csv")},
				Sink:      config.SinkConfig{Type: config.SinkFile, Path: filepath.Join(dir, "final.csv")},
			},
			{
				Name:   "rates",
				Source: config.SourceConfig{Type: config.SourceAPI, URL: "http://example.com/rates"},
				Sink:   config.SinkConfig{Type: config.SinkFile, Path: filepath.Join(dir, "rates.csv")},
			},
		},
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "in"), 0o755))

	w, err := New(project(dir), 0, func(context.Context, []string) error { return nil }, nil)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	assert.Equal(t, []string{filepath.Join(dir, "in")}, w.Dirs(), "pipeline outputs are not watched")
	assert.Equal(t, config.DefaultDebounce, w.debounce)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&config.Config{}, time.Millisecond, nil, nil)
	assert.ErrorContains(t, err, "no file sources")

	dir := t.TempDir()
	_, err = New(project(dir), time.Millisecond, nil, nil)
	assert.ErrorContains(t, err, "failed to watch", "source directory must exist")
}

func TestWatcher_TriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "in"), 0o755))

	triggered := make(chan []string, 4)
	w, err := New(project(dir), 50*time.Millisecond, func(_ context.Context, jobs []string) error {
		triggered <- jobs
		return nil
	}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	src := filepath.Join(dir, "in", "sales.csv")
	require.NoError(t, os.WriteFile(src, []byte("id,email\n1,a@x.com\n"), 0o600))
	require.NoError(t, os.WriteFile(src, []byte("id,email\n1,a@x.com\n2,b@x.com\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in", "notes.txt"), []byte("ignored"), 0o600))

	select {
	case jobs := <-triggered:
		assert.Equal(t, []string{"sales"}, jobs)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not trigger")
	}

	select {
	case jobs := <-triggered:
		t.Fatalf("writes within the debounce window should be batched, got second trigger %v", jobs)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
