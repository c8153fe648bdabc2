// Package watch reruns jobs when their source files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapetl/internal/config"
)

// Trigger runs the given jobs and their downstream jobs.
type Trigger func(ctx context.Context, jobs []string) error

// Watcher maps file system events on job sources to job runs.
type Watcher struct {
	fsw      *fsnotify.Watcher
	sources  map[string][]string
	dirs     []string
	debounce time.Duration
	trigger  Trigger
	logger   *slog.Logger
}

// New starts watching the directories of every file source. Files that are
// also written by a job sink are not watched, so a job's output never
// retriggers the pipeline.
func New(project *config.Config, debounce time.Duration, trigger Trigger, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if debounce <= 0 {
		debounce = config.DefaultDebounce
	}

	sinks := make(map[string]bool)
	for _, job := range project.Jobs {
		if job.Sink.Type == config.SinkFile {
			sinks[absPath(job.Sink.Path)] = true
		}
	}

	sources := make(map[string][]string)
	dirSet := make(map[string]bool)
	for _, job := range project.Jobs {
		if job.Source.Type != config.SourceFile {
			continue
		}
		path := absPath(job.Source.Path)
		if sinks[path] {
			logger.Debug("not watching pipeline output", slog.String("job", job.Name), slog.String("path", path))
			continue
		}
		sources[path] = append(sources[path], job.Name)
		dirSet[filepath.Dir(path)] = true
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no file sources to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	dirs := make([]string, 0, len(dirSet))
	for dir := range dirSet {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	return &Watcher{
		fsw:      fsw,
		sources:  sources,
		dirs:     dirs,
		debounce: debounce,
		trigger:  trigger,
		logger:   logger,
	}, nil
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string {
	return w.dirs
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks until ctx is cancelled. Changes arriving within the debounce
// window are batched into one trigger call.
func (w *Watcher) Run(ctx context.Context) error {
	pending := make(map[string]bool)
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			jobs := w.sources[absPath(event.Name)]
			if len(jobs) == 0 {
				continue
			}
			w.logger.Debug("source changed", slog.String("file", event.Name), slog.Any("jobs", jobs))
			for _, job := range jobs {
				pending[job] = true
			}
			fire = time.After(w.debounce)

		case <-fire:
			fire = nil
			jobs := make([]string, 0, len(pending))
			for job := range pending {
				jobs = append(jobs, job)
			}
			sort.Strings(jobs)
			pending = make(map[string]bool)

			w.logger.Info("running changed jobs", slog.Any("jobs", jobs))
			if err := w.trigger(ctx, jobs); err != nil {
				w.logger.Error("watch run failed", slog.Any("error", err))
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", slog.Any("error", err))
		}
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(path)
}
