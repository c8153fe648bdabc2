// Package engine runs extract, clean and load jobs.
// It resolves job dependencies, executes independent jobs in parallel,
// retries failed jobs and records every run in the state store.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapetl/internal/config"
	"github.com/leapstack-labs/leapetl/internal/dag"
	"github.com/leapstack-labs/leapetl/internal/metrics"
	"github.com/leapstack-labs/leapetl/internal/state"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Engine orchestrates the execution of jobs.
type Engine struct {
	project *config.Config
	graph   *dag.Graph[*config.JobConfig]

	store     core.Store
	ownsStore bool
	metrics   *metrics.Metrics

	// Structured logger
	logger *slog.Logger

	// runMu serializes runs started by the scheduler, the server and watch mode.
	runMu sync.Mutex
}

// Config holds engine configuration.
type Config struct {
	// Project is the loaded project configuration (required).
	Project *config.Config
	// Store overrides the state store. When nil the SQLite store at
	// Project.StatePath is opened and closed with the engine.
	Store core.Store
	// Metrics receives job counters. A private set is created when nil.
	Metrics *metrics.Metrics
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine and builds the job graph.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Project == nil {
		return nil, fmt.Errorf("engine: project configuration is required")
	}

	graph, err := cfg.Project.Graph()
	if err != nil {
		return nil, fmt.Errorf("failed to build job graph: %w", err)
	}

	logger.Debug("initializing engine",
		slog.Int("jobs", graph.Len()),
		slog.Int("dependencies", graph.EdgeCount()),
		slog.String("state", cfg.Project.StatePath))

	store, owns := cfg.Store, false
	if store == nil {
		sqlite := state.NewSQLiteStore(logger)
		if err := sqlite.Open(cfg.Project.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		store, owns = sqlite, true
	}
	if err := store.InitSchema(); err != nil {
		if owns {
			_ = store.Close()
		}
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	return &Engine{
		project:   cfg.Project,
		graph:     graph,
		store:     store,
		ownsStore: owns,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Close releases the state store when the engine opened it.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")
	if e.ownsStore && e.store != nil {
		if err := e.store.Close(); err != nil {
			return fmt.Errorf("failed to close state store: %w", err)
		}
	}
	return nil
}

// --- Getters (public accessors) ---

// Graph returns the job dependency graph.
func (e *Engine) Graph() *dag.Graph[*config.JobConfig] {
	return e.graph
}

// Project returns the project configuration.
func (e *Engine) Project() *config.Config {
	return e.project
}

// Store returns the state store.
func (e *Engine) Store() core.Store {
	return e.store
}

// Metrics returns the metrics the engine records into.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// HasJob reports whether the project defines a job with the given name.
func (e *Engine) HasJob(name string) bool {
	_, ok := e.graph.Node(name)
	return ok
}
