package clean

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Report describes what a pipeline run did to a table.
type Report struct {
	Steps []core.StepResult `json:"steps"`
	// Dropped lists the columns removed by the sparse-column step.
	Dropped []string `json:"dropped,omitempty"`
}

// RowsDropped returns the number of rows removed by the named step.
func (r *Report) RowsDropped(step string) int {
	for _, s := range r.Steps {
		if s.Step == step {
			return s.RowsIn - s.RowsOut
		}
	}
	return 0
}

// Pipeline runs the fixed sequence of cleaning steps.
// A Pipeline holds no per-run state and may be shared between goroutines.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

// New creates a pipeline. A nil logger discards output.
func New(opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective options, defaults applied.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run cleans t and reports per-step row and column counts. The input table
// is never modified. On a validation failure the table is nil and the report
// covers the steps that ran.
func (p *Pipeline) Run(t *core.Table) (*core.Table, *Report, error) {
	if t == nil {
		return nil, nil, fmt.Errorf("clean: nil table")
	}

	s := &stepper{
		opts:   p.opts,
		schema: InferSchema(t, p.opts),
		logger: p.logger,
	}
	steps := []struct {
		name string
		fn   func(*core.Table) (*core.Table, error)
	}{
		{StepDeduplicate, s.deduplicate},
		{StepFillMissing, s.fillMissing},
		{StepFilterOutliers, s.filterOutliers},
		{StepSanitizeText, s.sanitizeText},
		{StepNormalizeDates, s.normalizeDates},
		{StepDeriveColumns, s.deriveColumns},
		{StepValidate, s.validate},
		{StepDropSparse, s.dropSparse},
	}

	report := &Report{Steps: make([]core.StepResult, 0, len(steps))}
	cur := t
	for _, step := range steps {
		start := time.Now()
		next, err := step.fn(cur)
		if err != nil {
			return nil, report, err
		}
		report.Steps = append(report.Steps, core.StepResult{
			Step:     step.name,
			RowsIn:   cur.NumRows(),
			RowsOut:  next.NumRows(),
			ColsIn:   cur.NumCols(),
			ColsOut:  next.NumCols(),
			Duration: time.Since(start),
		})
		if step.name == StepDropSparse {
			report.Dropped = droppedColumns(cur, next)
		}
		cur = next
	}

	p.logger.Debug("cleaned table",
		slog.Int("rows_in", t.NumRows()),
		slog.Int("rows_out", cur.NumRows()),
		slog.Int("cols_out", cur.NumCols()))

	// Steps that change nothing hand back their input; make sure the caller
	// never shares storage with t.
	if cur == t {
		cur = t.Clone()
	}
	return cur, report, nil
}

// Clean runs the cleaning pipeline on t with a discarding logger.
func Clean(t *core.Table, opts Options) (*core.Table, error) {
	out, _, err := New(opts, nil).Run(t)
	return out, err
}

func droppedColumns(before, after *core.Table) []string {
	var dropped []string
	for _, name := range before.ColumnNames() {
		if !after.Has(name) {
			dropped = append(dropped, name)
		}
	}
	return dropped
}
