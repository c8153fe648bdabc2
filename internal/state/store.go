// Package state persists run history in SQLite: runs, the jobs they
// executed and the per-step results of the cleaning pipeline.
package state

import (
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Type aliases so callers of this package need not import pkg/core for the
// persisted types.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// Run is an alias for core.Run.
	Run = core.Run

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// JobRun is an alias for core.JobRun.
	JobRun = core.JobRun

	// JobRunStatus is an alias for core.JobRunStatus.
	JobRunStatus = core.JobRunStatus
)

// DefaultListLimit is the number of runs returned when no limit is given.
const DefaultListLimit = 20

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
