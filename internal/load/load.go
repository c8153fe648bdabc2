// Package load writes cleaned tables to files and databases.
package load

import (
	"context"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Loader writes a table to a destination.
type Loader interface {
	Load(ctx context.Context, t *core.Table) error
	// Describe returns a short human readable name of the destination.
	Describe() string
}
