package load

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapetl/pkg/adapter"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// DatabaseLoader writes a table through a registered adapter.
type DatabaseLoader struct {
	Connection core.AdapterConfig
	Table      string
	// Mode is replace or append; replace when empty.
	Mode core.WriteMode

	Logger *slog.Logger
}

// Describe returns the connection type and table.
func (l *DatabaseLoader) Describe() string {
	return l.Connection.Type + ":" + l.Table
}

// Load connects, writes t and closes the connection.
func (l *DatabaseLoader) Load(ctx context.Context, t *core.Table) error {
	mode := l.Mode
	if mode == "" {
		mode = core.WriteReplace
	}

	db, err := adapter.Open(ctx, l.Connection, l.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.WriteTable(ctx, l.Table, t, mode); err != nil {
		return fmt.Errorf("load %s: %w", l.Describe(), err)
	}

	if l.Logger != nil {
		l.Logger.Debug("loaded table",
			slog.String("destination", l.Describe()),
			slog.String("mode", string(mode)),
			slog.Int("rows", t.NumRows()))
	}
	return nil
}
