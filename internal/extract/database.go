package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapetl/pkg/adapter"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// DatabaseExtractor reads a table through a registered adapter.
type DatabaseExtractor struct {
	Connection core.AdapterConfig
	Table      string
	// Filter restricts the rows to those whose columns equal the values.
	Filter map[string]any

	Logger *slog.Logger
}

// Describe returns the connection type and table.
func (e *DatabaseExtractor) Describe() string {
	return e.Connection.Type + ":" + e.Table
}

// Extract connects, reads the table and closes the connection.
func (e *DatabaseExtractor) Extract(ctx context.Context) (*core.Table, error) {
	db, err := adapter.Open(ctx, e.Connection, e.Logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	t, err := db.ReadTable(ctx, e.Table, e.Filter)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", e.Describe(), err)
	}
	return t, nil
}
