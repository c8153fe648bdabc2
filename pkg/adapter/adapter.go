// Package adapter provides the database adapter contract used by LeapETL
// extractors and loaders.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves in init(). Import them with a blank identifier:
//
//	import _ "github.com/leapstack-labs/leapetl/pkg/adapters/duckdb"
package adapter

import (
	"context"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg core.AdapterConfig) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*core.Rows, error)

	// GetTableMetadata retrieves metadata for a specified table.
	GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error)

	// ReadTable reads a table, optionally restricted to rows whose columns
	// equal the filter values.
	ReadTable(ctx context.Context, table string, filter map[string]any) (*core.Table, error)

	// WriteTable writes t into the named table.
	WriteTable(ctx context.Context, table string, t *core.Table, mode core.WriteMode) error

	// Dialect returns the SQL dialect of this adapter.
	Dialect() *Dialect
}
