package core

import (
	"database/sql"
)

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	DSN      string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any

	// Pool sizing for adapters backed by a connection pool.
	MinConns int
	MaxConns int
}

// ColumnMeta describes a column of a database table.
type ColumnMeta struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata holds metadata about a database table.
type TableMetadata struct {
	Schema   string
	Name     string
	Columns  []ColumnMeta
	RowCount int64
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}

// WriteMode controls how a table is written to a database.
type WriteMode string

// Write modes.
const (
	// WriteReplace drops and recreates the destination table.
	WriteReplace WriteMode = "replace"
	// WriteAppend creates the destination table if needed and inserts rows.
	WriteAppend WriteMode = "append"
)
