// Package duckdb provides a DuckDB database adapter for LeapETL.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/adapter"
	"github.com/leapstack-labs/leapetl/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Dialect is the DuckDB dialect.
var Dialect = &adapter.Dialect{
	Name:          "duckdb",
	DefaultSchema: "main",
	Placeholder:   adapter.PlaceholderQuestion,
	Types: map[core.Kind]string{
		core.KindString: "VARCHAR",
		core.KindNumber: "DOUBLE",
		core.KindDate:   "TIMESTAMP",
	},
}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return Dialect
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", cfg.Path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.applyParams(ctx, params); err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}
	return nil
}

// applyParams installs extensions, applies settings and creates secrets.
func (a *Adapter) applyParams(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = '%s'", k, escapeString(p.Settings[k]))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}

	for _, s := range p.Secrets {
		if err := a.Exec(ctx, buildCreateSecretSQL(s)); err != nil {
			return fmt.Errorf("failed to create %s secret: %w", s.Type, err)
		}
	}
	return nil
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	return a.GetTableMetadataCommon(ctx, table, Dialect)
}

// ReadTable reads a table, optionally filtered by column equality.
func (a *Adapter) ReadTable(ctx context.Context, table string, filter map[string]any) (*core.Table, error) {
	return a.ReadTableCommon(ctx, table, filter, Dialect)
}

// WriteTable writes t into table.
func (a *Adapter) WriteTable(ctx context.Context, table string, t *core.Table, mode core.WriteMode) error {
	return a.WriteTableCommon(ctx, table, t, mode, Dialect)
}

// ReadFile reads a CSV, JSON or Parquet file through DuckDB's table functions.
func (a *Adapter) ReadFile(ctx context.Context, path string) (*core.Table, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	var fn string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		fn = "read_parquet"
	case ".csv":
		fn = "read_csv_auto"
	case ".json":
		fn = "read_json_auto"
	default:
		return nil, fmt.Errorf("duckdb cannot read %s", path)
	}

	query := fmt.Sprintf("SELECT * FROM %s('%s')", fn, escapeString(absPath)) //nolint:gosec // path is quoted
	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()
	return adapter.ScanTable(rows)
}

// ExportParquet copies table into a Parquet file at path.
func (a *Adapter) ExportParquet(ctx context.Context, table, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	query := fmt.Sprintf("COPY (SELECT * FROM %s) TO '%s' (FORMAT PARQUET)", Dialect.QuoteTable(table), escapeString(absPath))
	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to export parquet: %w", err)
	}
	return nil
}

func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
