// Package postgres provides a PostgreSQL database adapter for LeapETL.
//
// Connections go through a pgxpool.Pool. The pool also backs a database/sql
// handle so the generic adapter paths work unchanged, while bulk writes use
// the COPY protocol.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/leapetl/pkg/adapter"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Pool defaults used when the connection config leaves them unset.
const (
	DefaultMinConns = 1
	DefaultMaxConns = 10
)

// Dialect is the PostgreSQL dialect.
var Dialect = &adapter.Dialect{
	Name:          "postgres",
	DefaultSchema: "public",
	Placeholder:   adapter.PlaceholderDollar,
	Types: map[core.Kind]string{
		core.KindString: "TEXT",
		core.KindNumber: "DOUBLE PRECISION",
		core.KindDate:   "TIMESTAMP",
	},
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return Dialect
}

// Connect opens a connection pool to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	poolCfg, err := buildPoolConfig(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", poolCfg.ConnConfig.Host),
		slog.String("database", poolCfg.ConnConfig.Database),
		slog.Int("min_conns", int(poolCfg.MinConns)),
		slog.Int("max_conns", int(poolCfg.MaxConns)))

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.pool = pool
	a.DB = stdlib.OpenDBFromPool(pool)
	a.Cfg = cfg
	return nil
}

// Close closes the database handle and the pool.
func (a *Adapter) Close() error {
	err := a.BaseSQLAdapter.Close()
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	a.DB = nil
	return err
}

// buildPoolConfig turns the adapter config into a pool config.
func buildPoolConfig(cfg core.AdapterConfig) (*pgxpool.Config, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildPostgresDSN(cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection string: %w", err)
	}

	minConns, maxConns := cfg.MinConns, cfg.MaxConns
	if minConns <= 0 {
		minConns = DefaultMinConns
	}
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	if minConns > maxConns {
		return nil, fmt.Errorf("min_conns (%d) exceeds max_conns (%d)", minConns, maxConns)
	}
	poolCfg.MinConns = int32(minConns) //nolint:gosec // bounded by config validation
	poolCfg.MaxConns = int32(maxConns) //nolint:gosec // bounded by config validation
	return poolCfg, nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg core.AdapterConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	return a.GetTableMetadataCommon(ctx, table, Dialect)
}

// ReadTable reads a table, optionally filtered by column equality.
func (a *Adapter) ReadTable(ctx context.Context, table string, filter map[string]any) (*core.Table, error) {
	return a.ReadTableCommon(ctx, table, filter, Dialect)
}

// WriteTable creates the destination table and streams t into it with COPY
// inside one transaction.
func (a *Adapter) WriteTable(ctx context.Context, table string, t *core.Table, mode core.WriteMode) error {
	if a.pool == nil {
		return fmt.Errorf("database connection not established")
	}
	if t.NumCols() == 0 {
		return fmt.Errorf("cannot write table %s: no columns", table)
	}

	stmts, err := adapter.CreateTableSQL(table, t, mode, Dialect)
	if err != nil {
		return err
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, s := range stmts {
		if _, err := tx.Exec(ctx, s); err != nil {
			return fmt.Errorf("failed to prepare table %s: %w", table, err)
		}
	}

	n, err := tx.CopyFrom(ctx, tableIdentifier(table), t.ColumnNames(), copySource(t))
	if err != nil {
		return fmt.Errorf("failed to copy rows into %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	a.Logger.Debug("copied rows", slog.String("table", table), slog.Int64("rows", n))
	return nil
}

// tableIdentifier splits a possibly schema-qualified name for CopyFrom.
func tableIdentifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

// copySource adapts a table to pgx.CopyFromSource.
func copySource(t *core.Table) pgx.CopyFromSource {
	i := 0
	return pgx.CopyFromFunc(func() ([]any, error) {
		if i >= t.NumRows() {
			return nil, nil
		}
		row := adapter.RowValues(t, i)
		i++
		return row, nil
	})
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
