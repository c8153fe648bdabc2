package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, and Query implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

func (b *BaseSQLAdapter) log() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.log().Debug("closing database connection")
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*core.Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses the dialect's default schema if not specified.
func ParseQualifiedName(table string, d *Dialect) (schema, name string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return d.DefaultSchema, table
}

// GetTableMetadataCommon provides a shared implementation of GetTableMetadata.
// Uses information_schema.columns with dialect-appropriate placeholders.
func (b *BaseSQLAdapter) GetTableMetadataCommon(ctx context.Context, table string, d *Dialect) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schema, tableName := ParseQualifiedName(table, d)

	//nolint:gosec // Placeholders come from the dialect
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	rows, err := b.DB.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.ColumnMeta
	for rows.Next() {
		var col core.ColumnMeta
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	countQuery := "SELECT COUNT(*) FROM " + d.QuoteTable(schema+"."+tableName) //nolint:gosec // identifiers are quoted
	var rowCount int64
	if err := b.DB.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		// Non-fatal error, just set to 0
		rowCount = 0
	}

	return &core.TableMetadata{
		Schema:   schema,
		Name:     tableName,
		Columns:  columns,
		RowCount: rowCount,
	}, nil
}

// SelectQuery builds a parameterised SELECT for table. Filter keys are
// sorted so the statement is deterministic.
func SelectQuery(table string, filter map[string]any, d *Dialect) (string, []any) {
	query := "SELECT * FROM " + d.QuoteTable(table)
	if len(filter) == 0 {
		return query, nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		conds[i] = d.QuoteIdentifier(k) + " = " + d.FormatPlaceholder(i+1)
		args[i] = filter[k]
	}
	return query + " WHERE " + strings.Join(conds, " AND "), args
}

// ReadTableCommon reads a table through database/sql and infers column kinds
// from the driver values.
func (b *BaseSQLAdapter) ReadTableCommon(ctx context.Context, table string, filter map[string]any, d *Dialect) (*core.Table, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	query, args := SelectQuery(table, filter, d)
	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	t, err := ScanTable(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	if t.NumRows() == 0 {
		b.log().Warn("query returned no rows", slog.String("table", table), slog.Any("filter", filter))
	}
	return t, nil
}

// ScanTable drains rows into a table.
func ScanTable(rows *sql.Rows) (*core.Table, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	raw := make([][]any, len(names))
	dest := make([]any, len(names))
	vals := make([]any, len(names))
	for i := range dest {
		dest[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range vals {
			if bs, ok := v.([]byte); ok {
				v = string(bs)
			}
			raw[i] = append(raw[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	cols := make([]*core.Column, len(names))
	for i, name := range names {
		cols[i] = core.InferColumn(name, raw[i])
	}
	return core.NewTable(cols...)
}

// CreateTableSQL returns the statements preparing table for a write in mode.
func CreateTableSQL(table string, t *core.Table, mode core.WriteMode, d *Dialect) ([]string, error) {
	defs := make([]string, t.NumCols())
	for i, col := range t.Columns() {
		defs[i] = d.QuoteIdentifier(col.Name) + " " + d.TypeName(col.Kind)
	}
	name := d.QuoteTable(table)

	switch mode {
	case core.WriteReplace, "":
		return []string{
			"DROP TABLE IF EXISTS " + name,
			fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", ")),
		}, nil
	case core.WriteAppend:
		return []string{
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", ")),
		}, nil
	default:
		return nil, fmt.Errorf("unknown write mode %q", mode)
	}
}

// InsertSQL returns a parameterised INSERT for the columns of t.
func InsertSQL(table string, t *core.Table, d *Dialect) string {
	names := make([]string, t.NumCols())
	marks := make([]string, t.NumCols())
	for i, col := range t.Columns() {
		names[i] = d.QuoteIdentifier(col.Name)
		marks[i] = d.FormatPlaceholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.QuoteTable(table), strings.Join(names, ", "), strings.Join(marks, ", "))
}

// RowValues returns row i of t as driver arguments. Missing values are nil.
func RowValues(t *core.Table, i int) []any {
	out := make([]any, t.NumCols())
	for j, col := range t.Columns() {
		v := col.Values[i]
		if v.IsMissing() {
			continue
		}
		switch col.Kind {
		case core.KindNumber:
			out[j] = v.Num()
		case core.KindDate:
			out[j] = v.Time()
		default:
			out[j] = v.Str()
		}
	}
	return out
}

// WriteTableCommon creates the destination table and inserts every row of t
// in one transaction.
func (b *BaseSQLAdapter) WriteTableCommon(ctx context.Context, table string, t *core.Table, mode core.WriteMode, d *Dialect) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if t.NumCols() == 0 {
		return fmt.Errorf("cannot write table %s: no columns", table)
	}

	stmts, err := CreateTableSQL(table, t, mode, d)
	if err != nil {
		return err
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("failed to prepare table %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, InsertSQL(table, t, d))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < t.NumRows(); i++ {
		if _, err := stmt.ExecContext(ctx, RowValues(t, i)...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	b.log().Debug("wrote table",
		slog.String("table", table),
		slog.String("mode", string(mode)),
		slog.Int("rows", t.NumRows()))
	return nil
}
