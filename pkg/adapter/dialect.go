package adapter

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

// Placeholder styles.
const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, ... (PostgreSQL).
	PlaceholderDollar
)

// Dialect describes the SQL differences between adapters that the generic
// read and write paths need.
type Dialect struct {
	Name          string
	DefaultSchema string // "main" for DuckDB and SQLite, "public" for Postgres
	Placeholder   PlaceholderStyle

	// Types maps column kinds to the column type used by CREATE TABLE.
	Types map[core.Kind]string
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default:
		return "?"
	}
}

// QuoteIdentifier quotes an identifier with double quotes.
func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteTable quotes a possibly schema-qualified table name.
func (d *Dialect) QuoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// TypeName returns the column type for a kind.
func (d *Dialect) TypeName(k core.Kind) string {
	if t, ok := d.Types[k]; ok {
		return t
	}
	return "TEXT"
}
