package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic type of a column.
type Kind int

// Column kinds.
const (
	KindString Kind = iota
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// Value is a single cell. The zero Value is the missing marker.
type Value struct {
	valid bool
	str   string
	num   float64
	t     time.Time
}

// Missing returns the missing marker.
func Missing() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{valid: true, str: s} }

// Number returns a numeric value. NaN is treated as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{valid: true, num: f}
}

// Date returns a date value.
func Date(t time.Time) Value { return Value{valid: true, t: t} }

// IsMissing reports whether v is the missing marker.
func (v Value) IsMissing() bool { return !v.valid }

// Str returns the string payload.
func (v Value) Str() string { return v.str }

// Num returns the numeric payload.
func (v Value) Num() float64 { return v.num }

// Time returns the date payload.
func (v Value) Time() time.Time { return v.t }

// Equal reports whether two values of the same column are identical.
// Two missing markers are equal.
func (v Value) Equal(o Value) bool {
	if v.valid != o.valid {
		return false
	}
	if !v.valid {
		return true
	}
	return v.str == o.str && v.num == o.num && v.t.Equal(o.t)
}

// Format renders the value for the given kind. Missing renders as "".
func (v Value) Format(k Kind) string {
	if !v.valid {
		return ""
	}
	switch k {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		return FormatDate(v.t)
	default:
		return v.str
	}
}

// FormatDate renders a date as 2006-01-02 when it has no time part, RFC3339 otherwise.
func FormatDate(t time.Time) string {
	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

// Column is a named, typed sequence of values.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// NewColumn creates a column, copying values.
func NewColumn(name string, kind Kind, values []Value) *Column {
	vals := make([]Value, len(values))
	copy(vals, values)
	return &Column{Name: name, Kind: kind, Values: vals}
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	return NewColumn(c.Name, c.Kind, c.Values)
}

// MissingCount returns the number of missing values.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// HasMissing reports whether any value is missing.
func (c *Column) HasMissing() bool {
	for _, v := range c.Values {
		if v.IsMissing() {
			return true
		}
	}
	return false
}

// Table is an ordered collection of equally long columns.
// Tables are treated as immutable values: operations return new tables.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable builds a table from columns. Column names must be unique and all
// columns must have the same length. Columns are copied.
func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.rows = len(c.Values)
		} else if len(c.Values) != t.rows {
			return nil, fmt.Errorf("column %q has %d values, expected %d", c.Name, len(c.Values), t.rows)
		}
		t.index[c.Name] = i
		t.columns = append(t.columns, c.Clone())
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. Intended for tests and literals.
func MustTable(cols ...*Column) *Table {
	t, err := NewTable(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns the columns in order. Callers must not mutate them.
func (t *Table) Columns() []*Column { return t.columns }

// ColumnNames returns column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Has reports whether the table has the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out, _ := NewTable(t.columns...)
	return out
}

// Filter returns a new table with only the rows where keep is true.
func (t *Table) Filter(keep []bool) *Table {
	cols := make([]*Column, len(t.columns))
	for j, c := range t.columns {
		vals := make([]Value, 0, len(c.Values))
		for i, v := range c.Values {
			if keep[i] {
				vals = append(vals, v)
			}
		}
		cols[j] = &Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	out, _ := NewTable(cols...)
	return out
}

// WithColumn returns a new table where col replaces the column of the same
// name, or is appended when no such column exists.
func (t *Table) WithColumn(col *Column) (*Table, error) {
	cols := make([]*Column, 0, len(t.columns)+1)
	replaced := false
	for _, c := range t.columns {
		if c.Name == col.Name {
			cols = append(cols, col)
			replaced = true
			continue
		}
		cols = append(cols, c)
	}
	if !replaced {
		cols = append(cols, col)
	}
	return NewTable(cols...)
}

// Without returns a new table without the named columns.
func (t *Table) Without(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	cols := make([]*Column, 0, len(t.columns))
	for _, c := range t.columns {
		if !drop[c.Name] {
			cols = append(cols, c)
		}
	}
	out, _ := NewTable(cols...)
	return out
}

// Head returns a new table with at most n rows.
func (t *Table) Head(n int) *Table {
	keep := make([]bool, t.rows)
	for i := 0; i < t.rows && i < n; i++ {
		keep[i] = true
	}
	return t.Filter(keep)
}

// Equal reports whether two tables have the same columns, kinds and values.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.columns) != len(o.columns) {
		return false
	}
	for j, c := range t.columns {
		oc := o.columns[j]
		if c.Name != oc.Name || c.Kind != oc.Kind {
			return false
		}
		for i := range c.Values {
			if !c.Values[i].Equal(oc.Values[i]) {
				return false
			}
		}
	}
	return true
}

// MissingTokens are raw strings read as the missing marker.
var MissingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"#N/A": true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

// InferColumn builds a column from raw values produced by a reader or a
// database driver. Nil and missing tokens become missing. The column is a
// number column when every present value is numeric, a date column when every
// present value is a time, and a string column otherwise.
func InferColumn(name string, raw []any) *Column {
	numeric, dated, present := true, true, 0
	for _, r := range raw {
		switch v := r.(type) {
		case nil:
			continue
		case string:
			if MissingTokens[strings.TrimSpace(v)] {
				continue
			}
			present++
			dated = false
			if _, ok := parseNumber(v); !ok {
				numeric = false
			}
		case []byte:
			if MissingTokens[strings.TrimSpace(string(v))] {
				continue
			}
			present++
			dated = false
			if _, ok := parseNumber(string(v)); !ok {
				numeric = false
			}
		case time.Time:
			present++
			numeric = false
		default:
			present++
			dated = false
			if _, ok := toFloat(v); !ok {
				numeric = false
			}
		}
	}

	kind := KindString
	switch {
	case present == 0:
		kind = KindString
	case numeric:
		kind = KindNumber
	case dated:
		kind = KindDate
	}

	vals := make([]Value, len(raw))
	for i, r := range raw {
		vals[i] = convertRaw(r, kind)
	}
	return &Column{Name: name, Kind: kind, Values: vals}
}

func convertRaw(r any, kind Kind) Value {
	if r == nil {
		return Missing()
	}
	var s string
	switch v := r.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case time.Time:
		if kind == KindDate {
			return Date(v)
		}
		return String(FormatDate(v))
	default:
		if kind == KindNumber {
			f, _ := toFloat(v)
			return Number(f)
		}
		return String(fmt.Sprint(v))
	}
	if MissingTokens[strings.TrimSpace(s)] {
		return Missing()
	}
	if kind == KindNumber {
		f, _ := parseNumber(s)
		return Number(f)
	}
	return String(s)
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case fmt.Stringer:
		return parseNumber(n.String())
	default:
		return 0, false
	}
}
