package clean

import (
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Role is the capability a column plays in the pipeline.
type Role int

// Column roles.
const (
	RoleText Role = iota
	RoleNumeric
	RoleIdentifier
	RoleEmail
	RoleAmount
	RoleDate
)

func (r Role) String() string {
	switch r {
	case RoleNumeric:
		return "numeric"
	case RoleIdentifier:
		return "identifier"
	case RoleEmail:
		return "email"
	case RoleAmount:
		return "amount"
	case RoleDate:
		return "date"
	default:
		return "text"
	}
}

// Well-known column names.
const (
	IdentifierColumn = "id"
	EmailColumn      = "email"
)

// Field is the role assignment of one column.
type Field struct {
	Name     string
	Role     Role
	Critical bool
}

// Schema maps the columns of a table to roles.
type Schema struct {
	fields     map[string]Field
	order      []string
	critical   []string
	identifier string
	email      string
	amount     string
	dates      []string
}

// InferSchema assigns a role to every column of t.
func InferSchema(t *core.Table, opts Options) *Schema {
	opts = opts.withDefaults()

	s := &Schema{fields: make(map[string]Field, t.NumCols())}
	critical := make(map[string]bool, len(opts.CriticalColumns))
	for _, name := range opts.CriticalColumns {
		critical[name] = true
	}

	for _, col := range t.Columns() {
		f := Field{Name: col.Name, Critical: critical[col.Name]}
		switch {
		case col.Name == IdentifierColumn:
			f.Role = RoleIdentifier
			s.identifier = col.Name
		case col.Name == EmailColumn:
			f.Role = RoleEmail
			s.email = col.Name
		case col.Name == opts.OutlierColumn:
			f.Role = RoleAmount
			s.amount = col.Name
		case strings.Contains(strings.ToLower(col.Name), "date"):
			f.Role = RoleDate
			s.dates = append(s.dates, col.Name)
		case col.Kind == core.KindNumber:
			f.Role = RoleNumeric
		default:
			f.Role = RoleText
		}
		if f.Critical {
			s.critical = append(s.critical, col.Name)
		}
		s.fields[col.Name] = f
		s.order = append(s.order, col.Name)
	}
	return s
}

// Field returns the role assignment of a column.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Role returns the role of a column; unknown columns are text.
func (s *Schema) Role(name string) Role {
	return s.fields[name].Role
}

// Fields returns role assignments in column order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.order))
	for i, name := range s.order {
		out[i] = s.fields[name]
	}
	return out
}

// Critical returns the critical columns present in the table.
func (s *Schema) Critical() []string { return s.critical }

// Identifier returns the identifier column name, or "".
func (s *Schema) Identifier() string { return s.identifier }

// Email returns the email column name, or "".
func (s *Schema) Email() string { return s.email }

// Amount returns the amount column name, or "".
func (s *Schema) Amount() string { return s.amount }

// Dates returns the date columns in column order.
func (s *Schema) Dates() []string { return s.dates }
