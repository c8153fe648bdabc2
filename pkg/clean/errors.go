package clean

import (
	"fmt"
)

// ValidationError is returned when a cleaned table violates a cleaning rule.
// No output table is produced when it is returned.
type ValidationError struct {
	Column string
	Reason string
	// Rows holds the zero-based row positions, in the table being validated,
	// that violate the rule.
	Rows []int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: column %q: %s (%d row(s))", e.Column, e.Reason, len(e.Rows))
}

// ParseError describes a value that could not be parsed. Parse errors are
// recovered inside the pipeline by substituting the missing marker.
type ParseError struct {
	Column string
	Row    int
	Input  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q in column %q at row %d", e.Input, e.Column, e.Row)
}
