// Package extract reads source data into core tables.
//
// Extractors return structural failures (missing files, HTTP errors, wrong
// content types, database errors) wrapped with context. Malformed cell values
// are never errors: they are read as strings or missing markers and left to
// the cleaning pipeline.
package extract

import (
	"context"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Extractor produces a table from a source.
type Extractor interface {
	Extract(ctx context.Context) (*core.Table, error)
	// Describe returns a short human readable name of the source.
	Describe() string
}

// fromRecords builds a table from string records whose first row is the
// header. Short rows are padded with missing values.
func fromRecords(records [][]string) (*core.Table, error) {
	if len(records) == 0 {
		return core.NewTable()
	}
	header := records[0]
	raw := make([][]any, len(header))
	for _, rec := range records[1:] {
		for j := range header {
			var v any
			if j < len(rec) {
				v = rec[j]
			}
			raw[j] = append(raw[j], v)
		}
	}

	cols := make([]*core.Column, len(header))
	for j, name := range header {
		cols[j] = core.InferColumn(name, raw[j])
	}
	return core.NewTable(cols...)
}
