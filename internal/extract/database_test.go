package extract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapetl/pkg/adapter"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/leapetl/pkg/adapters/sqlite"
)

func TestDatabaseExtractor_Extract(t *testing.T) {
	ctx := context.Background()
	cfg := core.AdapterConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "src.db")}

	db, err := adapter.Open(ctx, cfg, nil)
	require.NoError(t, err)
	src := core.MustTable(
		core.InferColumn("id", []any{1, 2, 3}),
		core.InferColumn("region", []any{"north", "south", "north"}),
	)
	require.NoError(t, db.WriteTable(ctx, "sales", src, core.WriteReplace))
	require.NoError(t, db.Close())

	tests := []struct {
		name    string
		table   string
		filter  map[string]any
		rows    int
		wantErr bool
	}{
		{name: "whole table", table: "sales", rows: 3},
		{name: "filtered", table: "sales", filter: map[string]any{"region": "north"}, rows: 2},
		{name: "missing table", table: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &DatabaseExtractor{Connection: cfg, Table: tt.table, Filter: tt.filter}
			assert.Equal(t, "sqlite:"+tt.table, ext.Describe())

			got, err := ext.Extract(ctx)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rows, got.NumRows())
		})
	}
}

func TestDatabaseExtractor_UnknownType(t *testing.T) {
	ext := &DatabaseExtractor{Connection: core.AdapterConfig{Type: "oracle"}, Table: "x"}
	_, err := ext.Extract(context.Background())
	require.Error(t, err)
}
