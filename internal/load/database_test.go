package load

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapetl/internal/extract"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/leapetl/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/sqlite"
)

func TestDatabaseLoader_Modes(t *testing.T) {
	tests := []struct {
		name   string
		typ    string
		file   string
		second core.WriteMode
		rows   int
	}{
		{name: "sqlite default replace", typ: "sqlite", file: "etl.db", rows: 2},
		{name: "sqlite append", typ: "sqlite", file: "etl.db", second: core.WriteAppend, rows: 4},
		{name: "duckdb replace", typ: "duckdb", file: "etl.duckdb", second: core.WriteReplace, rows: 2},
		{name: "duckdb append", typ: "duckdb", file: "etl.duckdb", second: core.WriteAppend, rows: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := core.AdapterConfig{Type: tt.typ, Path: filepath.Join(t.TempDir(), tt.file)}

			require.NoError(t, (&DatabaseLoader{Connection: cfg, Table: "sales"}).Load(ctx, cleaned()))
			l := &DatabaseLoader{Connection: cfg, Table: "sales", Mode: tt.second}
			assert.Equal(t, tt.typ+":sales", l.Describe())
			require.NoError(t, l.Load(ctx, cleaned()))

			got, err := (&extract.DatabaseExtractor{Connection: cfg, Table: "sales"}).Extract(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.rows, got.NumRows())
		})
	}
}

func TestDatabaseLoader_InvalidMode(t *testing.T) {
	cfg := core.AdapterConfig{Type: "sqlite", Path: ":memory:"}
	err := (&DatabaseLoader{Connection: cfg, Table: "sales", Mode: "merge"}).Load(context.Background(), cleaned())
	require.Error(t, err)
}

func TestDatabaseLoader_UnknownType(t *testing.T) {
	err := (&DatabaseLoader{Connection: core.AdapterConfig{Type: "oracle"}, Table: "x"}).Load(context.Background(), cleaned())
	require.Error(t, err)
}
