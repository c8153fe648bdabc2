package adapter

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter records Connect and Close calls.
type stubAdapter struct {
	BaseSQLAdapter
	connectErr error
	connected  bool
	closed     bool
}

func (s *stubAdapter) Connect(_ context.Context, _ core.AdapterConfig) error {
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connected = true
	return nil
}

func (s *stubAdapter) Close() error {
	s.closed = true
	return nil
}

func (s *stubAdapter) GetTableMetadata(context.Context, string) (*core.TableMetadata, error) {
	return nil, nil
}

func (s *stubAdapter) ReadTable(context.Context, string, map[string]any) (*core.Table, error) {
	return nil, nil
}

func (s *stubAdapter) WriteTable(context.Context, string, *core.Table, core.WriteMode) error {
	return nil
}

func (s *stubAdapter) Dialect() *Dialect { return &Dialect{Name: "stub"} }

func TestRegistry_NamesAreCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register("Warehouse", func(*slog.Logger) Adapter { return &stubAdapter{} })

	for _, name := range []string{"warehouse", "WAREHOUSE", " Warehouse "} {
		_, ok := r.Get(name)
		assert.True(t, ok, "Get(%q)", name)
	}
	assert.Equal(t, []string{"warehouse"}, r.Names())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	first, second := &stubAdapter{}, &stubAdapter{}
	r := NewRegistry()
	r.Register("stub", func(*slog.Logger) Adapter { return first })
	r.Register("stub", func(*slog.Logger) Adapter { return second })

	a, err := r.New(core.AdapterConfig{Type: "stub"}, nil)
	require.NoError(t, err)
	assert.Same(t, second, a)
}

func TestRegistry_New(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", func(*slog.Logger) Adapter { return &stubAdapter{} })

	tests := []struct {
		name    string
		typ     string
		wantErr string
		unknown bool
	}{
		{name: "registered", typ: "stub"},
		{name: "empty type", typ: "  ", wantErr: "adapter type not specified"},
		{name: "unknown type", typ: "oracle", wantErr: `unknown adapter type "oracle"`, unknown: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := r.New(core.AdapterConfig{Type: tt.typ}, nil)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.NotNil(t, a)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var unknown *UnknownAdapterError
			assert.Equal(t, tt.unknown, errors.As(err, &unknown))
			if tt.unknown {
				assert.Equal(t, []string{"stub"}, unknown.Available)
			}
		})
	}
}

func TestRegistry_Open(t *testing.T) {
	t.Run("connects", func(t *testing.T) {
		stub := &stubAdapter{}
		r := NewRegistry()
		r.Register("stub", func(*slog.Logger) Adapter { return stub })

		a, err := r.Open(context.Background(), core.AdapterConfig{Type: "stub"}, nil)
		require.NoError(t, err)
		assert.Same(t, stub, a)
		assert.True(t, stub.connected)
		assert.False(t, stub.closed)
	})

	t.Run("closes on connect failure", func(t *testing.T) {
		stub := &stubAdapter{connectErr: errors.New("refused")}
		r := NewRegistry()
		r.Register("stub", func(*slog.Logger) Adapter { return stub })

		_, err := r.Open(context.Background(), core.AdapterConfig{Type: "STUB"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connect stub: refused")
		assert.True(t, stub.closed)
	})
}

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{Type: "fake_db", Available: []string{"duckdb", "postgres"}}

	msg := err.Error()
	assert.Contains(t, msg, "fake_db")
	assert.Contains(t, msg, "duckdb, postgres")
	assert.Contains(t, msg, "leapetl.yaml")
}
