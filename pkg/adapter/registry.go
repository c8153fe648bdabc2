package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Factory creates an unconnected adapter. A nil logger discards output.
type Factory func(*slog.Logger) Adapter

// Registry maps connection types to adapter factories. Names are matched
// case-insensitively.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// defaultRegistry holds the adapters that register themselves in init().
var defaultRegistry = NewRegistry()

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a factory. Registering a name twice replaces the earlier one.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(name)] = factory
}

// Get returns the factory registered under name.
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[normalize(name)]
	return f, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an adapter for cfg.Type without connecting it.
func (r *Registry) New(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if normalize(cfg.Type) == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	factory, ok := r.Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: r.Names()}
	}
	return factory(logger), nil
}

// Open creates the adapter for cfg and connects it.
func (r *Registry) Open(ctx context.Context, cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	a, err := r.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("connect %s: %w", normalize(cfg.Type), err)
	}
	return a, nil
}

// Register adds a factory to the default registry.
// Adapter packages call it from init().
func Register(name string, factory Factory) { defaultRegistry.Register(name, factory) }

// Get retrieves a factory from the default registry.
func Get(name string) (Factory, bool) { return defaultRegistry.Get(name) }

// NewAdapter creates an unconnected adapter from the default registry.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	return defaultRegistry.New(cfg, logger)
}

// Open creates and connects an adapter from the default registry.
func Open(ctx context.Context, cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	return defaultRegistry.Open(ctx, cfg, logger)
}

// ListAdapters returns the names in the default registry, sorted.
func ListAdapters() []string { return defaultRegistry.Names() }

// IsRegistered reports whether the default registry knows name.
func IsRegistered(name string) bool {
	_, ok := defaultRegistry.Get(name)
	return ok
}

// UnknownAdapterError is returned when a connection names an unregistered type.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s); check the connection type in leapetl.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
