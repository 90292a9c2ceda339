package adapters

import (
	"slices"
	"sync"

	"github.com/ruslano69/symexport/pkg/core/failure"
)

// Constructor builds a backend from its settings. It validates them and
// returns a *failure.ConfigError before creating anything.
type Constructor func(cfg Config) (Backend, error)

// Factory maps backend type names to constructors.
type Factory struct {
	registry map[string]Constructor
	mu       sync.RWMutex
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{
		registry: make(map[string]Constructor),
	}
}

// Register binds a constructor to a backend type, replacing any previous one.
func (f *Factory) Register(backendType string, constructor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[backendType] = constructor
}

// Unregister removes a backend type.
func (f *Factory) Unregister(backendType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registry, backendType)
}

// IsRegistered reports whether backendType has a constructor.
func (f *Factory) IsRegistered(backendType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.registry[backendType]
	return ok
}

// GetRegisteredTypes returns the registered type names, sorted.
func (f *Factory) GetRegisteredTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.registry))
	for backendType := range f.registry {
		types = append(types, backendType)
	}
	slices.Sort(types)
	return types
}

// Create builds the backend named by cfg.Type.
func (f *Factory) Create(cfg Config) (Backend, error) {
	f.mu.RLock()
	constructor, ok := f.registry[cfg.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, failure.Configf(cfg.Type, "output.backends",
			"unknown backend type (available types: %v)", f.GetRegisteredTypes())
	}
	return constructor(cfg)
}

// ========== Global Factory ==========

var globalFactory = NewFactory()

// Register adds a backend to the global factory. Backends call it from init:
//
//	func init() {
//	    adapters.Register("csv", func(cfg adapters.Config) (adapters.Backend, error) {
//	        return New(cfg.Text)
//	    })
//	}
func Register(backendType string, constructor Constructor) {
	globalFactory.Register(backendType, constructor)
}

// Unregister removes a backend from the global factory.
func Unregister(backendType string) {
	globalFactory.Unregister(backendType)
}

// IsRegistered checks the global factory.
func IsRegistered(backendType string) bool {
	return globalFactory.IsRegistered(backendType)
}

// GetRegisteredTypes lists the global factory's types.
func GetRegisteredTypes() []string {
	return globalFactory.GetRegisteredTypes()
}

// New builds a backend through the global factory.
func New(cfg Config) (Backend, error) {
	return globalFactory.Create(cfg)
}

// NewAll builds one backend per type, in order. On failure the backends
// already built are closed.
func NewAll(types []string, cfg Config) ([]Backend, error) {
	backends := make([]Backend, 0, len(types))
	for _, t := range types {
		c := cfg
		c.Type = t
		b, err := New(c)
		if err != nil {
			for _, built := range backends {
				_ = built.Close()
			}
			return nil, err
		}
		backends = append(backends, b)
	}
	return backends, nil
}
