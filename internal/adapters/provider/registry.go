package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/uxray-ai/uxray/internal/config"
	"github.com/uxray-ai/uxray/internal/core"
)

// Registry is a thread-safe core.ProviderRegistry.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]core.Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]core.Provider)}
}

// Register adds a provider. Duplicate names are rejected.
func (r *Registry) Register(p core.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if name == "" {
		return core.ErrConfig(core.CodeInvalidConfig, "provider has empty name")
	}
	if _, exists := r.providers[name]; exists {
		return core.ErrConfig(core.CodeInvalidConfig,
			fmt.Sprintf("provider %s registered twice", name))
	}
	r.providers[name] = p
	return nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (core.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, core.ErrConfig(core.CodeInvalidConfig,
			fmt.Sprintf("provider %s is not registered", name))
	}
	return p, nil
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildRegistry creates a registry holding one HTTP provider per enabled
// config entry.
func BuildRegistry(cfg config.ProvidersConfig) (*Registry, error) {
	registry := NewRegistry()
	for name, pc := range cfg {
		if !pc.Enabled {
			continue
		}
		if pc.Endpoint == "" {
			return nil, core.ErrConfig(core.CodeInvalidConfig,
				fmt.Sprintf("provider %s has no endpoint", name))
		}
		if err := registry.Register(New(name, pc.Endpoint, pc.APIKey, pc.Model, pc.Vision)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
