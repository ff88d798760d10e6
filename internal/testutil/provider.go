// Package testutil provides in-memory fakes for pipeline tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/uxray-ai/uxray/internal/core"
)

// FakeProvider is a scripted core.Provider. Each invocation consumes the
// next scripted response; when the script runs out the last entry repeats.
type FakeProvider struct {
	ProviderName string

	mu        sync.Mutex
	script    []FakeResponse
	callCount int
	requests  []core.InvokeRequest
}

// FakeResponse is one scripted invocation outcome.
type FakeResponse struct {
	Payload *core.Payload
	Err     error
	Delay   time.Duration
}

// NewFakeProvider creates a provider that replays the given responses.
func NewFakeProvider(name string, script ...FakeResponse) *FakeProvider {
	return &FakeProvider{ProviderName: name, script: script}
}

// Name returns the provider identifier.
func (p *FakeProvider) Name() string { return p.ProviderName }

// Capabilities reports vision and JSON support.
func (p *FakeProvider) Capabilities() core.Capabilities {
	return core.Capabilities{SupportsVision: true, SupportsJSON: true, DefaultModel: "fake"}
}

// Ping always succeeds.
func (p *FakeProvider) Ping(context.Context) error { return nil }

// Invoke replays the next scripted response, honoring its delay and the
// context deadline.
func (p *FakeProvider) Invoke(ctx context.Context, req core.InvokeRequest) (*core.Payload, error) {
	p.mu.Lock()
	idx := p.callCount
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	p.callCount++
	p.requests = append(p.requests, req)
	var resp FakeResponse
	if idx >= 0 {
		resp = p.script[idx]
	}
	p.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(resp.Delay):
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return resp.Payload, nil
}

// Calls returns how many times Invoke was called.
func (p *FakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callCount
}

// Requests returns a copy of the invocation requests seen so far.
func (p *FakeProvider) Requests() []core.InvokeRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.InvokeRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// Registry is an in-memory core.ProviderRegistry.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]core.Provider
}

// NewRegistry creates a registry holding the given providers.
func NewRegistry(providers ...core.Provider) *Registry {
	r := &Registry{providers: make(map[string]core.Provider)}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Register adds a provider.
func (r *Registry) Register(p core.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	return nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (core.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, core.ErrConfig(core.CodeInvalidConfig, "provider "+name+" is not registered")
	}
	return p, nil
}

// List returns registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
