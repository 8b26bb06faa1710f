package agent

import (
	"context"
	"fmt"
	"sync"
)

// Registry holds the configured providers and resolves the active one.
type Registry struct {
	providers map[string]*Provider
	order     []string
	defaultID string
}

// NewRegistry creates a registry. The default id must name one of the given
// providers; a missing default is a configuration error.
func NewRegistry(defaultID string, providers ...*Provider) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]*Provider, len(providers)),
		defaultID: defaultID,
	}
	for _, p := range providers {
		if _, dup := r.providers[p.ID()]; dup {
			return nil, fmt.Errorf("duplicate provider %q", p.ID())
		}
		r.providers[p.ID()] = p
		r.order = append(r.order, p.ID())
	}
	if _, ok := r.providers[defaultID]; !ok {
		return nil, fmt.Errorf("default provider %q is not registered", defaultID)
	}
	return r, nil
}

// Resolve returns the provider for id, falling back to the default when the
// id is unknown or empty.
func (r *Registry) Resolve(id string) *Provider {
	if p, ok := r.providers[id]; ok {
		return p
	}
	return r.providers[r.defaultID]
}

// Get returns the provider for id without fallback.
func (r *Registry) Get(id string) (*Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// All returns every registered provider in registration order.
func (r *Registry) All() []*Provider {
	out := make([]*Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

// Available probes every provider concurrently and returns those whose CLI
// was found, in registration order. One provider's probe cannot abort
// another's.
func (r *Registry) Available(ctx context.Context) []*Provider {
	found := make(map[string]bool, len(r.order))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range r.order {
		wg.Add(1)
		go func(p *Provider) {
			defer wg.Done()
			ok := p.DiscoverCLI(ctx).Found
			mu.Lock()
			found[p.ID()] = ok
			mu.Unlock()
		}(r.providers[id])
	}
	wg.Wait()

	var out []*Provider
	for _, id := range r.order {
		if found[id] {
			out = append(out, r.providers[id])
		}
	}
	return out
}
