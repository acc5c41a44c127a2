package adapters

import (
	"sync"

	"modelgate/services/catalog-api/internal/domain/catalog"
)

// Registry maps provider slugs to their adapters. Registration happens during
// startup wiring; lookups are concurrent after that.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]catalog.ProviderAdapter
}

var _ catalog.AdapterRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]catalog.ProviderAdapter)}
}

func (r *Registry) Register(slug string, adapter catalog.ProviderAdapter) {
	r.mu.Lock()
	r.adapters[slug] = adapter
	r.mu.Unlock()
}

func (r *Registry) AdapterFor(slug string) (catalog.ProviderAdapter, bool) {
	r.mu.RLock()
	adapter, ok := r.adapters[slug]
	r.mu.RUnlock()
	return adapter, ok
}

// Slugs returns every registered provider slug.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slugs := make([]string, 0, len(r.adapters))
	for slug := range r.adapters {
		slugs = append(slugs, slug)
	}
	return slugs
}
