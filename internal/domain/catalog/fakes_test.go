package catalog_test

import (
	"context"
	"sync"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/domain/query"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]catalog.CanonicalModel
	err     error
}

func (w *fakeWriter) BulkUpsert(_ context.Context, records []catalog.CanonicalModel, _ string) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.mu.Lock()
	w.batches = append(w.batches, records)
	w.mu.Unlock()
	return len(records), nil
}

func (w *fakeWriter) lastBatch() []catalog.CanonicalModel {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.batches) == 0 {
		return nil
	}
	return w.batches[len(w.batches)-1]
}

type fakeProviderRepo struct {
	providers map[string]*catalog.Provider
}

func newFakeProviderRepo(providers ...*catalog.Provider) *fakeProviderRepo {
	repo := &fakeProviderRepo{providers: make(map[string]*catalog.Provider)}
	for _, p := range providers {
		repo.providers[p.Slug] = p
	}
	return repo
}

func (r *fakeProviderRepo) FindBySlug(_ context.Context, slug string) (*catalog.Provider, error) {
	return r.providers[slug], nil
}

func (r *fakeProviderRepo) FindByFilter(_ context.Context, filter catalog.ProviderFilter, _ *query.Pagination) ([]*catalog.Provider, error) {
	var result []*catalog.Provider
	for _, p := range r.providers {
		if filter.Active != nil && p.Active != *filter.Active {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (r *fakeProviderRepo) Count(_ context.Context, _ catalog.ProviderFilter) (int64, error) {
	return int64(len(r.providers)), nil
}

type adapterFunc func(ctx context.Context, providerSlug string) ([]catalog.NormalizedModel, error)

func (f adapterFunc) Fetch(ctx context.Context, providerSlug string) ([]catalog.NormalizedModel, error) {
	return f(ctx, providerSlug)
}

type fakeRegistry struct {
	adapters map[string]catalog.ProviderAdapter
}

func (r *fakeRegistry) AdapterFor(slug string) (catalog.ProviderAdapter, bool) {
	adapter, ok := r.adapters[slug]
	return adapter, ok
}

type fakeSyncRunRepo struct {
	mu     sync.Mutex
	nextID uint
	runs   []*catalog.SyncRun
}

func (r *fakeSyncRunRepo) Create(_ context.Context, run *catalog.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	run.ID = r.nextID
	clone := *run
	r.runs = append(r.runs, &clone)
	return nil
}

func (r *fakeSyncRunRepo) Finalize(_ context.Context, run *catalog.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, stored := range r.runs {
		if stored.ID == run.ID {
			clone := *run
			r.runs[i] = &clone
		}
	}
	return nil
}

func (r *fakeSyncRunRepo) FindRecent(_ context.Context, limit int) ([]*catalog.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*catalog.SyncRun, 0, len(r.runs))
	for i := len(r.runs) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, r.runs[i])
	}
	return result, nil
}

type invalidation struct {
	slug    string
	cascade bool
}

type fakeInvalidator struct {
	mu        sync.Mutex
	providers []invalidation
	globals   int
}

func (f *fakeInvalidator) InvalidateProvider(_ context.Context, slug string, cascade bool) error {
	f.mu.Lock()
	f.providers = append(f.providers, invalidation{slug: slug, cascade: cascade})
	f.mu.Unlock()
	return nil
}

func (f *fakeInvalidator) InvalidateGlobal(context.Context) error {
	f.mu.Lock()
	f.globals++
	f.mu.Unlock()
	return nil
}

func (f *fakeInvalidator) globalCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.globals
}

func (f *fakeInvalidator) providerInvalidations() []invalidation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]invalidation(nil), f.providers...)
}
