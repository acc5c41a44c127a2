package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/domain/query"
)

type storeProviderRepo struct {
	providers []*catalog.Provider
}

func (r *storeProviderRepo) FindBySlug(_ context.Context, slug string) (*catalog.Provider, error) {
	for _, p := range r.providers {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, nil
}

func (r *storeProviderRepo) FindByFilter(context.Context, catalog.ProviderFilter, *query.Pagination) ([]*catalog.Provider, error) {
	return r.providers, nil
}

func (r *storeProviderRepo) Count(context.Context, catalog.ProviderFilter) (int64, error) {
	return int64(len(r.providers)), nil
}

// storeModelRepo counts FindByFilter calls so tests can assert how many times
// the store was hit during rebuilds.
type storeModelRepo struct {
	models []*catalog.CatalogModel
	err    error
	reads  atomic.Int64
}

func (r *storeModelRepo) FindByFilter(_ context.Context, filter catalog.CatalogModelFilter, _ *query.Pagination) ([]*catalog.CatalogModel, error) {
	r.reads.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	var result []*catalog.CatalogModel
	for _, m := range r.models {
		if filter.ProviderID != nil && m.ProviderID != *filter.ProviderID {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

func (r *storeModelRepo) Count(_ context.Context, filter catalog.CatalogModelFilter) (int64, error) {
	models, _ := r.FindByFilter(context.Background(), filter, nil)
	return int64(len(models)), nil
}

type storePricingRepo struct{}

func (storePricingRepo) FindByModelIDs(context.Context, []uint) (map[uint]*catalog.PricingRecord, error) {
	return map[uint]*catalog.PricingRecord{}, nil
}

func (storePricingRepo) FindHistory(context.Context, uint, int) ([]*catalog.PricingChange, error) {
	return nil, nil
}

func (storePricingRepo) CountFlagged(context.Context) (int64, error) { return 0, nil }

func newTestCatalogCache() (*CatalogCache, *storeModelRepo) {
	modelRepo := &storeModelRepo{models: []*catalog.CatalogModel{
		{ID: 1, PublicID: "model_1", ProviderID: 1, ProviderModelID: "gpt-x", DisplayName: "GPT X"},
		{ID: 2, PublicID: "model_2", ProviderID: 1, ProviderModelID: "gpt-y", DisplayName: "GPT Y"},
		{ID: 3, PublicID: "model_3", ProviderID: 2, ProviderModelID: "gpt-x", DisplayName: "GPT X"},
	}}
	providerRepo := &storeProviderRepo{providers: []*catalog.Provider{
		{ID: 1, Slug: "alpha", Active: true},
		{ID: 2, Slug: "beta", Active: true},
	}}
	service := catalog.NewCatalogService(providerRepo, modelRepo, storePricingRepo{})
	cc := NewCatalogCache(NewMemoryKV(), NewLocalLocker(), service, time.Minute)
	return cc, modelRepo
}

func TestFullCatalog_ConcurrentMissesRebuildOnce(t *testing.T) {
	cc, modelRepo := newTestCatalogCache()

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			views, err := cc.FullCatalog(context.Background())
			if err == nil && len(views) != 3 {
				err = errors.New("wrong view count")
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("concurrent read failed: %v", err)
		}
	}
	// One page read for the single rebuild; everyone else hit the cache,
	// either before the lock or on the double check inside it.
	if got := modelRepo.reads.Load(); got != 1 {
		t.Fatalf("store reads = %d, want 1", got)
	}
}

func TestFullCatalog_ServesCachedUntilInvalidated(t *testing.T) {
	cc, modelRepo := newTestCatalogCache()
	ctx := context.Background()

	if _, err := cc.FullCatalog(ctx); err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if _, err := cc.FullCatalog(ctx); err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if got := modelRepo.reads.Load(); got != 1 {
		t.Fatalf("store reads = %d, want 1 before invalidation", got)
	}

	if err := cc.InvalidateGlobal(ctx); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, err := cc.FullCatalog(ctx); err != nil {
		t.Fatalf("read after invalidation failed: %v", err)
	}
	if got := modelRepo.reads.Load(); got != 2 {
		t.Fatalf("store reads = %d, want 2 after invalidation", got)
	}
}

func TestInvalidateProvider_CascadeDropsAggregates(t *testing.T) {
	cc, _ := newTestCatalogCache()
	ctx := context.Background()

	if _, err := cc.FullCatalog(ctx); err != nil {
		t.Fatalf("warm full catalog: %v", err)
	}
	if _, err := cc.ProviderCatalog(ctx, "alpha"); err != nil {
		t.Fatalf("warm provider catalog: %v", err)
	}

	if err := cc.InvalidateProvider(ctx, "alpha", true); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	if _, err := cc.kv.Get(ctx, KeyProvider("alpha")); !errors.Is(err, ErrCacheMiss) {
		t.Fatal("provider entry should be dropped")
	}
	if _, err := cc.kv.Get(ctx, KeyFullCatalog); !errors.Is(err, ErrCacheMiss) {
		t.Fatal("cascade should drop the full catalog entry")
	}
}

func TestInvalidateProvider_NoCascadeKeepsAggregates(t *testing.T) {
	cc, _ := newTestCatalogCache()
	ctx := context.Background()

	if _, err := cc.FullCatalog(ctx); err != nil {
		t.Fatalf("warm full catalog: %v", err)
	}
	if _, err := cc.ProviderCatalog(ctx, "alpha"); err != nil {
		t.Fatalf("warm provider catalog: %v", err)
	}

	if err := cc.InvalidateProvider(ctx, "alpha", false); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	if _, err := cc.kv.Get(ctx, KeyProvider("alpha")); !errors.Is(err, ErrCacheMiss) {
		t.Fatal("provider entry should be dropped")
	}
	if _, err := cc.kv.Get(ctx, KeyFullCatalog); err != nil {
		t.Fatal("aggregate entries must survive a non-cascading invalidation")
	}
}

func TestUniqueModelIDs_Deduplicated(t *testing.T) {
	cc, _ := newTestCatalogCache()

	ids, err := cc.UniqueModelIDs(context.Background())
	if err != nil {
		t.Fatalf("unique model ids failed: %v", err)
	}
	// gpt-x exists under both providers and must appear once.
	want := []string{"gpt-x", "gpt-y"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestStats_CountsByProvider(t *testing.T) {
	cc, _ := newTestCatalogCache()

	stats, err := cc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalModels != 3 {
		t.Fatalf("total = %d, want 3", stats.TotalModels)
	}
	if stats.ByProvider["alpha"] != 2 || stats.ByProvider["beta"] != 1 {
		t.Fatalf("by provider = %v", stats.ByProvider)
	}
}

func TestFullCatalog_BuildFailureQueriesStoreOnce(t *testing.T) {
	modelRepo := &storeModelRepo{err: errors.New("store unavailable")}
	providerRepo := &storeProviderRepo{providers: []*catalog.Provider{{ID: 1, Slug: "alpha", Active: true}}}
	service := catalog.NewCatalogService(providerRepo, modelRepo, storePricingRepo{})
	cc := NewCatalogCache(NewMemoryKV(), NewLocalLocker(), service, time.Minute)

	if _, err := cc.FullCatalog(context.Background()); err == nil {
		t.Fatal("expected rebuild error")
	}
	// A failed rebuild is terminal; it must not be retried outside the lock.
	if got := modelRepo.reads.Load(); got != 1 {
		t.Fatalf("store reads = %d, want 1", got)
	}
}

// failingLocker simulates an unreachable lock backend.
type failingLocker struct{}

func (failingLocker) WithLock(context.Context, string, time.Duration, func() error) error {
	return errors.New("lock backend unavailable")
}

func TestFullCatalog_LockFailureDegradesToStoreRead(t *testing.T) {
	modelRepo := &storeModelRepo{models: []*catalog.CatalogModel{
		{ID: 1, PublicID: "model_1", ProviderID: 1, ProviderModelID: "gpt-x"},
	}}
	providerRepo := &storeProviderRepo{providers: []*catalog.Provider{{ID: 1, Slug: "alpha", Active: true}}}
	service := catalog.NewCatalogService(providerRepo, modelRepo, storePricingRepo{})
	cc := NewCatalogCache(NewMemoryKV(), failingLocker{}, service, time.Minute)

	views, err := cc.FullCatalog(context.Background())
	if err != nil {
		t.Fatalf("read should degrade, not fail: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1", len(views))
	}

	// Nothing was cached; the next read hits the store again.
	if _, err := cc.FullCatalog(context.Background()); err != nil {
		t.Fatalf("second degraded read failed: %v", err)
	}
	if got := modelRepo.reads.Load(); got != 2 {
		t.Fatalf("store reads = %d, want 2", got)
	}
}
