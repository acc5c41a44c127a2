package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/domain/query"
	"modelgate/services/catalog-api/internal/utils/platformerrors"
)

type stubProviderRepo struct {
	provider *catalog.Provider
}

func (r *stubProviderRepo) FindBySlug(_ context.Context, slug string) (*catalog.Provider, error) {
	if r.provider != nil && r.provider.Slug == slug {
		return r.provider, nil
	}
	return nil, nil
}

func (r *stubProviderRepo) FindByFilter(context.Context, catalog.ProviderFilter, *query.Pagination) ([]*catalog.Provider, error) {
	if r.provider == nil {
		return nil, nil
	}
	return []*catalog.Provider{r.provider}, nil
}

func (r *stubProviderRepo) Count(context.Context, catalog.ProviderFilter) (int64, error) {
	if r.provider == nil {
		return 0, nil
	}
	return 1, nil
}

type stubWriter struct{}

func (stubWriter) BulkUpsert(_ context.Context, records []catalog.CanonicalModel, _ string) (int, error) {
	return len(records), nil
}

type gatedAdapter struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (a *gatedAdapter) Fetch(context.Context, string) ([]catalog.NormalizedModel, error) {
	a.once.Do(func() { close(a.entered) })
	<-a.release
	return []catalog.NormalizedModel{{
		ID:               "m1",
		InputTokenPrice:  decimal.RequireFromString("0.001"),
		OutputTokenPrice: decimal.RequireFromString("0.002"),
	}}, nil
}

type stubRegistry struct {
	adapter catalog.ProviderAdapter
}

func (r *stubRegistry) AdapterFor(string) (catalog.ProviderAdapter, bool) {
	return r.adapter, r.adapter != nil
}

func (r *stubRegistry) Slugs() []string {
	if r.adapter == nil {
		return nil
	}
	return []string{"openrouter"}
}

type stubInvalidator struct{}

func (stubInvalidator) InvalidateProvider(context.Context, string, bool) error { return nil }
func (stubInvalidator) InvalidateGlobal(context.Context) error                 { return nil }

type stubSyncRunRepo struct {
	mu   sync.Mutex
	runs []*catalog.SyncRun
}

func (r *stubSyncRunRepo) Create(_ context.Context, run *catalog.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run.ID = uint(len(r.runs) + 1)
	clone := *run
	r.runs = append(r.runs, &clone)
	return nil
}

func (r *stubSyncRunRepo) Finalize(_ context.Context, run *catalog.SyncRun) error {
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

func (r *stubSyncRunRepo) FindRecent(_ context.Context, limit int) ([]*catalog.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*catalog.SyncRun, 0, len(r.runs))
	for i := len(r.runs) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, r.runs[i])
	}
	return result, nil
}

func newTestScheduler(adapter catalog.ProviderAdapter, runRepo catalog.SyncRunRepository) *Scheduler {
	registry := &stubRegistry{adapter: adapter}
	service := catalog.NewSyncService(
		&stubProviderRepo{provider: &catalog.Provider{ID: 1, Slug: "openrouter", Active: true}},
		registry,
		catalog.NewNormalizer(nil),
		catalog.NewUpsertEngine(stubWriter{}),
		runRepo,
		stubInvalidator{},
		catalog.SyncOptions{FetchTimeout: 5 * time.Second, MaxConcurrent: 1},
	)
	return NewScheduler(service, runRepo, registry)
}

func TestTriggerProvider_RejectsConcurrentRuns(t *testing.T) {
	adapter := &gatedAdapter{entered: make(chan struct{}), release: make(chan struct{})}
	s := newTestScheduler(adapter, &stubSyncRunRepo{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.TriggerProvider(context.Background(), "openrouter", false); err != nil {
			t.Errorf("first trigger failed: %v", err)
		}
	}()

	select {
	case <-adapter.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never started")
	}

	_, err := s.TriggerProvider(context.Background(), "openrouter", false)
	if err == nil {
		t.Fatal("second trigger should be rejected while the first holds the gate")
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeSyncInProgress) {
		t.Fatalf("expected SYNC_IN_PROGRESS, got %v", err)
	}

	close(adapter.release)
	<-done

	// Gate is free again once the first run completes.
	if _, err := s.TriggerProvider(context.Background(), "openrouter", true); err != nil {
		t.Fatalf("trigger after release failed: %v", err)
	}
}

func TestStatus_ReflectsLastOutcome(t *testing.T) {
	runRepo := &stubSyncRunRepo{}
	adapter := &gatedAdapter{entered: make(chan struct{}), release: make(chan struct{})}
	close(adapter.release)
	s := newTestScheduler(adapter, runRepo)

	result, err := s.TriggerProvider(context.Background(), "openrouter", false)
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("sync failed: %+v", result)
	}

	status, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Running {
		t.Fatal("no run in flight, Running must be false")
	}
	if status.LastOutcome == nil || status.LastOutcome.Succeeded != 1 {
		t.Fatalf("last outcome not recorded: %+v", status.LastOutcome)
	}
	if status.LastSuccessAt == nil || status.LastRunAt == nil {
		t.Fatal("last run and last success timestamps missing")
	}
	if status.TotalRuns != 1 || status.SuccessfulRuns != 1 || status.FailedRuns != 0 {
		t.Fatalf("counters = %d/%d/%d, want 1/1/0", status.TotalRuns, status.SuccessfulRuns, status.FailedRuns)
	}
	if status.LastError != "" {
		t.Fatalf("last error should be empty, got %q", status.LastError)
	}
	if status.IntervalHours <= 0 {
		t.Fatalf("interval hours = %d, want positive", status.IntervalHours)
	}
	if len(status.Providers) != 1 || status.Providers[0] != "openrouter" {
		t.Fatalf("providers = %v, want [openrouter]", status.Providers)
	}
	if len(status.RecentRuns) != 1 {
		t.Fatalf("expected 1 recent run, got %d", len(status.RecentRuns))
	}
}

func TestStatus_CountsFailedRunsAndKeepsLastError(t *testing.T) {
	runRepo := &stubSyncRunRepo{}
	// No adapter registered, so every trigger fails.
	s := newTestScheduler(nil, runRepo)

	if _, err := s.TriggerProvider(context.Background(), "openrouter", false); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	status, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.TotalRuns != 1 || status.FailedRuns != 1 || status.SuccessfulRuns != 0 {
		t.Fatalf("counters = %d/%d/%d, want 1/0/1", status.TotalRuns, status.SuccessfulRuns, status.FailedRuns)
	}
	if status.LastError == "" {
		t.Fatal("failed run must surface a last error")
	}
	if status.LastRunAt == nil {
		t.Fatal("failed run must still record a last run time")
	}
	if status.LastSuccessAt != nil {
		t.Fatal("no success yet, last success must be absent")
	}
}

func completedRun(id uint, status catalog.SyncStatus, completedAt time.Time) *catalog.SyncRun {
	return &catalog.SyncRun{
		ID:           id,
		ProviderSlug: "openrouter",
		StartedAt:    completedAt.Add(-time.Minute),
		CompletedAt:  &completedAt,
		Status:       status,
	}
}

func TestCheckHealth_NoHistoryIsHealthy(t *testing.T) {
	s := newTestScheduler(nil, &stubSyncRunRepo{})

	health, err := s.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if !health.Healthy {
		t.Fatalf("empty history must read healthy, got %+v", health)
	}
}

func TestCheckHealth_StaleSuccessIsUnhealthy(t *testing.T) {
	runRepo := &stubSyncRunRepo{}
	// Last success far outside twice the default six hour interval.
	runRepo.runs = append(runRepo.runs, completedRun(1, catalog.SyncStatusSuccess, time.Now().Add(-24*time.Hour)))
	s := newTestScheduler(nil, runRepo)

	health, err := s.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if health.Healthy {
		t.Fatalf("stale success must read unhealthy, got %+v", health)
	}
	if health.LastSuccessAt == nil {
		t.Fatal("last success timestamp missing")
	}
}

func TestCheckHealth_LowSuccessRateIsUnhealthy(t *testing.T) {
	runRepo := &stubSyncRunRepo{}
	now := time.Now()
	runRepo.runs = append(runRepo.runs,
		completedRun(1, catalog.SyncStatusSuccess, now.Add(-3*time.Minute)),
		completedRun(2, catalog.SyncStatusFailed, now.Add(-2*time.Minute)),
		completedRun(3, catalog.SyncStatusFailed, now.Add(-time.Minute)),
	)
	s := newTestScheduler(nil, runRepo)

	health, err := s.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if health.Healthy {
		t.Fatalf("one success out of three must read unhealthy, got %+v", health)
	}
	if health.SuccessRate < 0.3 || health.SuccessRate > 0.4 {
		t.Fatalf("success rate = %f, want 1/3", health.SuccessRate)
	}
}

func TestCheckHealth_RunningRunsAreIgnored(t *testing.T) {
	runRepo := &stubSyncRunRepo{}
	runRepo.runs = append(runRepo.runs,
		completedRun(1, catalog.SyncStatusSuccess, time.Now().Add(-time.Minute)),
		&catalog.SyncRun{ID: 2, ProviderSlug: "openrouter", StartedAt: time.Now(), Status: catalog.SyncStatusRunning},
	)
	s := newTestScheduler(nil, runRepo)

	health, err := s.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if !health.Healthy || health.SuccessRate != 1 {
		t.Fatalf("in-flight runs must not count, got %+v", health)
	}
}
