package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"modelgate/services/catalog-api/internal/infrastructure/logger"
	"modelgate/services/catalog-api/internal/infrastructure/metrics"
	"modelgate/services/catalog-api/internal/utils/idgen"
)

// CacheInvalidator is the coherency surface the orchestrator drives after a
// successful durable write. Implementations must treat failures as warnings:
// a written batch with a failed invalidation is stale, not lost.
type CacheInvalidator interface {
	InvalidateProvider(ctx context.Context, slug string, cascade bool) error
	InvalidateGlobal(ctx context.Context) error
}

// SyncResult is the per-provider outcome returned by SyncProvider and by the
// control surface.
type SyncResult struct {
	Success         bool       `json:"success"`
	Status          SyncStatus `json:"status"`
	ProviderSlug    string     `json:"provider_slug"`
	ModelsFetched   int        `json:"models_fetched"`
	ModelsWritten   int        `json:"models_written"`
	ModelsSkipped   int        `json:"models_skipped"`
	PricingFlagged  int        `json:"pricing_flagged,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	DryRun          bool       `json:"dry_run,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// BatchSyncResult aggregates a multi-provider run. It always carries the
// per-provider breakdown; a batch is never reported as one bare boolean.
type BatchSyncResult struct {
	Status          SyncStatus   `json:"status"`
	Succeeded       int          `json:"succeeded"`
	Failed          int          `json:"failed"`
	DurationSeconds float64      `json:"duration_seconds"`
	Providers       []SyncResult `json:"providers"`
}

// SyncOptions configures the orchestrator.
type SyncOptions struct {
	FetchTimeout  time.Duration
	MaxConcurrent int
}

// SyncService drives the fetch, normalize, write, invalidate pipeline for one
// provider and composes providers into batch runs.
type SyncService struct {
	providerRepo ProviderRepository
	adapters     AdapterRegistry
	normalizer   *Normalizer
	upsertEngine *UpsertEngine
	syncRunRepo  SyncRunRepository
	invalidator  CacheInvalidator
	opts         SyncOptions
}

func NewSyncService(
	providerRepo ProviderRepository,
	adapters AdapterRegistry,
	normalizer *Normalizer,
	upsertEngine *UpsertEngine,
	syncRunRepo SyncRunRepository,
	invalidator CacheInvalidator,
	opts SyncOptions,
) *SyncService {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	return &SyncService{
		providerRepo: providerRepo,
		adapters:     adapters,
		normalizer:   normalizer,
		upsertEngine: upsertEngine,
		syncRunRepo:  syncRunRepo,
		invalidator:  invalidator,
		opts:         opts,
	}
}

// SyncProvider runs the full pipeline for one provider. In batch mode the
// provider-scoped cache entry is dropped without cascading; the caller owns
// the single global invalidation for the whole batch.
func (s *SyncService) SyncProvider(ctx context.Context, slug string, dryRun, batchMode bool, triggeredBy TriggerSource) SyncResult {
	log := logger.GetLogger()
	started := time.Now()

	result := SyncResult{ProviderSlug: slug, DryRun: dryRun}

	provider, err := s.providerRepo.FindBySlug(ctx, slug)
	if err != nil {
		return s.fail(ctx, nil, result, started, fmt.Sprintf("find provider: %v", err), "store")
	}
	if provider == nil {
		return s.fail(ctx, nil, result, started, "provider not found", "not_found")
	}
	if !provider.Active {
		return s.fail(ctx, nil, result, started, "provider is inactive", "inactive")
	}

	run := &SyncRun{
		ProviderSlug: slug,
		StartedAt:    started.UTC(),
		Status:       SyncStatusRunning,
		TriggeredBy:  triggeredBy,
	}
	if publicID, err := idgen.GenerateSecureID("run", 16); err == nil {
		run.PublicID = publicID
	}
	if err := s.syncRunRepo.Create(ctx, run); err != nil {
		log.Warn().Err(err).Str("provider", slug).Msg("failed to create sync run record")
	}

	adapter, ok := s.adapters.AdapterFor(slug)
	if !ok {
		return s.fail(ctx, run, result, started, "no adapter registered for provider", "no_adapter")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	models, err := adapter.Fetch(fetchCtx, slug)
	cancel()
	if err != nil {
		return s.fail(ctx, run, result, started, fmt.Sprintf("fetch: %v", err), "fetch")
	}
	result.ModelsFetched = len(models)

	// An empty list is a soft failure: an upstream outage must not read as
	// "provider has no models" and quietly hollow out the catalog.
	if len(models) == 0 {
		log.Warn().Str("provider", slug).Msg("provider returned zero models, marking run partial")
		result.Status = SyncStatusPartial
		s.finalize(ctx, run, result, started, "provider returned zero models")
		metrics.RecordProviderSyncError(slug, "zero_models")
		return result
	}

	normalized := s.normalizer.NormalizeBatch(provider, models)
	result.ModelsSkipped = normalized.Skipped
	result.PricingFlagged = normalized.PricingFlagged
	if normalized.PricingFlagged > 0 {
		metrics.RecordPricingAnomaly(slug, "needs_review")
	}
	if len(normalized.Records) == 0 {
		return s.fail(ctx, run, result, started, "all fetched records failed normalization", "normalize")
	}

	if dryRun {
		result.Success = true
		result.Status = SyncStatusSuccess
		result.DurationSeconds = time.Since(started).Seconds()
		log.Info().
			Str("provider", slug).
			Int("fetched", result.ModelsFetched).
			Int("skipped", result.ModelsSkipped).
			Msg("dry run complete, nothing written")
		s.finalize(ctx, run, result, started, "")
		return result
	}

	upsert, err := s.upsertEngine.Upsert(ctx, normalized.Records, string(triggeredBy))
	if err != nil {
		return s.fail(ctx, run, result, started, fmt.Sprintf("upsert: %v", err), "store")
	}
	result.ModelsWritten = upsert.Written
	result.ModelsSkipped += upsert.Dropped

	// Invalidate immediately after the write so the eventual-consistency
	// window stays bounded. Cache failures degrade to TTL staleness only.
	if err := s.invalidator.InvalidateProvider(ctx, slug, !batchMode); err != nil {
		log.Warn().Err(err).Str("provider", slug).Msg("cache invalidation failed after successful write")
		metrics.RecordCacheOperation("invalidate_provider", "error")
	}

	result.Success = true
	result.Status = SyncStatusSuccess
	if result.ModelsSkipped > 0 {
		result.Status = SyncStatusPartial
	}
	result.DurationSeconds = time.Since(started).Seconds()
	s.finalize(ctx, run, result, started, "")

	metrics.RecordProviderSynced(slug, result.ModelsWritten, time.Now().Unix())
	log.Info().
		Str("provider", slug).
		Int("fetched", result.ModelsFetched).
		Int("written", result.ModelsWritten).
		Int("skipped", result.ModelsSkipped).
		Float64("duration_seconds", result.DurationSeconds).
		Msg("provider sync complete")
	return result
}

// SyncAll syncs every requested provider with bounded concurrency. One
// provider's failure never aborts the others; exactly one global invalidation
// is issued when at least one provider wrote successfully.
func (s *SyncService) SyncAll(ctx context.Context, slugs []string, dryRun bool, triggeredBy TriggerSource) BatchSyncResult {
	log := logger.GetLogger()
	started := time.Now()

	if len(slugs) == 0 {
		providers, err := s.activeProviderSlugs(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to list providers for batch sync")
			return BatchSyncResult{Status: SyncStatusFailed, DurationSeconds: time.Since(started).Seconds()}
		}
		slugs = providers
	}

	results := make([]SyncResult, len(slugs))
	sem := make(chan struct{}, s.opts.MaxConcurrent)
	var wg sync.WaitGroup
	for i, slug := range slugs {
		wg.Add(1)
		go func(i int, slug string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.SyncProvider(ctx, slug, dryRun, true, triggeredBy)
		}(i, slug)
	}
	wg.Wait()

	batch := BatchSyncResult{Providers: results}
	anyWrote := false
	for _, r := range results {
		if r.Success {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
		if r.ModelsWritten > 0 {
			anyWrote = true
		}
	}

	// One global invalidation per batch, not one per provider.
	if anyWrote && !dryRun {
		if err := s.invalidator.InvalidateGlobal(ctx); err != nil {
			log.Warn().Err(err).Msg("global cache invalidation failed after batch sync")
			metrics.RecordCacheOperation("invalidate_global", "error")
		}
	}

	switch {
	case batch.Failed == 0 && batch.Succeeded > 0:
		batch.Status = SyncStatusSuccess
	case batch.Succeeded == 0:
		batch.Status = SyncStatusFailed
	default:
		batch.Status = SyncStatusPartial
	}
	batch.DurationSeconds = time.Since(started).Seconds()

	log.Info().
		Int("providers", len(slugs)).
		Int("succeeded", batch.Succeeded).
		Int("failed", batch.Failed).
		Str("status", string(batch.Status)).
		Float64("duration_seconds", batch.DurationSeconds).
		Msg("batch sync complete")
	return batch
}

func (s *SyncService) activeProviderSlugs(ctx context.Context) ([]string, error) {
	active := true
	providers, err := s.providerRepo.FindByFilter(ctx, ProviderFilter{Active: &active}, nil)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(providers))
	for _, p := range providers {
		slugs = append(slugs, p.Slug)
	}
	return slugs, nil
}

func (s *SyncService) fail(ctx context.Context, run *SyncRun, result SyncResult, started time.Time, errSummary, errType string) SyncResult {
	log := logger.GetLogger()
	result.Success = false
	result.Status = SyncStatusFailed
	result.Error = errSummary
	result.DurationSeconds = time.Since(started).Seconds()
	metrics.RecordProviderSyncError(result.ProviderSlug, errType)
	log.Error().
		Str("provider", result.ProviderSlug).
		Str("error_type", errType).
		Str("error", errSummary).
		Msg("provider sync failed")
	if run != nil {
		s.finalize(ctx, run, result, started, errSummary)
	}
	return result
}

func (s *SyncService) finalize(ctx context.Context, run *SyncRun, result SyncResult, started time.Time, errSummary string) {
	if run == nil || run.ID == 0 {
		return
	}
	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Status = result.Status
	run.ModelsFetched = result.ModelsFetched
	run.ModelsWritten = result.ModelsWritten
	run.ModelsSkipped = result.ModelsSkipped
	run.ErrorSummary = errSummary
	run.DurationMS = time.Since(started).Milliseconds()
	if err := s.syncRunRepo.Finalize(ctx, run); err != nil {
		log := logger.GetLogger()
		log.Warn().Err(err).Str("provider", run.ProviderSlug).Msg("failed to finalize sync run record")
	}
}
