package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"modelgate/services/catalog-api/internal/config"
	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/logger"
	"modelgate/services/catalog-api/internal/infrastructure/metrics"
	"modelgate/services/catalog-api/internal/utils/platformerrors"

	"github.com/mileusna/crontab"
)

const (
	CronJobTimeout  = 30 * time.Minute
	recentRunsLimit = 50
)

// AdapterCatalog lists the provider slugs adapters are registered for.
type AdapterCatalog interface {
	Slugs() []string
}

// Scheduler owns the periodic full-catalog sync and gates every sync entry
// point, scheduled or manual, behind one run at a time.
type Scheduler struct {
	ctab        *crontab.Crontab
	syncService *catalog.SyncService
	syncRunRepo catalog.SyncRunRepository
	adapters    AdapterCatalog

	// runGate serializes sync runs across triggers. A busy gate means a
	// scheduled tick is skipped and a manual trigger is rejected, never queued.
	runGate sync.Mutex

	mu             sync.RWMutex
	running        bool
	runScope       string
	runStarted     time.Time
	lastOutcome    *catalog.BatchSyncResult
	lastRun        time.Time
	lastSuccess    time.Time
	lastError      string
	totalRuns      uint64
	successfulRuns uint64
	failedRuns     uint64
}

func NewScheduler(syncService *catalog.SyncService, syncRunRepo catalog.SyncRunRepository, adapters AdapterCatalog) *Scheduler {
	return &Scheduler{
		ctab:        crontab.New(),
		syncService: syncService,
		syncRunRepo: syncRunRepo,
		adapters:    adapters,
	}
}

// Run starts the scheduler and blocks until ctx is cancelled. A full sync
// executes once on startup before the periodic job is scheduled.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.GetLogger()
	cfg := config.GetGlobal()

	if cfg != nil && cfg.SyncEnabled {
		s.runScheduled(ctx, catalog.TriggerStartup, cfg.SyncProviders)

		intervalHours := cfg.SyncIntervalHours
		if intervalHours <= 0 {
			intervalHours = 6
		}
		cronExpr := fmt.Sprintf("0 */%d * * *", intervalHours)
		if err := s.ctab.AddJob(cronExpr, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
			defer cancel()
			s.runScheduled(jobCtx, catalog.TriggerScheduler, cfg.SyncProviders)
		}); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to schedule catalog sync job")
		}
		log.Info().Int("interval_hours", intervalHours).Msg("catalog sync scheduled")
	} else {
		log.Warn().Msg("catalog sync disabled, scheduler idle")
	}

	<-ctx.Done()
	s.ctab.Shutdown()
	return nil
}

// runScheduled skips silently when a run is already in flight. A slow run
// overlapping the next tick must not stack a second run behind it.
func (s *Scheduler) runScheduled(ctx context.Context, trigger catalog.TriggerSource, slugs []string) {
	if !s.runGate.TryLock() {
		log := logger.GetLogger()
		log.Warn().Str("trigger", string(trigger)).Msg("sync already in progress, skipping scheduled run")
		return
	}
	defer s.runGate.Unlock()
	s.execute(ctx, trigger, slugs, false, "all")
}

// TriggerAll runs a manual batch sync. Returns SYNC_IN_PROGRESS when another
// run holds the gate.
func (s *Scheduler) TriggerAll(ctx context.Context, slugs []string, dryRun bool) (*catalog.BatchSyncResult, error) {
	if !s.runGate.TryLock() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeSyncInProgress, "a sync run is already in progress", nil, "")
	}
	defer s.runGate.Unlock()
	result := s.execute(ctx, catalog.TriggerManual, slugs, dryRun, "all")
	return result, nil
}

// TriggerProvider runs a manual single-provider sync under the same gate.
func (s *Scheduler) TriggerProvider(ctx context.Context, slug string, dryRun bool) (*catalog.SyncResult, error) {
	if !s.runGate.TryLock() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeSyncInProgress, "a sync run is already in progress", nil, "")
	}
	defer s.runGate.Unlock()

	s.markRunning("provider:" + slug)
	result := s.syncService.SyncProvider(ctx, slug, dryRun, false, catalog.TriggerManual)
	batch := &catalog.BatchSyncResult{
		Status:          result.Status,
		DurationSeconds: result.DurationSeconds,
		Providers:       []catalog.SyncResult{result},
	}
	if result.Success {
		batch.Succeeded = 1
	} else {
		batch.Failed = 1
	}
	s.markFinished(batch)
	metrics.RecordSyncRun(string(result.Status), string(catalog.TriggerManual), "provider", result.DurationSeconds)
	return &result, nil
}

func (s *Scheduler) execute(ctx context.Context, trigger catalog.TriggerSource, slugs []string, dryRun bool, scope string) *catalog.BatchSyncResult {
	s.markRunning(scope)
	result := s.syncService.SyncAll(ctx, slugs, dryRun, trigger)
	s.markFinished(&result)
	metrics.RecordSyncRun(string(result.Status), string(trigger), scope, result.DurationSeconds)
	return &result
}

func (s *Scheduler) markRunning(scope string) {
	s.mu.Lock()
	s.running = true
	s.runScope = scope
	s.runStarted = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Scheduler) markFinished(result *catalog.BatchSyncResult) {
	s.mu.Lock()
	s.running = false
	s.lastOutcome = result
	s.lastRun = time.Now().UTC()
	s.totalRuns++
	if result.Status != catalog.SyncStatusFailed {
		s.successfulRuns++
		s.lastSuccess = s.lastRun
	} else {
		s.failedRuns++
	}
	s.lastError = firstError(result)
	s.mu.Unlock()
}

// firstError picks the first per-provider error of a run, empty when every
// provider succeeded.
func firstError(result *catalog.BatchSyncResult) string {
	for _, r := range result.Providers {
		if r.Error != "" {
			return r.Error
		}
	}
	return ""
}

// Status is the snapshot served by the sync status endpoint.
type Status struct {
	Enabled        bool                     `json:"enabled"`
	Running        bool                     `json:"running"`
	IntervalHours  int                      `json:"interval_hours"`
	Providers      []string                 `json:"providers"`
	RunScope       string                   `json:"run_scope,omitempty"`
	RunStartedAt   *time.Time               `json:"run_started_at,omitempty"`
	LastRunAt      *time.Time               `json:"last_run_time,omitempty"`
	LastSuccessAt  *time.Time               `json:"last_success_time,omitempty"`
	TotalRuns      uint64                   `json:"total_runs"`
	SuccessfulRuns uint64                   `json:"successful_runs"`
	FailedRuns     uint64                   `json:"failed_runs"`
	LastError      string                   `json:"last_error,omitempty"`
	LastOutcome    *catalog.BatchSyncResult `json:"last_outcome,omitempty"`
	RecentRuns     []*catalog.SyncRun       `json:"recent_runs"`
}

func (s *Scheduler) Status(ctx context.Context) (*Status, error) {
	runs, err := s.syncRunRepo.FindRecent(ctx, recentRunsLimit)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load recent sync runs")
	}

	status := &Status{
		IntervalHours: 6,
		RecentRuns:    runs,
	}
	if cfg := config.GetGlobal(); cfg != nil {
		status.Enabled = cfg.SyncEnabled
		if cfg.SyncIntervalHours > 0 {
			status.IntervalHours = cfg.SyncIntervalHours
		}
		status.Providers = cfg.SyncProviders
	}
	// An empty configured subset means every registered provider is synced.
	if len(status.Providers) == 0 && s.adapters != nil {
		slugs := s.adapters.Slugs()
		sort.Strings(slugs)
		status.Providers = slugs
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	status.Running = s.running
	status.LastOutcome = s.lastOutcome
	status.TotalRuns = s.totalRuns
	status.SuccessfulRuns = s.successfulRuns
	status.FailedRuns = s.failedRuns
	status.LastError = s.lastError
	if s.running {
		status.RunScope = s.runScope
		started := s.runStarted
		status.RunStartedAt = &started
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		status.LastRunAt = &last
	}
	if !s.lastSuccess.IsZero() {
		last := s.lastSuccess
		status.LastSuccessAt = &last
	}
	return status, nil
}

// Health reports the sync pipeline's verdict for the health endpoint.
type Health struct {
	Healthy       bool       `json:"healthy"`
	Reason        string     `json:"reason,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	SuccessRate   float64    `json:"success_rate"`
}

// CheckHealth flags the pipeline unhealthy when no run has succeeded within
// twice the configured interval, or when fewer than half of recent runs
// succeeded.
func (s *Scheduler) CheckHealth(ctx context.Context) (*Health, error) {
	runs, err := s.syncRunRepo.FindRecent(ctx, recentRunsLimit)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load recent sync runs")
	}

	cfg := config.GetGlobal()
	interval := 6 * time.Hour
	if cfg != nil && cfg.SyncIntervalHours > 0 {
		interval = cfg.SyncInterval()
	}

	health := &Health{Healthy: true, SuccessRate: 1}

	var lastSuccess time.Time
	succeeded := 0
	completed := 0
	for _, run := range runs {
		if run.CompletedAt == nil {
			continue
		}
		completed++
		if run.Status != catalog.SyncStatusFailed {
			succeeded++
			if run.CompletedAt.After(lastSuccess) {
				lastSuccess = *run.CompletedAt
			}
		}
	}
	if completed > 0 {
		health.SuccessRate = float64(succeeded) / float64(completed)
	}
	if !lastSuccess.IsZero() {
		health.LastSuccessAt = &lastSuccess
	}

	switch {
	case completed == 0:
		// No history yet, stay healthy until the first run lands.
	case lastSuccess.IsZero() || time.Since(lastSuccess) > 2*interval:
		health.Healthy = false
		health.Reason = "no successful sync within twice the configured interval"
	case health.SuccessRate < 0.5:
		health.Healthy = false
		health.Reason = "fewer than half of recent sync runs succeeded"
	}
	return health, nil
}
