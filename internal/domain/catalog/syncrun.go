package catalog

import (
	"context"
	"time"
)

type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
	SyncStatusPartial SyncStatus = "partial"
)

type TriggerSource string

const (
	TriggerScheduler TriggerSource = "scheduler"
	TriggerManual    TriggerSource = "manual"
	TriggerStartup   TriggerSource = "startup"
)

// SyncRun is one append-only log row for a single provider sync attempt.
// Created at run start, finalized exactly once at run end, never mutated after.
type SyncRun struct {
	ID            uint          `json:"id"`
	PublicID      string        `json:"public_id"`
	ProviderSlug  string        `json:"provider_slug"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	Status        SyncStatus    `json:"status"`
	ModelsFetched int           `json:"models_fetched"`
	ModelsWritten int           `json:"models_written"`
	ModelsSkipped int           `json:"models_skipped"`
	ErrorSummary  string        `json:"error_summary,omitempty"`
	TriggeredBy   TriggerSource `json:"triggered_by"`
	DurationMS    int64         `json:"duration_ms"`
}

// SyncRunRepository abstracts persistence for the sync run log.
type SyncRunRepository interface {
	Create(ctx context.Context, run *SyncRun) error
	Finalize(ctx context.Context, run *SyncRun) error
	FindRecent(ctx context.Context, limit int) ([]*SyncRun, error)
}
