package dbschema

import (
	"time"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(SyncRunLog{})
}

// SyncRunLog is append-only: created at run start, finalized once, never
// updated after CompletedAt is set.
type SyncRunLog struct {
	BaseModel
	PublicID      string     `gorm:"size:64;uniqueIndex"`
	ProviderSlug  string     `gorm:"size:64;not null;index"`
	StartedAt     time.Time  `gorm:"not null;index"`
	CompletedAt   *time.Time `gorm:"index"`
	Status        string     `gorm:"size:16;not null;default:'running'"`
	ModelsFetched int        `gorm:"not null;default:0"`
	ModelsWritten int        `gorm:"not null;default:0"`
	ModelsSkipped int        `gorm:"not null;default:0"`
	ErrorSummary  string     `gorm:"type:text"`
	TriggeredBy   string     `gorm:"size:16;not null"`
	DurationMS    int64      `gorm:"not null;default:0"`
}

func NewSchemaSyncRunLog(r *catalog.SyncRun) *SyncRunLog {
	if r == nil {
		return nil
	}
	return &SyncRunLog{
		BaseModel: BaseModel{
			ID: r.ID,
		},
		PublicID:      r.PublicID,
		ProviderSlug:  r.ProviderSlug,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
		Status:        string(r.Status),
		ModelsFetched: r.ModelsFetched,
		ModelsWritten: r.ModelsWritten,
		ModelsSkipped: r.ModelsSkipped,
		ErrorSummary:  r.ErrorSummary,
		TriggeredBy:   string(r.TriggeredBy),
		DurationMS:    r.DurationMS,
	}
}

// EtoD converts a database run row into its domain representation.
func (r *SyncRunLog) EtoD() *catalog.SyncRun {
	return &catalog.SyncRun{
		ID:            r.ID,
		PublicID:      r.PublicID,
		ProviderSlug:  r.ProviderSlug,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
		Status:        catalog.SyncStatus(r.Status),
		ModelsFetched: r.ModelsFetched,
		ModelsWritten: r.ModelsWritten,
		ModelsSkipped: r.ModelsSkipped,
		ErrorSummary:  r.ErrorSummary,
		TriggeredBy:   catalog.TriggerSource(r.TriggeredBy),
		DurationMS:    r.DurationMS,
	}
}
