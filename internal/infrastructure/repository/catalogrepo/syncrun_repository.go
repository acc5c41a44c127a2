package catalogrepo

import (
	"context"

	"gorm.io/gorm"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/database/dbschema"
)

type SyncRunGormRepository struct {
	db *gorm.DB
}

var _ catalog.SyncRunRepository = (*SyncRunGormRepository)(nil)

func NewSyncRunGormRepository(db *gorm.DB) *SyncRunGormRepository {
	return &SyncRunGormRepository{db: db}
}

func (repo *SyncRunGormRepository) Create(ctx context.Context, run *catalog.SyncRun) error {
	row := dbschema.NewSchemaSyncRunLog(run)
	if err := repo.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	run.ID = row.ID
	return nil
}

// Finalize writes the terminal fields of a run exactly once. Rows already
// completed are left alone, keeping the log append-only.
func (repo *SyncRunGormRepository) Finalize(ctx context.Context, run *catalog.SyncRun) error {
	return repo.db.WithContext(ctx).
		Model(&dbschema.SyncRunLog{}).
		Where("id = ? AND completed_at IS NULL", run.ID).
		Updates(map[string]any{
			"completed_at":   run.CompletedAt,
			"status":         string(run.Status),
			"models_fetched": run.ModelsFetched,
			"models_written": run.ModelsWritten,
			"models_skipped": run.ModelsSkipped,
			"error_summary":  run.ErrorSummary,
			"duration_ms":    run.DurationMS,
		}).Error
}

func (repo *SyncRunGormRepository) FindRecent(ctx context.Context, limit int) ([]*catalog.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []dbschema.SyncRunLog
	err := repo.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]*catalog.SyncRun, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].EtoD())
	}
	return result, nil
}
