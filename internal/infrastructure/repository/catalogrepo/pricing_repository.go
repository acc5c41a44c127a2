package catalogrepo

import (
	"context"

	"gorm.io/gorm"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/database/dbschema"
)

type PricingGormRepository struct {
	db *gorm.DB
}

var _ catalog.PricingRepository = (*PricingGormRepository)(nil)

func NewPricingGormRepository(db *gorm.DB) *PricingGormRepository {
	return &PricingGormRepository{db: db}
}

func (repo *PricingGormRepository) FindByModelIDs(ctx context.Context, modelIDs []uint) (map[uint]*catalog.PricingRecord, error) {
	result := make(map[uint]*catalog.PricingRecord, len(modelIDs))
	if len(modelIDs) == 0 {
		return result, nil
	}

	var rows []dbschema.ModelPricing
	if err := repo.db.WithContext(ctx).Where("model_id IN ?", modelIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		record := rows[i].EtoD()
		result[record.ModelID] = record
	}
	return result, nil
}

func (repo *PricingGormRepository) FindHistory(ctx context.Context, modelID uint, limit int) ([]*catalog.PricingChange, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []dbschema.PricingHistory
	err := repo.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("changed_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]*catalog.PricingChange, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].EtoD())
	}
	return result, nil
}

func (repo *PricingGormRepository) CountFlagged(ctx context.Context) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&dbschema.ModelPricing{}).
		Where("needs_review = ?", true).
		Count(&count).Error
	return count, err
}
