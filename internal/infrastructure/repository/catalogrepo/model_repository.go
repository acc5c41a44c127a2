package catalogrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/domain/query"
	"modelgate/services/catalog-api/internal/infrastructure/database/dbschema"
	"modelgate/services/catalog-api/internal/utils/idgen"
	"modelgate/services/catalog-api/internal/utils/ptr"
)

const upsertBatchSize = 500

// modelUpdateColumns are the columns a sync overwrites on conflict. Active
// and health_status are operator-managed and survive resyncs untouched.
var modelUpdateColumns = []string{
	"display_name",
	"description",
	"context_length",
	"modality",
	"supports_streaming",
	"supports_function_calling",
	"supports_vision",
	"metadata",
	"updated_at",
}

var pricingUpdateColumns = []string{
	"input_token_price",
	"output_token_price",
	"image_token_price",
	"request_price",
	"source",
	"needs_review",
	"last_updated",
	"updated_at",
}

type ModelGormRepository struct {
	db *gorm.DB
}

var (
	_ catalog.CatalogModelRepository = (*ModelGormRepository)(nil)
	_ catalog.CatalogWriter          = (*ModelGormRepository)(nil)
)

func NewModelGormRepository(db *gorm.DB) *ModelGormRepository {
	return &ModelGormRepository{db: db}
}

func (repo *ModelGormRepository) applyFilter(sql *gorm.DB, filter catalog.CatalogModelFilter) *gorm.DB {
	if filter.IDs != nil && len(*filter.IDs) > 0 {
		sql = sql.Where("id IN ?", *filter.IDs)
	}
	if filter.ProviderID != nil {
		sql = sql.Where("provider_id = ?", *filter.ProviderID)
	}
	if filter.ProviderIDs != nil && len(*filter.ProviderIDs) > 0 {
		sql = sql.Where("provider_id IN ?", *filter.ProviderIDs)
	}
	if filter.ProviderModelID != nil {
		sql = sql.Where("provider_model_id = ?", *filter.ProviderModelID)
	}
	if filter.Active != nil {
		sql = sql.Where("active = ?", *filter.Active)
	}
	return sql
}

func (repo *ModelGormRepository) FindByFilter(ctx context.Context, filter catalog.CatalogModelFilter, p *query.Pagination) ([]*catalog.CatalogModel, error) {
	sql := repo.applyFilter(repo.db.WithContext(ctx).Model(&dbschema.Model{}), filter)
	sql = applyPagination(sql, p)

	var rows []dbschema.Model
	if err := sql.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*catalog.CatalogModel, 0, len(rows))
	for i := range rows {
		domainItem, err := rows[i].EtoD()
		if err != nil {
			return nil, err
		}
		result = append(result, domainItem)
	}
	return result, nil
}

func (repo *ModelGormRepository) Count(ctx context.Context, filter catalog.CatalogModelFilter) (int64, error) {
	var count int64
	sql := repo.applyFilter(repo.db.WithContext(ctx).Model(&dbschema.Model{}), filter)
	err := sql.Count(&count).Error
	return count, err
}

// BulkUpsert writes a deduplicated batch in one transaction. Conflicts on
// (provider_id, provider_model_id) overwrite the synced columns in place, so
// replaying the same batch is a no-op beyond updated_at. Pricing rows are
// upserted alongside and every price transition lands in the history table.
func (repo *ModelGormRepository) BulkUpsert(ctx context.Context, records []catalog.CanonicalModel, changedBy string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	written := 0
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := make([]dbschema.Model, 0, len(records))
		for _, r := range records {
			publicID, err := idgen.GenerateSecureID("model", 16)
			if err != nil {
				return fmt.Errorf("generate model public id: %w", err)
			}

			var metadataJSON datatypes.JSON
			if r.Metadata != nil {
				data, err := json.Marshal(r.Metadata)
				if err != nil {
					return fmt.Errorf("marshal metadata for %s: %w", r.ProviderModelID, err)
				}
				metadataJSON = datatypes.JSON(data)
			}

			rows = append(rows, dbschema.Model{
				PublicID:                publicID,
				ProviderID:              r.ProviderID,
				ProviderModelID:         r.ProviderModelID,
				DisplayName:             r.DisplayName,
				Description:             r.Description,
				ContextLength:           r.ContextLength,
				Modality:                r.Modality,
				SupportsStreaming:       ptr.ToBool(r.Capabilities.Streaming),
				SupportsFunctionCalling: ptr.ToBool(r.Capabilities.FunctionCalling),
				SupportsVision:          ptr.ToBool(r.Capabilities.Vision),
				Active:                  ptr.ToBool(true),
				HealthStatus:            string(catalog.HealthUnknown),
				Metadata:                metadataJSON,
			})
		}

		onConflict := clause.OnConflict{
			Columns: []clause.Column{
				{Name: "provider_id"},
				{Name: "provider_model_id"},
			},
			DoUpdates: clause.AssignmentColumns(modelUpdateColumns),
		}
		if err := tx.Clauses(onConflict).CreateInBatches(&rows, upsertBatchSize).Error; err != nil {
			return fmt.Errorf("upsert models: %w", err)
		}
		written = len(rows)

		return repo.upsertPricing(tx, records, rows, changedBy)
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (repo *ModelGormRepository) upsertPricing(tx *gorm.DB, records []catalog.CanonicalModel, rows []dbschema.Model, changedBy string) error {
	modelIDs := make([]uint, 0, len(records))
	for i, r := range records {
		if r.Pricing != nil {
			modelIDs = append(modelIDs, rows[i].ID)
		}
	}
	if len(modelIDs) == 0 {
		return nil
	}

	var existing []dbschema.ModelPricing
	if err := tx.Where("model_id IN ?", modelIDs).Find(&existing).Error; err != nil {
		return fmt.Errorf("load existing pricing: %w", err)
	}
	existingByModel := make(map[uint]*dbschema.ModelPricing, len(existing))
	for i := range existing {
		existingByModel[existing[i].ModelID] = &existing[i]
	}

	now := time.Now().UTC()
	pricingRows := make([]dbschema.ModelPricing, 0, len(modelIDs))
	var history []dbschema.PricingHistory
	for i, r := range records {
		if r.Pricing == nil {
			continue
		}
		record := *r.Pricing
		record.ModelID = rows[i].ID
		record.LastUpdated = now
		pricingRows = append(pricingRows, *dbschema.NewSchemaModelPricing(&record))

		if old, ok := existingByModel[record.ModelID]; ok {
			if !old.InputTokenPrice.Equal(record.InputTokenPrice) || !old.OutputTokenPrice.Equal(record.OutputTokenPrice) {
				history = append(history, dbschema.PricingHistory{
					ModelID:        record.ModelID,
					OldInputPrice:  old.InputTokenPrice,
					OldOutputPrice: old.OutputTokenPrice,
					NewInputPrice:  record.InputTokenPrice,
					NewOutputPrice: record.OutputTokenPrice,
					ChangedAt:      now,
					ChangedBy:      changedBy,
				})
			}
		}
	}

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "model_id"}},
		DoUpdates: clause.AssignmentColumns(pricingUpdateColumns),
	}
	if err := tx.Clauses(onConflict).CreateInBatches(&pricingRows, upsertBatchSize).Error; err != nil {
		return fmt.Errorf("upsert pricing: %w", err)
	}
	if len(history) > 0 {
		if err := tx.CreateInBatches(&history, upsertBatchSize).Error; err != nil {
			return fmt.Errorf("append pricing history: %w", err)
		}
	}
	return nil
}
