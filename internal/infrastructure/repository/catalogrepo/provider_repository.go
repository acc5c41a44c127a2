package catalogrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/domain/query"
	"modelgate/services/catalog-api/internal/infrastructure/database/dbschema"
)

type ProviderGormRepository struct {
	db *gorm.DB
}

var _ catalog.ProviderRepository = (*ProviderGormRepository)(nil)

func NewProviderGormRepository(db *gorm.DB) *ProviderGormRepository {
	return &ProviderGormRepository{db: db}
}

func (repo *ProviderGormRepository) applyFilter(sql *gorm.DB, filter catalog.ProviderFilter) *gorm.DB {
	if filter.Slugs != nil && len(*filter.Slugs) > 0 {
		sql = sql.Where("slug IN ?", *filter.Slugs)
	}
	if filter.Active != nil {
		sql = sql.Where("active = ?", *filter.Active)
	}
	return sql
}

func (repo *ProviderGormRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Provider, error) {
	var row dbschema.Provider
	err := repo.db.WithContext(ctx).Where("slug = ?", slug).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.EtoD(), nil
}

func (repo *ProviderGormRepository) FindByFilter(ctx context.Context, filter catalog.ProviderFilter, p *query.Pagination) ([]*catalog.Provider, error) {
	sql := repo.applyFilter(repo.db.WithContext(ctx).Model(&dbschema.Provider{}), filter)
	sql = applyPagination(sql, p)

	var rows []dbschema.Provider
	if err := sql.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*catalog.Provider, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].EtoD())
	}
	return result, nil
}

func (repo *ProviderGormRepository) Count(ctx context.Context, filter catalog.ProviderFilter) (int64, error) {
	var count int64
	sql := repo.applyFilter(repo.db.WithContext(ctx).Model(&dbschema.Provider{}), filter)
	err := sql.Count(&count).Error
	return count, err
}

// Seed upserts provider registry rows by slug. Used by the dev initializer;
// production providers are managed by the platform registry.
func (repo *ProviderGormRepository) Seed(ctx context.Context, providers []*catalog.Provider) error {
	for _, p := range providers {
		row := dbschema.NewSchemaProvider(p)
		err := repo.db.WithContext(ctx).
			Where("slug = ?", p.Slug).
			Assign(map[string]any{
				"display_name": row.DisplayName,
				"active":       row.Active,
			}).
			FirstOrCreate(&dbschema.Provider{}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func applyPagination(sql *gorm.DB, p *query.Pagination) *gorm.DB {
	if p == nil {
		return sql
	}
	if p.Limit != nil && *p.Limit > 0 {
		sql = sql.Limit(*p.Limit)
	}
	if p.Offset != nil && *p.Offset >= 0 {
		sql = sql.Offset(*p.Offset)
	}
	if p.After != nil {
		if p.Order == "desc" {
			sql = sql.Where("id < ?", *p.After)
		} else {
			sql = sql.Where("id > ?", *p.After)
		}
	}
	if p.Order == "desc" {
		sql = sql.Order("id DESC")
	} else {
		sql = sql.Order("id ASC")
	}
	return sql
}
