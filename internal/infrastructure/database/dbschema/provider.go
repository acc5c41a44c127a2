package dbschema

import (
	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Provider{})
}

type Provider struct {
	BaseModel
	Slug        string `gorm:"size:64;not null;uniqueIndex"`
	DisplayName string `gorm:"size:255;not null"`
	Active      *bool  `gorm:"not null;default:true;index"`
}

func NewSchemaProvider(p *catalog.Provider) *Provider {
	if p == nil {
		return nil
	}
	active := p.Active
	return &Provider{
		BaseModel: BaseModel{
			ID:        p.ID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
		Slug:        p.Slug,
		DisplayName: p.DisplayName,
		Active:      &active,
	}
}

// EtoD converts a database provider into its domain representation.
func (p *Provider) EtoD() *catalog.Provider {
	active := false
	if p.Active != nil {
		active = *p.Active
	}
	return &catalog.Provider{
		ID:          p.ID,
		Slug:        p.Slug,
		DisplayName: p.DisplayName,
		Active:      active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
