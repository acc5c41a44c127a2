package dbschema

import (
	"time"

	"github.com/shopspring/decimal"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(ModelPricing{}, PricingHistory{})
}

type ModelPricing struct {
	BaseModel
	ModelID          uint             `gorm:"not null;uniqueIndex"`
	InputTokenPrice  decimal.Decimal  `gorm:"type:numeric(24,12);not null"`
	OutputTokenPrice decimal.Decimal  `gorm:"type:numeric(24,12);not null"`
	ImageTokenPrice  *decimal.Decimal `gorm:"type:numeric(24,12)"`
	RequestPrice     *decimal.Decimal `gorm:"type:numeric(24,12)"`
	Source           string           `gorm:"size:64;not null"`
	NeedsReview      *bool            `gorm:"not null;default:false;index"`
	LastUpdated      time.Time        `gorm:"not null"`
}

func NewSchemaModelPricing(p *catalog.PricingRecord) *ModelPricing {
	if p == nil {
		return nil
	}
	needsReview := p.NeedsReview
	return &ModelPricing{
		ModelID:          p.ModelID,
		InputTokenPrice:  p.InputTokenPrice,
		OutputTokenPrice: p.OutputTokenPrice,
		ImageTokenPrice:  p.ImageTokenPrice,
		RequestPrice:     p.RequestPrice,
		Source:           p.Source,
		NeedsReview:      &needsReview,
		LastUpdated:      p.LastUpdated,
	}
}

// EtoD converts a database pricing row into its domain representation.
func (p *ModelPricing) EtoD() *catalog.PricingRecord {
	needsReview := false
	if p.NeedsReview != nil {
		needsReview = *p.NeedsReview
	}
	return &catalog.PricingRecord{
		ModelID:          p.ModelID,
		InputTokenPrice:  p.InputTokenPrice,
		OutputTokenPrice: p.OutputTokenPrice,
		ImageTokenPrice:  p.ImageTokenPrice,
		RequestPrice:     p.RequestPrice,
		Source:           p.Source,
		NeedsReview:      needsReview,
		LastUpdated:      p.LastUpdated,
	}
}

// PricingHistory rows are insert-only. No UpdatedAt, never mutated.
type PricingHistory struct {
	ID             uint            `gorm:"primarykey"`
	ModelID        uint            `gorm:"not null;index"`
	OldInputPrice  decimal.Decimal `gorm:"type:numeric(24,12);not null"`
	OldOutputPrice decimal.Decimal `gorm:"type:numeric(24,12);not null"`
	NewInputPrice  decimal.Decimal `gorm:"type:numeric(24,12);not null"`
	NewOutputPrice decimal.Decimal `gorm:"type:numeric(24,12);not null"`
	ChangedAt      time.Time       `gorm:"not null;index"`
	ChangedBy      string          `gorm:"size:64;not null"`
}

// EtoD converts a database history row into its domain representation.
func (h *PricingHistory) EtoD() *catalog.PricingChange {
	return &catalog.PricingChange{
		ID:             h.ID,
		ModelID:        h.ModelID,
		OldInputPrice:  h.OldInputPrice,
		OldOutputPrice: h.OldOutputPrice,
		NewInputPrice:  h.NewInputPrice,
		NewOutputPrice: h.NewOutputPrice,
		ChangedAt:      h.ChangedAt,
		ChangedBy:      h.ChangedBy,
	}
}
