package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PricingRecord holds the per-token prices for one catalog model, one-to-one
// with CatalogModel. All prices are non-negative USD decimals per token.
type PricingRecord struct {
	ModelID          uint             `json:"model_id"`
	InputTokenPrice  decimal.Decimal  `json:"price_per_input_token"`
	OutputTokenPrice decimal.Decimal  `json:"price_per_output_token"`
	ImageTokenPrice  *decimal.Decimal `json:"price_per_image_token,omitempty"`
	RequestPrice     *decimal.Decimal `json:"price_per_request,omitempty"`
	Source           string           `json:"source"`
	// NeedsReview marks a record whose price failed plausibility checks
	// (e.g. 0/0 without a free-tier allow-list entry). Flagged records are
	// stored but must not be trusted for billing until reviewed.
	NeedsReview bool      `json:"needs_review"`
	LastUpdated time.Time `json:"last_updated"`
}

// IsZero reports whether both token prices are zero.
func (p *PricingRecord) IsZero() bool {
	return p.InputTokenPrice.IsZero() && p.OutputTokenPrice.IsZero()
}

// PricingChange is one append-only audit row recording a price transition.
// Rows are written when an upsert changes a model's prices and never mutated.
type PricingChange struct {
	ID             uint            `json:"id"`
	ModelID        uint            `json:"model_id"`
	OldInputPrice  decimal.Decimal `json:"old_input_price"`
	OldOutputPrice decimal.Decimal `json:"old_output_price"`
	NewInputPrice  decimal.Decimal `json:"new_input_price"`
	NewOutputPrice decimal.Decimal `json:"new_output_price"`
	ChangedAt      time.Time       `json:"changed_at"`
	ChangedBy      string          `json:"changed_by"`
}

// PricingRepository abstracts read access to stored pricing.
type PricingRepository interface {
	FindByModelIDs(ctx context.Context, modelIDs []uint) (map[uint]*PricingRecord, error)
	FindHistory(ctx context.Context, modelID uint, limit int) ([]*PricingChange, error)
	CountFlagged(ctx context.Context) (int64, error)
}
