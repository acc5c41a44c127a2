package catalog

import (
	"context"
	"time"

	"modelgate/services/catalog-api/internal/domain/query"
)

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthUnknown  HealthStatus = "unknown"
)

// CapabilityFlags describes what a model supports.
type CapabilityFlags struct {
	Streaming       bool `json:"streaming"`
	FunctionCalling bool `json:"function_calling"`
	Vision          bool `json:"vision"`
}

// CatalogModel is the canonical stored representation of one provider model.
// (ProviderID, ProviderModelID) is the idempotency key: one row per pair,
// overwritten wholesale on every successful sync, never hard-deleted here.
type CatalogModel struct {
	ID              uint            `json:"id"`
	PublicID        string          `json:"public_id"`
	ProviderID      uint            `json:"provider_id"`
	ProviderModelID string          `json:"provider_model_id"`
	DisplayName     string          `json:"display_name"`
	Description     string          `json:"description,omitempty"`
	ContextLength   int             `json:"context_length"`
	Modality        string          `json:"modality"`
	Capabilities    CapabilityFlags `json:"capability_flags"`
	Active          bool            `json:"is_active"`
	HealthStatus    HealthStatus    `json:"health_status"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CatalogModelFilter defines optional conditions for querying catalog models.
type CatalogModelFilter struct {
	IDs             *[]uint
	ProviderID      *uint
	ProviderIDs     *[]uint
	ProviderModelID *string
	Active          *bool
}

// CatalogModelRepository abstracts read access to stored catalog models.
// Reads of large catalogs must be paginated; providers can return 20k+ models.
type CatalogModelRepository interface {
	FindByFilter(ctx context.Context, filter CatalogModelFilter, p *query.Pagination) ([]*CatalogModel, error)
	Count(ctx context.Context, filter CatalogModelFilter) (int64, error)
}
