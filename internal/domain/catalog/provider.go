package catalog

import (
	"context"
	"time"

	"modelgate/services/catalog-api/internal/domain/query"
)

// Provider identifies one upstream model provider. Provider rows are owned by
// the external provider registry; this engine only reads them.
type Provider struct {
	ID          uint      `json:"id"`
	Slug        string    `json:"slug"`
	DisplayName string    `json:"display_name"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProviderFilter defines optional conditions for querying providers.
type ProviderFilter struct {
	Slugs  *[]string
	Active *bool
}

// ProviderRepository abstracts read access to the provider registry.
type ProviderRepository interface {
	FindBySlug(ctx context.Context, slug string) (*Provider, error)
	FindByFilter(ctx context.Context, filter ProviderFilter, p *query.Pagination) ([]*Provider, error)
	Count(ctx context.Context, filter ProviderFilter) (int64, error)
}
