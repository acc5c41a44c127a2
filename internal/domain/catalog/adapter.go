package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// NormalizedModel is the schema-agnostic record a provider adapter returns.
// Adapters absorb all per-provider schema variability; the core only ever
// sees this fixed shape.
type NormalizedModel struct {
	ID                      string
	DisplayName             string
	Description             string
	ContextLength           int
	Modality                string
	SupportsStreaming       bool
	SupportsFunctionCalling bool
	SupportsVision          bool
	InputTokenPrice         decimal.Decimal
	OutputTokenPrice        decimal.Decimal
	ImageTokenPrice         *decimal.Decimal
	RequestPrice            *decimal.Decimal
	PricingSource           string
	Metadata                map[string]any
}

// ProviderAdapter fetches the current model list from one upstream provider.
// Implementations are independent per upstream API and treated as opaque:
// unknown latency, unknown reliability. Fetch must honor ctx cancellation.
type ProviderAdapter interface {
	Fetch(ctx context.Context, providerSlug string) ([]NormalizedModel, error)
}

// AdapterRegistry resolves the adapter registered for a provider slug.
type AdapterRegistry interface {
	AdapterFor(slug string) (ProviderAdapter, bool)
}
