package openaicompat

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"modelgate/services/catalog-api/internal/domain/catalog"
)

// Adapter lists models from any OpenAI-compatible endpoint. These endpoints
// carry no pricing, so every record goes through the zero-price policy
// downstream.
type Adapter struct {
	client *openai.Client
}

var _ catalog.ProviderAdapter = (*Adapter)(nil)

func NewAdapter(baseURL, apiKey string) *Adapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Adapter{client: openai.NewClientWithConfig(cfg)}
}

func (a *Adapter) Fetch(ctx context.Context, providerSlug string) ([]catalog.NormalizedModel, error) {
	resp, err := a.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models from %s: %w", providerSlug, err)
	}

	models := make([]catalog.NormalizedModel, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, catalog.NormalizedModel{
			ID:                m.ID,
			SupportsStreaming: true,
			PricingSource:     providerSlug,
			Metadata: map[string]any{
				"owned_by": m.OwnedBy,
				"created":  m.CreatedAt,
			},
		})
	}
	return models, nil
}
