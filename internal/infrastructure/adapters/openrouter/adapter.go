package openrouter

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"resty.dev/v3"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/utils/httpclients"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Adapter lists models from an OpenRouter-style catalog endpoint, which
// carries per-token pricing as decimal strings alongside each model.
type Adapter struct {
	client *resty.Client
}

var _ catalog.ProviderAdapter = (*Adapter)(nil)

func NewAdapter(baseURL, apiKey string) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := httpclients.NewClient("OpenRouterAdapter")
	client.SetBaseURL(baseURL)
	if strings.TrimSpace(apiKey) != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &Adapter{client: client}
}

type modelsResponse struct {
	Data []modelEntry `json:"data"`
}

type modelEntry struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	ContextLength   int           `json:"context_length"`
	Architecture    *architecture `json:"architecture"`
	Pricing         *pricing      `json:"pricing"`
	SupportedParams []string      `json:"supported_parameters"`
}

type architecture struct {
	Modality        string   `json:"modality"`
	InputModalities []string `json:"input_modalities"`
}

type pricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
	Image      string `json:"image"`
	Request    string `json:"request"`
}

func (a *Adapter) Fetch(ctx context.Context, providerSlug string) ([]catalog.NormalizedModel, error) {
	var result modelsResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/models")
	if err != nil {
		return nil, fmt.Errorf("list models from %s: %w", providerSlug, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list models from %s: unexpected status %d", providerSlug, resp.StatusCode())
	}

	models := make([]catalog.NormalizedModel, 0, len(result.Data))
	for _, entry := range result.Data {
		models = append(models, a.normalize(entry, providerSlug))
	}
	return models, nil
}

func (a *Adapter) normalize(entry modelEntry, providerSlug string) catalog.NormalizedModel {
	m := catalog.NormalizedModel{
		ID:                entry.ID,
		DisplayName:       entry.Name,
		Description:       entry.Description,
		ContextLength:     entry.ContextLength,
		SupportsStreaming: true,
		PricingSource:     providerSlug,
	}

	if entry.Architecture != nil {
		if entry.Architecture.Modality != "" {
			m.Modality = entry.Architecture.Modality
		}
		for _, modality := range entry.Architecture.InputModalities {
			if modality == "image" {
				m.SupportsVision = true
			}
		}
	}
	for _, param := range entry.SupportedParams {
		if param == "tools" || param == "tool_choice" {
			m.SupportsFunctionCalling = true
		}
	}

	if entry.Pricing != nil {
		m.InputTokenPrice = parsePrice(entry.Pricing.Prompt)
		m.OutputTokenPrice = parsePrice(entry.Pricing.Completion)
		if entry.Pricing.Image != "" {
			price := parsePrice(entry.Pricing.Image)
			m.ImageTokenPrice = &price
		}
		if entry.Pricing.Request != "" {
			price := parsePrice(entry.Pricing.Request)
			m.RequestPrice = &price
		}
	}
	return m
}

// parsePrice keeps the upstream decimal string exact. Unparseable prices
// become negative so the normalizer drops the record instead of storing a
// silent zero.
func parsePrice(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NewFromInt(-1)
	}
	return price
}
