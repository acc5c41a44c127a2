package catalog

import (
	"fmt"
	"strings"
)

// DefaultFreeTierAllowlist matches model ids that legitimately cost nothing.
// OpenRouter-style catalogs suffix their free tier with ":free".
var DefaultFreeTierAllowlist = []string{"*:free"}

// Normalizer maps adapter records into canonical storage records and applies
// the pricing plausibility policy. A zero price is never inferred to mean
// "free": only an explicit allow-list entry makes a 0/0 price trusted.
type Normalizer struct {
	exactFree  map[string]struct{}
	suffixFree []string
}

// NewNormalizer builds a Normalizer from the configured free-tier allow-list.
// Entries starting with "*" are suffix matches ("*:free"), all others exact.
func NewNormalizer(freeTierAllowlist []string) *Normalizer {
	if len(freeTierAllowlist) == 0 {
		freeTierAllowlist = DefaultFreeTierAllowlist
	}
	n := &Normalizer{exactFree: make(map[string]struct{})}
	for _, entry := range freeTierAllowlist {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "*") {
			n.suffixFree = append(n.suffixFree, strings.TrimPrefix(entry, "*"))
			continue
		}
		n.exactFree[entry] = struct{}{}
	}
	return n
}

// NormalizeResult reports what happened to one adapter batch.
type NormalizeResult struct {
	Records        []CanonicalModel
	Skipped        int
	PricingFlagged int
}

// NormalizeBatch converts adapter records for one provider. Malformed records
// are dropped and counted as skipped; the batch itself never fails.
func (n *Normalizer) NormalizeBatch(provider *Provider, models []NormalizedModel) NormalizeResult {
	result := NormalizeResult{Records: make([]CanonicalModel, 0, len(models))}
	for _, m := range models {
		record, err := n.normalize(provider, m)
		if err != nil {
			result.Skipped++
			continue
		}
		if record.Pricing != nil && record.Pricing.NeedsReview {
			result.PricingFlagged++
		}
		result.Records = append(result.Records, record)
	}
	return result
}

func (n *Normalizer) normalize(provider *Provider, m NormalizedModel) (CanonicalModel, error) {
	id := strings.TrimSpace(m.ID)
	if id == "" {
		return CanonicalModel{}, fmt.Errorf("model from provider %q has empty id", provider.Slug)
	}
	if m.InputTokenPrice.IsNegative() || m.OutputTokenPrice.IsNegative() {
		return CanonicalModel{}, fmt.Errorf("model %q has negative price", id)
	}
	if m.ImageTokenPrice != nil && m.ImageTokenPrice.IsNegative() {
		return CanonicalModel{}, fmt.Errorf("model %q has negative image price", id)
	}
	if m.RequestPrice != nil && m.RequestPrice.IsNegative() {
		return CanonicalModel{}, fmt.Errorf("model %q has negative request price", id)
	}

	displayName := strings.TrimSpace(m.DisplayName)
	if displayName == "" {
		displayName = id
	}
	modality := strings.TrimSpace(m.Modality)
	if modality == "" {
		modality = "text"
	}

	source := m.PricingSource
	if source == "" {
		source = provider.Slug
	}
	pricing := &PricingRecord{
		InputTokenPrice:  m.InputTokenPrice,
		OutputTokenPrice: m.OutputTokenPrice,
		ImageTokenPrice:  m.ImageTokenPrice,
		RequestPrice:     m.RequestPrice,
		Source:           source,
	}
	if pricing.IsZero() && !n.isFreeTier(id) {
		pricing.NeedsReview = true
	}

	return CanonicalModel{
		ProviderID:      provider.ID,
		ProviderModelID: id,
		DisplayName:     displayName,
		Description:     strings.TrimSpace(m.Description),
		ContextLength:   m.ContextLength,
		Modality:        modality,
		Capabilities: CapabilityFlags{
			Streaming:       m.SupportsStreaming,
			FunctionCalling: m.SupportsFunctionCalling,
			Vision:          m.SupportsVision,
		},
		Metadata: m.Metadata,
		Pricing:  pricing,
	}, nil
}

func (n *Normalizer) isFreeTier(modelID string) bool {
	if _, ok := n.exactFree[modelID]; ok {
		return true
	}
	for _, suffix := range n.suffixFree {
		if strings.HasSuffix(modelID, suffix) {
			return true
		}
	}
	return false
}
