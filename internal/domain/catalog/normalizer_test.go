package catalog_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"modelgate/services/catalog-api/internal/domain/catalog"
)

func testProvider() *catalog.Provider {
	return &catalog.Provider{ID: 1, Slug: "openrouter", DisplayName: "OpenRouter", Active: true}
}

func TestNormalizeBatch_DropsMalformedRecords(t *testing.T) {
	n := catalog.NewNormalizer(nil)
	models := []catalog.NormalizedModel{
		{ID: "good/model", InputTokenPrice: decimal.RequireFromString("0.001"), OutputTokenPrice: decimal.RequireFromString("0.002")},
		{ID: "   "},
		{ID: "negative/model", InputTokenPrice: decimal.NewFromInt(-1)},
	}

	result := n.NormalizeBatch(testProvider(), models)

	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}
	if result.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", result.Skipped)
	}
	if result.Records[0].ProviderModelID != "good/model" {
		t.Fatalf("unexpected surviving record %q", result.Records[0].ProviderModelID)
	}
}

func TestNormalizeBatch_ZeroPricePolicy(t *testing.T) {
	tests := []struct {
		name        string
		allowlist   []string
		modelID     string
		wantFlagged bool
	}{
		{
			name:        "default suffix allowlist trusts :free models",
			allowlist:   nil,
			modelID:     "meta/llama-3-8b:free",
			wantFlagged: false,
		},
		{
			name:        "zero price without allowlist entry is flagged",
			allowlist:   nil,
			modelID:     "acme/paid-model",
			wantFlagged: true,
		},
		{
			name:        "exact allowlist entry trusts the model",
			allowlist:   []string{"acme/community-model"},
			modelID:     "acme/community-model",
			wantFlagged: false,
		},
		{
			name:        "custom suffix entry",
			allowlist:   []string{"*-trial"},
			modelID:     "acme/model-trial",
			wantFlagged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := catalog.NewNormalizer(tt.allowlist)
			result := n.NormalizeBatch(testProvider(), []catalog.NormalizedModel{{ID: tt.modelID}})

			if len(result.Records) != 1 {
				t.Fatalf("expected 1 record, got %d", len(result.Records))
			}
			record := result.Records[0]
			if record.Pricing == nil {
				t.Fatal("expected pricing record")
			}
			if record.Pricing.NeedsReview != tt.wantFlagged {
				t.Fatalf("NeedsReview = %v, want %v", record.Pricing.NeedsReview, tt.wantFlagged)
			}
			wantFlagCount := 0
			if tt.wantFlagged {
				wantFlagCount = 1
			}
			if result.PricingFlagged != wantFlagCount {
				t.Fatalf("PricingFlagged = %d, want %d", result.PricingFlagged, wantFlagCount)
			}
		})
	}
}

func TestNormalizeBatch_Defaults(t *testing.T) {
	n := catalog.NewNormalizer(nil)
	result := n.NormalizeBatch(testProvider(), []catalog.NormalizedModel{
		{ID: "acme/model", InputTokenPrice: decimal.RequireFromString("0.001"), OutputTokenPrice: decimal.RequireFromString("0.002")},
	})

	record := result.Records[0]
	if record.DisplayName != "acme/model" {
		t.Fatalf("expected display name to default to id, got %q", record.DisplayName)
	}
	if record.Modality != "text" {
		t.Fatalf("expected modality to default to text, got %q", record.Modality)
	}
	if record.Pricing.Source != "openrouter" {
		t.Fatalf("expected pricing source to default to provider slug, got %q", record.Pricing.Source)
	}
	if record.ProviderID != 1 {
		t.Fatalf("expected provider id 1, got %d", record.ProviderID)
	}
}

func TestNormalizeBatch_NonZeroPriceIsNotFlagged(t *testing.T) {
	n := catalog.NewNormalizer(nil)
	result := n.NormalizeBatch(testProvider(), []catalog.NormalizedModel{
		{ID: "acme/model", InputTokenPrice: decimal.RequireFromString("0.000001"), OutputTokenPrice: decimal.Zero},
	})

	if result.Records[0].Pricing.NeedsReview {
		t.Fatal("record with a non-zero input price must not be flagged")
	}
}
