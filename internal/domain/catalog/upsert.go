package catalog

import (
	"context"

	"modelgate/services/catalog-api/internal/infrastructure/logger"
	"modelgate/services/catalog-api/internal/utils/platformerrors"
)

// CanonicalModel is one normalized record ready for storage: the catalog row
// plus its pricing, keyed by (ProviderID, ProviderModelID).
type CanonicalModel struct {
	ProviderID      uint
	ProviderModelID string
	DisplayName     string
	Description     string
	ContextLength   int
	Modality        string
	Capabilities    CapabilityFlags
	Metadata        map[string]any
	Pricing         *PricingRecord
}

// CatalogWriter persists a deduplicated batch in a single transaction.
// The write must be all-or-nothing: a store error leaves no partial commit.
type CatalogWriter interface {
	BulkUpsert(ctx context.Context, records []CanonicalModel, changedBy string) (int, error)
}

// UpsertResult reports the outcome of one Upsert call.
type UpsertResult struct {
	Written           int
	DuplicatesRemoved int
	Dropped           int
}

// UpsertEngine writes canonical batches idempotently. Calling Upsert twice
// with the same input yields the same stored state.
type UpsertEngine struct {
	writer CatalogWriter
}

func NewUpsertEngine(writer CatalogWriter) *UpsertEngine {
	return &UpsertEngine{writer: writer}
}

// Upsert validates, deduplicates, and bulk-writes a batch. Records missing
// their identity key are dropped with a warning count, not an error. When the
// batch contains two records with the same (provider_id, provider_model_id),
// the last occurrence wins.
func (e *UpsertEngine) Upsert(ctx context.Context, records []CanonicalModel, changedBy string) (UpsertResult, error) {
	log := logger.GetLogger()
	result := UpsertResult{}

	valid := make([]CanonicalModel, 0, len(records))
	for _, r := range records {
		if r.ProviderID == 0 || r.ProviderModelID == "" {
			result.Dropped++
			continue
		}
		valid = append(valid, r)
	}
	if result.Dropped > 0 {
		log.Warn().Int("dropped", result.Dropped).Msg("dropped records missing identity key")
	}

	deduped := dedupeLastWins(valid)
	result.DuplicatesRemoved = len(valid) - len(deduped)

	if len(deduped) == 0 {
		return result, nil
	}

	written, err := e.writer.BulkUpsert(ctx, deduped, changedBy)
	if err != nil {
		return result, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "bulk upsert failed")
	}
	result.Written = written
	return result, nil
}

// dedupeLastWins keeps the last occurrence of each identity key, preserving
// the relative order of the surviving records.
func dedupeLastWins(records []CanonicalModel) []CanonicalModel {
	type key struct {
		providerID uint
		modelID    string
	}
	lastIndex := make(map[key]int, len(records))
	for i, r := range records {
		lastIndex[key{r.ProviderID, r.ProviderModelID}] = i
	}
	deduped := make([]CanonicalModel, 0, len(lastIndex))
	for i, r := range records {
		if lastIndex[key{r.ProviderID, r.ProviderModelID}] == i {
			deduped = append(deduped, r)
		}
	}
	return deduped
}
