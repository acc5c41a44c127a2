package catalog

import (
	"context"
	"sort"
	"time"

	"modelgate/services/catalog-api/internal/domain/query"
	"modelgate/services/catalog-api/internal/utils/platformerrors"
	"modelgate/services/catalog-api/internal/utils/ptr"
)

// readPageSize bounds every store read during a catalog rebuild. Some
// providers carry 20k+ models; a single unbounded read is never issued.
const readPageSize = 1000

// PricingView is the serialized pricing slice of a catalog view.
type PricingView struct {
	InputTokenPrice  string  `json:"price_per_input_token"`
	OutputTokenPrice string  `json:"price_per_output_token"`
	ImageTokenPrice  *string `json:"price_per_image_token,omitempty"`
	RequestPrice     *string `json:"price_per_request,omitempty"`
	Source           string  `json:"source"`
	NeedsReview      bool    `json:"needs_review"`
}

// ModelView is the read-optimized joined view cached and served to callers.
type ModelView struct {
	PublicID        string          `json:"public_id"`
	Provider        string          `json:"provider"`
	ProviderModelID string          `json:"provider_model_id"`
	DisplayName     string          `json:"display_name"`
	Description     string          `json:"description,omitempty"`
	ContextLength   int             `json:"context_length"`
	Modality        string          `json:"modality"`
	Capabilities    CapabilityFlags `json:"capability_flags"`
	Active          bool            `json:"is_active"`
	HealthStatus    HealthStatus    `json:"health_status"`
	Pricing         *PricingView    `json:"pricing,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CatalogStats is the pre-aggregated stats view cached under catalog:stats.
type CatalogStats struct {
	TotalModels    int64            `json:"total_models"`
	ActiveModels   int64            `json:"active_models"`
	FlaggedPricing int64            `json:"flagged_pricing"`
	ByProvider     map[string]int64 `json:"models_by_provider"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// CatalogService assembles read views from the durable store. It is the
// rebuild source behind every cache entry and never writes.
type CatalogService struct {
	providerRepo ProviderRepository
	modelRepo    CatalogModelRepository
	pricingRepo  PricingRepository
}

func NewCatalogService(
	providerRepo ProviderRepository,
	modelRepo CatalogModelRepository,
	pricingRepo PricingRepository,
) *CatalogService {
	return &CatalogService{
		providerRepo: providerRepo,
		modelRepo:    modelRepo,
		pricingRepo:  pricingRepo,
	}
}

// FullCatalog returns the joined view of every model across all providers,
// read back in bounded pages.
func (s *CatalogService) FullCatalog(ctx context.Context) ([]ModelView, error) {
	providers, err := s.providerSlugsByID(ctx)
	if err != nil {
		return nil, err
	}
	return s.collectViews(ctx, CatalogModelFilter{}, providers)
}

// ProviderCatalog returns the joined view for one provider's models.
func (s *CatalogService) ProviderCatalog(ctx context.Context, slug string) ([]ModelView, error) {
	provider, err := s.providerRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find provider")
	}
	if provider == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "provider not found", nil, "")
	}
	providers := map[uint]string{provider.ID: provider.Slug}
	return s.collectViews(ctx, CatalogModelFilter{ProviderID: ptr.ToUint(provider.ID)}, providers)
}

// UniqueModelIDs returns the distinct provider-native model ids across all
// providers, sorted, for the catalog:unique_models view.
func (s *CatalogService) UniqueModelIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	err := s.forEachModelPage(ctx, CatalogModelFilter{}, func(models []*CatalogModel) error {
		for _, m := range models {
			seen[m.ProviderModelID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Stats aggregates catalog counts for the catalog:stats view.
func (s *CatalogService) Stats(ctx context.Context) (*CatalogStats, error) {
	providers, err := s.providerSlugsByID(ctx)
	if err != nil {
		return nil, err
	}

	total, err := s.modelRepo.Count(ctx, CatalogModelFilter{})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "count models")
	}
	active, err := s.modelRepo.Count(ctx, CatalogModelFilter{Active: ptr.ToBool(true)})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "count active models")
	}
	flagged, err := s.pricingRepo.CountFlagged(ctx)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "count flagged pricing")
	}

	byProvider := make(map[string]int64, len(providers))
	for id, slug := range providers {
		count, err := s.modelRepo.Count(ctx, CatalogModelFilter{ProviderID: ptr.ToUint(id)})
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "count provider models")
		}
		byProvider[slug] = count
	}

	return &CatalogStats{
		TotalModels:    total,
		ActiveModels:   active,
		FlaggedPricing: flagged,
		ByProvider:     byProvider,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

func (s *CatalogService) providerSlugsByID(ctx context.Context) (map[uint]string, error) {
	providers, err := s.providerRepo.FindByFilter(ctx, ProviderFilter{}, nil)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list providers")
	}
	result := make(map[uint]string, len(providers))
	for _, p := range providers {
		result[p.ID] = p.Slug
	}
	return result, nil
}

func (s *CatalogService) collectViews(ctx context.Context, filter CatalogModelFilter, providers map[uint]string) ([]ModelView, error) {
	var views []ModelView
	err := s.forEachModelPage(ctx, filter, func(models []*CatalogModel) error {
		ids := make([]uint, 0, len(models))
		for _, m := range models {
			ids = append(ids, m.ID)
		}
		pricing, err := s.pricingRepo.FindByModelIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, m := range models {
			views = append(views, newModelView(m, providers[m.ProviderID], pricing[m.ID]))
		}
		return nil
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "collect catalog views")
	}
	return views, nil
}

// forEachModelPage iterates the model table in keyset pages of readPageSize.
func (s *CatalogService) forEachModelPage(ctx context.Context, filter CatalogModelFilter, fn func([]*CatalogModel) error) error {
	var after *uint
	for {
		p := &query.Pagination{Limit: ptr.ToInt(readPageSize), After: after}
		page, err := s.modelRepo.FindByFilter(ctx, filter, p)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		if len(page) < readPageSize {
			return nil
		}
		last := page[len(page)-1].ID
		after = &last
	}
}

func newModelView(m *CatalogModel, providerSlug string, pricing *PricingRecord) ModelView {
	view := ModelView{
		PublicID:        m.PublicID,
		Provider:        providerSlug,
		ProviderModelID: m.ProviderModelID,
		DisplayName:     m.DisplayName,
		Description:     m.Description,
		ContextLength:   m.ContextLength,
		Modality:        m.Modality,
		Capabilities:    m.Capabilities,
		Active:          m.Active,
		HealthStatus:    m.HealthStatus,
		UpdatedAt:       m.UpdatedAt,
	}
	if pricing != nil {
		pv := &PricingView{
			InputTokenPrice:  pricing.InputTokenPrice.String(),
			OutputTokenPrice: pricing.OutputTokenPrice.String(),
			Source:           pricing.Source,
			NeedsReview:      pricing.NeedsReview,
		}
		if pricing.ImageTokenPrice != nil {
			s := pricing.ImageTokenPrice.String()
			pv.ImageTokenPrice = &s
		}
		if pricing.RequestPrice != nil {
			s := pricing.RequestPrice.String()
			pv.RequestPrice = &s
		}
		view.Pricing = pv
	}
	return view
}
