package catalogroute

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/cache"
	"modelgate/services/catalog-api/internal/interfaces/httpserver/responses"
	"modelgate/services/catalog-api/internal/utils/platformerrors"
)

type CatalogRoute struct {
	catalogCache *cache.CatalogCache
	pricingRepo  catalog.PricingRepository
}

func NewCatalogRoute(catalogCache *cache.CatalogCache, pricingRepo catalog.PricingRepository) *CatalogRoute {
	return &CatalogRoute{
		catalogCache: catalogCache,
		pricingRepo:  pricingRepo,
	}
}

func (r *CatalogRoute) RegisterRouter(router *gin.RouterGroup) {
	modelsRoute := router.Group("models")
	modelsRoute.GET("", r.ListModels)
	modelsRoute.GET("/stats", r.GetStats)
	modelsRoute.GET("/unique", r.ListUniqueModelIDs)
	modelsRoute.GET("/:model_id/pricing-history", r.GetPricingHistory)

	providersRoute := router.Group("providers")
	providersRoute.GET("/:slug/models", r.ListProviderModels)
}

// ListModels returns the full cached catalog with pricing joined in.
func (r *CatalogRoute) ListModels(c *gin.Context) {
	models, err := r.catalogCache.FullCatalog(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to retrieve model catalog")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   models,
	})
}

// ListProviderModels returns the cached catalog of one provider.
func (r *CatalogRoute) ListProviderModels(c *gin.Context) {
	slug := c.Param("slug")
	models, err := r.catalogCache.ProviderCatalog(c.Request.Context(), slug)
	if err != nil {
		responses.HandleError(c, err, "failed to retrieve provider catalog")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"object":   "list",
		"provider": slug,
		"data":     models,
	})
}

// ListUniqueModelIDs returns the sorted distinct set of model ids across providers.
func (r *CatalogRoute) ListUniqueModelIDs(c *gin.Context) {
	ids, err := r.catalogCache.UniqueModelIDs(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to retrieve unique model ids")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   ids,
	})
}

// GetStats returns aggregate catalog counts.
func (r *CatalogRoute) GetStats(c *gin.Context) {
	stats, err := r.catalogCache.Stats(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to retrieve catalog stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetPricingHistory returns recent price transitions for one model.
func (r *CatalogRoute) GetPricingHistory(c *gin.Context) {
	modelID, err := strconv.ParseUint(c.Param("model_id"), 10, 64)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "model_id must be a positive integer", "")
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	history, err := r.pricingRepo.FindHistory(c.Request.Context(), uint(modelID), limit)
	if err != nil {
		responses.HandleError(c, err, "failed to retrieve pricing history")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   history,
	})
}
