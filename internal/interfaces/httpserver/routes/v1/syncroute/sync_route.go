package syncroute

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"modelgate/services/catalog-api/internal/infrastructure/scheduler"
	"modelgate/services/catalog-api/internal/interfaces/httpserver/responses"
)

// SyncRoute is the operator control surface. Every trigger goes through the
// scheduler's run gate, so overlapping requests get a 409 instead of a
// second concurrent run.
type SyncRoute struct {
	scheduler *scheduler.Scheduler
}

func NewSyncRoute(s *scheduler.Scheduler) *SyncRoute {
	return &SyncRoute{scheduler: s}
}

func (r *SyncRoute) RegisterRouter(router *gin.RouterGroup) {
	syncRoute := router.Group("sync")
	syncRoute.POST("/provider/:slug", r.SyncProvider)
	syncRoute.POST("/all", r.SyncAll)
	syncRoute.GET("/status", r.GetStatus)
	syncRoute.GET("/health", r.GetHealth)
}

// SyncProvider triggers a sync of a single provider. With dry_run=true the
// pipeline runs through normalization and writes nothing.
func (r *SyncRoute) SyncProvider(c *gin.Context) {
	slug := c.Param("slug")
	dryRun := c.Query("dry_run") == "true"

	result, err := r.scheduler.TriggerProvider(c.Request.Context(), slug, dryRun)
	if err != nil {
		responses.HandleError(c, err, "failed to trigger provider sync")
		return
	}
	c.JSON(http.StatusOK, result)
}

// SyncAll triggers a batch sync. An optional providers query parameter
// restricts the batch to a comma-separated list of slugs.
func (r *SyncRoute) SyncAll(c *gin.Context) {
	dryRun := c.Query("dry_run") == "true"

	var slugs []string
	if raw := strings.TrimSpace(c.Query("providers")); raw != "" {
		for _, slug := range strings.Split(raw, ",") {
			if slug = strings.TrimSpace(slug); slug != "" {
				slugs = append(slugs, slug)
			}
		}
	}

	result, err := r.scheduler.TriggerAll(c.Request.Context(), slugs, dryRun)
	if err != nil {
		responses.HandleError(c, err, "failed to trigger batch sync")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStatus reports whether a run is in flight plus the recent run history.
func (r *SyncRoute) GetStatus(c *gin.Context) {
	status, err := r.scheduler.Status(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to retrieve sync status")
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetHealth reports the sync pipeline verdict. Unhealthy returns 503 so load
// balancers and alerting can key off the status code.
func (r *SyncRoute) GetHealth(c *gin.Context) {
	health, err := r.scheduler.CheckHealth(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to evaluate sync health")
		return
	}
	statusCode := http.StatusOK
	if !health.Healthy {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, health)
}
