package v1

import (
	"github.com/gin-gonic/gin"

	"modelgate/services/catalog-api/internal/interfaces/httpserver/routes/v1/catalogroute"
	"modelgate/services/catalog-api/internal/interfaces/httpserver/routes/v1/syncroute"
)

type V1Route struct {
	catalog *catalogroute.CatalogRoute
	sync    *syncroute.SyncRoute
}

func NewV1Route(
	catalog *catalogroute.CatalogRoute,
	sync *syncroute.SyncRoute,
) *V1Route {
	return &V1Route{
		catalog,
		sync,
	}
}

func (v1Route *V1Route) RegisterRouter(router *gin.RouterGroup) {
	v1 := router.Group("v1")
	v1Route.catalog.RegisterRouter(v1)
	v1Route.sync.RegisterRouter(v1)
}
