package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"modelgate/services/catalog-api/internal/config"
	"modelgate/services/catalog-api/internal/infrastructure/cache"
	"modelgate/services/catalog-api/internal/infrastructure/logger"
	middleware "modelgate/services/catalog-api/internal/interfaces/httpserver/middlewares"
	v1 "modelgate/services/catalog-api/internal/interfaces/httpserver/routes/v1"
)

type HTTPServer struct {
	engine       *gin.Engine
	v1Route      *v1.V1Route
	db           *gorm.DB
	catalogCache *cache.CatalogCache
	config       *config.Config
}

func NewHttpServer(
	v1Route *v1.V1Route,
	db *gorm.DB,
	catalogCache *cache.CatalogCache,
	cfg *config.Config,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := HTTPServer{
		gin.New(),
		v1Route,
		db,
		catalogCache,
		cfg,
	}
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.TracingMiddleware(cfg.ServiceName))
	server.engine.Use(middleware.LoggingMiddleware(logger.GetLogger()))
	server.engine.Use(middleware.MetricsMiddleware())
	server.engine.Use(middleware.CORSMiddleware())

	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server.engine.GET("/readyz", server.readyz)

	return &server
}

// readyz verifies the dependencies a request actually needs. The cache being
// down degrades reads but does not fail readiness; the database being down
// does.
func (s *HTTPServer) readyz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database unreachable"})
		return
	}

	if err := s.catalogCache.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "reason": "cache unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured grace period.
func (s *HTTPServer) Run(ctx context.Context) error {
	root := s.engine.Group("/")
	s.v1Route.RegisterRouter(root)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownGrace())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	log := logger.GetLogger()
	log.Info().Msg("http server stopped")
	return nil
}
