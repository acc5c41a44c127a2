package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	gormlogger "gorm.io/gorm/logger"

	"modelgate/services/catalog-api/internal/config"
	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/adapters"
	"modelgate/services/catalog-api/internal/infrastructure/cache"
	"modelgate/services/catalog-api/internal/infrastructure/database"
	_ "modelgate/services/catalog-api/internal/infrastructure/database/dbschema"
	"modelgate/services/catalog-api/internal/infrastructure/logger"
	"modelgate/services/catalog-api/internal/infrastructure/observability"
	"modelgate/services/catalog-api/internal/infrastructure/repository/catalogrepo"
	"modelgate/services/catalog-api/internal/infrastructure/scheduler"
	"modelgate/services/catalog-api/internal/interfaces/httpserver"
	"modelgate/services/catalog-api/internal/interfaces/httpserver/routes/v1/catalogroute"
	"modelgate/services/catalog-api/internal/interfaces/httpserver/routes/v1/syncroute"

	v1 "modelgate/services/catalog-api/internal/interfaces/httpserver/routes/v1"

	_ "net/http/pprof"
)

type Application struct {
	httpServer *httpserver.HTTPServer
	scheduler  *scheduler.Scheduler
	config     *config.Config
}

func (application *Application) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return serveUntilCancelled(ctx, &http.Server{Addr: "0.0.0.0:6060"}, application.config.ShutdownGrace())
	})
	eg.Go(func() error {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", application.config.MetricsPort),
			Handler: metricsMux,
		}
		return serveUntilCancelled(ctx, srv, application.config.ShutdownGrace())
	})
	eg.Go(func() error {
		return application.scheduler.Run(ctx)
	})
	eg.Go(func() error {
		return application.httpServer.Run(ctx)
	})

	return eg.Wait()
}

// serveUntilCancelled serves an auxiliary listener (pprof, metrics) until ctx
// is cancelled, then shuts it down within the grace period so the process can
// exit cleanly on SIGTERM.
func serveUntilCancelled(ctx context.Context, srv *http.Server, grace time.Duration) error {
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	log := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if configuredLog, err := logger.New(cfg.LogLevel, cfg.LogFormat); err == nil {
		log = configuredLog
	}

	ctx := context.Background()

	otelShutdown, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("initialize observability")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown telemetry")
			}
		}()
	}

	db, err := database.Connect(database.Config{
		DatabaseURL: cfg.DatabaseURL,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxLifetime: time.Hour,
		LogLevel:    gormlogger.Silent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if cfg.AutoMigrate {
		if err := database.Migration(db); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}
	}

	var kv cache.KV
	var locker cache.Locker
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		kv, locker = redisCache, redisCache
	} else {
		log.Warn().Msg("no redis configured, using in-process cache")
		kv, locker = cache.NewMemoryKV(), cache.NewLocalLocker()
	}

	providerRepo := catalogrepo.NewProviderGormRepository(db)
	modelRepo := catalogrepo.NewModelGormRepository(db)
	pricingRepo := catalogrepo.NewPricingGormRepository(db)
	syncRunRepo := catalogrepo.NewSyncRunGormRepository(db)

	catalogService := catalog.NewCatalogService(providerRepo, modelRepo, pricingRepo)
	catalogCache := cache.NewCatalogCache(kv, locker, catalogService, cfg.CacheTTL())

	registry := adapters.NewRegistry()
	normalizer := catalog.NewNormalizer(cfg.FreeTierModelAllowlist)
	upsertEngine := catalog.NewUpsertEngine(modelRepo)
	syncService := catalog.NewSyncService(
		providerRepo,
		registry,
		normalizer,
		upsertEngine,
		syncRunRepo,
		catalogCache,
		catalog.SyncOptions{
			FetchTimeout:  cfg.FetchTimeout(),
			MaxConcurrent: cfg.MaxConcurrentProviderFetches,
		},
	)
	sched := scheduler.NewScheduler(syncService, syncRunRepo, registry)

	initializer := NewInitializer(providerRepo, registry)
	if err := initializer.Install(ctx); err != nil {
		log.Fatal().Err(err).Msg("install providers")
	}

	catalogRoute := catalogroute.NewCatalogRoute(catalogCache, pricingRepo)
	syncRoute := syncroute.NewSyncRoute(sched)
	v1Route := v1.NewV1Route(catalogRoute, syncRoute)

	application := &Application{
		httpServer: httpserver.NewHttpServer(v1Route, db, catalogCache, cfg),
		scheduler:  sched,
		config:     cfg,
	}

	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("application stopped")
	}
}
