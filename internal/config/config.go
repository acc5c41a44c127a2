package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Global singleton, populated by Load.
var globalConfig *Config

// Config holds all environment backed configuration for catalog-api.
type Config struct {
	// HTTP Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9091"`
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Database pool. MaxOpen must stay comfortably above the sync worker cap so
	// a running batch cannot starve live catalog reads.
	DBMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`

	// Catalog sync
	SyncEnabled                  bool     `env:"SYNC_ENABLED" envDefault:"true"`
	SyncIntervalHours            int      `env:"SYNC_INTERVAL_HOURS" envDefault:"6"`
	SyncProviders                []string `env:"SYNC_PROVIDERS" envSeparator:","`
	CacheTTLSeconds              int      `env:"CACHE_TTL_SECONDS" envDefault:"900"`
	FetchTimeoutSeconds          int      `env:"FETCH_TIMEOUT_SECONDS" envDefault:"30"`
	MaxConcurrentProviderFetches int      `env:"MAX_CONCURRENT_PROVIDER_FETCHES" envDefault:"5"`
	ShutdownGraceSeconds         int      `env:"SHUTDOWN_GRACE_SECONDS" envDefault:"60"`

	// Pricing policy: model ids allowed to carry a genuine zero price.
	// Anything else priced 0/0 is flagged for review instead of trusted.
	FreeTierModelAllowlist []string `env:"FREE_TIER_MODEL_ALLOWLIST" envSeparator:","`

	// Provider seeding (development only)
	ProviderSeedFile string `env:"PROVIDER_SEED_FILE"`

	// Observability / Logging
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"catalog-api"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"modelgate"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.SyncIntervalHours <= 0 {
		return nil, fmt.Errorf("SYNC_INTERVAL_HOURS must be positive, got %d", cfg.SyncIntervalHours)
	}
	if cfg.MaxConcurrentProviderFetches <= 0 {
		cfg.MaxConcurrentProviderFetches = 1
	}
	if cfg.MaxConcurrentProviderFetches >= cfg.DBMaxOpenConns {
		return nil, fmt.Errorf("MAX_CONCURRENT_PROVIDER_FETCHES (%d) must be below DB_MAX_OPEN_CONNS (%d)",
			cfg.MaxConcurrentProviderFetches, cfg.DBMaxOpenConns)
	}

	providers := make([]string, 0, len(cfg.SyncProviders))
	for _, slug := range cfg.SyncProviders {
		if s := strings.TrimSpace(slug); s != "" {
			providers = append(providers, s)
		}
	}
	cfg.SyncProviders = providers

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	globalConfig = cfg
	return cfg, nil
}

// GetGlobal returns the global config instance.
func GetGlobal() *Config {
	return globalConfig
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalHours) * time.Hour
}

func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
