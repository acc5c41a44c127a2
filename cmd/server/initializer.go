package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"modelgate/services/catalog-api/internal/config"
	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/adapters"
	"modelgate/services/catalog-api/internal/infrastructure/adapters/openaicompat"
	"modelgate/services/catalog-api/internal/infrastructure/adapters/openrouter"
	"modelgate/services/catalog-api/internal/infrastructure/logger"
	"modelgate/services/catalog-api/internal/infrastructure/repository/catalogrepo"
)

// providerSeed is the on-disk provider description. API keys are referenced
// by env var name, never stored in the file.
type providerSeed struct {
	Slug        string `yaml:"slug"`
	DisplayName string `yaml:"display_name"`
	Kind        string `yaml:"kind"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Active      *bool  `yaml:"active"`
	MaxRetries  uint64 `yaml:"max_retries"`
}

type seedFile struct {
	Providers []providerSeed `yaml:"providers"`
}

// Initializer seeds provider rows and registers one adapter per provider at
// startup.
type Initializer struct {
	providerRepo *catalogrepo.ProviderGormRepository
	registry     *adapters.Registry
}

func NewInitializer(providerRepo *catalogrepo.ProviderGormRepository, registry *adapters.Registry) *Initializer {
	return &Initializer{providerRepo: providerRepo, registry: registry}
}

func (i *Initializer) Install(ctx context.Context) error {
	log := logger.GetLogger()
	cfg := config.GetGlobal()

	if cfg.ProviderSeedFile == "" {
		log.Warn().Msg("no provider seed file configured, no adapters registered")
		return nil
	}

	data, err := os.ReadFile(cfg.ProviderSeedFile)
	if err != nil {
		return fmt.Errorf("read provider seed file: %w", err)
	}
	var seeds seedFile
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("parse provider seed file: %w", err)
	}

	providers := make([]*catalog.Provider, 0, len(seeds.Providers))
	for _, seed := range seeds.Providers {
		if seed.Slug == "" {
			return fmt.Errorf("provider seed entry missing slug")
		}

		displayName := seed.DisplayName
		if displayName == "" {
			displayName = seed.Slug
		}
		active := true
		if seed.Active != nil {
			active = *seed.Active
		}
		providers = append(providers, &catalog.Provider{
			Slug:        seed.Slug,
			DisplayName: displayName,
			Active:      active,
		})

		adapter, err := buildAdapter(seed)
		if err != nil {
			return err
		}
		i.registry.Register(seed.Slug, adapters.WithRetry(adapter, seed.MaxRetries))
		log.Info().Str("provider", seed.Slug).Str("kind", seed.Kind).Msg("registered provider adapter")
	}

	return i.providerRepo.Seed(ctx, providers)
}

func buildAdapter(seed providerSeed) (catalog.ProviderAdapter, error) {
	apiKey := ""
	if seed.APIKeyEnv != "" {
		apiKey = os.Getenv(seed.APIKeyEnv)
	}

	switch seed.Kind {
	case "openrouter":
		return openrouter.NewAdapter(seed.BaseURL, apiKey), nil
	case "openai", "openai-compatible", "":
		return openaicompat.NewAdapter(seed.BaseURL, apiKey), nil
	default:
		return nil, fmt.Errorf("provider %q has unknown adapter kind %q", seed.Slug, seed.Kind)
	}
}
