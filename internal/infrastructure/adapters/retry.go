package adapters

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/logger"
)

const defaultMaxRetries = 2

// WithRetry wraps an adapter so transient upstream failures are retried with
// exponential backoff. The caller's fetch timeout still bounds the whole
// attempt sequence through ctx.
func WithRetry(inner catalog.ProviderAdapter, maxRetries uint64) catalog.ProviderAdapter {
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	return &retryAdapter{inner: inner, maxRetries: maxRetries}
}

type retryAdapter struct {
	inner      catalog.ProviderAdapter
	maxRetries uint64
}

func (a *retryAdapter) Fetch(ctx context.Context, providerSlug string) ([]catalog.NormalizedModel, error) {
	var models []catalog.NormalizedModel

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	attempt := 0
	operation := func() error {
		attempt++
		var err error
		models, err = a.inner.Fetch(ctx, providerSlug)
		if err != nil && attempt > 1 {
			log := logger.GetLogger()
			log.Warn().
				Err(err).
				Str("provider", providerSlug).
				Int("attempt", attempt).
				Msg("provider fetch retry failed")
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, a.maxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return models, nil
}
