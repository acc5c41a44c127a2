package adapters

import (
	"context"
	"errors"
	"testing"

	"modelgate/services/catalog-api/internal/domain/catalog"
)

type flakyAdapter struct {
	failures int
	calls    int
}

func (a *flakyAdapter) Fetch(context.Context, string) ([]catalog.NormalizedModel, error) {
	a.calls++
	if a.calls <= a.failures {
		return nil, errors.New("upstream 503")
	}
	return []catalog.NormalizedModel{{ID: "m1"}}, nil
}

func TestWithRetry_RecoversFromTransientFailures(t *testing.T) {
	inner := &flakyAdapter{failures: 2}
	adapter := WithRetry(inner, 2)

	models, err := adapter.Fetch(context.Background(), "openrouter")
	if err != nil {
		t.Fatalf("fetch failed after retries: %v", err)
	}
	if len(models) != 1 || models[0].ID != "m1" {
		t.Fatalf("unexpected models: %+v", models)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyAdapter{failures: 10}
	adapter := WithRetry(inner, 2)

	if _, err := adapter.Fetch(context.Background(), "openrouter"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3 (initial attempt plus two retries)", inner.calls)
	}
}

func TestWithRetry_StopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyAdapter{failures: 10}
	adapter := WithRetry(inner, 5)

	if _, err := adapter.Fetch(ctx, "openrouter"); err == nil {
		t.Fatal("expected error with cancelled context")
	}
	if inner.calls > 1 {
		t.Fatalf("calls = %d, cancelled context must not keep retrying", inner.calls)
	}
}

func TestRegistry_ResolvesRegisteredAdapter(t *testing.T) {
	registry := NewRegistry()
	inner := &flakyAdapter{}
	registry.Register("openrouter", inner)

	adapter, ok := registry.AdapterFor("openrouter")
	if !ok || adapter == nil {
		t.Fatal("registered adapter not found")
	}
	if _, ok := registry.AdapterFor("unknown"); ok {
		t.Fatal("unknown slug must not resolve")
	}
	if slugs := registry.Slugs(); len(slugs) != 1 || slugs[0] != "openrouter" {
		t.Fatalf("slugs = %v", slugs)
	}
}
