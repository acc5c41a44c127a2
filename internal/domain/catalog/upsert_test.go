package catalog_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/utils/platformerrors"
)

func TestUpsert_DedupeLastWins(t *testing.T) {
	writer := &fakeWriter{}
	engine := catalog.NewUpsertEngine(writer)

	records := []catalog.CanonicalModel{
		{ProviderID: 1, ProviderModelID: "a", DisplayName: "first"},
		{ProviderID: 1, ProviderModelID: "b", DisplayName: "only"},
		{ProviderID: 1, ProviderModelID: "a", DisplayName: "second"},
	}

	result, err := engine.Upsert(context.Background(), records, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Written != 2 {
		t.Fatalf("Written = %d, want 2", result.Written)
	}
	if result.DuplicatesRemoved != 1 {
		t.Fatalf("DuplicatesRemoved = %d, want 1", result.DuplicatesRemoved)
	}

	batch := writer.lastBatch()
	if len(batch) != 2 {
		t.Fatalf("writer got %d records, want 2", len(batch))
	}
	got := map[string]string{}
	for _, r := range batch {
		got[r.ProviderModelID] = r.DisplayName
	}
	want := map[string]string{"a": "second", "b": "only"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("surviving records = %v, want %v", got, want)
	}
}

func TestUpsert_DropsRecordsMissingIdentityKey(t *testing.T) {
	writer := &fakeWriter{}
	engine := catalog.NewUpsertEngine(writer)

	records := []catalog.CanonicalModel{
		{ProviderID: 0, ProviderModelID: "orphan"},
		{ProviderID: 1, ProviderModelID: ""},
		{ProviderID: 1, ProviderModelID: "valid"},
	}

	result, err := engine.Upsert(context.Background(), records, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Dropped != 2 {
		t.Fatalf("Dropped = %d, want 2", result.Dropped)
	}
	if result.Written != 1 {
		t.Fatalf("Written = %d, want 1", result.Written)
	}
}

func TestUpsert_EmptyBatchSkipsWriter(t *testing.T) {
	writer := &fakeWriter{}
	engine := catalog.NewUpsertEngine(writer)

	result, err := engine.Upsert(context.Background(), nil, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Written != 0 || len(writer.batches) != 0 {
		t.Fatal("empty batch must not reach the writer")
	}
}

func TestUpsert_WriterErrorIsTyped(t *testing.T) {
	writer := &fakeWriter{err: errors.New("connection reset")}
	engine := catalog.NewUpsertEngine(writer)

	_, err := engine.Upsert(context.Background(), []catalog.CanonicalModel{
		{ProviderID: 1, ProviderModelID: "a"},
	}, "test")
	if err == nil {
		t.Fatal("expected error")
	}
	var platformErr *platformerrors.PlatformError
	if !errors.As(err, &platformErr) {
		t.Fatalf("expected PlatformError, got %T", err)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	writer := &fakeWriter{}
	engine := catalog.NewUpsertEngine(writer)

	records := []catalog.CanonicalModel{
		{ProviderID: 1, ProviderModelID: "a", DisplayName: "model a"},
		{ProviderID: 1, ProviderModelID: "b", DisplayName: "model b"},
	}

	first, err := engine.Upsert(context.Background(), records, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Upsert(context.Background(), records, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Written != second.Written {
		t.Fatalf("written counts differ: %d vs %d", first.Written, second.Written)
	}
	if !reflect.DeepEqual(writer.batches[0], writer.batches[1]) {
		t.Fatal("replaying the same input must produce the same batch")
	}
}
