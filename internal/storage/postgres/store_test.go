package postgres

import (
	"context"
	"os"
	"reflect"
	"testing"
)

// Runs against a real database when TRIARB_TEST_PG_DSN is set.
func TestStoreReplaceSet(t *testing.T) {
	dsn := os.Getenv("TRIARB_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TRIARB_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	key := "triarb:test:" + t.Name()
	if err := store.ReplaceSet(ctx, key, []string{"a", "b", "a"}); err != nil {
		t.Fatalf("replace set: %v", err)
	}
	if err := store.ReplaceSet(ctx, key, []string{"c", "b"}); err != nil {
		t.Fatalf("replace set: %v", err)
	}

	got, err := store.SetMembers(ctx, key)
	if err != nil {
		t.Fatalf("set members: %v", err)
	}
	if want := []string{"c", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("members mismatch: %v != %v", got, want)
	}

	if err := store.ReplaceSet(ctx, key, nil); err != nil {
		t.Fatalf("clear set: %v", err)
	}
	got, err = store.SetMembers(ctx, key)
	if err != nil {
		t.Fatalf("set members: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
