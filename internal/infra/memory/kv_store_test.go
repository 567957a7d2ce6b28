package memory

import (
	"context"
	"testing"
)

func TestKVStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := store.Set(ctx, "k", payload{Name: "a", Count: 2}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got payload
	found, err := store.Get(ctx, "k", &got)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if got.Name != "a" || got.Count != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestKVStoreAbsentKey(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	var dest string
	found, err := store.Get(ctx, "missing", &dest)
	if err != nil {
		t.Fatalf("absent key must not error: %v", err)
	}
	if found {
		t.Fatalf("expected absent")
	}
}

func TestKVStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	_ = store.Set(ctx, "k", 1)
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	var dest int
	if found, _ := store.Get(ctx, "k", &dest); found {
		t.Fatalf("expected key removed")
	}
	// Removing a missing key is idempotent.
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}
