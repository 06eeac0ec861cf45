package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Set(ctx, "auth:token", "tok-123", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, "auth:token")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "tok-123" {
		t.Errorf("Get = %q, want %q", got, "tok-123")
	}

	exists, err := store.Exists(ctx, "auth:token")
	if err != nil || !exists {
		t.Errorf("Exists = %v, %v", exists, err)
	}
}

func TestMemoryStoreMissingKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Get(ctx, "never-set")
	if err != nil {
		t.Fatalf("missing keys are not errors: %v", err)
	}
	if got != "" {
		t.Errorf("Get = %q, want empty", got)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_ = store.Set(ctx, "cart:lines", "[]", 0)
	if err := store.Delete(ctx, "cart:lines"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Get(ctx, "cart:lines"); got != "" {
		t.Errorf("Get after Delete = %q, want empty", got)
	}

	// deleting a missing key is a no-op
	if err := store.Delete(ctx, "cart:lines"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_ = store.Set(ctx, "ephemeral", "v", 20*time.Millisecond)

	if got, _ := store.Get(ctx, "ephemeral"); got != "v" {
		t.Fatalf("value should be readable before expiry, got %q", got)
	}

	time.Sleep(40 * time.Millisecond)

	if got, _ := store.Get(ctx, "ephemeral"); got != "" {
		t.Errorf("expired value still readable: %q", got)
	}
	if exists, _ := store.Exists(ctx, "ephemeral"); exists {
		t.Error("expired value still reported as existing")
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_ = store.Set(ctx, "k", "first", 0)
	_ = store.Set(ctx, "k", "second", 0)

	if got, _ := store.Get(ctx, "k"); got != "second" {
		t.Errorf("Get = %q, want %q", got, "second")
	}
}
