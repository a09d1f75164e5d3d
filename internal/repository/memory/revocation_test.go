package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/786262170/lumina-api/internal/repository"
)

func newTestStore(t *testing.T) *RevocationStore {
	t.Helper()
	store := NewRevocationStore()
	t.Cleanup(store.Stop)
	return store
}

func TestRevocationStore_MarkAndCheck(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.MarkRevoked(ctx, "fp-1", "logout", time.Minute); err != nil {
		t.Fatalf("MarkRevoked returned error: %v", err)
	}

	revoked, reason, err := store.IsRevoked(ctx, "fp-1")
	if err != nil {
		t.Fatalf("IsRevoked returned error: %v", err)
	}
	if !revoked || reason != "logout" {
		t.Fatalf("expected revoked with reason logout, got %v %q", revoked, reason)
	}
}

func TestRevocationStore_NonPositiveTTLIsNoop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.MarkRevoked(ctx, "fp-dead", "logout", 0); err != nil {
		t.Fatalf("MarkRevoked returned error: %v", err)
	}

	revoked, _, err := store.IsRevoked(ctx, "fp-dead")
	if err != nil {
		t.Fatalf("IsRevoked returned error: %v", err)
	}
	if revoked {
		t.Fatalf("expected no entry for an already-expired token")
	}
}

func TestRevocationStore_EntryExpires(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.MarkRevoked(ctx, "fp-short", "logout", 20*time.Millisecond); err != nil {
		t.Fatalf("MarkRevoked returned error: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	revoked, _, err := store.IsRevoked(ctx, "fp-short")
	if err != nil {
		t.Fatalf("IsRevoked returned error: %v", err)
	}
	if revoked {
		t.Fatalf("expected entry to be reclaimed by ttl")
	}
}

func TestRevocationStore_Watermark(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mark := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	if _, err := store.GetWatermark(ctx, "user_a"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before write, got %v", err)
	}

	if err := store.SetWatermark(ctx, "user_a", mark, time.Hour); err != nil {
		t.Fatalf("SetWatermark returned error: %v", err)
	}

	got, err := store.GetWatermark(ctx, "user_a")
	if err != nil {
		t.Fatalf("GetWatermark returned error: %v", err)
	}
	if !got.Equal(mark) {
		t.Fatalf("expected watermark %v, got %v", mark, got)
	}
}
