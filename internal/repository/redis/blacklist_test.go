package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/786262170/lumina-api/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestTokenBlacklistStore_MarkAndCheck(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewTokenBlacklistStore(client, "revocation:token", 0)

	ctx := context.Background()
	ttl := 2 * time.Minute

	if err := store.MarkRevoked(ctx, "fp-abc", "logout", ttl); err != nil {
		t.Fatalf("MarkRevoked returned error: %v", err)
	}

	revoked, reason, err := store.IsRevoked(ctx, "fp-abc")
	if err != nil {
		t.Fatalf("IsRevoked returned error: %v", err)
	}
	if !revoked {
		t.Fatalf("expected fingerprint to be marked revoked")
	}
	if reason != "logout" {
		t.Fatalf("expected reason logout, got %s", reason)
	}

	remaining := server.TTL("revocation:token:fp-abc")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestTokenBlacklistStore_NonPositiveTTLIsNoop(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewTokenBlacklistStore(client, "", 0)

	ctx := context.Background()

	if err := store.MarkRevoked(ctx, "fp-expired", "logout", 0); err != nil {
		t.Fatalf("MarkRevoked with zero ttl returned error: %v", err)
	}
	if err := store.MarkRevoked(ctx, "fp-expired", "logout", -time.Minute); err != nil {
		t.Fatalf("MarkRevoked with negative ttl returned error: %v", err)
	}

	if server.Exists("revocation:token:fp-expired") {
		t.Fatalf("expected no entry for an already-expired token")
	}
}

func TestTokenBlacklistStore_Miss(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewTokenBlacklistStore(client, "", 0)

	revoked, reason, err := store.IsRevoked(context.Background(), "fp-missing")
	if err != nil {
		t.Fatalf("IsRevoked returned error: %v", err)
	}
	if revoked {
		t.Fatalf("did not expect fingerprint to be revoked")
	}
	if reason != "" {
		t.Fatalf("expected empty reason, got %s", reason)
	}
}

func TestTokenBlacklistStore_EntryReclaimedByTTL(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewTokenBlacklistStore(client, "", 0)

	ctx := context.Background()
	if err := store.MarkRevoked(ctx, "fp-short", "logout", time.Second); err != nil {
		t.Fatalf("MarkRevoked returned error: %v", err)
	}

	server.FastForward(2 * time.Second)

	revoked, _, err := store.IsRevoked(ctx, "fp-short")
	if err != nil {
		t.Fatalf("IsRevoked returned error: %v", err)
	}
	if revoked {
		t.Fatalf("expected entry to expire with the token")
	}
}

func TestTokenBlacklistStore_UnavailableSurfacesTypedError(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewTokenBlacklistStore(client, "", 0)

	server.Close()

	_, _, err := store.IsRevoked(context.Background(), "fp-any")
	if !errors.Is(err, repository.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	if err := store.MarkRevoked(context.Background(), "fp-any", "logout", time.Minute); !errors.Is(err, repository.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
