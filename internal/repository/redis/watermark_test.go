package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/786262170/lumina-api/internal/repository"
)

func TestSubjectWatermarkRepository_SetAndGet(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSubjectWatermarkRepository(client, "revocation:subject", 0)

	ctx := context.Background()
	revokedBefore := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.SetWatermark(ctx, "user_1a2b3c", revokedBefore, 30*24*time.Hour); err != nil {
		t.Fatalf("SetWatermark returned error: %v", err)
	}

	got, err := repo.GetWatermark(ctx, "user_1a2b3c")
	if err != nil {
		t.Fatalf("GetWatermark returned error: %v", err)
	}
	if !got.Equal(revokedBefore) {
		t.Fatalf("expected watermark %v, got %v", revokedBefore, got)
	}

	if remaining := server.TTL("revocation:subject:user_1a2b3c"); remaining <= 0 {
		t.Fatalf("expected watermark to carry a ttl, got %v", remaining)
	}
}

func TestSubjectWatermarkRepository_OverwriteMovesWatermarkForward(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSubjectWatermarkRepository(client, "", 0)

	ctx := context.Background()
	first := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	if err := repo.SetWatermark(ctx, "user_x", first, time.Hour); err != nil {
		t.Fatalf("SetWatermark returned error: %v", err)
	}
	if err := repo.SetWatermark(ctx, "user_x", second, time.Hour); err != nil {
		t.Fatalf("SetWatermark returned error: %v", err)
	}

	got, err := repo.GetWatermark(ctx, "user_x")
	if err != nil {
		t.Fatalf("GetWatermark returned error: %v", err)
	}
	if !got.Equal(second) {
		t.Fatalf("expected watermark %v, got %v", second, got)
	}
}

func TestSubjectWatermarkRepository_MissReturnsNotFound(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSubjectWatermarkRepository(client, "", 0)

	_, err := repo.GetWatermark(context.Background(), "user_absent")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubjectWatermarkRepository_UnavailableSurfacesTypedError(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSubjectWatermarkRepository(client, "", 0)

	server.Close()

	_, err := repo.GetWatermark(context.Background(), "user_x")
	if !errors.Is(err, repository.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
