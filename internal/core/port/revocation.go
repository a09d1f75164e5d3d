package port

import (
	"context"
	"time"
)

// TokenBlacklist caches fingerprints of individually revoked tokens until
// their natural expiry. Entries are reclaimed by the store's own TTL
// mechanism, never by an explicit sweep.
type TokenBlacklist interface {
	// MarkRevoked records the fingerprint with the supplied reason. A
	// non-positive TTL is a no-op: the token has already expired and there
	// is nothing left to protect.
	MarkRevoked(ctx context.Context, fingerprint string, reason string, ttl time.Duration) error
	// IsRevoked reports membership and the stored reason when present.
	IsRevoked(ctx context.Context, fingerprint string) (bool, string, error)
}

// SubjectWatermarkStore persists per-subject revocation watermarks. Any token
// issued before the watermark is invalid regardless of its own validity.
type SubjectWatermarkStore interface {
	SetWatermark(ctx context.Context, subject string, revokedBefore time.Time, ttl time.Duration) error
	// GetWatermark returns repository.ErrNotFound when no watermark exists.
	GetWatermark(ctx context.Context, subject string) (time.Time, error)
}

// StoreHealth exposes a cheap liveness probe for revocation backends.
type StoreHealth interface {
	HealthCheck(ctx context.Context) error
}
