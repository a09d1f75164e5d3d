package memory

import (
	"context"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/786262170/lumina-api/internal/core/port"
	"github.com/786262170/lumina-api/internal/repository"
)

// RevocationStore is an in-process, TTL-backed implementation of both
// revocation ports. It keeps revocation semantics alive in development
// environments that run without Redis; it is not suitable for multi-instance
// deployments since state is local to the process.
type RevocationStore struct {
	tokens     *ttlcache.Cache[string, string]
	watermarks *ttlcache.Cache[string, time.Time]
}

// NewRevocationStore constructs the in-memory store and starts its TTL
// eviction loops.
func NewRevocationStore() *RevocationStore {
	// Touch-on-hit would let repeated verifications extend an entry past the
	// token's own expiry, so it is disabled on both caches.
	tokens := ttlcache.New[string, string](
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	watermarks := ttlcache.New[string, time.Time](
		ttlcache.WithDisableTouchOnHit[string, time.Time](),
	)

	go tokens.Start()
	go watermarks.Start()

	return &RevocationStore{tokens: tokens, watermarks: watermarks}
}

// MarkRevoked records the fingerprint until the token would have expired
// anyway. Non-positive TTLs are a no-op.
func (s *RevocationStore) MarkRevoked(_ context.Context, fingerprint string, reason string, ttl time.Duration) error {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return repository.ErrNotFound
	}
	if ttl <= 0 {
		return nil
	}

	value := strings.TrimSpace(reason)
	if value == "" {
		value = "revoked"
	}

	s.tokens.Set(fingerprint, value, ttl)
	return nil
}

// IsRevoked reports blacklist membership and the stored reason.
func (s *RevocationStore) IsRevoked(_ context.Context, fingerprint string) (bool, string, error) {
	item := s.tokens.Get(strings.TrimSpace(fingerprint))
	if item == nil {
		return false, "", nil
	}
	return true, item.Value(), nil
}

// SetWatermark overwrites the subject watermark.
func (s *RevocationStore) SetWatermark(_ context.Context, subject string, revokedBefore time.Time, ttl time.Duration) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return repository.ErrNotFound
	}
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}

	s.watermarks.Set(subject, revokedBefore.UTC(), ttl)
	return nil
}

// GetWatermark fetches the subject watermark.
func (s *RevocationStore) GetWatermark(_ context.Context, subject string) (time.Time, error) {
	item := s.watermarks.Get(strings.TrimSpace(subject))
	if item == nil {
		return time.Time{}, repository.ErrNotFound
	}
	return item.Value(), nil
}

// HealthCheck always succeeds; the store lives in-process.
func (s *RevocationStore) HealthCheck(context.Context) error {
	return nil
}

// Stop halts the background eviction loops.
func (s *RevocationStore) Stop() {
	s.tokens.Stop()
	s.watermarks.Stop()
}

var (
	_ port.TokenBlacklist        = (*RevocationStore)(nil)
	_ port.SubjectWatermarkStore = (*RevocationStore)(nil)
	_ port.StoreHealth           = (*RevocationStore)(nil)
)
