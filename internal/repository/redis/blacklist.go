package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/786262170/lumina-api/internal/core/port"
	"github.com/786262170/lumina-api/internal/repository"
)

const defaultTokenBlacklistPrefix = "revocation:token"

// defaultOpTimeout bounds every store round trip so a hung Redis node
// degrades verification instead of stalling it.
const defaultOpTimeout = 2 * time.Second

// TokenBlacklistStore persists revoked-token fingerprints in Redis with a TTL
// matching the remaining token validity.
type TokenBlacklistStore struct {
	client    *red.Client
	prefix    string
	opTimeout time.Duration
}

// NewTokenBlacklistStore wires a Redis client into a blacklist adapter.
func NewTokenBlacklistStore(client *red.Client, keyPrefix string, opTimeout time.Duration) *TokenBlacklistStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultTokenBlacklistPrefix
	}
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	return &TokenBlacklistStore{client: client, prefix: prefix, opTimeout: opTimeout}
}

// MarkRevoked stores the fingerprint with the supplied reason. A non-positive
// TTL means the token already expired, so the write is skipped.
func (s *TokenBlacklistStore) MarkRevoked(ctx context.Context, fingerprint string, reason string, ttl time.Duration) error {
	key := s.key(fingerprint)
	if key == "" {
		return errors.New("fingerprint must not be empty")
	}
	if ttl <= 0 {
		return nil
	}

	value := strings.TrimSpace(reason)
	if value == "" {
		value = "revoked"
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Set(opCtx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set revoked token: %v", repository.ErrStoreUnavailable, err)
	}

	return nil
}

// IsRevoked reports whether the fingerprint has been blacklisted and returns
// the stored reason when present.
func (s *TokenBlacklistStore) IsRevoked(ctx context.Context, fingerprint string) (bool, string, error) {
	key := s.key(fingerprint)
	if key == "" {
		return false, "", errors.New("fingerprint must not be empty")
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	value, err := s.client.Get(opCtx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("%w: redis get revoked token: %v", repository.ErrStoreUnavailable, err)
	}

	return true, value, nil
}

// HealthCheck pings the backing Redis node.
func (s *TokenBlacklistStore) HealthCheck(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Ping(opCtx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", repository.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *TokenBlacklistStore) key(fingerprint string) string {
	trimmed := strings.TrimSpace(fingerprint)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", s.prefix, trimmed)
}

var (
	_ port.TokenBlacklist = (*TokenBlacklistStore)(nil)
	_ port.StoreHealth    = (*TokenBlacklistStore)(nil)
)
