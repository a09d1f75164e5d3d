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

const defaultSubjectWatermarkPrefix = "revocation:subject"

// SubjectWatermarkRepository persists per-subject revocation watermarks. A
// single timestamp per subject replaces per-token enumeration for the
// "revoke everything" path.
type SubjectWatermarkRepository struct {
	client    *red.Client
	prefix    string
	opTimeout time.Duration
}

// NewSubjectWatermarkRepository constructs the watermark adapter.
func NewSubjectWatermarkRepository(client *red.Client, keyPrefix string, opTimeout time.Duration) *SubjectWatermarkRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSubjectWatermarkPrefix
	}
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	return &SubjectWatermarkRepository{client: client, prefix: prefix, opTimeout: opTimeout}
}

// SetWatermark overwrites the subject watermark. The TTL should equal the
// longest token lifetime; older watermarks can affect no remaining token.
func (r *SubjectWatermarkRepository) SetWatermark(ctx context.Context, subject string, revokedBefore time.Time, ttl time.Duration) error {
	key := r.key(subject)
	if key == "" {
		return errors.New("subject is required")
	}
	if revokedBefore.IsZero() {
		return errors.New("revocation timestamp is required")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	payload := revokedBefore.UTC().Format(time.RFC3339Nano)

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Set(opCtx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set subject watermark: %v", repository.ErrStoreUnavailable, err)
	}

	return nil
}

// GetWatermark fetches the subject watermark, returning repository.ErrNotFound
// when the subject has no active bulk revocation.
func (r *SubjectWatermarkRepository) GetWatermark(ctx context.Context, subject string) (time.Time, error) {
	key := r.key(subject)
	if key == "" {
		return time.Time{}, errors.New("subject is required")
	}

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	value, err := r.client.Get(opCtx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return time.Time{}, repository.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("%w: redis get subject watermark: %v", repository.ErrStoreUnavailable, err)
	}

	parsed, parseErr := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if parseErr != nil {
		return time.Time{}, fmt.Errorf("parse subject watermark: %w", parseErr)
	}

	return parsed.UTC(), nil
}

func (r *SubjectWatermarkRepository) key(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.prefix, trimmed)
}

var _ port.SubjectWatermarkStore = (*SubjectWatermarkRepository)(nil)
