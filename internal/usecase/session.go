package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/786262170/lumina-api/internal/core/domain"
	"github.com/786262170/lumina-api/internal/core/port"
	"github.com/786262170/lumina-api/internal/infra/security"
	"github.com/786262170/lumina-api/internal/infra/telemetry"
)

var (
	// ErrNotRefreshToken indicates an access token was presented to the
	// refresh endpoint.
	ErrNotRefreshToken = errors.New("not a refresh token")
)

// SessionService is the entry point collaborators use for the token
// lifecycle: issuance, refresh, logout, and subject-wide revocation. It is
// the only component that writes to the revocation store.
type SessionService struct {
	codec      *security.TokenCodec
	verifier   *TokenVerifier
	blacklist  port.TokenBlacklist
	watermarks port.SubjectWatermarkStore
	events     port.EventPublisher
	metrics    *telemetry.RevocationMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(
	codec *security.TokenCodec,
	verifier *TokenVerifier,
	blacklist port.TokenBlacklist,
	watermarks port.SubjectWatermarkStore,
	events port.EventPublisher,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	service := &SessionService{
		codec:      codec,
		verifier:   verifier,
		blacklist:  blacklist,
		watermarks: watermarks,
		events:     events,
		logger:     logger,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the service clock for deterministic tests.
func (s *SessionService) WithClock(clock func() time.Time) *SessionService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithMetrics wires revocation write counters.
func (s *SessionService) WithMetrics(metrics *telemetry.RevocationMetrics) *SessionService {
	s.metrics = metrics
	return s
}

// IssueSession mints an access and refresh token pair for the subject, each
// with its own configured lifetime.
func (s *SessionService) IssueSession(ctx context.Context, subject string) (*domain.TokenPair, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	now := s.now()

	accessToken, accessClaims, err := s.codec.Issue(subject, domain.TokenTypeAccess, now)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, _, err := s.codec.Issue(subject, domain.TokenTypeRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	pair := &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IssuedAt:     now,
		ExpiresAt:    accessClaims.ExpiresAt.Time,
	}

	s.publishSessionIssued(ctx, subject, accessClaims, strings.HasPrefix(subject, guestSubjectPrefix))

	return pair, nil
}

const guestSubjectPrefix = "guest_"

// IssueGuestSession creates a fresh guest subject and mints a pair for it.
func (s *SessionService) IssueGuestSession(ctx context.Context) (string, *domain.TokenPair, error) {
	subject := guestSubjectPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	pair, err := s.IssueSession(ctx, subject)
	if err != nil {
		return "", nil, err
	}

	return subject, pair, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token goes through full policy verification first, so a revoked or expired
// refresh token cannot mint new credentials. The refresh token itself is not
// rotated.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	result, err := s.verifier.Verify(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	tokenType, err := result.Claims.Type()
	if err != nil || tokenType != domain.TokenTypeRefresh {
		return "", ErrNotRefreshToken
	}

	accessToken, _, err := s.codec.Issue(result.Claims.Subject, domain.TokenTypeAccess, s.now())
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}

	return accessToken, nil
}

// EndSession blacklists the presented token for its remaining validity.
// Logout is idempotent and never fails on an invalid token: a credential
// that no longer decodes or has already expired is dead either way, so the
// call is a no-op success.
func (s *SessionService) EndSession(ctx context.Context, token string) error {
	now := s.now()

	claims, err := s.codec.Decode(token, now)
	if err != nil {
		s.logger.Debug("logout of an invalid token is a no-op", zap.Error(err))
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(now)
	if ttl <= 0 {
		return nil
	}

	if s.blacklist == nil {
		s.logger.Warn("logout without revocation store, token stays valid until expiry")
		return nil
	}

	fingerprint := security.FingerprintToken(token)
	if err := s.blacklist.MarkRevoked(ctx, fingerprint, "logout", ttl); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	s.metrics.ObserveRevocation("token")
	s.publishTokenRevoked(ctx, claims, fingerprint, "logout", now)

	return nil
}

// RevokeAllSessions writes the subject watermark to now, invalidating every
// token of any type issued before this instant, including tokens never
// presented to this service. The watermark TTL equals the longest token
// lifetime; beyond that no affected token could still be valid.
func (s *SessionService) RevokeAllSessions(ctx context.Context, subject, reason string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return fmt.Errorf("subject is required")
	}

	if s.watermarks == nil {
		return fmt.Errorf("revocation store not configured")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "revoke_all"
	}

	now := s.now()
	if err := s.watermarks.SetWatermark(ctx, subject, now, s.codec.MaxLifetime()); err != nil {
		return fmt.Errorf("set subject watermark: %w", err)
	}

	s.metrics.ObserveRevocation("subject")
	s.publishSubjectRevoked(ctx, subject, reason, now)

	return nil
}

// Event emission is best-effort; a broker hiccup must not fail the
// authentication path.

func (s *SessionService) publishSessionIssued(ctx context.Context, subject string, claims *security.SessionTokenClaims, guest bool) {
	if s.events == nil {
		return
	}

	event := domain.SessionIssuedEvent{
		EventID:   uuid.NewString(),
		Subject:   subject,
		JTI:       claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		Guest:     guest,
	}

	if err := s.events.PublishSessionIssued(ctx, event); err != nil {
		s.logger.Warn("publish session issued event failed", zap.Error(err))
	}
}

func (s *SessionService) publishTokenRevoked(ctx context.Context, claims *security.SessionTokenClaims, fingerprint, reason string, revokedAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.TokenRevokedEvent{
		EventID:     uuid.NewString(),
		Subject:     claims.Subject,
		Fingerprint: fingerprint,
		Reason:      reason,
		RevokedAt:   revokedAt,
		ExpiresAt:   claims.ExpiresAt.Time,
	}

	if err := s.events.PublishTokenRevoked(ctx, event); err != nil {
		s.logger.Warn("publish token revoked event failed", zap.Error(err))
	}
}

func (s *SessionService) publishSubjectRevoked(ctx context.Context, subject, reason string, revokedBefore time.Time) {
	if s.events == nil {
		return
	}

	event := domain.SubjectRevokedEvent{
		EventID:       uuid.NewString(),
		Subject:       subject,
		RevokedBefore: revokedBefore,
		Reason:        reason,
	}

	if err := s.events.PublishSubjectRevoked(ctx, event); err != nil {
		s.logger.Warn("publish subject revoked event failed", zap.Error(err))
	}
}
