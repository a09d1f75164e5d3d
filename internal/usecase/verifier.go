package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/786262170/lumina-api/internal/core/domain"
	"github.com/786262170/lumina-api/internal/core/port"
	"github.com/786262170/lumina-api/internal/infra/security"
	"github.com/786262170/lumina-api/internal/infra/telemetry"
	"github.com/786262170/lumina-api/internal/repository"
)

// VerificationResult carries the decoded claims of a token that passed every
// policy check. Degraded marks results accepted on expiry alone while the
// revocation store was unreachable.
type VerificationResult struct {
	Claims      *security.SessionTokenClaims
	Fingerprint string
	Degraded    bool
}

// TokenVerifier is the single decision point for token validity. Checks run
// in cost order: local signature/expiry validation first, then one blacklist
// lookup, then one subject watermark lookup. A store outage becomes a policy
// decision here, never an error surfaced to the caller.
type TokenVerifier struct {
	codec       *security.TokenCodec
	blacklist   port.TokenBlacklist
	watermarks  port.SubjectWatermarkStore
	policy      domain.DegradationPolicy
	degradation *DegradationController
	metrics     *telemetry.RevocationMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewTokenVerifier constructs the verifier. Nil blacklist and watermark
// stores put verification permanently into degraded mode.
func NewTokenVerifier(
	codec *security.TokenCodec,
	blacklist port.TokenBlacklist,
	watermarks port.SubjectWatermarkStore,
	policy domain.DegradationPolicy,
	degradation *DegradationController,
	logger *zap.Logger,
) *TokenVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if degradation == nil {
		degradation = NewDegradationController(logger)
	}
	if blacklist == nil || watermarks == nil {
		degradation.ForcePermanentDegraded("revocation store not configured")
	}

	verifier := &TokenVerifier{
		codec:       codec,
		blacklist:   blacklist,
		watermarks:  watermarks,
		policy:      policy,
		degradation: degradation,
		logger:      logger,
	}
	verifier.now = func() time.Time { return time.Now().UTC() }
	return verifier
}

// WithClock overrides the verifier clock for deterministic tests.
func (v *TokenVerifier) WithClock(clock func() time.Time) *TokenVerifier {
	if clock != nil {
		v.now = clock
	}
	return v
}

// WithMetrics wires verification outcome counters.
func (v *TokenVerifier) WithMetrics(metrics *telemetry.RevocationMetrics) *TokenVerifier {
	v.metrics = metrics
	return v
}

// Verify runs the full validity decision for an encoded token. On rejection
// the returned error is one of the domain token sentinels; infrastructure
// errors never escape.
func (v *TokenVerifier) Verify(ctx context.Context, encoded string) (*VerificationResult, error) {
	claims, err := v.codec.Decode(encoded, v.now())
	if err != nil {
		v.observeRejection(err)
		return nil, err
	}

	result := &VerificationResult{
		Claims:      claims,
		Fingerprint: security.FingerprintToken(encoded),
	}

	if v.blacklist == nil || v.watermarks == nil {
		result.Degraded = true
		v.metrics.ObserveVerification("valid_degraded")
		return result, nil
	}

	revoked, reason, err := v.blacklist.IsRevoked(ctx, result.Fingerprint)
	if err != nil {
		return v.handleStoreOutage(result, err)
	}
	if revoked {
		v.degradation.Observe(true)
		v.metrics.ObserveVerification("revoked")
		v.logger.Debug("rejected revoked token",
			zap.String("fingerprint", result.Fingerprint),
			zap.String("reason", reason),
		)
		return nil, domain.ErrTokenRevoked
	}

	watermark, err := v.watermarks.GetWatermark(ctx, claims.Subject)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// No bulk revocation for this subject.
	case err != nil:
		return v.handleStoreOutage(result, err)
	default:
		if claims.IssuedAt != nil && claims.IssuedAt.Time.Before(watermark) {
			v.degradation.Observe(true)
			v.metrics.ObserveVerification("revoked_by_subject")
			return nil, domain.ErrTokenRevokedBySubject
		}
	}

	v.degradation.Observe(true)
	v.metrics.ObserveVerification("valid")
	return result, nil
}

// handleStoreOutage turns a store failure into the configured policy outcome:
// lenient accepts on expiry alone, strict rejects outright.
func (v *TokenVerifier) handleStoreOutage(result *VerificationResult, cause error) (*VerificationResult, error) {
	if !errors.Is(cause, repository.ErrStoreUnavailable) {
		// Non-connectivity failures (corrupt payloads and the like) are rare
		// enough to treat the same way; the distinction is logged.
		v.logger.Warn("revocation store returned unexpected error", zap.Error(cause))
	}

	v.degradation.Observe(false)

	if v.policy.IsStrict() {
		v.metrics.ObserveVerification("rejected_unavailable")
		return nil, domain.ErrRevocationUnavailable
	}

	result.Degraded = true
	v.metrics.ObserveVerification("valid_degraded")
	return result, nil
}

func (v *TokenVerifier) observeRejection(err error) {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		v.metrics.ObserveVerification("expired")
	case errors.Is(err, domain.ErrTokenBadSignature):
		v.metrics.ObserveVerification("bad_signature")
	default:
		v.metrics.ObserveVerification("malformed")
	}
}
