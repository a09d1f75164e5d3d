package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/786262170/lumina-api/internal/core/domain"
	"github.com/786262170/lumina-api/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, subject string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("subject", subject),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishSessionIssued logs auth.session.issued events.
func (p *StubPublisher) PublishSessionIssued(_ context.Context, event domain.SessionIssuedEvent) error {
	payload := map[string]any{
		"subject":    event.Subject,
		"jti":        event.JTI,
		"issued_at":  event.IssuedAt,
		"expires_at": event.ExpiresAt,
		"guest":      event.Guest,
		"metadata":   event.Metadata,
	}
	p.logEvent("auth.session.issued", event.Subject, event.IssuedAt, payload)
	return nil
}

// PublishTokenRevoked logs auth.token.revoked events.
func (p *StubPublisher) PublishTokenRevoked(_ context.Context, event domain.TokenRevokedEvent) error {
	payload := map[string]any{
		"subject":     event.Subject,
		"fingerprint": event.Fingerprint,
		"reason":      event.Reason,
		"revoked_at":  event.RevokedAt,
		"expires_at":  event.ExpiresAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("auth.token.revoked", event.Subject, event.RevokedAt, payload)
	return nil
}

// PublishSubjectRevoked logs auth.subject.revoked events.
func (p *StubPublisher) PublishSubjectRevoked(_ context.Context, event domain.SubjectRevokedEvent) error {
	payload := map[string]any{
		"subject":        event.Subject,
		"revoked_before": event.RevokedBefore,
		"reason":         event.Reason,
		"metadata":       event.Metadata,
	}
	p.logEvent("auth.subject.revoked", event.Subject, event.RevokedBefore, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
