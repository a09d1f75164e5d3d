package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/786262170/lumina-api/internal/core/domain"
	"github.com/786262170/lumina-api/internal/core/port"
	"github.com/786262170/lumina-api/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Subject   string           `json:"subject,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, subject string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Subject:   subject,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(subject),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishSessionIssued publishes auth.session.issued events.
func (p *EventPublisher) PublishSessionIssued(ctx context.Context, event domain.SessionIssuedEvent) error {
	payload := struct {
		Subject   string         `json:"subject"`
		JTI       string         `json:"jti"`
		IssuedAt  time.Time      `json:"issued_at"`
		ExpiresAt time.Time      `json:"expires_at"`
		Guest     bool           `json:"guest"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		Subject:   event.Subject,
		JTI:       event.JTI,
		IssuedAt:  event.IssuedAt.UTC(),
		ExpiresAt: event.ExpiresAt.UTC(),
		Guest:     event.Guest,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.session.issued", event.Subject, event.IssuedAt, payload)
}

// PublishTokenRevoked publishes auth.token.revoked events.
func (p *EventPublisher) PublishTokenRevoked(ctx context.Context, event domain.TokenRevokedEvent) error {
	payload := struct {
		Subject     string         `json:"subject"`
		Fingerprint string         `json:"fingerprint"`
		Reason      string         `json:"reason"`
		RevokedAt   time.Time      `json:"revoked_at"`
		ExpiresAt   time.Time      `json:"expires_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		Subject:     event.Subject,
		Fingerprint: event.Fingerprint,
		Reason:      event.Reason,
		RevokedAt:   event.RevokedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.token.revoked", event.Subject, event.RevokedAt, payload)
}

// PublishSubjectRevoked publishes auth.subject.revoked events.
func (p *EventPublisher) PublishSubjectRevoked(ctx context.Context, event domain.SubjectRevokedEvent) error {
	payload := struct {
		Subject       string         `json:"subject"`
		RevokedBefore time.Time      `json:"revoked_before"`
		Reason        string         `json:"reason"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		Subject:       event.Subject,
		RevokedBefore: event.RevokedBefore.UTC(),
		Reason:        event.Reason,
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.subject.revoked", event.Subject, event.RevokedBefore, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
