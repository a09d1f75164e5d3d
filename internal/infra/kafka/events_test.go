package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/786262170/lumina-api/internal/core/domain"
	"github.com/786262170/lumina-api/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()

	asyncProducer := newFakeAsyncProducer()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "lumina",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "lumina-api",
		Env:  "test",
	}, zaptest.NewLogger(t))

	return publisher, asyncProducer
}

func receiveEnvelope(t *testing.T, asyncProducer *fakeAsyncProducer, wantTopic string) map[string]any {
	t.Helper()

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != wantTopic {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return envelope
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
		return nil
	}
}

func TestPublishTokenRevoked(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	revokedAt := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	event := domain.TokenRevokedEvent{
		EventID:     "event-123",
		Subject:     "user-789",
		Fingerprint: "abcdef0123456789",
		Reason:      "logout",
		RevokedAt:   revokedAt,
		ExpiresAt:   revokedAt.Add(time.Hour),
		Metadata:    map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishTokenRevoked(context.Background(), event); err != nil {
		t.Fatalf("PublishTokenRevoked returned error: %v", err)
	}

	envelope := receiveEnvelope(t, asyncProducer, "lumina.auth.token.revoked")

	if got := envelope["event_type"]; got != "auth.token.revoked" {
		t.Fatalf("unexpected event_type: %v", got)
	}

	if got := envelope["subject"]; got != event.Subject {
		t.Fatalf("unexpected subject: %v", got)
	}

	timestamp, ok := envelope["timestamp"].(string)
	if !ok {
		t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
	}
	if timestamp != revokedAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp: %s", timestamp)
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}

	if got := payload["fingerprint"]; got != event.Fingerprint {
		t.Fatalf("unexpected fingerprint: %v", got)
	}

	if got := payload["reason"]; got != event.Reason {
		t.Fatalf("unexpected reason: %v", got)
	}

	metadata, ok := payload["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("metadata not a map: %T", payload["metadata"])
	}
	if metadata["source"] != "unit-test" {
		t.Fatalf("metadata did not round-trip: %v", metadata)
	}

	envelopeMetadata, ok := envelope["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
	}
	if envelopeMetadata["service"] != "lumina-api" {
		t.Fatalf("unexpected metadata service: %v", envelopeMetadata["service"])
	}
	if envelopeMetadata["environment"] != "test" {
		t.Fatalf("unexpected metadata environment: %v", envelopeMetadata["environment"])
	}
}

func TestPublishSessionIssued(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	issuedAt := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	event := domain.SessionIssuedEvent{
		EventID:   "evt-001",
		Subject:   "guest_0123456789ab",
		JTI:       "jti-456",
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(2 * time.Hour),
		Guest:     true,
	}

	if err := publisher.PublishSessionIssued(context.Background(), event); err != nil {
		t.Fatalf("PublishSessionIssued returned error: %v", err)
	}

	envelope := receiveEnvelope(t, asyncProducer, "lumina.auth.session.issued")

	if got := envelope["event_id"]; got != event.EventID {
		t.Fatalf("unexpected event_id: %v", got)
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}

	if got := payload["jti"]; got != event.JTI {
		t.Fatalf("unexpected jti: %v", got)
	}

	guest, ok := payload["guest"].(bool)
	if !ok || !guest {
		t.Fatalf("expected guest=true, got %v", payload["guest"])
	}
}

func TestPublishSubjectRevoked(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	revokedBefore := time.Date(2026, 7, 14, 10, 30, 0, 0, time.UTC)
	event := domain.SubjectRevokedEvent{
		EventID:       "evt-002",
		Subject:       "user-123",
		RevokedBefore: revokedBefore,
		Reason:        "password_change",
	}

	if err := publisher.PublishSubjectRevoked(context.Background(), event); err != nil {
		t.Fatalf("PublishSubjectRevoked returned error: %v", err)
	}

	envelope := receiveEnvelope(t, asyncProducer, "lumina.auth.subject.revoked")

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}

	revokedBeforeValue, ok := payload["revoked_before"].(string)
	if !ok {
		t.Fatalf("revoked_before not a string: %T", payload["revoked_before"])
	}
	if revokedBeforeValue != revokedBefore.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected revoked_before: %s", revokedBeforeValue)
	}

	if got := payload["reason"]; got != event.Reason {
		t.Fatalf("unexpected reason: %v", got)
	}
}
