package port

import (
	"context"

	"github.com/786262170/lumina-api/internal/core/domain"
)

// EventPublisher emits token lifecycle events for downstream consumers.
type EventPublisher interface {
	PublishSessionIssued(ctx context.Context, event domain.SessionIssuedEvent) error
	PublishTokenRevoked(ctx context.Context, event domain.TokenRevokedEvent) error
	PublishSubjectRevoked(ctx context.Context, event domain.SubjectRevokedEvent) error
}
