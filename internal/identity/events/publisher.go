package events

import (
	"context"

	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/pillflow/pillflow-backend/pkg/messaging"
)

// IdentityEventPublisher publishes account and session events.
// Failures are logged and never returned; a nil publisher is a no-op.
type IdentityEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewIdentityEventPublisher creates a publisher on the identity exchange
func NewIdentityEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*IdentityEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeIdentityEvents, "pillflow-service", log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing EventPublisher
func NewWithPublisher(publisher messaging.EventPublisher, log *logger.Logger) *IdentityEventPublisher {
	return &IdentityEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishUserSignedUp publishes a user signed up event
func (p *IdentityEventPublisher) PublishUserSignedUp(ctx context.Context, userID, email, provider string, metadata map[string]string) {
	if p == nil {
		return
	}
	data := messaging.UserSignedUpEvent{
		UserID:   userID,
		Email:    email,
		Provider: provider,
		Metadata: metadata,
	}
	if err := p.publisher.Publish(ctx, messaging.EventUserSignedUp, data); err != nil {
		p.logger.Error().Err(err).Str("user_id", userID).Msg("failed to publish user signed up event")
	}
}

// PublishSession publishes a signed in or signed out event
func (p *IdentityEventPublisher) PublishSession(ctx context.Context, eventType, userID, sessionID, provider string) {
	if p == nil {
		return
	}
	data := messaging.SessionEvent{
		UserID:    userID,
		SessionID: sessionID,
		Provider:  provider,
	}
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("user_id", userID).Str("event_type", eventType).Msg("failed to publish session event")
	}
}
