package consumers

import (
	"context"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/pillflow/pillflow-backend/pkg/messaging"
)

// QueueIdentityEvents is the pharmacy side's queue on the identity exchange
const QueueIdentityEvents = "pharmacy.identity-events"

// ProfileEnsurer creates a profile unless one already exists
type ProfileEnsurer interface {
	Ensure(ctx context.Context, subjectID string, meta map[string]string) (*domain.Profile, error)
}

// IdentityEventConsumer provisions profiles for new accounts
type IdentityEventConsumer struct {
	consumer *messaging.Consumer
	profiles ProfileEnsurer
	logger   *logger.Logger
}

// NewIdentityEventConsumer declares the queue, binds it to the identity
// exchange and registers the handlers
func NewIdentityEventConsumer(rmq *messaging.RabbitMQ, profiles ProfileEnsurer, log *logger.Logger) (*IdentityEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, QueueIdentityEvents, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeIdentityEvents, "identity.user.#"); err != nil {
		return nil, err
	}

	c := NewIdentityEventHandler(profiles, log)
	c.consumer = consumer
	consumer.RegisterHandler(messaging.EventUserSignedUp, c.HandleUserSignedUp)

	return c, nil
}

// NewIdentityEventHandler builds the handlers without a broker connection
func NewIdentityEventHandler(profiles ProfileEnsurer, log *logger.Logger) *IdentityEventConsumer {
	return &IdentityEventConsumer{
		profiles: profiles,
		logger:   log,
	}
}

// Start starts consuming messages
func (c *IdentityEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// HandleUserSignedUp creates the new account's profile from its metadata.
// Redelivery is harmless; Ensure keeps an existing profile.
func (c *IdentityEventConsumer) HandleUserSignedUp(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserSignedUpEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("user_id", data.UserID).
		Str("provider", data.Provider).
		Msg("received user signed up event")

	_, err := c.profiles.Ensure(ctx, data.UserID, data.Metadata)
	return err
}
