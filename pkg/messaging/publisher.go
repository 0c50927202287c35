package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pillflow/pillflow-backend/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventPublisher is what services depend on. *Publisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// Publisher sends persistent JSON events to one topic exchange, routed by
// event type.
type Publisher struct {
	rmq      *RabbitMQ
	exchange string
	source   string
	logger   *logger.Logger
}

// NewPublisher declares exchange and returns a publisher for it
func NewPublisher(rmq *RabbitMQ, exchange, source string, log *logger.Logger) (*Publisher, error) {
	if err := rmq.DeclareExchange(exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &Publisher{
		rmq:      rmq,
		exchange: exchange,
		source:   source,
		logger:   log.WithComponent("publisher"),
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	msg, event, err := envelope(eventType, p.source, CorrelationID(ctx), data)
	if err != nil {
		return err
	}

	if err := p.rmq.Channel().PublishWithContext(ctx, p.exchange, eventType, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	p.logger.Debug().
		Str("exchange", p.exchange).
		Str("event_type", eventType).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("event published")
	return nil
}

// envelope wraps data in an Event and the AMQP properties that mirror it.
func envelope(eventType, source, correlationID string, data interface{}) (amqp.Publishing, *Event, error) {
	event, err := NewEvent(eventType, source, correlationID, data)
	if err != nil {
		return amqp.Publishing{}, nil, fmt.Errorf("failed to create event: %w", err)
	}
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.ID,
		Timestamp:     event.Timestamp,
		Type:          eventType,
		AppId:         source,
		CorrelationId: correlationID,
		Body:          body,
	}, event, nil
}

type correlationKey struct{}

// WithCorrelationID carries id into published events and handler contexts.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation ID carried by ctx, or ""
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
