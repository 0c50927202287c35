package events

import (
	"context"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/pillflow/pillflow-backend/pkg/messaging"
)

// PharmacyEventPublisher publishes pharmacy domain events.
// Failures are logged and never returned; a nil publisher is a no-op.
type PharmacyEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewPharmacyEventPublisher creates a publisher on the pharmacy exchange
func NewPharmacyEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*PharmacyEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePharmacyEvents, "pillflow-service", log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing EventPublisher
func NewWithPublisher(publisher messaging.EventPublisher, log *logger.Logger) *PharmacyEventPublisher {
	return &PharmacyEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishCustomerCreated publishes a customer created event
func (p *PharmacyEventPublisher) PublishCustomerCreated(ctx context.Context, c *domain.Customer) {
	if p == nil {
		return
	}
	data := messaging.CustomerCreatedEvent{
		CustomerID: c.ID,
		UserID:     c.UserID,
		Name:       c.Name,
	}
	if err := p.publisher.Publish(ctx, messaging.EventCustomerCreated, data); err != nil {
		p.logger.Error().Err(err).Str("customer_id", c.ID).Msg("failed to publish customer created event")
	}
}

// PublishScanRecorded publishes a scan recorded event
func (p *PharmacyEventPublisher) PublishScanRecorded(ctx context.Context, s *domain.Scan) {
	if p == nil {
		return
	}
	data := messaging.ScanRecordedEvent{
		ScanID:         s.ID,
		UserID:         s.UserID,
		CustomerID:     s.CustomerID,
		Barcode:        s.Barcode,
		StaffInitials:  s.StaffInitials,
		WeeksSupply:    s.WeeksSupply,
		CollectionDate: s.CollectionDate,
		NextDueDate:    s.NextDueDate,
	}
	if err := p.publisher.Publish(ctx, messaging.EventScanRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("scan_id", s.ID).Msg("failed to publish scan recorded event")
	}
}

// PublishNote publishes a note lifecycle event of the given type
func (p *PharmacyEventPublisher) PublishNote(ctx context.Context, eventType, userID string, n *domain.Note) {
	if p == nil {
		return
	}
	data := messaging.NoteEvent{
		NoteID:      n.ID,
		CustomerID:  n.CustomerID,
		UserID:      userID,
		IsCompleted: n.IsCompleted,
	}
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("note_id", n.ID).Str("event_type", eventType).Msg("failed to publish note event")
	}
}

// PublishProfileUpdated publishes a profile updated event
func (p *PharmacyEventPublisher) PublishProfileUpdated(ctx context.Context, profile *domain.Profile) {
	if p == nil {
		return
	}
	data := messaging.ProfileUpdatedEvent{
		UserID:       profile.ID,
		PharmacyName: profile.PharmacyName,
	}
	if err := p.publisher.Publish(ctx, messaging.EventProfileUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("user_id", profile.ID).Msg("failed to publish profile updated event")
	}
}
