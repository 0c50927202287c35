package service

import (
	"context"
	"strings"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/events"
	"github.com/pillflow/pillflow-backend/pkg/logger"
)

// CreateCustomerRequest is the payload for adding a customer
type CreateCustomerRequest struct {
	Name    string       `json:"name" validate:"required,max=200"`
	DOB     *domain.Date `json:"dob,omitempty"`
	Address *string      `json:"address,omitempty" validate:"omitempty,max=500"`
}

// CustomerService handles customer search, selection and creation
type CustomerService struct {
	customers   CustomerStore
	invalidator StatsInvalidator
	publisher   *events.PharmacyEventPublisher
	logger      *logger.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(
	customers CustomerStore,
	invalidator StatsInvalidator,
	publisher *events.PharmacyEventPublisher,
	log *logger.Logger,
) *CustomerService {
	return &CustomerService{
		customers:   customers,
		invalidator: invalidator,
		publisher:   publisher,
		logger:      log,
	}
}

// Search lists customers whose name contains q; a blank q lists all
func (s *CustomerService) Search(ctx context.Context, q string) ([]*domain.Customer, error) {
	return s.customers.Search(ctx, q)
}

// Get returns a single customer
func (s *CustomerService) Get(ctx context.Context, id string) (*domain.Customer, error) {
	return s.customers.GetByID(ctx, id)
}

// Create adds a customer for the current subject
func (s *CustomerService) Create(ctx context.Context, req *CreateCustomerRequest) (*domain.Customer, error) {
	c := &domain.Customer{
		Name:    strings.TrimSpace(req.Name),
		DOB:     req.DOB,
		Address: trimOptional(req.Address),
	}

	if err := s.customers.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().Str("customer_id", c.ID).Msg("customer created")
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, c.UserID)
	}
	s.publisher.PublishCustomerCreated(ctx, c)

	return c, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
