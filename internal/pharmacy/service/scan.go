package service

import (
	"context"
	"time"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/events"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/repository"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/logger"
)

// RecordScanRequest is the payload for recording a pack collection.
// WeeksSupply 0 means one week; CollectionDate nil means now.
type RecordScanRequest struct {
	CustomerID     string     `json:"customer_id" validate:"required,uuid"`
	Barcode        string     `json:"barcode" validate:"required,max=200"`
	StaffInitials  string     `json:"staff_initials" validate:"required,initials"`
	WeeksSupply    int        `json:"weeks_supply" validate:"omitempty,min=1,max=4"`
	CollectionDate *time.Time `json:"collection_date,omitempty"`
}

// ScanService records collections and reads scan history
type ScanService struct {
	customers   CustomerStore
	scans       ScanStore
	invalidator StatsInvalidator
	publisher   *events.PharmacyEventPublisher
	logger      *logger.Logger
	now         clock
}

// NewScanService creates a new scan service
func NewScanService(
	customers CustomerStore,
	scans ScanStore,
	invalidator StatsInvalidator,
	publisher *events.PharmacyEventPublisher,
	log *logger.Logger,
) *ScanService {
	return &ScanService{
		customers:   customers,
		scans:       scans,
		invalidator: invalidator,
		publisher:   publisher,
		logger:      log,
		now:         time.Now,
	}
}

// Record stores a scan with its derived next due date
func (s *ScanService) Record(ctx context.Context, req *RecordScanRequest) (*domain.Scan, error) {
	if req.WeeksSupply != 0 && (req.WeeksSupply < domain.MinWeeksSupply || req.WeeksSupply > domain.MaxWeeksSupply) {
		return nil, errors.Validation(map[string]string{
			"weeks_supply": "must be between 1 and 4",
		})
	}

	var collected time.Time
	if req.CollectionDate != nil {
		collected = *req.CollectionDate
	}
	scan := domain.NewScan("", req.CustomerID, req.Barcode, req.StaffInitials, req.WeeksSupply, collected, s.now())

	if err := s.scans.Create(ctx, scan); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("scan_id", scan.ID).
		Str("customer_id", scan.CustomerID).
		Time("next_due_date", scan.NextDueDate).
		Msg("scan recorded")

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, scan.UserID)
	}
	s.publisher.PublishScanRecorded(ctx, scan)

	return scan, nil
}

// List returns the subject's scan history
func (s *ScanService) List(ctx context.Context, filter repository.ScanFilter) ([]*domain.Scan, error) {
	return s.scans.List(ctx, filter)
}

// ListByCustomer returns one customer's scans. The customer must be visible
// to the subject.
func (s *ScanService) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Scan, error) {
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.scans.ListByCustomer(ctx, customerID)
}

// Overview computes a customer's status card
func (s *ScanService) Overview(ctx context.Context, customerID string) (*domain.StatusOverview, error) {
	scans, err := s.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	overview := domain.Overview(customerID, scans, s.now())
	return &overview, nil
}
