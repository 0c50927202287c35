package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/pkg/database"
	"github.com/pillflow/pillflow-backend/pkg/owner"
)

// ScanFilter narrows a scan listing. Zero values are ignored.
// From and To are inclusive bounds on collection_date.
type ScanFilter struct {
	CustomerID string
	From       *time.Time
	To         *time.Time
}

// ScanRepository handles Webster pack scan persistence
type ScanRepository struct {
	db *database.DB
}

// NewScanRepository creates a new scan repository
func NewScanRepository(db *database.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// List returns the owner's scans with customer names, newest collection first
func (r *ScanRepository) List(ctx context.Context, filter ScanFilter) ([]*domain.Scan, error) {
	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return nil, err
	}

	conditions := []string{"s.user_id = $1"}
	args := []interface{}{subjectID}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("s.customer_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("s.collection_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("s.collection_date <= $%d", len(args)))
	}

	scans := []*domain.Scan{}
	err = r.db.WithOwner(ctx, subjectID, func(ctx context.Context) error {
		query := `
			SELECT s.id, s.user_id, s.customer_id, c.name AS customer_name,
			       s.barcode, s.staff_initials, s.weeks_supply,
			       s.collection_date, s.next_due_date, s.created_at
			FROM webster_pack_scans s
			JOIN customers c ON c.id = s.customer_id
			WHERE ` + strings.Join(conditions, " AND ") + `
			ORDER BY s.collection_date DESC
		`
		return r.db.Conn(ctx).SelectContext(ctx, &scans, query, args...)
	})
	if err != nil {
		return nil, database.MapError(err, "scan")
	}

	return scans, nil
}

// ListByCustomer returns one customer's scans, newest collection first
func (r *ScanRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Scan, error) {
	return r.List(ctx, ScanFilter{CustomerID: customerID})
}

// Create inserts a scan. The caller sets NextDueDate; it is stored as given.
func (r *ScanRepository) Create(ctx context.Context, s *domain.Scan) error {
	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return err
	}

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.UserID = subjectID

	err = r.db.WithOwner(ctx, subjectID, func(ctx context.Context) error {
		// The customer must belong to the same owner; the insert selects
		// through customers so a foreign customer id inserts nothing.
		query := `
			INSERT INTO webster_pack_scans (
				id, user_id, customer_id, barcode, staff_initials,
				weeks_supply, collection_date, next_due_date
			)
			SELECT $1, $2, c.id, $4, $5, $6, $7, $8
			FROM customers c
			WHERE c.id = $3 AND c.user_id = $2
			RETURNING created_at, (SELECT name FROM customers WHERE id = $3)
		`
		return r.db.Conn(ctx).QueryRowxContext(ctx, query,
			s.ID, s.UserID, s.CustomerID, s.Barcode, s.StaffInitials,
			s.WeeksSupply, s.CollectionDate, s.NextDueDate,
		).Scan(&s.CreatedAt, &s.CustomerName)
	})
	if err != nil {
		return database.MapError(err, "customer")
	}

	return nil
}
