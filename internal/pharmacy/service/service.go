// Package service holds the pharmacy business logic between the HTTP
// handlers and the owner-scoped repositories.
package service

import (
	"context"
	"time"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/repository"
)

// CustomerStore is the customer persistence used by the services
type CustomerStore interface {
	List(ctx context.Context) ([]*domain.Customer, error)
	Search(ctx context.Context, q string) ([]*domain.Customer, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	Create(ctx context.Context, c *domain.Customer) error
	Count(ctx context.Context) (int, error)
}

// ScanStore is the scan persistence used by the services
type ScanStore interface {
	List(ctx context.Context, filter repository.ScanFilter) ([]*domain.Scan, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*domain.Scan, error)
	Create(ctx context.Context, s *domain.Scan) error
}

// NoteStore is the note persistence used by the services
type NoteStore interface {
	ListByCustomer(ctx context.Context, customerID string) ([]*domain.Note, error)
	Create(ctx context.Context, n *domain.Note) error
	SetCompleted(ctx context.Context, id string, completed bool) (*domain.Note, error)
	Delete(ctx context.Context, id string) error
}

// ProfileStore is the profile persistence used by the services
type ProfileStore interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	Upsert(ctx context.Context, p *domain.Profile) error
}

// StatsInvalidator drops cached dashboard statistics for a subject
type StatsInvalidator interface {
	Invalidate(ctx context.Context, subjectID string)
}

type clock func() time.Time

var (
	_ CustomerStore = (*repository.CustomerRepository)(nil)
	_ ScanStore     = (*repository.ScanRepository)(nil)
	_ NoteStore     = (*repository.NoteRepository)(nil)
	_ ProfileStore  = (*repository.ProfileRepository)(nil)
)
