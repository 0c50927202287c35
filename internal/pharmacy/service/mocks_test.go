package service_test

import (
	"context"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/repository"
	"github.com/stretchr/testify/mock"
)

type mockCustomerStore struct{ mock.Mock }

func (m *mockCustomerStore) List(ctx context.Context) ([]*domain.Customer, error) {
	args := m.Called(ctx)
	customers, _ := args.Get(0).([]*domain.Customer)
	return customers, args.Error(1)
}

func (m *mockCustomerStore) Search(ctx context.Context, q string) ([]*domain.Customer, error) {
	args := m.Called(ctx, q)
	customers, _ := args.Get(0).([]*domain.Customer)
	return customers, args.Error(1)
}

func (m *mockCustomerStore) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*domain.Customer)
	return c, args.Error(1)
}

func (m *mockCustomerStore) Create(ctx context.Context, c *domain.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCustomerStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockScanStore struct{ mock.Mock }

func (m *mockScanStore) List(ctx context.Context, filter repository.ScanFilter) ([]*domain.Scan, error) {
	args := m.Called(ctx, filter)
	scans, _ := args.Get(0).([]*domain.Scan)
	return scans, args.Error(1)
}

func (m *mockScanStore) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Scan, error) {
	args := m.Called(ctx, customerID)
	scans, _ := args.Get(0).([]*domain.Scan)
	return scans, args.Error(1)
}

func (m *mockScanStore) Create(ctx context.Context, s *domain.Scan) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type mockNoteStore struct{ mock.Mock }

func (m *mockNoteStore) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Note, error) {
	args := m.Called(ctx, customerID)
	notes, _ := args.Get(0).([]*domain.Note)
	return notes, args.Error(1)
}

func (m *mockNoteStore) Create(ctx context.Context, n *domain.Note) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNoteStore) SetCompleted(ctx context.Context, id string, completed bool) (*domain.Note, error) {
	args := m.Called(ctx, id, completed)
	n, _ := args.Get(0).(*domain.Note)
	return n, args.Error(1)
}

func (m *mockNoteStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*domain.Profile)
	return p, args.Error(1)
}

func (m *mockProfileStore) Upsert(ctx context.Context, p *domain.Profile) error {
	return m.Called(ctx, p).Error(0)
}

type mockMetadata struct{ mock.Mock }

func (m *mockMetadata) UserMetadata(ctx context.Context, userID string) (map[string]string, error) {
	args := m.Called(ctx, userID)
	meta, _ := args.Get(0).(map[string]string)
	return meta, args.Error(1)
}

type recordingInvalidator struct {
	subjects []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, subjectID string) {
	r.subjects = append(r.subjects, subjectID)
}
