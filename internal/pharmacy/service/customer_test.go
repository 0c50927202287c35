package service_test

import (
	"testing"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/events"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/service"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/pillflow/pillflow-backend/pkg/messaging"
	"github.com/pillflow/pillflow-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCustomerService_Create(t *testing.T) {
	customers := &mockCustomerStore{}
	invalidator := &recordingInvalidator{}
	publisher := testutil.NewMockPublisher()
	svc := service.NewCustomerService(customers, invalidator, events.NewWithPublisher(publisher, logger.Nop()), logger.Nop())

	customers.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Customer) bool {
		return c.Name == "Alice Brown" && c.Address == nil
	})).Run(func(args mock.Arguments) {
		c := args.Get(1).(*domain.Customer)
		c.ID = "c-1"
		c.UserID = subject
	}).Return(nil)

	blank := "   "
	c, err := svc.Create(subjectCtx(), &service.CreateCustomerRequest{Name: "  Alice Brown ", Address: &blank})

	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ID)
	assert.Equal(t, []string{subject}, invalidator.subjects)
	publisher.AssertEventPublished(t, messaging.EventCustomerCreated)
	customers.AssertExpectations(t)
}

func TestCustomerService_Search(t *testing.T) {
	customers := &mockCustomerStore{}
	svc := service.NewCustomerService(customers, nil, nil, logger.Nop())

	want := []*domain.Customer{{ID: "c-1", Name: "Alice"}}
	customers.On("Search", mock.Anything, "ali").Return(want, nil)

	got, err := svc.Search(subjectCtx(), "ali")

	require.NoError(t, err)
	assert.Equal(t, want, got)
}
