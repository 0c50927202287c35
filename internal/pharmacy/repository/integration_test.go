//go:build integration

package repository_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/repository"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/owner"
	"github.com/pillflow/pillflow-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func ctxFor(id string) context.Context {
	return owner.WithSubject(context.Background(), id, "")
}

func TestIntegration_CustomerLifecycle(t *testing.T) {
	ctx := context.Background()
	userID := suite.CreateUser(t, ctx)
	repo := repository.NewCustomerRepository(suite.DB)

	dob := domain.NewDate(1948, time.July, 9)
	for _, name := range []string{"Zoe 100% Real", "alice brown", "Alan_Smith"} {
		c := &domain.Customer{Name: name}
		if name == "alice brown" {
			c.DOB = &dob
		}
		require.NoError(t, repo.Create(ctxFor(userID), c))
	}

	all, err := repo.List(ctxFor(userID))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Alan_Smith", all[0].Name)

	found, err := repo.Search(ctxFor(userID), "ALI")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NotNil(t, found[0].DOB)
	assert.Equal(t, "1948-07-09", found[0].DOB.String())

	found, err = repo.Search(ctxFor(userID), "%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Zoe 100% Real", found[0].Name)

	total, err := repo.Count(ctxFor(userID))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestIntegration_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	alice := suite.CreateUser(t, ctx)
	bob := suite.CreateUser(t, ctx)
	customers := repository.NewCustomerRepository(suite.DB)
	scans := repository.NewScanRepository(suite.DB)

	c := &domain.Customer{Name: "Private Patient"}
	require.NoError(t, customers.Create(ctxFor(alice), c))

	_, err := customers.GetByID(ctxFor(bob), c.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	scan := domain.NewScan("", c.ID, "WP-1", "BB", 1, time.Time{}, time.Now())
	err = scans.Create(ctxFor(bob), scan)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	list, err := scans.List(ctxFor(bob), repository.ScanFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestIntegration_ScansAndNotes(t *testing.T) {
	ctx := context.Background()
	userID := suite.CreateUser(t, ctx)
	customers := repository.NewCustomerRepository(suite.DB)
	scans := repository.NewScanRepository(suite.DB)
	notes := repository.NewNoteRepository(suite.DB)

	c := &domain.Customer{Name: "Alice Brown"}
	require.NoError(t, customers.Create(ctxFor(userID), c))

	jan := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{jan, feb} {
		s := domain.NewScan("", c.ID, "WP-1", "ab", 2, at, time.Now())
		require.NoError(t, scans.Create(ctxFor(userID), s))
		assert.Equal(t, "Alice Brown", s.CustomerName)
	}

	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	list, err := scans.List(ctxFor(userID), repository.ScanFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].CollectionDate.Equal(feb))
	assert.True(t, list[0].NextDueDate.Equal(feb.AddDate(0, 0, 14)))
	assert.Equal(t, "AB", list[0].StaffInitials)

	bad := domain.NewScan("", c.ID, "WP-2", "AB", 5, jan, time.Now())
	err = scans.Create(ctxFor(userID), bad)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	n := &domain.Note{CustomerID: c.ID, Content: "Call GP"}
	require.NoError(t, notes.Create(ctxFor(userID), n))

	updated, err := notes.SetCompleted(ctxFor(userID), n.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)

	require.NoError(t, notes.Delete(ctxFor(userID), n.ID))
	err = notes.Delete(ctxFor(userID), n.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestIntegration_ProfileUpsert(t *testing.T) {
	ctx := context.Background()
	userID := suite.CreateUser(t, ctx)
	repo := repository.NewProfileRepository(suite.DB)

	_, err := repo.Get(ctx, userID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	p := &domain.Profile{ID: userID, FirstName: "Jane", LastName: "Doe"}
	require.NoError(t, repo.Upsert(ctx, p))

	p.PharmacyName = "Corner Pharmacy"
	require.NoError(t, repo.Upsert(ctx, p))

	got, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Corner Pharmacy", got.PharmacyName)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}
