package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pillflow/pillflow-backend/pkg/database"
)

var (
	globalContainer *PostgresContainer
	globalDB        *database.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite shares one migrated PostgreSQL container across tests
type IntegrationSuite struct {
	Container *PostgresContainer
	DB        *database.DB
}

// NewIntegrationSuite starts (once per process) the shared container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    suite, err = testutil.NewIntegrationSuite(context.Background())
//	    ...
//	    os.Exit(m.Run())
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = StartPostgres(ctx, WithDatabaseName("pillflow_integration"))
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.OpenMigrated(ctx)
	})
	if containerErr != nil {
		return nil, containerErr
	}
	return &IntegrationSuite{Container: globalContainer, DB: globalDB}, nil
}

// CreateUser inserts an account row and returns its id. Each test gets its
// own subject, which is enough isolation since every table is owner scoped.
func (s *IntegrationSuite) CreateUser(t *testing.T, ctx context.Context) string {
	t.Helper()
	id := uuid.NewString()
	email := fmt.Sprintf("%s@test.local", id)
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO users (id, email) VALUES ($1, $2)`, id, email); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	t.Cleanup(func() {
		s.DB.ExecContext(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

// TerminateContainer stops the shared container. Call from TestMain after m.Run.
func TerminateContainer(ctx context.Context) {
	if globalDB != nil {
		globalDB.Close()
	}
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}
