// Package testutil provides testing utilities for the pillflow backend:
// sqlmock wrappers, HTTP helpers and a PostgreSQL testcontainer.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/pillflow/pillflow-backend/pkg/database"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const postgresImage = "postgres:15-alpine"

// PostgresContainer is a throwaway PostgreSQL with its connection string
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// ContainerOption customizes the container before it starts
type ContainerOption func(*containerSettings)

type containerSettings struct {
	image    string
	database string
	user     string
	password string
}

// WithDatabaseName overrides the database created in the container
func WithDatabaseName(name string) ContainerOption {
	return func(s *containerSettings) { s.database = name }
}

// StartPostgres runs a container and blocks until it accepts connections.
// Postgres logs the ready line twice: once for the init server and once
// for the real one.
func StartPostgres(ctx context.Context, opts ...ContainerOption) (*PostgresContainer, error) {
	s := containerSettings{
		image:    postgresImage,
		database: "pillflow_test",
		user:     "test",
		password: "test",
	}
	for _, opt := range opts {
		opt(&s)
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(s.image),
		postgres.WithDatabase(s.database),
		postgres.WithUsername(s.user),
		postgres.WithPassword(s.password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: container, DSN: dsn}, nil
}

// OpenMigrated connects to the container and applies the embedded migrations
func (c *PostgresContainer) OpenMigrated(ctx context.Context) (*database.DB, error) {
	db, err := database.Open(c.DSN, logger.Nop())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}
	return db, nil
}
