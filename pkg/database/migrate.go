package database

import (
	"embed"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationSource returns the embedded schema migrations
func MigrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
}

// Migrate applies pending up migrations and returns how many ran
func (db *DB) Migrate() (int, error) {
	n, err := migrate.Exec(db.DB.DB, "postgres", MigrationSource(), migrate.Up)
	if err != nil {
		return n, fmt.Errorf("failed to apply migrations: %w", err)
	}
	db.logger.Info().Int("applied", n).Msg("database migrations applied")
	return n, nil
}
