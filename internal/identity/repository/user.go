// Package repository persists accounts and sessions.
package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pillflow/pillflow-backend/pkg/database"
)

// Providers an account can be created with
const (
	ProviderEmail     = "email"
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
)

// Metadata is the free-form user metadata stored as JSONB
type Metadata map[string]string

// Value implements driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *Metadata) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}

	out := Metadata{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// User is an account
type User struct {
	ID              string     `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	Provider        string     `db:"provider" json:"provider"`
	ProviderSubject *string    `db:"provider_subject" json:"-"`
	Metadata        Metadata   `db:"metadata" json:"metadata"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	LastSignInAt    *time.Time `db:"last_sign_in_at" json:"last_sign_in_at,omitempty"`
}

const userColumns = `id, email, password_hash, provider, provider_subject, metadata, created_at, updated_at, last_sign_in_at`

// UserRepository handles account persistence
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts an account. A duplicate email is a conflict.
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.TrimSpace(u.Email)

	query := `
		INSERT INTO users (id, email, password_hash, provider, provider_subject, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.Provider, u.ProviderSubject, u.Metadata,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return database.MapError(err, "user")
}

// GetByEmail finds an account by case-insensitive email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	if err := r.db.GetContext(ctx, &u, query, strings.TrimSpace(email)); err != nil {
		return nil, database.MapError(err, "user")
	}
	return &u, nil
}

// GetByID finds an account by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		return nil, database.MapError(err, "user")
	}
	return &u, nil
}

// MergeMetadata adds provider claims to an existing account's metadata
func (r *UserRepository) MergeMetadata(ctx context.Context, id string, meta Metadata) error {
	query := `UPDATE users SET metadata = metadata || $2::jsonb, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, meta)
	return database.MapError(err, "user")
}

// TouchSignIn records a successful sign-in
func (r *UserRepository) TouchSignIn(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_sign_in_at = NOW() WHERE id = $1`, id)
	return database.MapError(err, "user")
}

// UserMetadata returns the account's metadata, used to seed profiles
func (r *UserRepository) UserMetadata(ctx context.Context, userID string) (map[string]string, error) {
	var meta Metadata
	if err := r.db.GetContext(ctx, &meta, `SELECT metadata FROM users WHERE id = $1`, userID); err != nil {
		return nil, database.MapError(err, "user")
	}
	return meta, nil
}
