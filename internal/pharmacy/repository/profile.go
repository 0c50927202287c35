package repository

import (
	"context"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/pkg/database"
)

// ProfileRepository handles pharmacist profiles. A profile's id is the
// identity subject that owns it.
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get returns the profile for id. A missing profile is errors.ErrNotFound.
func (r *ProfileRepository) Get(ctx context.Context, id string) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithOwner(ctx, id, func(ctx context.Context) error {
		query := `
			SELECT id, first_name, last_name, pharmacy_name, pharmacy_address,
			       pharmacy_phone, created_at, updated_at
			FROM profiles
			WHERE id = $1
		`
		return r.db.Conn(ctx).GetContext(ctx, &profile, query, id)
	})
	if err != nil {
		return nil, database.MapError(err, "profile")
	}

	return &profile, nil
}

// Upsert creates or replaces the profile, refreshing updated_at
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	err := r.db.WithOwner(ctx, p.ID, func(ctx context.Context) error {
		query := `
			INSERT INTO profiles (
				id, first_name, last_name, pharmacy_name, pharmacy_address, pharmacy_phone
			) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				pharmacy_name = EXCLUDED.pharmacy_name,
				pharmacy_address = EXCLUDED.pharmacy_address,
				pharmacy_phone = EXCLUDED.pharmacy_phone,
				updated_at = NOW()
			RETURNING created_at, updated_at
		`
		return r.db.Conn(ctx).QueryRowxContext(ctx, query,
			p.ID, p.FirstName, p.LastName, p.PharmacyName, p.PharmacyAddress, p.PharmacyPhone,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
	})
	if err != nil {
		return database.MapError(err, "profile")
	}

	return nil
}
