package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/pkg/database"
	"github.com/pillflow/pillflow-backend/pkg/owner"
)

const customerColumns = `id, user_id, name, dob, address, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CustomerRepository handles customer persistence.
// Every query is scoped to the subject in the context.
type CustomerRepository struct {
	db *database.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *database.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// List returns the owner's customers ordered by name
func (r *CustomerRepository) List(ctx context.Context) ([]*domain.Customer, error) {
	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return nil, err
	}

	customers := []*domain.Customer{}
	err = r.db.WithOwner(ctx, subjectID, func(ctx context.Context) error {
		query := `
			SELECT ` + customerColumns + `
			FROM customers
			WHERE user_id = $1
			ORDER BY name ASC
		`
		return r.db.Conn(ctx).SelectContext(ctx, &customers, query, subjectID)
	})
	if err != nil {
		return nil, database.MapError(err, "customer")
	}

	return customers, nil
}

// Search returns customers whose name contains q, case-insensitively.
// LIKE wildcards in q match literally.
func (r *CustomerRepository) Search(ctx context.Context, q string) ([]*domain.Customer, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return r.List(ctx)
	}

	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return nil, err
	}

	pattern := "%" + likeEscaper.Replace(q) + "%"
	customers := []*domain.Customer{}
	err = r.db.WithOwner(ctx, subjectID, func(ctx context.Context) error {
		query := `
			SELECT ` + customerColumns + `
			FROM customers
			WHERE user_id = $1 AND name ILIKE $2
			ORDER BY name ASC
		`
		return r.db.Conn(ctx).SelectContext(ctx, &customers, query, subjectID, pattern)
	})
	if err != nil {
		return nil, database.MapError(err, "customer")
	}

	return customers, nil
}

// GetByID gets a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return nil, err
	}

	var customer domain.Customer
	err = r.db.WithOwner(ctx, subjectID, func(ctx context.Context) error {
		query := `
			SELECT ` + customerColumns + `
			FROM customers
			WHERE id = $1 AND user_id = $2
		`
		return r.db.Conn(ctx).GetContext(ctx, &customer, query, id, subjectID)
	})
	if err != nil {
		return nil, database.MapError(err, "customer")
	}

	return &customer, nil
}

// Create inserts a customer owned by the current subject
func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return err
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.UserID = subjectID

	err = r.db.WithOwner(ctx, subjectID, func(ctx context.Context) error {
		query := `
			INSERT INTO customers (id, user_id, name, dob, address)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`
		return r.db.Conn(ctx).QueryRowxContext(ctx, query,
			c.ID, c.UserID, c.Name, c.DOB, c.Address,
		).Scan(&c.CreatedAt)
	})
	if err != nil {
		return database.MapError(err, "customer")
	}

	return nil
}

// Count returns the number of customers owned by the current subject
func (r *CustomerRepository) Count(ctx context.Context) (int, error) {
	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return 0, err
	}

	var total int
	err = r.db.WithOwner(ctx, subjectID, func(ctx context.Context) error {
		return r.db.Conn(ctx).GetContext(ctx, &total,
			`SELECT COUNT(*) FROM customers WHERE user_id = $1`, subjectID)
	})
	if err != nil {
		return 0, database.MapError(err, "customer")
	}

	return total, nil
}
