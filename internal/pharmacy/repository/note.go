package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/pkg/database"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/owner"
)

// NoteRepository handles customer notes.
// Notes have no owner column; every query joins customers.user_id.
type NoteRepository struct {
	db *database.DB
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *database.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// ListByCustomer returns a customer's notes, newest first
func (r *NoteRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Note, error) {
	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return nil, err
	}

	notes := []*domain.Note{}
	err = r.db.WithOwner(ctx, subjectID, func(ctx context.Context) error {
		query := `
			SELECT n.id, n.customer_id, n.content, n.is_completed, n.created_at
			FROM notes n
			JOIN customers c ON c.id = n.customer_id
			WHERE n.customer_id = $1 AND c.user_id = $2
			ORDER BY n.created_at DESC
		`
		return r.db.Conn(ctx).SelectContext(ctx, &notes, query, customerID, subjectID)
	})
	if err != nil {
		return nil, database.MapError(err, "note")
	}

	return notes, nil
}

// Create adds a note to a customer owned by the current subject
func (r *NoteRepository) Create(ctx context.Context, n *domain.Note) error {
	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return err
	}

	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	err = r.db.WithOwner(ctx, subjectID, func(ctx context.Context) error {
		query := `
			INSERT INTO notes (id, customer_id, content, is_completed)
			SELECT $1, c.id, $3, $4
			FROM customers c
			WHERE c.id = $2 AND c.user_id = $5
			RETURNING created_at
		`
		return r.db.Conn(ctx).QueryRowxContext(ctx, query,
			n.ID, n.CustomerID, n.Content, n.IsCompleted, subjectID,
		).Scan(&n.CreatedAt)
	})
	if err != nil {
		return database.MapError(err, "customer")
	}

	return nil
}

// SetCompleted updates a note's completion flag and returns the updated note
func (r *NoteRepository) SetCompleted(ctx context.Context, id string, completed bool) (*domain.Note, error) {
	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return nil, err
	}

	var note domain.Note
	err = r.db.WithOwner(ctx, subjectID, func(ctx context.Context) error {
		query := `
			UPDATE notes n SET is_completed = $2
			FROM customers c
			WHERE n.id = $1 AND c.id = n.customer_id AND c.user_id = $3
			RETURNING n.id, n.customer_id, n.content, n.is_completed, n.created_at
		`
		return r.db.Conn(ctx).GetContext(ctx, &note, query, id, completed, subjectID)
	})
	if err != nil {
		return nil, database.MapError(err, "note")
	}

	return &note, nil
}

// Delete removes a note
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	subjectID, err := owner.SubjectID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithOwner(ctx, subjectID, func(ctx context.Context) error {
		query := `
			DELETE FROM notes n
			USING customers c
			WHERE n.id = $1 AND c.id = n.customer_id AND c.user_id = $2
		`
		result, err := r.db.Conn(ctx).ExecContext(ctx, query, id, subjectID)
		if err != nil {
			return database.MapError(err, "note")
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("note")
		}

		return nil
	})
}
