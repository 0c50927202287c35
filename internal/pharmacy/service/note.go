package service

import (
	"context"
	"strings"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/events"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/pillflow/pillflow-backend/pkg/messaging"
	"github.com/pillflow/pillflow-backend/pkg/owner"
)

// CreateNoteRequest is the payload for adding a note
type CreateNoteRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// UpdateNoteRequest toggles a note's completion
type UpdateNoteRequest struct {
	IsCompleted *bool `json:"is_completed" validate:"required"`
}

// NoteService manages customer notes
type NoteService struct {
	notes     NoteStore
	publisher *events.PharmacyEventPublisher
	logger    *logger.Logger
}

// NewNoteService creates a new note service
func NewNoteService(notes NoteStore, publisher *events.PharmacyEventPublisher, log *logger.Logger) *NoteService {
	return &NoteService{
		notes:     notes,
		publisher: publisher,
		logger:    log,
	}
}

// List returns a customer's notes, newest first
func (s *NoteService) List(ctx context.Context, customerID string) ([]*domain.Note, error) {
	return s.notes.ListByCustomer(ctx, customerID)
}

// Create adds a note to a customer
func (s *NoteService) Create(ctx context.Context, customerID string, req *CreateNoteRequest) (*domain.Note, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, errors.Validation(map[string]string{"content": "is required"})
	}

	note := &domain.Note{CustomerID: customerID, Content: content}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}

	s.publisher.PublishNote(ctx, messaging.EventNoteCreated, subjectOf(ctx), note)
	return note, nil
}

// SetCompleted marks a note done or not done
func (s *NoteService) SetCompleted(ctx context.Context, id string, completed bool) (*domain.Note, error) {
	note, err := s.notes.SetCompleted(ctx, id, completed)
	if err != nil {
		return nil, err
	}

	if completed {
		s.publisher.PublishNote(ctx, messaging.EventNoteCompleted, subjectOf(ctx), note)
	}
	return note, nil
}

// Delete removes a note
func (s *NoteService) Delete(ctx context.Context, id string) error {
	if err := s.notes.Delete(ctx, id); err != nil {
		return err
	}

	s.publisher.PublishNote(ctx, messaging.EventNoteDeleted, subjectOf(ctx), &domain.Note{ID: id})
	return nil
}

func subjectOf(ctx context.Context) string {
	id, _ := owner.SubjectID(ctx)
	return id
}
