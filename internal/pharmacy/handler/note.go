package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/service"
	"github.com/pillflow/pillflow-backend/pkg/httputil"
	"github.com/pillflow/pillflow-backend/pkg/logger"
)

// NoteService is what the note endpoints need
type NoteService interface {
	List(ctx context.Context, customerID string) ([]*domain.Note, error)
	Create(ctx context.Context, customerID string, req *service.CreateNoteRequest) (*domain.Note, error)
	SetCompleted(ctx context.Context, id string, completed bool) (*domain.Note, error)
	Delete(ctx context.Context, id string) error
}

// NoteHandler handles customer notes
type NoteHandler struct {
	notes  NoteService
	logger *logger.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(notes NoteService, log *logger.Logger) *NoteHandler {
	return &NoteHandler{
		notes:  notes,
		logger: log,
	}
}

// List lists a customer's notes
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, notes, &httputil.Meta{Total: int64(len(notes))})
}

// Create adds a note to a customer
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateNoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	note, err := h.notes.Create(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, note)
}

// Update sets a note's completion
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateNoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	note, err := h.notes.SetCompleted(r.Context(), chi.URLParam(r, "id"), *req.IsCompleted)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, note)
}

// Delete removes a note
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
