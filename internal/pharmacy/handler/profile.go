package handler

import (
	"context"
	"net/http"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/service"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/httputil"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/pillflow/pillflow-backend/pkg/owner"
)

// ProfileService is what the profile endpoints need
type ProfileService interface {
	GetOrCreate(ctx context.Context, subjectID string) (*domain.Profile, error)
	Update(ctx context.Context, subjectID string, req *service.UpdateProfileRequest) (*domain.Profile, error)
}

// ProfileHandler handles the pharmacist's profile settings
type ProfileHandler struct {
	profiles ProfileService
	logger   *logger.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles ProfileService, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   log,
	}
}

// Get returns the current subject's profile, creating it on first access
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	subjectID, err := owner.SubjectID(r.Context())
	if err != nil {
		httputil.Error(w, errors.Unauthorized("authentication required"))
		return
	}

	profile, err := h.profiles.GetOrCreate(r.Context(), subjectID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, profile)
}

// Update saves the current subject's profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	subjectID, err := owner.SubjectID(r.Context())
	if err != nil {
		httputil.Error(w, errors.Unauthorized("authentication required"))
		return
	}

	var req service.UpdateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	profile, err := h.profiles.Update(r.Context(), subjectID, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, profile)
}
