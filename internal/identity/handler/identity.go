package handler

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pillflow/pillflow-backend/internal/identity/repository"
	"github.com/pillflow/pillflow-backend/internal/identity/service"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/httputil"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/pillflow/pillflow-backend/pkg/owner"
)

// IdentityService is what the auth endpoints need
type IdentityService interface {
	SignUp(ctx context.Context, req *service.SignUpRequest, client service.Client) (*service.AuthSession, error)
	SignIn(ctx context.Context, req *service.SignInRequest, client service.Client) (*service.AuthSession, error)
	SignInWithProvider(ctx context.Context, provider, accessToken string, client service.Client) (*service.AuthSession, error)
	SignOut(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*service.AuthSession, error)
	CurrentSession(ctx context.Context, userID string) (*repository.User, error)
	Subscribe(userID string) (<-chan service.SessionChange, func())
}

// AuthHandler handles sign-up, sign-in and session endpoints
type AuthHandler struct {
	identity IdentityService
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(identity IdentityService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		logger:   log,
	}
}

// RegisterPublic mounts the endpoints that do not need a session
func (h *AuthHandler) RegisterPublic(r chi.Router) {
	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/signin", h.SignIn)
	r.Post("/auth/signin/{provider}", h.SignInWithProvider)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/signout", h.SignOut)
}

// RegisterAuthenticated mounts the endpoints that need a session
func (h *AuthHandler) RegisterAuthenticated(r chi.Router) {
	r.Get("/auth/session", h.Session)
	r.Get("/auth/session/ws", h.SessionStream)
}

// SignUp handles account creation
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if req.Password != req.ConfirmPassword {
		httputil.Error(w, errors.Validation(map[string]string{"confirm_password": "passwords do not match"}))
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	session, err := h.identity.SignUp(r.Context(), &req, clientOf(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, session)
}

// SignIn handles email and password sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req service.SignInRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	session, err := h.identity.SignIn(r.Context(), &req, clientOf(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, session)
}

// SignInWithProvider exchanges a provider access token for a session
func (h *AuthHandler) SignInWithProvider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"access_token" validate:"required"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	provider := chi.URLParam(r, "provider")
	if provider != repository.ProviderGoogle && provider != repository.ProviderMicrosoft {
		httputil.Error(w, errors.BadRequest("unsupported provider: "+provider))
		return
	}

	session, err := h.identity.SignInWithProvider(r.Context(), provider, req.AccessToken, clientOf(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, session)
}

// SignOut revokes the session. It always succeeds.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.Debug().Err(err).Msg("sign-out without a body")
	}

	if err := h.identity.SignOut(r.Context(), req.RefreshToken); err != nil {
		h.logger.Warn().Err(err).Msg("sign-out error")
	}

	httputil.NoContent(w)
}

// Refresh rotates the token pair
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	session, err := h.identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, session)
}

// Session returns the signed-in account
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID, err := owner.SubjectID(r.Context())
	if err != nil {
		httputil.Error(w, errors.Unauthorized("not authenticated"))
		return
	}

	user, err := h.identity.CurrentSession(r.Context(), userID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

func clientOf(r *http.Request) service.Client {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return service.Client{UserAgent: r.UserAgent(), IPAddress: ip}
}
