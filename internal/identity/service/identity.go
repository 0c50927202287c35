// Package service implements accounts, sessions and session-change
// notification.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pillflow/pillflow-backend/internal/identity/events"
	"github.com/pillflow/pillflow-backend/internal/identity/jwt"
	"github.com/pillflow/pillflow-backend/internal/identity/repository"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/pillflow/pillflow-backend/pkg/messaging"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, u *repository.User) error
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
	GetByID(ctx context.Context, id string) (*repository.User, error)
	MergeMetadata(ctx context.Context, id string, meta repository.Metadata) error
	TouchSignIn(ctx context.Context, id string) error
}

// SessionStore persists sessions
type SessionStore interface {
	Create(ctx context.Context, id, userID, refreshToken string, expiresAt time.Time, userAgent, ipAddress string) (*repository.Session, error)
	GetActiveByRefreshToken(ctx context.Context, refreshToken string) (*repository.Session, error)
	Rotate(ctx context.Context, id, refreshToken string, expiresAt time.Time) error
	RevokeByRefreshToken(ctx context.Context, refreshToken string) (*repository.Session, error)
}

var (
	_ UserStore    = (*repository.UserRepository)(nil)
	_ SessionStore = (*repository.SessionRepository)(nil)
)

// SignUpRequest creates a password account
type SignUpRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
}

// SignInRequest signs in with email and password
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Client describes where a sign-in came from
type Client struct {
	UserAgent string
	IPAddress string
}

// AuthSession is returned on sign-in, sign-up and refresh
type AuthSession struct {
	*jwt.TokenPair
	User *repository.User `json:"user"`
}

// IdentityService handles accounts and sessions
type IdentityService struct {
	users      UserStore
	sessions   SessionStore
	tokens     *jwt.Manager
	providers  UserInfoFetcher
	hub        *SessionHub
	publisher  *events.IdentityEventPublisher
	logger     *logger.Logger
	bcryptCost int
}

// NewIdentityService creates a new identity service
func NewIdentityService(
	users UserStore,
	sessions SessionStore,
	tokens *jwt.Manager,
	providers UserInfoFetcher,
	hub *SessionHub,
	publisher *events.IdentityEventPublisher,
	log *logger.Logger,
) *IdentityService {
	return &IdentityService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		providers:  providers,
		hub:        hub,
		publisher:  publisher,
		logger:     log.WithComponent("identity"),
		bcryptCost: bcrypt.DefaultCost,
	}
}

// SignUp creates a password account and signs it in
func (s *IdentityService) SignUp(ctx context.Context, req *SignUpRequest, client Client) (*AuthSession, error) {
	if req.Password != req.ConfirmPassword {
		return nil, errors.Validation(map[string]string{"confirm_password": "passwords do not match"})
	}
	if len(req.Password) < minPasswordLength {
		return nil, errors.Validation(map[string]string{"password": "must be at least 6 characters"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password", err)
	}

	user := &repository.User{
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		Provider:     repository.ProviderEmail,
		Metadata: repository.Metadata{
			"first_name": strings.TrimSpace(req.FirstName),
			"last_name":  strings.TrimSpace(req.LastName),
		},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return nil, errors.Conflict("an account with this email already exists")
		}
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("account created")
	s.publisher.PublishUserSignedUp(ctx, user.ID, user.Email, user.Provider, user.Metadata)

	return s.openSession(ctx, user, client)
}

// SignIn checks email and password. Every credential failure returns the
// same error.
func (s *IdentityService) SignIn(ctx context.Context, req *SignInRequest, client Client) (*AuthSession, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, errors.InvalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.InvalidCredentials()
	}

	return s.openSession(ctx, user, client)
}

// SignInWithProvider signs in with a federated provider's access token,
// creating the account on first use.
func (s *IdentityService) SignInWithProvider(ctx context.Context, provider, accessToken string, client Client) (*AuthSession, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.Validation(map[string]string{"access_token": "this field is required"})
	}

	info, err := s.providers.UserInfo(ctx, provider, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, info.Email)
	switch {
	case err == nil:
		if !canLink(user, provider, info) {
			s.logger.Warn().Str("user_id", user.ID).Str("provider", provider).
				Bool("email_verified", bool(info.EmailVerified)).Msg("refused to link provider identity")
			return nil, errors.Unauthorized("this email is registered to a different sign-in method")
		}
		if err := s.users.MergeMetadata(ctx, user.ID, info.Metadata()); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to merge provider metadata")
		}
	case errors.Is(err, errors.ErrNotFound):
		if !info.EmailVerified {
			return nil, errors.Unauthorized("provider has not verified this email address")
		}
		subject := info.Subject
		user = &repository.User{
			Email:           info.Email,
			Provider:        provider,
			ProviderSubject: &subject,
			Metadata:        info.Metadata(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info().Str("user_id", user.ID).Str("provider", provider).Msg("account created")
		s.publisher.PublishUserSignedUp(ctx, user.ID, user.Email, provider, user.Metadata)
	default:
		return nil, err
	}

	return s.openSession(ctx, user, client)
}

// canLink decides whether a provider identity may sign in to an existing
// account. The account's own provider identity always matches; a different
// subject for the same provider never does; any other account is linked
// only on a provider-verified email.
func canLink(user *repository.User, provider string, info *ProviderUser) bool {
	if user.Provider == provider && user.ProviderSubject != nil {
		return *user.ProviderSubject == info.Subject
	}
	return bool(info.EmailVerified)
}

// SignOut revokes the session holding refreshToken. It never fails: a
// session that cannot be revoked is logged and left to expire.
func (s *IdentityService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	session, err := s.sessions.RevokeByRefreshToken(ctx, refreshToken)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to revoke session")
		return nil
	}

	s.publisher.PublishSession(ctx, messaging.EventSessionSignedOut, session.UserID, session.ID, "")
	s.notify(SessionSignedOut, session.UserID, session.ID)
	return nil
}

// Refresh rotates the token pair of an active session
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*AuthSession, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetActiveByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Unauthorized("invalid session")
		}
		return nil, err
	}
	if session.ID != claims.SessionID || session.UserID != claims.Subject {
		return nil, errors.Unauthorized("invalid session")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID, user.Email, session.ID)
	if err != nil {
		return nil, errors.Internal("failed to generate tokens", err)
	}
	if err := s.sessions.Rotate(ctx, session.ID, pair.RefreshToken, time.Now().Add(s.tokens.RefreshExpiry())); err != nil {
		return nil, err
	}

	s.notify(SessionTokenRefreshed, user.ID, session.ID)
	return &AuthSession{TokenPair: pair, User: user}, nil
}

// CurrentSession returns the signed-in account
func (s *IdentityService) CurrentSession(ctx context.Context, userID string) (*repository.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Subscribe registers for the user's session changes
func (s *IdentityService) Subscribe(userID string) (<-chan SessionChange, func()) {
	return s.hub.Subscribe(userID)
}

func (s *IdentityService) openSession(ctx context.Context, user *repository.User, client Client) (*AuthSession, error) {
	sessionID := uuid.NewString()

	pair, err := s.tokens.GenerateTokenPair(user.ID, user.Email, sessionID)
	if err != nil {
		return nil, errors.Internal("failed to generate tokens", err)
	}

	expiresAt := time.Now().Add(s.tokens.RefreshExpiry())
	if _, err := s.sessions.Create(ctx, sessionID, user.ID, pair.RefreshToken, expiresAt, client.UserAgent, client.IPAddress); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to create session")
		return nil, errors.Internal("failed to create session", err)
	}

	if err := s.users.TouchSignIn(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record sign-in")
	}

	s.publisher.PublishSession(ctx, messaging.EventSessionSignedIn, user.ID, sessionID, user.Provider)
	s.notify(SessionSignedIn, user.ID, sessionID)

	return &AuthSession{TokenPair: pair, User: user}, nil
}

func (s *IdentityService) notify(event, userID, sessionID string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(SessionChange{Event: event, UserID: userID, SessionID: sessionID})
}
