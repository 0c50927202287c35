package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/pillflow/pillflow-backend/internal/identity/events"
	"github.com/pillflow/pillflow-backend/internal/identity/jwt"
	"github.com/pillflow/pillflow-backend/internal/identity/repository"
	"github.com/pillflow/pillflow-backend/internal/identity/service"
	"github.com/pillflow/pillflow-backend/pkg/config"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/pillflow/pillflow-backend/pkg/messaging"
	"github.com/pillflow/pillflow-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(ctx context.Context, u *repository.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*repository.User)
	return u, args.Error(1)
}

func (m *mockUserStore) GetByID(ctx context.Context, id string) (*repository.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*repository.User)
	return u, args.Error(1)
}

func (m *mockUserStore) MergeMetadata(ctx context.Context, id string, meta repository.Metadata) error {
	return m.Called(ctx, id, meta).Error(0)
}

func (m *mockUserStore) TouchSignIn(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Create(ctx context.Context, id, userID, refreshToken string, expiresAt time.Time, userAgent, ipAddress string) (*repository.Session, error) {
	args := m.Called(ctx, id, userID, refreshToken, expiresAt, userAgent, ipAddress)
	s, _ := args.Get(0).(*repository.Session)
	return s, args.Error(1)
}

func (m *mockSessionStore) GetActiveByRefreshToken(ctx context.Context, refreshToken string) (*repository.Session, error) {
	args := m.Called(ctx, refreshToken)
	s, _ := args.Get(0).(*repository.Session)
	return s, args.Error(1)
}

func (m *mockSessionStore) Rotate(ctx context.Context, id, refreshToken string, expiresAt time.Time) error {
	return m.Called(ctx, id, refreshToken, expiresAt).Error(0)
}

func (m *mockSessionStore) RevokeByRefreshToken(ctx context.Context, refreshToken string) (*repository.Session, error) {
	args := m.Called(ctx, refreshToken)
	s, _ := args.Get(0).(*repository.Session)
	return s, args.Error(1)
}

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) UserInfo(ctx context.Context, provider, accessToken string) (*service.ProviderUser, error) {
	args := m.Called(ctx, provider, accessToken)
	u, _ := args.Get(0).(*service.ProviderUser)
	return u, args.Error(1)
}

type fixture struct {
	users     *mockUserStore
	sessions  *mockSessionStore
	providers *mockFetcher
	hub       *service.SessionHub
	publisher *testutil.MockPublisher
	tokens    *jwt.Manager
	svc       *service.IdentityService
}

func newFixture() *fixture {
	f := &fixture{
		users:     &mockUserStore{},
		sessions:  &mockSessionStore{},
		providers: &mockFetcher{},
		hub:       service.NewSessionHub(logger.Nop()),
		publisher: testutil.NewMockPublisher(),
		tokens: jwt.NewManager(&config.JWTConfig{
			Secret:        "test-secret",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 24 * time.Hour,
			Issuer:        "pillflow",
		}),
	}
	f.svc = service.NewIdentityService(
		f.users, f.sessions, f.tokens, f.providers, f.hub,
		events.NewWithPublisher(f.publisher, logger.Nop()),
		logger.Nop(),
	)
	f.svc.SetBcryptCost(bcrypt.MinCost)
	return f
}

func (f *fixture) expectSessionOpened(userID string) {
	f.sessions.On("Create", mock.Anything, mock.AnythingOfType("string"), userID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time"), "test-agent", "10.0.0.1").
		Return(&repository.Session{UserID: userID}, nil)
	f.users.On("TouchSignIn", mock.Anything, userID).Return(nil)
}

var client = service.Client{UserAgent: "test-agent", IPAddress: "10.0.0.1"}

func TestSignUp(t *testing.T) {
	f := newFixture()
	changes, unsubscribe := f.hub.Subscribe("u-1")
	defer unsubscribe()

	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *repository.User) bool {
		return u.Email == "jane@example.com" &&
			u.Provider == repository.ProviderEmail &&
			u.Metadata["first_name"] == "Jane" &&
			u.Metadata["last_name"] == "Doe" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) == nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*repository.User).ID = "u-1"
	}).Return(nil)
	f.expectSessionOpened("u-1")

	session, err := f.svc.SignUp(context.Background(), &service.SignUpRequest{
		Email:           " jane@example.com ",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		FirstName:       " Jane ",
		LastName:        "Doe",
	}, client)

	require.NoError(t, err)
	assert.Equal(t, "u-1", session.User.ID)
	assert.Equal(t, "Bearer", session.TokenType)
	f.publisher.AssertEventPublished(t, messaging.EventUserSignedUp)
	f.publisher.AssertEventPublished(t, messaging.EventSessionSignedIn)
	require.Len(t, changes, 1)
	assert.Equal(t, service.SessionSignedIn, (<-changes).Event)
}

func TestSignUp_MismatchedConfirmation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.SignUp(context.Background(), &service.SignUpRequest{
		Email:           "jane@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret2",
		FirstName:       "Jane",
		LastName:        "Doe",
	}, client)

	assert.ErrorIs(t, err, errors.ErrValidation)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.publisher.AssertNoEventsPublished(t)
}

func TestSignUp_ShortPassword(t *testing.T) {
	f := newFixture()

	_, err := f.svc.SignUp(context.Background(), &service.SignUpRequest{
		Email: "jane@example.com", Password: "abc", ConfirmPassword: "abc",
	}, client)

	assert.ErrorIs(t, err, errors.ErrValidation)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newFixture()
	f.users.On("Create", mock.Anything, mock.Anything).Return(errors.Conflict("duplicate value for users_email_key"))

	_, err := f.svc.SignUp(context.Background(), &service.SignUpRequest{
		Email: "jane@example.com", Password: "secret1", ConfirmPassword: "secret1", FirstName: "Jane", LastName: "Doe",
	}, client)

	require.ErrorIs(t, err, errors.ErrConflict)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "an account with this email already exists", appErr.Message)
}

func TestSignIn(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &repository.User{ID: "u-1", Email: "jane@example.com", PasswordHash: string(hash), Provider: repository.ProviderEmail}

	tests := []struct {
		name     string
		email    string
		password string
		setup    func(f *fixture)
		wantErr  error
	}{
		{
			name:     "valid credentials",
			email:    "jane@example.com",
			password: "secret1",
			setup: func(f *fixture) {
				f.users.On("GetByEmail", mock.Anything, "jane@example.com").Return(user, nil)
				f.expectSessionOpened("u-1")
			},
		},
		{
			name:     "wrong password",
			email:    "jane@example.com",
			password: "nope",
			setup: func(f *fixture) {
				f.users.On("GetByEmail", mock.Anything, "jane@example.com").Return(user, nil)
			},
			wantErr: errors.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "who@example.com",
			password: "secret1",
			setup: func(f *fixture) {
				f.users.On("GetByEmail", mock.Anything, "who@example.com").Return(nil, errors.NotFound("user"))
			},
			wantErr: errors.ErrInvalidCredentials,
		},
		{
			name:     "provider account has no password",
			email:    "sso@example.com",
			password: "",
			setup: func(f *fixture) {
				f.users.On("GetByEmail", mock.Anything, "sso@example.com").
					Return(&repository.User{ID: "u-2", Provider: repository.ProviderGoogle}, nil)
			},
			wantErr: errors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			session, err := f.svc.SignIn(context.Background(), &service.SignInRequest{Email: tt.email, Password: tt.password}, client)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			principal, err := f.tokens.VerifyAccessToken(session.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, "u-1", principal.UserID)
		})
	}
}

func TestSignInWithProvider_CreatesAccount(t *testing.T) {
	f := newFixture()
	f.providers.On("UserInfo", mock.Anything, "google", "provider-token").Return(&service.ProviderUser{
		Subject: "g-1", Email: "jane@example.com", EmailVerified: true, GivenName: "Jane", FamilyName: "Doe",
	}, nil)
	f.users.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, errors.NotFound("user"))
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *repository.User) bool {
		return u.Provider == "google" && *u.ProviderSubject == "g-1" && u.PasswordHash == "" && u.Metadata["given_name"] == "Jane"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*repository.User).ID = "u-1"
	}).Return(nil)
	f.expectSessionOpened("u-1")

	session, err := f.svc.SignInWithProvider(context.Background(), "google", "provider-token", client)

	require.NoError(t, err)
	assert.Equal(t, "u-1", session.User.ID)
	f.publisher.AssertEventPublished(t, messaging.EventUserSignedUp)
}

func TestSignInWithProvider_ExistingAccount(t *testing.T) {
	f := newFixture()
	f.providers.On("UserInfo", mock.Anything, "microsoft", "provider-token").Return(&service.ProviderUser{
		Subject: "m-1", Email: "jane@example.com", EmailVerified: true, Name: "Jane Doe",
	}, nil)
	f.users.On("GetByEmail", mock.Anything, "jane@example.com").Return(&repository.User{ID: "u-1", Provider: repository.ProviderEmail}, nil)
	f.users.On("MergeMetadata", mock.Anything, "u-1", repository.Metadata{"name": "Jane Doe"}).Return(nil)
	f.expectSessionOpened("u-1")

	_, err := f.svc.SignInWithProvider(context.Background(), "microsoft", "provider-token", client)

	require.NoError(t, err)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.users.AssertExpectations(t)
}

func TestSignInWithProvider_SameSubjectWithoutVerifiedEmail(t *testing.T) {
	f := newFixture()
	subject := "g-1"
	f.providers.On("UserInfo", mock.Anything, "google", "provider-token").Return(&service.ProviderUser{
		Subject: "g-1", Email: "jane@example.com",
	}, nil)
	f.users.On("GetByEmail", mock.Anything, "jane@example.com").Return(&repository.User{
		ID: "u-1", Provider: repository.ProviderGoogle, ProviderSubject: &subject,
	}, nil)
	f.users.On("MergeMetadata", mock.Anything, "u-1", mock.Anything).Return(nil)
	f.expectSessionOpened("u-1")

	session, err := f.svc.SignInWithProvider(context.Background(), "google", "provider-token", client)

	require.NoError(t, err)
	assert.Equal(t, "u-1", session.User.ID)
}

func TestSignInWithProvider_RefusesLinking(t *testing.T) {
	victimSubject := "g-victim"

	tests := []struct {
		name     string
		info     *service.ProviderUser
		existing *repository.User
	}{
		{
			name:     "unverified email on password account",
			info:     &service.ProviderUser{Subject: "attacker-sub", Email: "victim@example.com"},
			existing: &repository.User{ID: "victim", Provider: repository.ProviderEmail, PasswordHash: "hash"},
		},
		{
			name:     "unverified email on other provider account",
			info:     &service.ProviderUser{Subject: "attacker-sub", Email: "victim@example.com"},
			existing: &repository.User{ID: "victim", Provider: repository.ProviderMicrosoft, ProviderSubject: &victimSubject},
		},
		{
			name:     "different subject for the same provider",
			info:     &service.ProviderUser{Subject: "attacker-sub", Email: "victim@example.com", EmailVerified: true},
			existing: &repository.User{ID: "victim", Provider: repository.ProviderGoogle, ProviderSubject: &victimSubject},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.providers.On("UserInfo", mock.Anything, "google", "provider-token").Return(tt.info, nil)
			f.users.On("GetByEmail", mock.Anything, "victim@example.com").Return(tt.existing, nil)

			session, err := f.svc.SignInWithProvider(context.Background(), "google", "provider-token", client)

			assert.Nil(t, session)
			assert.ErrorIs(t, err, errors.ErrUnauthorized)
			f.users.AssertNotCalled(t, "MergeMetadata", mock.Anything, mock.Anything, mock.Anything)
			f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSignInWithProvider_UnverifiedEmailCannotCreateAccount(t *testing.T) {
	f := newFixture()
	f.providers.On("UserInfo", mock.Anything, "microsoft", "provider-token").Return(&service.ProviderUser{
		Subject: "m-1", Email: "new@example.com",
	}, nil)
	f.users.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, errors.NotFound("user"))

	_, err := f.svc.SignInWithProvider(context.Background(), "microsoft", "provider-token", client)

	assert.ErrorIs(t, err, errors.ErrUnauthorized)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.publisher.AssertNoEventsPublished(t)
}

func TestSignInWithProvider_RejectedToken(t *testing.T) {
	f := newFixture()
	f.providers.On("UserInfo", mock.Anything, "google", "bad").Return(nil, errors.Unauthorized("provider rejected the access token"))

	_, err := f.svc.SignInWithProvider(context.Background(), "google", "bad", client)

	assert.ErrorIs(t, err, errors.ErrUnauthorized)
	f.users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestSignOut(t *testing.T) {
	f := newFixture()
	changes, unsubscribe := f.hub.Subscribe("u-1")
	defer unsubscribe()
	f.sessions.On("RevokeByRefreshToken", mock.Anything, "refresh").Return(&repository.Session{ID: "s-1", UserID: "u-1"}, nil)

	require.NoError(t, f.svc.SignOut(context.Background(), "refresh"))

	f.publisher.AssertEventPublished(t, messaging.EventSessionSignedOut)
	require.Len(t, changes, 1)
	assert.Equal(t, service.SessionSignedOut, (<-changes).Event)
}

func TestSignOut_RevokeFailureStillSucceeds(t *testing.T) {
	f := newFixture()
	f.sessions.On("RevokeByRefreshToken", mock.Anything, "stale").Return(nil, errors.NotFound("session"))

	assert.NoError(t, f.svc.SignOut(context.Background(), "stale"))
	assert.NoError(t, f.svc.SignOut(context.Background(), ""))
	f.publisher.AssertNoEventsPublished(t)
}

func TestRefresh(t *testing.T) {
	f := newFixture()
	pair, err := f.tokens.GenerateTokenPair("u-1", "jane@example.com", "s-1")
	require.NoError(t, err)

	f.sessions.On("GetActiveByRefreshToken", mock.Anything, pair.RefreshToken).Return(&repository.Session{ID: "s-1", UserID: "u-1"}, nil)
	f.users.On("GetByID", mock.Anything, "u-1").Return(&repository.User{ID: "u-1", Email: "jane@example.com"}, nil)
	f.sessions.On("Rotate", mock.Anything, "s-1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

	session, err := f.svc.Refresh(context.Background(), pair.RefreshToken)

	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, session.RefreshToken)
	f.sessions.AssertExpectations(t)
}

func TestRefresh_RevokedSession(t *testing.T) {
	f := newFixture()
	pair, err := f.tokens.GenerateTokenPair("u-1", "", "s-1")
	require.NoError(t, err)
	f.sessions.On("GetActiveByRefreshToken", mock.Anything, pair.RefreshToken).Return(nil, errors.NotFound("session"))

	_, err = f.svc.Refresh(context.Background(), pair.RefreshToken)

	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestRefresh_InvalidToken(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Refresh(context.Background(), "garbage")

	assert.ErrorIs(t, err, errors.ErrTokenInvalid)
	f.sessions.AssertNotCalled(t, "GetActiveByRefreshToken", mock.Anything, mock.Anything)
}
