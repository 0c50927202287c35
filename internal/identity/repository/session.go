package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pillflow/pillflow-backend/pkg/database"
)

// Session is a signed-in device. Only a hash of its refresh token is stored.
type Session struct {
	ID               string     `db:"id"`
	UserID           string     `db:"user_id"`
	RefreshTokenHash string     `db:"refresh_token_hash"`
	UserAgent        *string    `db:"user_agent"`
	IPAddress        *string    `db:"ip_address"`
	ExpiresAt        time.Time  `db:"expires_at"`
	CreatedAt        time.Time  `db:"created_at"`
	LastUsedAt       time.Time  `db:"last_used_at"`
	RevokedAt        *time.Time `db:"revoked_at"`
}

const sessionColumns = `id, user_id, refresh_token_hash, user_agent, ip_address, expires_at, created_at, last_used_at, revoked_at`

// SessionRepository handles session persistence
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create opens a session with a caller-chosen ID so the ID can be embedded
// in the tokens before they are stored.
func (r *SessionRepository) Create(ctx context.Context, id, userID, refreshToken string, expiresAt time.Time, userAgent, ipAddress string) (*Session, error) {
	s := &Session{
		ID:               id,
		UserID:           userID,
		RefreshTokenHash: hashToken(refreshToken),
		UserAgent:        optional(userAgent),
		IPAddress:        optional(ipAddress),
		ExpiresAt:        expiresAt,
	}

	query := `
		INSERT INTO sessions (id, user_id, refresh_token_hash, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, last_used_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.UserID, s.RefreshTokenHash, s.UserAgent, s.IPAddress, s.ExpiresAt,
	).Scan(&s.CreatedAt, &s.LastUsedAt)
	if err != nil {
		return nil, database.MapError(err, "session")
	}
	return s, nil
}

// GetActiveByRefreshToken finds an unrevoked, unexpired session
func (r *SessionRepository) GetActiveByRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	var s Session
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE refresh_token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`
	if err := r.db.GetContext(ctx, &s, query, hashToken(refreshToken)); err != nil {
		return nil, database.MapError(err, "session")
	}
	return &s, nil
}

// Rotate replaces the session's refresh token
func (r *SessionRepository) Rotate(ctx context.Context, id, refreshToken string, expiresAt time.Time) error {
	query := `UPDATE sessions SET refresh_token_hash = $2, expires_at = $3, last_used_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, hashToken(refreshToken), expiresAt)
	return database.MapError(err, "session")
}

// RevokeByRefreshToken revokes the session holding refreshToken and returns
// it. Revoking an unknown or already revoked token is not found.
func (r *SessionRepository) RevokeByRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	var s Session
	query := `
		UPDATE sessions SET revoked_at = NOW()
		WHERE refresh_token_hash = $1 AND revoked_at IS NULL
		RETURNING ` + sessionColumns
	if err := r.db.GetContext(ctx, &s, query, hashToken(refreshToken)); err != nil {
		return nil, database.MapError(err, "session")
	}
	return &s, nil
}

// CleanExpired removes expired and revoked sessions
func (r *SessionRepository) CleanExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < NOW() OR revoked_at IS NOT NULL`)
	if err != nil {
		return 0, database.MapError(err, "session")
	}
	return res.RowsAffected()
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
