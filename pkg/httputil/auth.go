package httputil

import (
	"net/http"
	"strings"

	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/owner"
)

// Principal is the subject resolved from an access token
type Principal struct {
	UserID string
	Email  string
}

// TokenVerifier resolves an access token to its subject
type TokenVerifier interface {
	VerifyAccessToken(token string) (Principal, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// Browsers cannot set headers on websocket upgrades, so the access_token
// query parameter is accepted as a fallback.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("access_token")
}

// RequireAuth rejects requests without a valid access token and stores the
// subject in the request context for owner-scoped data access.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				Error(w, errors.Unauthorized("missing authorization token"))
				return
			}

			principal, err := verifier.VerifyAccessToken(token)
			if err != nil {
				Error(w, err)
				return
			}

			ctx := owner.WithSubject(r.Context(), principal.UserID, principal.Email)
			setLogUserID(ctx, principal.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
