// Package owner carries the identity subject that owns the data touched by a request.
package owner

import (
	"context"
	"errors"
)

type contextKey string

const (
	subjectIDKey    contextKey = "subject_id"
	subjectEmailKey contextKey = "subject_email"
)

// ErrNoSubjectInContext is returned when a request reaches the data layer unauthenticated
var ErrNoSubjectInContext = errors.New("no subject in context")

// WithSubject stores the authenticated subject. Set by the auth middleware.
func WithSubject(ctx context.Context, id, email string) context.Context {
	ctx = context.WithValue(ctx, subjectIDKey, id)
	ctx = context.WithValue(ctx, subjectEmailKey, email)
	return ctx
}

// SubjectID extracts the owning subject ID from context
func SubjectID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(subjectIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoSubjectInContext
	}
	return id, nil
}

// SubjectEmail returns the subject's email, or "" when unknown
func SubjectEmail(ctx context.Context) string {
	email, _ := ctx.Value(subjectEmailKey).(string)
	return email
}

// MustSubjectID panics when the subject is missing.
// Use only behind the auth middleware.
func MustSubjectID(ctx context.Context) string {
	id, err := SubjectID(ctx)
	if err != nil {
		panic("subject ID not found in context")
	}
	return id
}
