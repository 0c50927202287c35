// Package errors defines the application error type shared by every layer.
// Repositories and services return *AppError values; httputil turns them into
// the JSON error envelope.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels for errors.Is checks across package boundaries.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict")
	ErrInternal           = errors.New("internal server error")
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrUnavailable        = errors.New("service unavailable")
)

// AppError carries an HTTP status and a stable code alongside the message
// shown to the client.
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

type kind struct {
	sentinel error
	code     string
	status   int
}

var (
	kindNotFound     = kind{ErrNotFound, "NOT_FOUND", http.StatusNotFound}
	kindUnauthorized = kind{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized}
	kindBadRequest   = kind{ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest}
	kindConflict     = kind{ErrConflict, "CONFLICT", http.StatusConflict}
	kindInternal     = kind{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError}
	kindUnavailable  = kind{ErrUnavailable, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable}
	kindValidation   = kind{ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest}
	kindCredentials  = kind{ErrInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized}
	kindTokenExpired = kind{ErrTokenExpired, "TOKEN_EXPIRED", http.StatusUnauthorized}
	kindTokenInvalid = kind{ErrTokenInvalid, "TOKEN_INVALID", http.StatusUnauthorized}
)

func (k kind) with(message string) *AppError {
	return &AppError{Err: k.sentinel, Code: k.code, Message: message, StatusCode: k.status}
}

// Wrap attaches a client-facing code, message and status to err.
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{Err: err, Code: code, Message: message, StatusCode: statusCode}
}

// NotFound reports that a customer, scan, note or user does not exist for
// the caller.
func NotFound(resource string) *AppError {
	return kindNotFound.with(resource + " not found")
}

func Unauthorized(message string) *AppError { return kindUnauthorized.with(message) }

func BadRequest(message string) *AppError { return kindBadRequest.with(message) }

func Conflict(message string) *AppError { return kindConflict.with(message) }

func Unavailable(message string) *AppError { return kindUnavailable.with(message) }

// Internal hides err from the client but keeps it for logging.
func Internal(message string, err ...error) *AppError {
	appErr := kindInternal.with(message)
	if len(err) > 0 && err[0] != nil {
		appErr.Err = fmt.Errorf("%w: %w", ErrInternal, err[0])
	}
	return appErr
}

// Validation carries per-field messages keyed by the JSON field name.
func Validation(details map[string]string) *AppError {
	appErr := kindValidation.with("validation failed")
	appErr.Details = details
	return appErr
}

func InvalidCredentials() *AppError {
	return kindCredentials.with("invalid email or password")
}

func TokenExpired() *AppError { return kindTokenExpired.with("token has expired") }

func TokenInvalid() *AppError { return kindTokenInvalid.with("invalid token") }

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
