package database

import (
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/pillflow/pillflow-backend/pkg/errors"
)

// MapError converts a repository error for resource into an AppError.
// sql.ErrNoRows becomes NotFound, pq errors are mapped by MapPQError and
// anything else is an internal error that keeps the cause for logging.
func MapError(err error, resource string) error {
	if err == nil {
		return nil
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(resource)
	}
	if mapped := MapPQError(err); mapped != nil {
		return mapped
	}
	return errors.Internal("failed to access "+resource, err)
}

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case "23514":
		return mapCheckConstraint(pqErr)

	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	case "23503":
		return errors.BadRequest("referenced record does not exist")

	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// invalid_text_representation, e.g. a malformed uuid in a path parameter
	case "22P02":
		return errors.BadRequest("invalid identifier")

	default:
		return nil
	}
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "name_not_empty"):
		return errors.Validation(map[string]string{
			"name": "must not be empty",
		})

	case strings.Contains(constraint, "weeks_supply_range"):
		return errors.Validation(map[string]string{
			"weeks_supply": "must be between 1 and 4",
		})

	case strings.Contains(constraint, "staff_initials_format"):
		return errors.Validation(map[string]string{
			"staff_initials": "must be 1 to 3 letters",
		})

	case strings.Contains(constraint, "next_due_after_collection"):
		return errors.Validation(map[string]string{
			"next_due_date": "must be after collection date",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "users_email"):
		return "an account with this email already exists"
	case strings.Contains(constraint, "users_provider_subject"):
		return "this provider account is already linked"
	default:
		return "a record with these values already exists"
	}
}
