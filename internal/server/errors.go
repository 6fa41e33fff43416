// Package server provides the HTTP REST API for the prospect analyzer.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/db"
	"github.com/jonathan/prospect-analyzer/internal/onepager"
	"github.com/jonathan/prospect-analyzer/internal/relay"
	"github.com/jonathan/prospect-analyzer/internal/types"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrPasswordMismatch indicates current password is incorrect
type ErrPasswordMismatch struct{}

func (e *ErrPasswordMismatch) Error() string {
	return "current password is incorrect"
}

// ErrValidation indicates a malformed request body or parameter
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Wrapped errors are matched with errors.As.
func HTTPStatus(err error) int {
	var (
		emailExists   *ErrEmailAlreadyExists
		badCreds      *ErrInvalidCredentials
		pwMismatch    *ErrPasswordMismatch
		userNotFound  *ErrUserNotFound
		reqInvalid    *ErrValidation
		notFound      *types.NotFoundError
		invalid       *types.ValidationError
		transition    *types.InvalidTransitionError
		fieldErrors   validator.ValidationErrors
		invalidFields *validator.InvalidValidationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &emailExists):
		return http.StatusConflict
	case errors.As(err, &badCreds), errors.As(err, &pwMismatch):
		return http.StatusUnauthorized
	case errors.As(err, &userNotFound), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &reqInvalid), errors.As(err, &invalid),
		errors.As(err, &fieldErrors), errors.As(err, &invalidFields):
		return http.StatusBadRequest
	case errors.As(err, &transition), errors.Is(err, types.ErrAnalysisInProgress),
		errors.Is(err, db.ErrDuplicateContact):
		return http.StatusConflict
	case relay.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, onepager.ErrPDFUnavailable):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage renders err for a response body. Validator errors are
// reduced to the first failing field.
func errorMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return fmt.Sprintf("validation error: %s - %s", fe.Field(), fe.Tag())
	}
	return err.Error()
}
