// Package apperr holds the error taxonomy shared by the ordering, table and
// settings services. Concrete errors wrap one of the class sentinels so the
// HTTP layer can map them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPersistence  = errors.New("persistence error")
)

var (
	ErrTableOccupied       = fmt.Errorf("%w: table already has an active session", ErrConflict)
	ErrInvalidTransition   = fmt.Errorf("%w: status transition not allowed", ErrConflict)
	ErrOutsideDeliveryArea = fmt.Errorf("%w: address is outside the delivery area", ErrValidation)
	ErrWrongPassword       = fmt.Errorf("%w: incorrect password", ErrUnauthorized)
)

// Validation builds a validation error with a caller-facing message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Code returns a stable machine-readable code for err's class.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL_ERROR"
	}
}
