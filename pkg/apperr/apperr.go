// Package apperr defines the error kinds shared by the finance services.
// The HTTP layer translates them to status codes (400/409/404); everything
// else surfaces as a generic storage error.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("invalid input")
	// ErrConflict marks a uniqueness or state conflict.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks an entity that is absent or owned by another user.
	ErrNotFound = errors.New("not found")
)

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Conflictf wraps ErrConflict with a formatted detail message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}
