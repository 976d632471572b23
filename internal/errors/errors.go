package errors

import (
	"errors"
	"fmt"
)

// Settlement error taxonomy. Handlers map these onto HTTP statuses and
// services wrap them with fmt.Errorf("%w: ...") to add detail.
var (
	// ErrNotFound - entity is absent or not owned by the caller
	ErrNotFound = errors.New("not found")

	// ErrInvalidState - operation attempted from a disallowed state
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict - duplicate pending ticket, duplicate earning, etc.
	ErrConflict = errors.New("conflict")

	// ErrValidation - malformed amount, date or content
	ErrValidation = errors.New("validation failed")

	// ErrTransient - store unavailable, safe to retry
	ErrTransient = errors.New("transient failure")
)

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidStatef wraps ErrInvalidState with a formatted detail message.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Conflictf wraps ErrConflict with a formatted detail message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Is reports whether err matches target, re-exported so callers don't
// need both this package and the stdlib one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
