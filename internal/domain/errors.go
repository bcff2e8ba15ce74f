package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidObjectName is returned when an IBM i object or library name is malformed.
	ErrInvalidObjectName = errors.New("invalid object name")

	// ErrUnauthorized is returned when no authenticated principal is present.
	ErrUnauthorized = errors.New("unauthorized operation")

	// ErrForbidden is returned when the principal's role does not permit the operation.
	ErrForbidden = errors.New("operation not permitted for role")

	// ErrPolicyDenied is returned when the command policy rejects a command or program.
	ErrPolicyDenied = errors.New("denied by command policy")

	// ErrWriteSQLNotAllowed is returned for data-changing SQL when the gateway is read-only.
	ErrWriteSQLNotAllowed = errors.New("write statements are not allowed")

	// ErrJobNotFound is returned when an async job does not exist or belongs to someone else.
	ErrJobNotFound = errors.New("job not found")
)

// Host errors describe how an operation on the IBM i failed.
var (
	// ErrHostUnavailable is returned when the SSH connection cannot be established.
	ErrHostUnavailable = errors.New("host unavailable")

	// ErrHostTimeout is returned when an operation exceeds its deadline.
	ErrHostTimeout = errors.New("host operation timed out")

	// ErrHostObjectNotFound is returned when the host reports a missing object, library or table.
	ErrHostObjectNotFound = errors.New("host object not found")

	// ErrHostNotAuthorized is returned when the host profile lacks authority.
	ErrHostNotAuthorized = errors.New("host profile not authorized")

	// ErrHostInvalidRequest is returned when the host rejects command or statement syntax.
	ErrHostInvalidRequest = errors.New("host rejected request")

	// ErrHostBusy is returned when an object is locked or in use on the host.
	ErrHostBusy = errors.New("host object in use")

	// ErrHostCommandFailed is returned for any other unsuccessful host operation.
	ErrHostCommandFailed = errors.New("host command failed")

	// ErrHostProtocol is returned when host output cannot be interpreted.
	ErrHostProtocol = errors.New("unexpected host response")
)

// ValidationError describes a single invalid field. It wraps a sentinel so
// callers can still match with errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is makes every ValidationError match ErrValidation as well as its own sentinel.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}
