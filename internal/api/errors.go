package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/as400-api/internal/api/shared"
	"github.com/phrazzld/as400-api/internal/as400"
	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/platform/logger"
	"github.com/phrazzld/as400-api/internal/redact"
	"github.com/phrazzld/as400-api/internal/service"
	"github.com/phrazzld/as400-api/internal/service/auth"
	"github.com/phrazzld/as400-api/internal/store"
	"github.com/phrazzld/as400-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error itself.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case err == nil:
		return http.StatusInternalServerError

	// Request errors
	case errors.Is(err, shared.ErrRequestTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidObjectName),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrPolicyDenied),
		errors.Is(err, domain.ErrWriteSQLNotAllowed),
		errors.Is(err, domain.ErrHostNotAuthorized):
		return http.StatusForbidden

	// Not found errors. Jobs of other users are reported as missing.
	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, service.ErrNotOwned),
		errors.Is(err, domain.ErrHostObjectNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, domain.ErrHostBusy),
		errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict

	// Host rejected the statement or command syntax
	case errors.Is(err, domain.ErrHostInvalidRequest):
		return http.StatusUnprocessableEntity

	// Capacity and availability
	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed),
		errors.Is(err, domain.ErrHostUnavailable),
		errors.Is(err, service.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrHostTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrHostCommandFailed),
		errors.Is(err, domain.ErrHostProtocol):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client facing message for err. Validation
// errors name the offending field; nothing else from the error is exposed.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrRequestTooLarge):
		return "Request body too large"
	case errors.As(err, &validationErr):
		return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, domain.ErrInvalidObjectName):
		return "Invalid object name"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, store.ErrInvalidEntity):
		return "Validation error"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken):
		return "Invalid refresh token"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"

	case errors.Is(err, domain.ErrForbidden):
		return "Operation not permitted for your role"
	case errors.Is(err, domain.ErrPolicyDenied):
		return "Denied by command policy"
	case errors.Is(err, domain.ErrWriteSQLNotAllowed):
		return "Only SELECT, WITH and VALUES statements are allowed"
	case errors.Is(err, domain.ErrHostNotAuthorized):
		return "Host profile is not authorized to this object"

	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, service.ErrNotOwned),
		errors.Is(err, store.ErrJobNotFound):
		return "Job not found"
	case errors.Is(err, domain.ErrHostObjectNotFound):
		return "Host object not found"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, domain.ErrHostBusy):
		return "Host object is in use"
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, domain.ErrHostInvalidRequest):
		return "Host rejected the request"

	case errors.Is(err, task.ErrQueueFull), errors.Is(err, task.ErrQueueClosed):
		return "Job queue is full, try again later"
	case errors.Is(err, domain.ErrHostUnavailable):
		return "Host unavailable"
	case errors.Is(err, service.ErrDependencyUnavailable):
		return "Service unavailable"
	case errors.Is(err, domain.ErrHostTimeout):
		return "Host operation timed out"
	case errors.Is(err, domain.ErrHostCommandFailed):
		return "Host command failed"
	case errors.Is(err, domain.ErrHostProtocol):
		return "Unexpected response from host"

	default:
		return "An unexpected error occurred"
	}
}

// HostErrorResponse is the error body of a failed host operation. It adds
// the IBM i message ID and, for commands, the result carrying the host
// messages.
type HostErrorResponse struct {
	Error     string                `json:"error"`
	TraceID   string                `json:"trace_id,omitempty"`
	MessageID string                `json:"message_id,omitempty"`
	Result    *domain.CommandResult `json:"result,omitempty"`
}

// HandleAPIError writes the mapped status and safe message for err and
// logs the redacted error. fallback replaces the generic message for 500s.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// HandleHostError is HandleAPIError for host operations: the response also
// carries the IBM i message ID and any partial command result.
func HandleHostError(w http.ResponseWriter, r *http.Request, err error, result *domain.CommandResult) {
	var msgErr *as400.MessageError
	if !errors.As(err, &msgErr) && result == nil {
		HandleAPIError(w, r, err, "Host operation failed")
		return
	}

	status := MapErrorToStatusCode(err)
	resp := HostErrorResponse{
		Error:   GetSafeErrorMessage(err),
		TraceID: shared.GetTraceID(r.Context()),
		Result:  result,
	}
	if msgErr != nil {
		resp.MessageID = msgErr.ID
	}
	logHostError(r, status, err, resp.MessageID)
	shared.RespondWithJSON(w, r, status, resp)
}

func logHostError(r *http.Request, status int, err error, messageID string) {
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.FromContextOrDefault(r.Context(), nil).Log(r.Context(), level, "host operation failed",
		"trace_id", shared.GetTraceID(r.Context()),
		"path", r.URL.Path,
		"status_code", status,
		"message_id", messageID,
		"error", redact.Error(err))
}

// HandleValidationError writes a 400 for a request body that failed
// struct validation.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError turns validator errors into a message naming the
// first failing field and rule.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", jsonFieldName(fe), getValidationTagMessage(fe.Tag()))
	}
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
	}
	return "Validation error"
}

// jsonFieldName lower-cases the Go field name into the snake_case used on
// the wire, e.g. MaxRows becomes max_rows.
func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "dive":
		return "invalid entry"
	default:
		return "validation failed"
	}
}
