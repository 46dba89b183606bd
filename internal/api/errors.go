package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/datemate/taskpoll/internal/api/shared"
	"github.com/datemate/taskpoll/internal/service"
	"github.com/datemate/taskpoll/internal/service/auth"
	"github.com/datemate/taskpoll/internal/task"
	"github.com/go-playground/validator/v10"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return http.StatusUnauthorized

	case errors.Is(err, task.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInvalidPayload),
		errors.Is(err, service.ErrUnsupportedType),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrBusy):
		return http.StatusServiceUnavailable

	case errors.Is(err, task.ErrRunnerStopped):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, task.ErrNotFound):
		return "task not found"

	case errors.Is(err, service.ErrUnsupportedType):
		return "unsupported task type"

	case errors.Is(err, service.ErrInvalidPayload):
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return SanitizeValidationError(verrs)
		}
		return "invalid task payload"

	case errors.Is(err, shared.ErrEmptyBody):
		return "request body is required"

	case errors.Is(err, service.ErrBusy):
		return "task queue is full, try again later"

	case errors.Is(err, task.ErrRunnerStopped):
		return "server is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a short message naming
// the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gte":
		return "too small"
	case "oneof":
		return "invalid value"
	case "datetime":
		return "invalid date format"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the error response for err. fallback replaces the
// generic message for unmapped errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		msg = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err)
}
