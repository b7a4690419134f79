package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/boxpack-api/internal/api/shared"
	"github.com/phrazzld/boxpack-api/internal/domain"
	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/redact"
	"github.com/phrazzld/boxpack-api/internal/service"
	"github.com/phrazzld/boxpack-api/internal/service/auth"
	"github.com/phrazzld/boxpack-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing their types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// A rejected candidate can wrap algorithm and geometry errors from its
	// smoke test, so it is matched first.
	case errors.Is(err, placement.ErrInvalidCandidate):
		return http.StatusBadRequest
	case errors.Is(err, placement.ErrAlgorithmTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, placement.ErrGeometryViolation),
		errors.Is(err, placement.ErrAlgorithm):
		return http.StatusUnprocessableEntity

	case errors.Is(err, placement.ErrInvalidSpace),
		errors.Is(err, placement.ErrInvalidItem),
		errors.Is(err, placement.ErrEmptyItemName),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, service.ErrWorkerNotFound):
		return http.StatusBadRequest

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err. Placement and
// input errors keep their (redacted) reason so the caller can act on it;
// everything else gets a fixed message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return SanitizeValidationError(err)

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, placement.ErrInvalidCandidate),
		errors.Is(err, placement.ErrAlgorithmTimeout),
		errors.Is(err, placement.ErrGeometryViolation),
		errors.Is(err, placement.ErrAlgorithm),
		errors.Is(err, placement.ErrInvalidSpace),
		errors.Is(err, placement.ErrInvalidItem),
		errors.Is(err, placement.ErrEmptyItemName),
		errors.Is(err, domain.ErrValidation):
		return redact.Error(err)

	case errors.Is(err, service.ErrWorkerNotFound):
		return "Worker not found"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, store.ErrNameExists):
		return "Name already exists"
	case errors.Is(err, store.ErrDuplicate):
		return "Already exists"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the mapped status and safe message for err. A
// non-empty fallback replaces the generic message for 5xx responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status >= http.StatusInternalServerError && fallback != "" &&
		!errors.Is(err, placement.ErrAlgorithmTimeout) {
		msg = fallback
	}

	var opts []shared.ResponseOption
	if errors.Is(err, placement.ErrInvalidCandidate) || errors.Is(err, placement.ErrGeometryViolation) {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}

// SanitizeValidationError turns validator errors into "Invalid <field>:
// <reason>" without struct or package names.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag())))
	}
	return strings.Join(parts, "; ")
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gt", "gte":
		return "must be positive"
	case "uuid":
		return "must be a UUID"
	case "dive":
		return "invalid element"
	default:
		return "validation failed"
	}
}
