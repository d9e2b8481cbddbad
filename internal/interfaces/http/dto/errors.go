package dto

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
)

// Transport-level error codes. Domain codes (INSUFFICIENT_STOCK,
// INVALID_STATE ...) pass through unchanged.
const (
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeRequestTooLarge   = "REQUEST_TOO_LARGE"
	ErrCodeRequestInProgress = "REQUEST_IN_PROGRESS"
)

// ErrorCodeHTTPStatus maps codes whose status cannot be derived from the
// error's type
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:          http.StatusInternalServerError,
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeInvalidJSON:       http.StatusBadRequest,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeRequestTooLarge:   http.StatusRequestEntityTooLarge,
	ErrCodeRequestInProgress: http.StatusConflict,

	"ALREADY_EXISTS":            http.StatusConflict,
	"CONCURRENCY_CONFLICT":      http.StatusConflict,
	"INVALID_STATE":             http.StatusUnprocessableEntity,
	"SCHEDULE_EXISTS":           http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK":        http.StatusUnprocessableEntity,
	"INSUFFICIENT_BALANCE":      http.StatusUnprocessableEntity,
	"PAYMENT_EXCEEDS_REMAINING": http.StatusUnprocessableEntity,
	"INVARIANT_VIOLATION":       http.StatusBadRequest,
}

// GetHTTPStatus returns the status for code. Unknown INVALID_*, *_REQUIRED
// and *_MISMATCH codes are input problems; anything else is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") ||
		strings.HasSuffix(code, "_REQUIRED") ||
		strings.HasSuffix(code, "_MISMATCH") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ClassifyError returns the status and the public error body for err.
// Errors without a domain code are reported as internal errors and their
// text is not exposed.
func ClassifyError(err error) (int, ErrorInfo) {
	var (
		stateErr     *shared.StateError
		shortErr     *shared.InsufficientResourceError
		invariantErr *shared.InvariantViolationError
		domainErr    *shared.DomainError
	)
	switch {
	case errors.As(err, &stateErr):
		return http.StatusUnprocessableEntity, ErrorInfo{Code: stateErr.Kind.Code, Message: stateErr.Error()}
	case errors.As(err, &shortErr):
		return http.StatusUnprocessableEntity, ErrorInfo{
			Code:    shortErr.Kind.Code,
			Message: shortErr.Error(),
			Details: []ValidationDetail{
				{Field: "available", Message: shortErr.Available.String()},
				{Field: "required", Message: shortErr.Required.String()},
			},
		}
	case errors.As(err, &invariantErr):
		return http.StatusBadRequest, ErrorInfo{
			Code:    shared.ErrInvariantViolation.Code,
			Message: invariantErr.Error(),
			Details: []ValidationDetail{{Field: invariantErr.Field, Message: invariantErr.Detail}},
		}
	case errors.As(err, &domainErr):
		return GetHTTPStatus(domainErr.Code), ErrorInfo{Code: domainErr.Code, Message: domainErr.Message}
	default:
		return http.StatusInternalServerError, ErrorInfo{Code: ErrCodeInternal, Message: "An unexpected error occurred"}
	}
}
