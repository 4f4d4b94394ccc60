package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinel errors used to mark failures across the service. Handlers map
// them to HTTP status codes via HTTPStatusFromErr.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrValidation       = errors.New("validation error")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIntegration      = errors.New("integration error")
	ErrDatabase         = errors.New("database error")
	ErrInternal         = errors.New("internal error")

	statusCodeMap = map[error]int{
		ErrNotFound:         http.StatusNotFound,
		ErrAlreadyExists:    http.StatusConflict,
		ErrValidation:       http.StatusBadRequest,
		ErrInvalidOperation: http.StatusBadRequest,
		ErrPermissionDenied: http.StatusForbidden,
		ErrIntegration:      http.StatusInternalServerError,
		ErrDatabase:         http.StatusInternalServerError,
		ErrInternal:         http.StatusInternalServerError,
	}
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsIntegration checks if an error is an upstream integration error
func IsIntegration(err error) bool {
	return errors.Is(err, ErrIntegration)
}

// HTTPStatusFromErr maps an error to the HTTP status code of the first
// sentinel it is marked with, defaulting to 500.
func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
