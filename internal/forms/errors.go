package forms

import (
	"errors"
	"net/http"
)

// Domain errors for form template operations.
var (
	ErrNotFound       = errors.New("form not found")
	ErrDuplicate      = errors.New("form already exists")
	ErrInvalidRequest = errors.New("invalid form request")
	ErrInvalidData    = errors.New("invalid submission data")
)

// MapHTTPStatus maps form domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrInvalidData) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
