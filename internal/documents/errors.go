package documents

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput = errors.New("invalid document")
	ErrTooLarge     = errors.New("document too large")
)

// MapHTTPStatus returns 413 for oversized documents and 400 for any other
// intake rejection.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
