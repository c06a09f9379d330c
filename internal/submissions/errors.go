package submissions

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors for submission operations.
var (
	ErrNotFound          = errors.New("submission not found")
	ErrDuplicate         = errors.New("submission already exists")
	ErrValidation        = errors.New("submission validation failed")
	ErrInvalidTransition = errors.New("invalid submission status transition")
	ErrInvalidRequest    = errors.New("invalid submission request")
)

// MapHTTPStatus maps submission domain errors to appropriate HTTP status codes.
// An invalid transition is a defect in the caller and surfaces as a 500.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrValidation) {
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// CheckTransition reports whether a submission in status from may move to
// the terminal status to.
func CheckTransition(from, to Status) error {
	if from.Terminal() {
		return fmt.Errorf("%w: submission is already %s", ErrInvalidTransition, from)
	}
	if !to.Terminal() {
		return fmt.Errorf("%w: target %q is not terminal", ErrInvalidTransition, to)
	}
	return nil
}

// CheckRecovery reports whether a submission in status from may be
// recovered to status to. Only error to processed is permitted.
func CheckRecovery(from, to Status) error {
	if from != StatusError {
		return fmt.Errorf("%w: only failed submissions can be recovered, submission is %s", ErrInvalidTransition, from)
	}
	if to != StatusProcessed {
		return fmt.Errorf("%w: recovery target must be %s, got %q", ErrInvalidTransition, StatusProcessed, to)
	}
	return nil
}
