package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrExecutionFailed is matched by every *ExecutionError.
var ErrExecutionFailed = errors.New("workflow execution failed")

// ErrInvalidRequest is returned for malformed workflow API requests.
var ErrInvalidRequest = errors.New("invalid workflow request")

// ExecutionError describes a failed call to the workflow engine.
//
// Confirmed is true when the engine answered, either with a non-2xx
// response or with an execution whose status is error. A transport
// failure is unconfirmed: the engine may or may not have started the run.
type ExecutionError struct {
	Code        string
	Message     string
	HTTPStatus  int
	ExecutionID string
	Confirmed   bool
	Err         error
}

func (e *ExecutionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.ExecutionID != "":
		return fmt.Sprintf("workflow execution %s failed: %s", e.ExecutionID, msg)
	case e.Code != "":
		return fmt.Sprintf("workflow execution failed: %s: %s", e.Code, msg)
	default:
		return fmt.Sprintf("workflow execution failed: %s", msg)
	}
}

// Unwrap exposes ErrExecutionFailed and the underlying transport error.
func (e *ExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExecutionFailed}
	}
	return []error{ErrExecutionFailed, e.Err}
}

// MapHTTPStatus maps workflow errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		if execErr.HTTPStatus == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
