package pipeline

import (
	"context"
	"errors"
	"net/http"

	"github.com/JaimeStill/formwise/internal/documents"
	"github.com/JaimeStill/formwise/internal/ocr"
	"github.com/JaimeStill/formwise/internal/submissions"
	"github.com/JaimeStill/formwise/internal/workflow"
)

var (
	ErrTimeout        = errors.New("pipeline stage timed out")
	ErrCancelled      = errors.New("pipeline run cancelled")
	ErrNotRetryable   = errors.New("submission is not in a retryable state")
	ErrInvalidRequest = errors.New("invalid pipeline request")
)

// Code classifies a run failure.
type Code string

const (
	CodeInvalidInput      Code = "invalid_input"
	CodeOCR               Code = "ocr_error"
	CodeValidation        Code = "validation_error"
	CodeNotFound          Code = "not_found"
	CodeNotRetryable      Code = "not_retryable"
	CodeInvalidTransition Code = "invalid_transition"
	CodeWorkflow          Code = "workflow_execution_failed"
	CodeTimeout           Code = "timeout"
	CodeCancelled         Code = "cancelled"
	CodeInternal          Code = "internal"
)

// Classify maps err to its result code. Cancellation and timeouts take
// precedence over the stage error they interrupted.
func Classify(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return CodeCancelled
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, documents.ErrInvalidInput), errors.Is(err, ErrInvalidRequest):
		return CodeInvalidInput
	case errors.Is(err, ocr.ErrRecognition):
		return CodeOCR
	case errors.Is(err, submissions.ErrValidation):
		return CodeValidation
	case errors.Is(err, submissions.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotRetryable):
		return CodeNotRetryable
	case errors.Is(err, submissions.ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, workflow.ErrExecutionFailed):
		return CodeWorkflow
	default:
		return CodeInternal
	}
}

// MapHTTPStatus maps a failed result to an HTTP status code.
func MapHTTPStatus(res *Result) int {
	switch res.Code {
	case "":
		return http.StatusOK
	case CodeInvalidInput:
		return documents.MapHTTPStatus(res.Err)
	case CodeOCR, CodeWorkflow:
		return http.StatusBadGateway
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotRetryable:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
