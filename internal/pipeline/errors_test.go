package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JaimeStill/formwise/internal/documents"
	"github.com/JaimeStill/formwise/internal/ocr"
	"github.com/JaimeStill/formwise/internal/pipeline"
	"github.com/JaimeStill/formwise/internal/submissions"
	"github.com/JaimeStill/formwise/internal/workflow"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want pipeline.Code
	}{
		{"nil", nil, ""},
		{"invalid input", fmt.Errorf("%w: empty", documents.ErrInvalidInput), pipeline.CodeInvalidInput},
		{"ocr", fmt.Errorf("%w: exit 1", ocr.ErrRecognition), pipeline.CodeOCR},
		{"ocr timeout", fmt.Errorf("%w: %w", pipeline.ErrTimeout, ocr.ErrRecognition), pipeline.CodeTimeout},
		{"validation", submissions.ErrValidation, pipeline.CodeValidation},
		{"not found", submissions.ErrNotFound, pipeline.CodeNotFound},
		{"not retryable", pipeline.ErrNotRetryable, pipeline.CodeNotRetryable},
		{"invalid transition", submissions.ErrInvalidTransition, pipeline.CodeInvalidTransition},
		{"workflow", &workflow.ExecutionError{Message: "boom", Confirmed: true}, pipeline.CodeWorkflow},
		{"cancelled workflow", fmt.Errorf("%w: %w", pipeline.ErrCancelled, &workflow.ExecutionError{}), pipeline.CodeCancelled},
		{"context cancelled", context.Canceled, pipeline.CodeCancelled},
		{"deadline", context.DeadlineExceeded, pipeline.CodeTimeout},
		{"unknown", errors.New("disk full"), pipeline.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pipeline.Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tooLarge := fmt.Errorf("%w: %w", documents.ErrInvalidInput, documents.ErrTooLarge)

	tests := []struct {
		name string
		code pipeline.Code
		err  error
		want int
	}{
		{"success", "", nil, http.StatusOK},
		{"invalid input", pipeline.CodeInvalidInput, documents.ErrInvalidInput, http.StatusBadRequest},
		{"too large", pipeline.CodeInvalidInput, tooLarge, http.StatusRequestEntityTooLarge},
		{"ocr", pipeline.CodeOCR, nil, http.StatusBadGateway},
		{"validation", pipeline.CodeValidation, nil, http.StatusUnprocessableEntity},
		{"not found", pipeline.CodeNotFound, nil, http.StatusNotFound},
		{"not retryable", pipeline.CodeNotRetryable, nil, http.StatusConflict},
		{"invalid transition", pipeline.CodeInvalidTransition, nil, http.StatusInternalServerError},
		{"workflow", pipeline.CodeWorkflow, nil, http.StatusBadGateway},
		{"timeout", pipeline.CodeTimeout, nil, http.StatusGatewayTimeout},
		{"cancelled", pipeline.CodeCancelled, nil, http.StatusServiceUnavailable},
		{"internal", pipeline.CodeInternal, nil, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := pipeline.Result{Code: tt.code, Err: tt.err}
			if got := pipeline.MapHTTPStatus(&res); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
