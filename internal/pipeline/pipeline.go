// Package pipeline coordinates a document intake run.
//
// Process takes an upload through validation, recognition, field
// extraction, and form matching. Submit persists caller-selected form data
// and drives the external workflow, recording the outcome on the
// submission exactly once. Stages run sequentially; cancellation is
// checked between them.
package pipeline

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/JaimeStill/formwise/internal/documents"
	"github.com/JaimeStill/formwise/internal/matching"
	"github.com/JaimeStill/formwise/pkg/fieldmap"
)

// State is a stage of a pipeline run.
type State string

const (
	StateReceived        State = "received"
	StateExtracting      State = "extracting"
	StateMatching        State = "matching"
	StatePersisted       State = "persisted"
	StateWorkflowRunning State = "workflow_running"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
)

// RunStatus is the terminal outcome of a run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// WorkflowName is the workflow executed for every new submission.
const WorkflowName = "form_submitted"

// Result is the single terminal report of a run. Stage is the last stage
// entered. Err carries the classified failure for callers in-process.
type Result struct {
	RunID           uuid.UUID             `json:"runId"`
	Status          RunStatus             `json:"status"`
	Stage           State                 `json:"stage"`
	Document        *documents.Document   `json:"document,omitempty"`
	SubmissionID    *uuid.UUID            `json:"submissionId,omitempty"`
	ExecutionID     string                `json:"executionId,omitempty"`
	ExtractedFields *fieldmap.Map         `json:"extractedFields,omitempty"`
	SuggestedForms  []matching.Suggestion `json:"suggestedForms,omitzero"`
	WorkflowResult  json.RawMessage       `json:"workflowResult,omitempty"`
	Code            Code                  `json:"code,omitempty"`
	Error           string                `json:"error,omitempty"`
	Err             error                 `json:"-"`
}

// Completed reports whether the run succeeded.
func (r *Result) Completed() bool {
	return r.Status == RunCompleted
}

// submissionPayload is sent to the workflow engine.
type submissionPayload struct {
	SubmissionID uuid.UUID    `json:"submissionId"`
	FormID       uuid.UUID    `json:"formId"`
	FormData     fieldmap.Map `json:"formData"`
}

// outcome is stored as the submission result.
type outcome struct {
	Code        Code            `json:"code,omitempty"`
	Message     string          `json:"message,omitempty"`
	ExecutionID string          `json:"executionId,omitempty"`
	WorkflowID  string          `json:"workflowId,omitempty"`
	Status      string          `json:"status"`
	Confirmed   *bool           `json:"confirmed,omitempty"`
	HTTPStatus  int             `json:"httpStatus,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

func (o outcome) encode() json.RawMessage {
	data, err := json.Marshal(o)
	if err != nil {
		return nil
	}
	return data
}
