// Package submissions persists form submissions and their lifecycle.
//
// A submission is created pending and moves exactly once to a terminal
// status (processed or error). Every write appends a history event in the
// same transaction. The only move out of a terminal status is Recover,
// which promotes error to processed after an explicit workflow retry.
package submissions

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/formwise/pkg/fieldmap"
)

// Status is the lifecycle state of a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusError
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Submission is a persisted record of form data sent for processing.
type Submission struct {
	ID          uuid.UUID       `json:"id"`
	FormID      uuid.UUID       `json:"formId"`
	Data        fieldmap.Map    `json:"data"`
	Status      Status          `json:"status"`
	ExecutionID *string         `json:"executionId,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Event is an append-only history entry. FromStatus is empty for creation.
type Event struct {
	ID           uuid.UUID       `json:"id"`
	Sequence     int64           `json:"sequence"`
	SubmissionID uuid.UUID       `json:"submissionId"`
	FromStatus   Status          `json:"fromStatus,omitempty"`
	ToStatus     Status          `json:"toStatus"`
	ExecutionID  *string         `json:"executionId,omitempty"`
	Detail       json.RawMessage `json:"detail,omitempty"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

// CreateCommand carries the data for a new submission.
type CreateCommand struct {
	FormID uuid.UUID
	Data   fieldmap.Map
}

// TransitionCommand describes a status change. An empty ExecutionID keeps
// the current one. Result replaces the stored result and is recorded as
// the event detail.
type TransitionCommand struct {
	Status      Status
	ExecutionID string
	Result      json.RawMessage
}
