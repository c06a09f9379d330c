// Package workflow is a client for the external workflow engine (n8n API).
//
// Every call issues exactly one outbound request. The client never retries
// on its own and sends no idempotency key; callers decide whether a failed
// execution is retried.
package workflow

import (
	"encoding/json"
	"time"
)

// ExecutionStatus is the engine-reported state of an execution.
type ExecutionStatus string

const (
	StatusNew      ExecutionStatus = "new"
	StatusRunning  ExecutionStatus = "running"
	StatusWaiting  ExecutionStatus = "waiting"
	StatusSuccess  ExecutionStatus = "success"
	StatusError    ExecutionStatus = "error"
	StatusCanceled ExecutionStatus = "canceled"
	StatusCrashed  ExecutionStatus = "crashed"
)

// Execution is a single workflow run as reported by the engine. A retry
// creates a new execution; the failed one is left unchanged.
type Execution struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflowId"`
	Status     ExecutionStatus `json:"status"`
	StartTime  time.Time       `json:"startTime"`
	EndTime    *time.Time      `json:"endTime,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Finished reports whether the execution reached a terminal status. A
// missing status counts as still in progress.
func (e *Execution) Finished() bool {
	switch e.Status {
	case "", StatusNew, StatusRunning, StatusWaiting:
		return false
	}
	return true
}

// Failed reports whether the execution finished without success.
func (e *Execution) Failed() bool {
	return e.Finished() && e.Status != StatusSuccess
}

// Workflow is an engine workflow definition.
type Workflow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Active  bool   `json:"active"`
	Status  string `json:"status,omitempty"`
	LastRun string `json:"lastRun,omitempty"`
}

type engineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
