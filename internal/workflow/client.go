package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxErrorBody = 64 << 10

// System defines the workflow engine operations used by the service.
//
// Execute, Retry, and Status return the execution together with a
// confirmed *ExecutionError when the engine reports it finished without
// success.
type System interface {
	Handler() *Handler

	Execute(ctx context.Context, name string, payload any) (*Execution, error)
	Retry(ctx context.Context, executionID string) (*Execution, error)
	Status(ctx context.Context, executionID string) (*Execution, error)
	History(ctx context.Context, name string) ([]Execution, error)
	Workflows(ctx context.Context) ([]Workflow, error)
	SetActive(ctx context.Context, name string, active bool) (*Workflow, error)
}

type client struct {
	http   *http.Client
	cfg    *Config
	base   string
	logger *slog.Logger
}

// New creates a workflow engine client. One http.Client is shared by all
// calls.
func New(cfg *Config, logger *slog.Logger) System {
	return &client{
		http:   &http.Client{Timeout: cfg.TimeoutDuration()},
		cfg:    cfg,
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		logger: logger.With("system", "workflow"),
	}
}

func (c *client) Handler() *Handler {
	return NewHandler(c, c.logger)
}

func (c *client) Execute(ctx context.Context, name string, payload any) (*Execution, error) {
	id := c.cfg.WorkflowID(name)
	body := struct {
		Data any `json:"data"`
	}{Data: payload}

	var exec Execution
	if err := c.do(ctx, http.MethodPost, "/workflows/"+url.PathEscape(id)+"/execute", body, &exec); err != nil {
		return nil, err
	}

	c.logger.Info("workflow executed", "workflow", name, "execution_id", exec.ID, "status", exec.Status)
	return checkExecution(&exec)
}

func (c *client) Retry(ctx context.Context, executionID string) (*Execution, error) {
	var exec Execution
	if err := c.do(ctx, http.MethodPost, "/executions/"+url.PathEscape(executionID)+"/retry", nil, &exec); err != nil {
		return nil, err
	}

	c.logger.Info("workflow execution retried",
		"retried_execution_id", executionID,
		"execution_id", exec.ID,
		"status", exec.Status,
	)
	return checkExecution(&exec)
}

func (c *client) Status(ctx context.Context, executionID string) (*Execution, error) {
	var exec Execution
	if err := c.do(ctx, http.MethodGet, "/executions/"+url.PathEscape(executionID), nil, &exec); err != nil {
		return nil, err
	}
	return checkExecution(&exec)
}

func (c *client) History(ctx context.Context, name string) ([]Execution, error) {
	var execs listResponse[Execution]
	path := "/workflows/" + url.PathEscape(c.cfg.WorkflowID(name)) + "/executions"
	if err := c.do(ctx, http.MethodGet, path, nil, &execs); err != nil {
		return nil, err
	}
	return execs.items(), nil
}

func (c *client) Workflows(ctx context.Context) ([]Workflow, error) {
	var wfs listResponse[Workflow]
	if err := c.do(ctx, http.MethodGet, "/workflows", nil, &wfs); err != nil {
		return nil, err
	}
	return wfs.items(), nil
}

func (c *client) SetActive(ctx context.Context, name string, active bool) (*Workflow, error) {
	body := struct {
		Active bool `json:"active"`
	}{Active: active}

	var wf Workflow
	if err := c.do(ctx, http.MethodPatch, "/workflows/"+url.PathEscape(c.cfg.WorkflowID(name)), body, &wf); err != nil {
		return nil, err
	}

	c.logger.Info("workflow activation changed", "workflow", name, "active", wf.Active)
	return &wf, nil
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode workflow request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("create workflow request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set(c.cfg.APIKeyHeader, c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("workflow request failed", "method", method, "path", path, "error", err)
		return &ExecutionError{Message: "workflow engine unreachable", Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("workflow request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ExecutionError{
			Code:       "INVALID_RESPONSE",
			Message:    fmt.Sprintf("decode workflow response: %v", err),
			HTTPStatus: resp.StatusCode,
			Confirmed:  true,
		}
	}
	return nil
}

func responseError(resp *http.Response) *ExecutionError {
	execErr := &ExecutionError{
		HTTPStatus: resp.StatusCode,
		Confirmed:  true,
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body engineError
	if err := json.Unmarshal(data, &body); err == nil && (body.Code != "" || body.Message != "") {
		execErr.Code = body.Code
		execErr.Message = body.Message
	}
	if execErr.Message == "" {
		if text := strings.TrimSpace(string(data)); text != "" {
			execErr.Message = text
		} else {
			execErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return execErr
}

// checkExecution converts an execution reported as failed into a
// confirmed error while still returning the execution.
func checkExecution(exec *Execution) (*Execution, error) {
	if !exec.Failed() {
		return exec, nil
	}
	return exec, &ExecutionError{
		Code:        "EXECUTION_ERROR",
		Message:     fmt.Sprintf("execution finished with status %s", exec.Status),
		ExecutionID: exec.ID,
		Confirmed:   true,
	}
}

// listResponse accepts either a bare JSON array or an object wrapping the
// array in a data field.
type listResponse[T any] struct {
	list []T
}

func (l *listResponse[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Data []T `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return err
		}
		l.list = envelope.Data
		return nil
	}
	return json.Unmarshal(trimmed, &l.list)
}

func (l *listResponse[T]) items() []T {
	if l.list == nil {
		return []T{}
	}
	return l.list
}
