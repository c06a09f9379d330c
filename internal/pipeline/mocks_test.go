package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/formwise/internal/extraction"
	"github.com/JaimeStill/formwise/internal/forms"
	"github.com/JaimeStill/formwise/internal/matching"
	"github.com/JaimeStill/formwise/internal/ocr"
	"github.com/JaimeStill/formwise/internal/pipeline"
	"github.com/JaimeStill/formwise/internal/submissions"
	"github.com/JaimeStill/formwise/internal/workflow"
	"github.com/JaimeStill/formwise/pkg/pagination"
)

var errNotUsed = errors.New("not used by the pipeline")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingEngine records how often recognition was attempted.
type countingEngine struct {
	inner ocr.Engine
	fn    func(ctx context.Context, data []byte, contentType string) (string, error)
	calls atomic.Int32
}

func (e *countingEngine) Name() string { return "counting" }

func (e *countingEngine) Recognize(ctx context.Context, data []byte, contentType, language string) (string, error) {
	e.calls.Add(1)
	if e.fn != nil {
		return e.fn(ctx, data, contentType)
	}
	return e.inner.Recognize(ctx, data, contentType, language)
}

type mockForms struct {
	publishedFn func(ctx context.Context) ([]forms.Template, error)
}

func (m *mockForms) Handler() *forms.Handler { return nil }

func (m *mockForms) List(ctx context.Context, page pagination.PageRequest, filters forms.Filters) (*pagination.PageResult[forms.Template], error) {
	return nil, errNotUsed
}

func (m *mockForms) Find(ctx context.Context, id uuid.UUID) (*forms.Template, error) {
	return nil, errNotUsed
}

func (m *mockForms) Published(ctx context.Context) ([]forms.Template, error) {
	return m.publishedFn(ctx)
}

type mockWorkflow struct {
	executeFn func(ctx context.Context, name string, payload any) (*workflow.Execution, error)
	retryFn   func(ctx context.Context, executionID string) (*workflow.Execution, error)
	statusFn  func(ctx context.Context, executionID string) (*workflow.Execution, error)
}

func (m *mockWorkflow) Handler() *workflow.Handler { return nil }

func (m *mockWorkflow) Execute(ctx context.Context, name string, payload any) (*workflow.Execution, error) {
	return m.executeFn(ctx, name, payload)
}

func (m *mockWorkflow) Retry(ctx context.Context, executionID string) (*workflow.Execution, error) {
	return m.retryFn(ctx, executionID)
}

func (m *mockWorkflow) Status(ctx context.Context, executionID string) (*workflow.Execution, error) {
	return m.statusFn(ctx, executionID)
}

func (m *mockWorkflow) History(ctx context.Context, name string) ([]workflow.Execution, error) {
	return nil, errNotUsed
}

func (m *mockWorkflow) Workflows(ctx context.Context) ([]workflow.Workflow, error) {
	return nil, errNotUsed
}

func (m *mockWorkflow) SetActive(ctx context.Context, name string, active bool) (*workflow.Workflow, error) {
	return nil, errNotUsed
}

// memoryStore applies the submission state rules in memory.
type memoryStore struct {
	mu            sync.Mutex
	catalog       map[uuid.UUID]forms.Template
	subs          map[uuid.UUID]*submissions.Submission
	events        map[uuid.UUID][]submissions.Event
	seq           int64
	transitionErr error
}

func newMemoryStore(templates ...forms.Template) *memoryStore {
	s := &memoryStore{
		catalog: make(map[uuid.UUID]forms.Template),
		subs:    make(map[uuid.UUID]*submissions.Submission),
		events:  make(map[uuid.UUID][]submissions.Event),
	}
	for _, t := range templates {
		s.catalog[t.ID] = t
	}
	return s
}

func (s *memoryStore) Handler() *submissions.Handler { return nil }

func (s *memoryStore) Create(ctx context.Context, cmd submissions.CreateCommand) (*submissions.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.catalog[cmd.FormID]
	if !ok || !t.Published() {
		return nil, fmt.Errorf("%w: form %s is not available", submissions.ErrValidation, cmd.FormID)
	}
	if err := t.Validate(cmd.Data); err != nil {
		return nil, fmt.Errorf("%w: %w", submissions.ErrValidation, err)
	}

	now := time.Now()
	sub := &submissions.Submission{
		ID:        uuid.New(),
		FormID:    cmd.FormID,
		Data:      cmd.Data.Clone(),
		Status:    submissions.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.subs[sub.ID] = sub
	s.record(sub, "", nil)

	out := *sub
	return &out, nil
}

func (s *memoryStore) Transition(ctx context.Context, id uuid.UUID, cmd submissions.TransitionCommand) (*submissions.Submission, error) {
	return s.move(id, cmd, submissions.CheckTransition)
}

func (s *memoryStore) Recover(ctx context.Context, id uuid.UUID, cmd submissions.TransitionCommand) (*submissions.Submission, error) {
	return s.move(id, cmd, submissions.CheckRecovery)
}

func (s *memoryStore) move(
	id uuid.UUID,
	cmd submissions.TransitionCommand,
	check func(from, to submissions.Status) error,
) (*submissions.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transitionErr != nil {
		return nil, s.transitionErr
	}

	sub, ok := s.subs[id]
	if !ok {
		return nil, submissions.ErrNotFound
	}
	if err := check(sub.Status, cmd.Status); err != nil {
		return nil, err
	}

	from := sub.Status
	sub.Status = cmd.Status
	if cmd.ExecutionID != "" {
		execID := cmd.ExecutionID
		sub.ExecutionID = &execID
	}
	sub.Result = cmd.Result
	sub.UpdatedAt = time.Now()
	s.record(sub, from, cmd.Result)

	out := *sub
	return &out, nil
}

func (s *memoryStore) record(sub *submissions.Submission, from submissions.Status, detail []byte) {
	s.seq++
	s.events[sub.ID] = append(s.events[sub.ID], submissions.Event{
		ID:           uuid.New(),
		Sequence:     s.seq,
		SubmissionID: sub.ID,
		FromStatus:   from,
		ToStatus:     sub.Status,
		ExecutionID:  sub.ExecutionID,
		Detail:       detail,
		OccurredAt:   time.Now(),
	})
}

func (s *memoryStore) Find(ctx context.Context, id uuid.UUID) (*submissions.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, submissions.ErrNotFound
	}
	out := *sub
	return &out, nil
}

func (s *memoryStore) History(ctx context.Context, id uuid.UUID) ([]submissions.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, ok := s.events[id]
	if !ok {
		return nil, submissions.ErrNotFound
	}
	return append([]submissions.Event(nil), events...), nil
}

func (s *memoryStore) List(ctx context.Context, page pagination.PageRequest, filters submissions.Filters) (*pagination.PageResult[submissions.Submission], error) {
	return nil, errNotUsed
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

var jobApplication = forms.Template{
	ID:          uuid.MustParse("2b7e4f1c-3c1a-4d8e-9a6b-1f0d5e7c9a01"),
	Name:        "Job Application",
	Description: "Apply for an open position",
	Status:      forms.StatusPublished,
	Fields: []forms.Field{
		{ID: "name", Label: "Name", Type: forms.FieldText, Required: true},
		{ID: "email", Label: "Email", Type: forms.FieldText},
	},
}

type harness struct {
	ocr      *countingEngine
	forms    *mockForms
	store    *memoryStore
	workflow *mockWorkflow
	sys      pipeline.System
}

func newHarness(t *testing.T, cfg *pipeline.Config) *harness {
	t.Helper()

	if cfg == nil {
		cfg = &pipeline.Config{}
	}
	if cfg.PollInterval == "" {
		cfg.PollInterval = "1ms"
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	h := &harness{
		ocr: &countingEngine{inner: ocr.NewTextLayer()},
		forms: &mockForms{publishedFn: func(ctx context.Context) ([]forms.Template, error) {
			return []forms.Template{jobApplication}, nil
		}},
		store: newMemoryStore(jobApplication),
		workflow: &mockWorkflow{
			executeFn: func(ctx context.Context, name string, payload any) (*workflow.Execution, error) {
				return &workflow.Execution{ID: "exec-1", WorkflowID: "wf-1", Status: workflow.StatusSuccess}, nil
			},
		},
	}

	h.sys = pipeline.New(&pipeline.Runtime{
		OCR:         h.ocr,
		Extractor:   extraction.New(),
		Matcher:     matching.New(nil),
		Forms:       h.forms,
		Submissions: h.store,
		Workflow:    h.workflow,
		Language:    "eng",
		Logger:      discardLogger(),
	}, cfg)

	return h
}

func failedExecution(id string) (*workflow.Execution, error) {
	exec := &workflow.Execution{ID: id, WorkflowID: "wf-1", Status: workflow.StatusError}
	return exec, &workflow.ExecutionError{
		Code:        "EXECUTION_ERROR",
		Message:     "node failed",
		ExecutionID: id,
		Confirmed:   true,
	}
}
