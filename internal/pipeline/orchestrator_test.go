package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaimeStill/formwise/internal/documents"
	"github.com/JaimeStill/formwise/internal/extraction"
	"github.com/JaimeStill/formwise/internal/forms"
	"github.com/JaimeStill/formwise/internal/matching"
	"github.com/JaimeStill/formwise/internal/ocr"
	"github.com/JaimeStill/formwise/internal/pdftest"
	"github.com/JaimeStill/formwise/internal/pipeline"
	"github.com/JaimeStill/formwise/internal/submissions"
	"github.com/JaimeStill/formwise/internal/workflow"
	"github.com/JaimeStill/formwise/pkg/fieldmap"
)

func TestProcessAndSubmitEndToEnd(t *testing.T) {
	h := newHarness(t, nil)

	var payload []byte
	h.workflow.executeFn = func(ctx context.Context, name string, p any) (*workflow.Execution, error) {
		if name != pipeline.WorkflowName {
			t.Errorf("Execute() workflow = %q, want %q", name, pipeline.WorkflowName)
		}
		payload, _ = json.Marshal(p)
		return &workflow.Execution{
			ID:         "exec-1",
			WorkflowID: "wf-1",
			Status:     workflow.StatusSuccess,
			Data:       json.RawMessage(`{"ticket":"T-1"}`),
		}, nil
	}

	doc := documents.New("application.pdf", "application/pdf", pdftest.Sized(2<<20, "Name: Jane Doe"))
	res := h.sys.Process(context.Background(), doc, "")

	if !res.Completed() || res.Stage != pipeline.StateMatching {
		t.Fatalf("Process() = %s at %s (%s), want completed at matching", res.Status, res.Stage, res.Error)
	}
	if res.ExtractedFields == nil || res.ExtractedFields.Value("name") != "Jane Doe" {
		t.Fatalf("extracted fields = %v, want name Jane Doe", res.ExtractedFields)
	}
	if len(res.SuggestedForms) != 1 || res.SuggestedForms[0].ID != jobApplication.ID {
		t.Fatalf("suggested forms = %+v, want job application", res.SuggestedForms)
	}
	if res.Document == nil || res.Document.Size != 2<<20 {
		t.Errorf("document = %+v, want 2MB", res.Document)
	}

	submitted := h.sys.Submit(context.Background(), res.SuggestedForms[0].ID, *res.ExtractedFields)
	if !submitted.Completed() || submitted.Stage != pipeline.StateWorkflowRunning {
		t.Fatalf("Submit() = %s at %s (%s), want completed", submitted.Status, submitted.Stage, submitted.Error)
	}
	if submitted.ExecutionID != "exec-1" {
		t.Errorf("execution id = %q, want exec-1", submitted.ExecutionID)
	}
	if string(submitted.WorkflowResult) != `{"ticket":"T-1"}` {
		t.Errorf("workflow result = %s", submitted.WorkflowResult)
	}

	stored, err := h.store.Find(context.Background(), *submitted.SubmissionID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if stored.Status != submissions.StatusProcessed {
		t.Errorf("stored status = %s, want processed", stored.Status)
	}
	if got := stored.Data.Value("name"); got != "Jane Doe" {
		t.Errorf("stored name = %q, want Jane Doe", got)
	}

	var sent struct {
		SubmissionID uuid.UUID         `json:"submissionId"`
		FormData     map[string]string `json:"formData"`
	}
	if err := json.Unmarshal(payload, &sent); err != nil {
		t.Fatalf("payload %s: %v", payload, err)
	}
	if sent.SubmissionID != stored.ID || sent.FormData["name"] != "Jane Doe" {
		t.Errorf("payload = %s", payload)
	}
}

func TestProcessSizeBoundary(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		completed bool
		ocrCalls  int32
	}{
		{"exactly 10MB", 10 << 20, true, 1},
		{"one byte over", 10<<20 + 1, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)

			doc := documents.New("scan.pdf", "application/pdf", pdftest.Sized(tt.size, "Name: Jane Doe"))
			if doc.Size != int64(tt.size) {
				t.Fatalf("document size = %d, want %d", doc.Size, tt.size)
			}

			res := h.sys.Process(context.Background(), doc, "")
			if res.Completed() != tt.completed {
				t.Fatalf("Process() status = %s (%s)", res.Status, res.Error)
			}
			if got := h.ocr.calls.Load(); got != tt.ocrCalls {
				t.Errorf("ocr calls = %d, want %d", got, tt.ocrCalls)
			}
			if !tt.completed {
				if res.Code != pipeline.CodeInvalidInput || res.Stage != pipeline.StateReceived {
					t.Errorf("result = %s at %s, want invalid_input at received", res.Code, res.Stage)
				}
				if status := pipeline.MapHTTPStatus(&res); status != http.StatusRequestEntityTooLarge {
					t.Errorf("MapHTTPStatus() = %d, want 413", status)
				}
			}
		})
	}
}

func TestProcessRejectsUnsupportedType(t *testing.T) {
	h := newHarness(t, nil)

	doc := documents.New("notes.txt", "text/plain", []byte("Name: Jane Doe"))
	res := h.sys.Process(context.Background(), doc, "")

	if res.Completed() || res.Code != pipeline.CodeInvalidInput {
		t.Fatalf("Process() = %s/%s, want failed/invalid_input", res.Status, res.Code)
	}
	if got := h.ocr.calls.Load(); got != 0 {
		t.Errorf("ocr calls = %d, want 0", got)
	}
	if h.store.count() != 0 {
		t.Error("no submission should be created")
	}
	if pipeline.MapHTTPStatus(&res) != http.StatusBadRequest {
		t.Errorf("MapHTTPStatus() = %d, want 400", pipeline.MapHTTPStatus(&res))
	}
}

func TestProcessOCRFailures(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
		fn      func(ctx context.Context, data []byte, contentType string) (string, error)
		code    pipeline.Code
	}{
		{
			name: "engine error",
			fn: func(ctx context.Context, data []byte, contentType string) (string, error) {
				return "", errors.New("tesseract exited 1")
			},
			code: pipeline.CodeOCR,
		},
		{
			name:    "deadline",
			timeout: "20ms",
			fn: func(ctx context.Context, data []byte, contentType string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
			code: pipeline.CodeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &pipeline.Config{OCRTimeout: tt.timeout})
			h.ocr.fn = tt.fn

			res := h.sys.Process(context.Background(), documents.New("a.png", "image/png", pngHeader()), "")
			if res.Code != tt.code || res.Stage != pipeline.StateExtracting {
				t.Fatalf("Process() = %s at %s, want %s at extracting", res.Code, res.Stage, tt.code)
			}
			if !errors.Is(res.Err, ocr.ErrRecognition) {
				t.Errorf("error %v should match ocr.ErrRecognition", res.Err)
			}
			if tt.code == pipeline.CodeTimeout && !errors.Is(res.Err, pipeline.ErrTimeout) {
				t.Errorf("error %v should match ErrTimeout", res.Err)
			}
		})
	}
}

func TestProcessCatalogFailureDegrades(t *testing.T) {
	h := newHarness(t, nil)
	h.forms.publishedFn = func(ctx context.Context) ([]forms.Template, error) {
		return nil, errors.New("connection refused")
	}

	res := h.sys.Process(context.Background(), documents.New("a.pdf", "", pdftest.New("Name: Jane Doe")), "")
	if !res.Completed() {
		t.Fatalf("Process() failed: %s", res.Error)
	}
	if res.SuggestedForms == nil || len(res.SuggestedForms) != 0 {
		t.Errorf("suggested forms = %#v, want empty", res.SuggestedForms)
	}

	data, _ := json.Marshal(res)
	if !strings.Contains(string(data), `"suggestedForms":[]`) {
		t.Errorf("result JSON %s should carry an empty suggestion list", data)
	}
}

func TestProcessCancelled(t *testing.T) {
	h := newHarness(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	h.ocr.fn = func(context.Context, []byte, string) (string, error) {
		cancel()
		return "Name: Jane Doe", nil
	}

	res := h.sys.Process(ctx, documents.New("a.png", "image/png", pngHeader()), "")
	if res.Code != pipeline.CodeCancelled || res.Stage != pipeline.StateExtracting {
		t.Fatalf("Process() = %s at %s, want cancelled at extracting", res.Code, res.Stage)
	}
	if pipeline.MapHTTPStatus(&res) != http.StatusServiceUnavailable {
		t.Errorf("MapHTTPStatus() = %d, want 503", pipeline.MapHTTPStatus(&res))
	}
}

func TestProcessBatchKeepsOrder(t *testing.T) {
	h := newHarness(t, &pipeline.Config{BatchConcurrency: 2})

	docs := []documents.Document{
		documents.New("a.pdf", "application/pdf", pdftest.New("Name: Ada")),
		documents.New("b.txt", "text/plain", []byte("Name: Bob")),
		documents.New("c.pdf", "application/pdf", pdftest.New("Name: Cy")),
	}

	results := h.sys.ProcessBatch(context.Background(), docs, "")
	if len(results) != len(docs) {
		t.Fatalf("results = %d, want %d", len(results), len(docs))
	}

	want := []struct {
		completed bool
		name      string
	}{
		{true, "Ada"},
		{false, ""},
		{true, "Cy"},
	}
	for i, w := range want {
		if results[i].Completed() != w.completed {
			t.Errorf("results[%d] status = %s (%s)", i, results[i].Status, results[i].Error)
			continue
		}
		if w.completed && results[i].ExtractedFields.Value("name") != w.name {
			t.Errorf("results[%d] name = %q, want %q", i, results[i].ExtractedFields.Value("name"), w.name)
		}
	}
	if results[0].RunID == results[2].RunID {
		t.Error("runs should have distinct ids")
	}
}

func janeDoe() fieldmap.Map {
	return fieldmap.New(fieldmap.Pair{Key: "name", Value: "Jane Doe"})
}

func TestSubmitValidationFailure(t *testing.T) {
	tests := []struct {
		name   string
		formID uuid.UUID
		data   fieldmap.Map
	}{
		{"unknown form", uuid.New(), janeDoe()},
		{"missing required field", jobApplication.ID, fieldmap.New()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.workflow.executeFn = func(context.Context, string, any) (*workflow.Execution, error) {
				t.Error("workflow must not run for invalid submissions")
				return nil, nil
			}

			res := h.sys.Submit(context.Background(), tt.formID, tt.data)
			if res.Code != pipeline.CodeValidation || res.Stage != pipeline.StatePersisted {
				t.Fatalf("Submit() = %s at %s, want validation_error at persisted", res.Code, res.Stage)
			}
			if res.SubmissionID != nil || h.store.count() != 0 {
				t.Error("no submission should be stored")
			}
			if pipeline.MapHTTPStatus(&res) != http.StatusUnprocessableEntity {
				t.Errorf("MapHTTPStatus() = %d, want 422", pipeline.MapHTTPStatus(&res))
			}
		})
	}
}

func TestWorkflowFailureThenRetry(t *testing.T) {
	h := newHarness(t, nil)

	var executions atomic.Int32
	h.workflow.executeFn = func(context.Context, string, any) (*workflow.Execution, error) {
		executions.Add(1)
		return failedExecution("exec-1")
	}

	res := h.sys.Submit(context.Background(), jobApplication.ID, janeDoe())
	if res.Code != pipeline.CodeWorkflow || res.ExecutionID != "exec-1" {
		t.Fatalf("Submit() = %s exec %q, want workflow_execution_failed exec-1", res.Code, res.ExecutionID)
	}
	if executions.Load() != 1 {
		t.Errorf("executions = %d, want 1 with the default policy", executions.Load())
	}

	id := *res.SubmissionID
	events, _ := h.store.History(context.Background(), id)
	errorEvents := 0
	for _, e := range events {
		if e.ToStatus == submissions.StatusError {
			errorEvents++
		}
	}
	if errorEvents != 1 {
		t.Fatalf("error transitions = %d, want exactly 1", errorEvents)
	}

	var retried string
	h.workflow.retryFn = func(ctx context.Context, executionID string) (*workflow.Execution, error) {
		retried = executionID
		return &workflow.Execution{ID: "exec-2", WorkflowID: "wf-1", Status: workflow.StatusSuccess}, nil
	}

	again := h.sys.Retry(context.Background(), id)
	if !again.Completed() || again.ExecutionID != "exec-2" {
		t.Fatalf("Retry() = %s exec %q (%s), want completed exec-2", again.Status, again.ExecutionID, again.Error)
	}
	if retried != "exec-1" {
		t.Errorf("engine retry of %q, want exec-1", retried)
	}

	stored, _ := h.store.Find(context.Background(), id)
	if stored.Status != submissions.StatusProcessed || *stored.ExecutionID != "exec-2" {
		t.Errorf("stored = %s exec %v, want processed exec-2", stored.Status, *stored.ExecutionID)
	}

	events, _ = h.store.History(context.Background(), id)
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if first := events[1]; first.ExecutionID == nil || *first.ExecutionID != "exec-1" {
		t.Errorf("failed execution record changed: %+v", first)
	}
}

func TestRetryRejectsNonErrorSubmission(t *testing.T) {
	h := newHarness(t, nil)

	res := h.sys.Submit(context.Background(), jobApplication.ID, janeDoe())
	if !res.Completed() {
		t.Fatalf("Submit() failed: %s", res.Error)
	}

	again := h.sys.Retry(context.Background(), *res.SubmissionID)
	if again.Code != pipeline.CodeNotRetryable {
		t.Fatalf("Retry() code = %s, want not_retryable", again.Code)
	}
	if pipeline.MapHTTPStatus(&again) != http.StatusConflict {
		t.Errorf("MapHTTPStatus() = %d, want 409", pipeline.MapHTTPStatus(&again))
	}

	missing := h.sys.Retry(context.Background(), uuid.New())
	if missing.Code != pipeline.CodeNotFound {
		t.Errorf("Retry(missing) code = %s, want not_found", missing.Code)
	}
}

func TestRetryFailureLeavesSubmissionInError(t *testing.T) {
	h := newHarness(t, nil)
	h.workflow.executeFn = func(context.Context, string, any) (*workflow.Execution, error) {
		return failedExecution("exec-1")
	}
	h.workflow.retryFn = func(context.Context, string) (*workflow.Execution, error) {
		return failedExecution("exec-2")
	}

	res := h.sys.Submit(context.Background(), jobApplication.ID, janeDoe())
	again := h.sys.Retry(context.Background(), *res.SubmissionID)
	if again.Code != pipeline.CodeWorkflow || again.ExecutionID != "exec-2" {
		t.Fatalf("Retry() = %s exec %q", again.Code, again.ExecutionID)
	}

	stored, _ := h.store.Find(context.Background(), *res.SubmissionID)
	if stored.Status != submissions.StatusError || *stored.ExecutionID != "exec-1" {
		t.Errorf("stored = %s exec %s, want error exec-1", stored.Status, *stored.ExecutionID)
	}
}

func TestRetryWithoutExecutionReexecutes(t *testing.T) {
	h := newHarness(t, nil)
	h.workflow.executeFn = func(context.Context, string, any) (*workflow.Execution, error) {
		return nil, &workflow.ExecutionError{Err: errors.New("connection refused")}
	}

	res := h.sys.Submit(context.Background(), jobApplication.ID, janeDoe())
	if res.Code != pipeline.CodeWorkflow {
		t.Fatalf("Submit() code = %s", res.Code)
	}

	h.workflow.executeFn = func(context.Context, string, any) (*workflow.Execution, error) {
		return &workflow.Execution{ID: "exec-9", Status: workflow.StatusSuccess}, nil
	}
	again := h.sys.Retry(context.Background(), *res.SubmissionID)
	if !again.Completed() || again.ExecutionID != "exec-9" {
		t.Errorf("Retry() = %s exec %q (%s)", again.Status, again.ExecutionID, again.Error)
	}
}

func TestWorkflowRetryPolicy(t *testing.T) {
	cfg := &pipeline.Config{}
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.InitialInterval = "1ms"
	cfg.Retry.MaxInterval = "2ms"
	h := newHarness(t, cfg)

	h.workflow.executeFn = func(context.Context, string, any) (*workflow.Execution, error) {
		return failedExecution("exec-1")
	}
	var retries []string
	h.workflow.retryFn = func(ctx context.Context, executionID string) (*workflow.Execution, error) {
		retries = append(retries, executionID)
		if len(retries) == 1 {
			return failedExecution("exec-2")
		}
		return &workflow.Execution{ID: "exec-3", Status: workflow.StatusSuccess}, nil
	}

	res := h.sys.Submit(context.Background(), jobApplication.ID, janeDoe())
	if !res.Completed() || res.ExecutionID != "exec-3" {
		t.Fatalf("Submit() = %s exec %q (%s)", res.Status, res.ExecutionID, res.Error)
	}
	if strings.Join(retries, ",") != "exec-1,exec-2" {
		t.Errorf("retries = %v, want [exec-1 exec-2]", retries)
	}
}

func TestWorkflowUnconfirmedFailureIsNotRetried(t *testing.T) {
	cfg := &pipeline.Config{}
	cfg.Retry.MaxAttempts = 3
	h := newHarness(t, cfg)

	h.workflow.executeFn = func(context.Context, string, any) (*workflow.Execution, error) {
		return nil, &workflow.ExecutionError{Err: errors.New("connection reset")}
	}
	h.workflow.retryFn = func(context.Context, string) (*workflow.Execution, error) {
		t.Error("unconfirmed failures must not be retried")
		return nil, nil
	}

	res := h.sys.Submit(context.Background(), jobApplication.ID, janeDoe())
	if res.Code != pipeline.CodeWorkflow {
		t.Fatalf("Submit() code = %s, want workflow_execution_failed", res.Code)
	}
}

func TestWorkflowPolling(t *testing.T) {
	h := newHarness(t, nil)

	h.workflow.executeFn = func(context.Context, string, any) (*workflow.Execution, error) {
		return &workflow.Execution{ID: "exec-1", Status: workflow.StatusRunning}, nil
	}
	var polls atomic.Int32
	h.workflow.statusFn = func(ctx context.Context, executionID string) (*workflow.Execution, error) {
		if polls.Add(1) < 3 {
			return &workflow.Execution{ID: executionID, Status: workflow.StatusRunning}, nil
		}
		return &workflow.Execution{ID: executionID, Status: workflow.StatusSuccess}, nil
	}

	res := h.sys.Submit(context.Background(), jobApplication.ID, janeDoe())
	if !res.Completed() {
		t.Fatalf("Submit() failed: %s", res.Error)
	}
	if polls.Load() != 3 {
		t.Errorf("polls = %d, want 3", polls.Load())
	}
}

func TestWorkflowTimeout(t *testing.T) {
	h := newHarness(t, &pipeline.Config{WorkflowTimeout: "30ms"})

	h.workflow.executeFn = func(context.Context, string, any) (*workflow.Execution, error) {
		return &workflow.Execution{ID: "exec-1", Status: workflow.StatusRunning}, nil
	}
	h.workflow.statusFn = func(ctx context.Context, executionID string) (*workflow.Execution, error) {
		return &workflow.Execution{ID: executionID, Status: workflow.StatusRunning}, nil
	}

	res := h.sys.Submit(context.Background(), jobApplication.ID, janeDoe())
	if res.Code != pipeline.CodeTimeout {
		t.Fatalf("Submit() code = %s, want timeout", res.Code)
	}
	if pipeline.MapHTTPStatus(&res) != http.StatusGatewayTimeout {
		t.Errorf("MapHTTPStatus() = %d, want 504", pipeline.MapHTTPStatus(&res))
	}

	stored, _ := h.store.Find(context.Background(), *res.SubmissionID)
	if stored.Status != submissions.StatusError || *stored.ExecutionID != "exec-1" {
		t.Errorf("stored = %s, want error with exec-1", stored.Status)
	}
}

func TestSubmitCancelled(t *testing.T) {
	t.Run("before persistence", func(t *testing.T) {
		h := newHarness(t, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := h.sys.Submit(ctx, jobApplication.ID, janeDoe())
		if res.Code != pipeline.CodeCancelled || h.store.count() != 0 {
			t.Errorf("Submit() code = %s with %d submissions", res.Code, h.store.count())
		}
	})

	t.Run("during workflow", func(t *testing.T) {
		h := newHarness(t, nil)

		ctx, cancel := context.WithCancel(context.Background())
		h.workflow.executeFn = func(ctx context.Context, name string, payload any) (*workflow.Execution, error) {
			cancel()
			<-ctx.Done()
			return nil, &workflow.ExecutionError{Err: ctx.Err()}
		}

		res := h.sys.Submit(ctx, jobApplication.ID, janeDoe())
		if res.Code != pipeline.CodeCancelled {
			t.Fatalf("Submit() code = %s, want cancelled", res.Code)
		}

		stored, err := h.store.Find(context.Background(), *res.SubmissionID)
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if stored.Status != submissions.StatusError {
			t.Fatalf("stored status = %s, want error", stored.Status)
		}

		var detail struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(stored.Result, &detail); err != nil {
			t.Fatalf("result %s: %v", stored.Result, err)
		}
		if detail.Message != "run cancelled" || detail.Code != "cancelled" {
			t.Errorf("detail = %+v", detail)
		}
	})
}

func TestStatusWriteFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.store.transitionErr = errors.New("connection lost")

	res := h.sys.Submit(context.Background(), jobApplication.ID, janeDoe())
	if res.Completed() || res.Code != pipeline.CodeInternal {
		t.Fatalf("Submit() = %s/%s, want failed/internal", res.Status, res.Code)
	}
	if res.ExecutionID != "exec-1" {
		t.Errorf("execution id = %q, want exec-1", res.ExecutionID)
	}

	stored, _ := h.store.Find(context.Background(), *res.SubmissionID)
	if stored.Status != submissions.StatusPending {
		t.Errorf("stored status = %s, want pending", stored.Status)
	}
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := &pipeline.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	sys := pipeline.New(&pipeline.Runtime{
		OCR:       ocr.NewTextLayer(),
		Extractor: extraction.New(),
		Matcher:   matching.New(nil),
		Forms: &mockForms{publishedFn: func(context.Context) ([]forms.Template, error) {
			return nil, nil
		}},
		Metrics: pipeline.NewMetrics(reg, "formwise"),
		Logger:  discardLogger(),
	}, cfg)

	sys.Process(context.Background(), documents.New("a.pdf", "", pdftest.New("Name: Jane Doe")), "")
	sys.Process(context.Background(), documents.New("a.txt", "text/plain", []byte("x")), "")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if m.GetCounter() != nil {
				found[f.GetName()] += m.GetCounter().GetValue()
			}
			if m.GetHistogram() != nil {
				found[f.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	if found["formwise_pipeline_runs_total"] != 2 {
		t.Errorf("runs_total = %v, want 2", found["formwise_pipeline_runs_total"])
	}
	if found["formwise_pipeline_stage_duration_seconds"] == 0 {
		t.Error("stage durations should be observed")
	}
}

func pngHeader() []byte {
	return []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
}
