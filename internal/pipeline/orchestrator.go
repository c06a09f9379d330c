package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/formwise/internal/documents"
	"github.com/JaimeStill/formwise/internal/extraction"
	"github.com/JaimeStill/formwise/internal/forms"
	"github.com/JaimeStill/formwise/internal/matching"
	"github.com/JaimeStill/formwise/internal/ocr"
	"github.com/JaimeStill/formwise/internal/submissions"
	"github.com/JaimeStill/formwise/internal/workflow"
	"github.com/JaimeStill/formwise/pkg/fieldmap"
	"github.com/JaimeStill/formwise/pkg/retry"
	"github.com/JaimeStill/formwise/pkg/storage"
)

// System defines the pipeline operations. Every operation returns exactly
// one terminal Result; failures are reported through it rather than as a
// separate error.
type System interface {
	Handler(maxUploadSize int64) *Handler

	// Process validates and recognizes a document, then suggests forms.
	Process(ctx context.Context, doc documents.Document, language string) Result

	// ProcessBatch runs Process for each document with bounded
	// concurrency. Results are in input order.
	ProcessBatch(ctx context.Context, docs []documents.Document, language string) []Result

	// Submit persists data for a form and executes the submission workflow.
	Submit(ctx context.Context, formID uuid.UUID, data fieldmap.Map) Result

	// Retry re-executes the workflow for a submission in error.
	Retry(ctx context.Context, submissionID uuid.UUID) Result
}

// Runtime bundles the collaborators of a pipeline run. Storage and
// Metrics are optional.
type Runtime struct {
	OCR           ocr.Engine
	Extractor     *extraction.Extractor
	Matcher       *matching.Matcher
	MatchLimit    int
	Forms         forms.System
	Submissions   submissions.System
	Workflow      workflow.System
	Storage       storage.System
	ArchivePrefix string
	Language      string
	Metrics       *Metrics
	Logger        *slog.Logger
}

type orchestrator struct {
	rt     *Runtime
	cfg    *Config
	rules  documents.Rules
	policy retry.Policy
	logger *slog.Logger
}

// New creates the pipeline orchestrator. cfg must be finalized.
func New(rt *Runtime, cfg *Config) System {
	return &orchestrator{
		rt:     rt,
		cfg:    cfg,
		rules:  cfg.Rules(),
		policy: retry.NewPolicy(&cfg.Retry),
		logger: rt.Logger.With("system", "pipeline"),
	}
}

func (o *orchestrator) Handler(maxUploadSize int64) *Handler {
	return NewHandler(o, o.logger, maxUploadSize, o.cfg.MaxDocumentSizeBytes())
}

func (o *orchestrator) Process(ctx context.Context, doc documents.Document, language string) Result {
	r := o.start("process")
	language = cmp.Or(language, o.rt.Language)

	if err := o.rules.Validate(doc); err != nil {
		return o.fail(r, err)
	}
	documents.Inspect(r.logger, &doc)
	r.res.Document = &doc
	o.archive(ctx, r, doc)

	if err := ctx.Err(); err != nil {
		return o.fail(r, fmt.Errorf("%w: %w", ErrCancelled, err))
	}

	r.enter(StateExtracting)
	text, err := o.recognize(ctx, doc, language)
	if err != nil {
		return o.fail(r, err)
	}
	fields := o.rt.Extractor.Extract(text)
	r.res.ExtractedFields = &fields

	if err := ctx.Err(); err != nil {
		return o.fail(r, fmt.Errorf("%w: %w", ErrCancelled, err))
	}

	r.enter(StateMatching)
	catalog, err := o.rt.Forms.Published(ctx)
	if err != nil {
		r.logger.Warn("form catalog unavailable, returning no suggestions", "error", err)
		catalog = nil
	}
	r.res.SuggestedForms = o.rt.Matcher.Match(
		matching.Input{Text: text, Fields: fields},
		catalog,
		o.rt.MatchLimit,
	)

	return o.complete(r)
}

func (o *orchestrator) ProcessBatch(ctx context.Context, docs []documents.Document, language string) []Result {
	results := make([]Result, len(docs))

	var g errgroup.Group
	g.SetLimit(o.cfg.BatchConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			results[i] = o.Process(ctx, doc, language)
			return nil
		})
	}
	g.Wait()

	return results
}

func (o *orchestrator) Submit(ctx context.Context, formID uuid.UUID, data fieldmap.Map) Result {
	r := o.start("submit")

	if err := ctx.Err(); err != nil {
		return o.fail(r, fmt.Errorf("%w: %w", ErrCancelled, err))
	}

	r.enter(StatePersisted)
	sub, err := o.rt.Submissions.Create(ctx, submissions.CreateCommand{FormID: formID, Data: data})
	if err != nil {
		return o.fail(r, err)
	}
	r.res.SubmissionID = &sub.ID
	r.logger = r.logger.With("submission_id", sub.ID)

	if err := ctx.Err(); err != nil {
		return o.settle(ctx, r, sub.ID, nil, fmt.Errorf("%w: %w", ErrCancelled, err), o.rt.Submissions.Transition)
	}

	r.enter(StateWorkflowRunning)
	payload := submissionPayload{SubmissionID: sub.ID, FormID: sub.FormID, FormData: sub.Data}
	exec, err := o.runWorkflow(ctx, r, func(ctx context.Context) (*workflow.Execution, error) {
		return o.rt.Workflow.Execute(ctx, o.cfg.WorkflowName, payload)
	})

	return o.settle(ctx, r, sub.ID, exec, err, o.rt.Submissions.Transition)
}

func (o *orchestrator) Retry(ctx context.Context, submissionID uuid.UUID) Result {
	r := o.start("retry")
	r.res.SubmissionID = &submissionID
	r.logger = r.logger.With("submission_id", submissionID)

	r.enter(StatePersisted)
	sub, err := o.rt.Submissions.Find(ctx, submissionID)
	if err != nil {
		return o.fail(r, err)
	}
	if sub.Status != submissions.StatusError {
		return o.fail(r, fmt.Errorf("%w: status is %s", ErrNotRetryable, sub.Status))
	}

	if err := ctx.Err(); err != nil {
		return o.fail(r, fmt.Errorf("%w: %w", ErrCancelled, err))
	}

	r.enter(StateWorkflowRunning)
	exec, err := o.runWorkflow(ctx, r, func(ctx context.Context) (*workflow.Execution, error) {
		if sub.ExecutionID != nil {
			return o.rt.Workflow.Retry(ctx, *sub.ExecutionID)
		}
		payload := submissionPayload{SubmissionID: sub.ID, FormID: sub.FormID, FormData: sub.Data}
		return o.rt.Workflow.Execute(ctx, o.cfg.WorkflowName, payload)
	})
	if err != nil {
		// The submission stays in error; its recorded execution is unchanged.
		r.res.ExecutionID = executionID(exec, err)
		return o.fail(r, err)
	}

	return o.settle(ctx, r, sub.ID, exec, nil, o.rt.Submissions.Recover)
}

func (o *orchestrator) archive(ctx context.Context, r *run, doc documents.Document) {
	if o.rt.Storage == nil {
		return
	}
	key, err := documents.Archive(ctx, o.rt.Storage, o.rt.ArchivePrefix, r.res.RunID, doc)
	if err != nil {
		r.logger.Warn("document archival failed", "error", err)
		return
	}
	r.logger.Debug("document archived", "key", key)
}

func (o *orchestrator) recognize(ctx context.Context, doc documents.Document, language string) (string, error) {
	octx, cancel := context.WithTimeout(ctx, o.cfg.OCRTimeoutDuration())
	defer cancel()

	text, err := o.rt.OCR.Recognize(octx, doc.Data, doc.ContentType, language)
	if err != nil {
		if !errors.Is(err, ocr.ErrRecognition) {
			err = fmt.Errorf("%w: %w", ocr.ErrRecognition, err)
		}
		return "", boundErr(ctx, octx, err)
	}
	return text, nil
}

type startFunc func(ctx context.Context) (*workflow.Execution, error)

// runWorkflow starts an execution and waits for it to finish within the
// workflow timeout. Confirmed failures with a known execution id are
// retried on the engine while the retry policy allows.
func (o *orchestrator) runWorkflow(ctx context.Context, r *run, start startFunc) (*workflow.Execution, error) {
	wctx, cancel := context.WithTimeout(ctx, o.cfg.WorkflowTimeoutDuration())
	defer cancel()

	schedule := o.policy.Start()
	exec, err := start(wctx)
	for {
		if err == nil && !exec.Finished() {
			exec, err = o.poll(wctx, exec)
		}
		if err == nil {
			return exec, nil
		}

		failedID, ok := retryable(err)
		if !ok {
			return exec, boundErr(ctx, wctx, err)
		}
		delay, ok := schedule.Next()
		if !ok {
			return exec, boundErr(ctx, wctx, err)
		}

		r.logger.Warn("workflow execution failed, retrying",
			"execution_id", failedID,
			"attempt", schedule.Attempt(),
			"delay", delay,
			"error", err,
		)
		if werr := retry.Wait(wctx, delay); werr != nil {
			return exec, boundErr(ctx, wctx, err)
		}

		next, rerr := o.rt.Workflow.Retry(wctx, failedID)
		if next != nil {
			exec = next
		}
		err = rerr
	}
}

func (o *orchestrator) poll(ctx context.Context, exec *workflow.Execution) (*workflow.Execution, error) {
	for !exec.Finished() {
		if err := retry.Wait(ctx, o.cfg.PollIntervalDuration()); err != nil {
			return exec, err
		}

		next, err := o.rt.Workflow.Status(ctx, exec.ID)
		if next != nil {
			exec = next
		}
		if err != nil {
			return exec, err
		}
	}
	return exec, nil
}

// settle records the workflow outcome on the submission. Writes use a
// context detached from cancellation so a cancelled run never leaves the
// submission pending.
func (o *orchestrator) settle(
	ctx context.Context,
	r *run,
	id uuid.UUID,
	exec *workflow.Execution,
	runErr error,
	write func(context.Context, uuid.UUID, submissions.TransitionCommand) (*submissions.Submission, error),
) Result {
	cmd := submissions.TransitionCommand{
		Status:      submissions.StatusProcessed,
		ExecutionID: executionID(exec, runErr),
	}
	if runErr != nil {
		cmd.Status = submissions.StatusError
		cmd.Result = failureDetail(exec, runErr)
	} else {
		cmd.Result = outcome{
			ExecutionID: exec.ID,
			WorkflowID:  exec.WorkflowID,
			Status:      string(exec.Status),
			Data:        exec.Data,
		}.encode()
	}
	r.res.ExecutionID = cmd.ExecutionID

	if _, err := write(context.WithoutCancel(ctx), id, cmd); err != nil {
		r.logger.Error("submission outcome not recorded, manual reconciliation required",
			"intended_status", cmd.Status,
			"execution_id", cmd.ExecutionID,
			"run_error", runErr,
			"error", err,
		)
		return o.fail(r, fmt.Errorf("record submission %s: %w", cmd.Status, err))
	}

	if runErr != nil {
		return o.fail(r, runErr)
	}
	r.res.WorkflowResult = exec.Data
	return o.complete(r)
}

func retryable(err error) (string, bool) {
	var execErr *workflow.ExecutionError
	if !errors.As(err, &execErr) || !execErr.Confirmed || execErr.ExecutionID == "" {
		return "", false
	}
	return execErr.ExecutionID, true
}

func executionID(exec *workflow.Execution, err error) string {
	if exec != nil && exec.ID != "" {
		return exec.ID
	}
	var execErr *workflow.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.ExecutionID
	}
	return ""
}

func failureDetail(exec *workflow.Execution, err error) []byte {
	detail := outcome{
		Code:        Classify(err),
		Message:     err.Error(),
		ExecutionID: executionID(exec, err),
		Status:      string(submissions.StatusError),
	}
	if detail.Code == CodeCancelled {
		detail.Message = "run cancelled"
	}
	if exec != nil {
		detail.WorkflowID = exec.WorkflowID
		detail.Data = exec.Data
	}

	var execErr *workflow.ExecutionError
	if errors.As(err, &execErr) {
		detail.Confirmed = &execErr.Confirmed
		detail.HTTPStatus = execErr.HTTPStatus
	}
	return detail.encode()
}

// boundErr marks err as a cancellation when the caller gave up, or as a
// timeout when the stage deadline passed.
func boundErr(parent, bounded context.Context, err error) error {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	case bounded.Err() != nil:
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return err
	}
}

type run struct {
	operation string
	res       Result
	logger    *slog.Logger
	entered   time.Time
	metrics   *Metrics
}

func (o *orchestrator) start(operation string) *run {
	id := uuid.New()
	r := &run{
		operation: operation,
		res:       Result{RunID: id, Stage: StateReceived},
		logger:    o.logger.With("run_id", id, "operation", operation),
		entered:   time.Now(),
		metrics:   o.rt.Metrics,
	}
	r.logger.Debug("run started")
	return r
}

func (r *run) enter(stage State) {
	r.metrics.observeStage(r.res.Stage, r.entered)
	r.res.Stage = stage
	r.entered = time.Now()
	r.logger.Debug("stage entered", "stage", stage)
}

func (o *orchestrator) complete(r *run) Result {
	r.metrics.observeStage(r.res.Stage, r.entered)
	r.res.Status = RunCompleted
	r.metrics.observeRun(r.operation, &r.res)
	r.logger.Info("run completed", "stage", r.res.Stage)
	return r.res
}

func (o *orchestrator) fail(r *run, err error) Result {
	r.metrics.observeStage(r.res.Stage, r.entered)
	r.res.Status = RunFailed
	r.res.Code = Classify(err)
	r.res.Error = err.Error()
	r.res.Err = err
	r.metrics.observeRun(r.operation, &r.res)

	switch r.res.Code {
	case CodeInternal, CodeInvalidTransition:
		r.logger.Error("run failed", "stage", r.res.Stage, "code", r.res.Code, "error", err)
	default:
		r.logger.Warn("run failed", "stage", r.res.Stage, "code", r.res.Code, "error", err)
	}
	return r.res
}
