package submissions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/formwise/internal/forms"
	"github.com/JaimeStill/formwise/pkg/pagination"
	"github.com/JaimeStill/formwise/pkg/query"
	"github.com/JaimeStill/formwise/pkg/repository"
)

var (
	insertSubmission = fmt.Sprintf(`
		INSERT INTO public.submissions AS s (form_id, data, status)
		VALUES ($1, $2, $3)
		RETURNING %s`, projection.Columns())

	updateStatus = fmt.Sprintf(`
		UPDATE public.submissions s
		SET status = $3,
		    execution_id = COALESCE($4, s.execution_id),
		    result = $5,
		    updated_at = now()
		WHERE s.id = $1 AND s.status = $2
		RETURNING %s`, projection.Columns())

	insertEvent = `
		INSERT INTO public.submission_events
			(submission_id, from_status, to_status, execution_id, detail)
		VALUES ($1, $2, $3, $4, $5)`

	selectStatus = `SELECT status FROM public.submissions WHERE id = $1`
)

type repo struct {
	db         *sql.DB
	forms      forms.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a submission store implementing the System interface.
// Submitted data is validated against templates resolved through catalog.
func New(
	db *sql.DB,
	catalog forms.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		forms:      catalog,
		logger:     logger.With("system", "submissions"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Submission, error) {
	if err := r.validate(ctx, cmd); err != nil {
		return nil, err
	}

	data, err := json.Marshal(cmd.Data)
	if err != nil {
		return nil, fmt.Errorf("encode submission data: %w", err)
	}

	sub, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Submission, error) {
		sub, err := repository.QueryOne(
			ctx, tx, insertSubmission,
			[]any{cmd.FormID, string(data), string(StatusPending)},
			scanSubmission,
		)
		if err != nil {
			return sub, err
		}

		err = repository.ExecExpectOne(
			ctx, tx, insertEvent,
			sub.ID, nil, string(StatusPending), nil, nil,
		)
		return sub, err
	})
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: form %s does not exist", ErrValidation, cmd.FormID)
		}
		return nil, fmt.Errorf("create submission: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}

	r.logger.Info("submission created", "id", sub.ID, "form_id", sub.FormID)
	return &sub, nil
}

func (r *repo) validate(ctx context.Context, cmd CreateCommand) error {
	t, err := r.forms.Find(ctx, cmd.FormID)
	if err != nil {
		if errors.Is(err, forms.ErrNotFound) {
			return fmt.Errorf("%w: form %s does not exist", ErrValidation, cmd.FormID)
		}
		return fmt.Errorf("resolve form %s: %w", cmd.FormID, err)
	}

	if !t.Published() {
		return fmt.Errorf("%w: form %s is %s", ErrValidation, cmd.FormID, t.Status)
	}

	if err := t.Validate(cmd.Data); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func (r *repo) Transition(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (*Submission, error) {
	if err := CheckTransition(StatusPending, cmd.Status); err != nil {
		return nil, err
	}
	return r.transition(ctx, id, StatusPending, cmd, CheckTransition)
}

func (r *repo) Recover(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (*Submission, error) {
	if err := CheckRecovery(StatusError, cmd.Status); err != nil {
		return nil, err
	}
	return r.transition(ctx, id, StatusError, cmd, CheckRecovery)
}

// transition applies cmd only while the stored status equals from. When
// the guard fails, check explains the rejection from the current status.
func (r *repo) transition(
	ctx context.Context,
	id uuid.UUID,
	from Status,
	cmd TransitionCommand,
	check func(from, to Status) error,
) (*Submission, error) {
	sub, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Submission, error) {
		sub, err := repository.QueryOne(
			ctx, tx, updateStatus,
			[]any{id, string(from), string(cmd.Status), textArg(cmd.ExecutionID), jsonArg(cmd.Result)},
			scanSubmission,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return sub, r.rejection(ctx, tx, id, cmd.Status, check)
		}
		if err != nil {
			return sub, err
		}

		err = repository.ExecExpectOne(
			ctx, tx, insertEvent,
			sub.ID, string(from), string(cmd.Status), textArg(cmd.ExecutionID), jsonArg(cmd.Result),
		)
		return sub, err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("transition submission %s: %w", id, err)
	}

	r.logger.Info("submission transitioned",
		"id", sub.ID,
		"from", from,
		"to", sub.Status,
		"execution_id", cmd.ExecutionID,
	)
	return &sub, nil
}

func (r *repo) rejection(
	ctx context.Context,
	q repository.Querier,
	id uuid.UUID,
	to Status,
	check func(from, to Status) error,
) error {
	var current Status
	if err := q.QueryRowContext(ctx, selectStatus, id).Scan(&current); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	if err := check(current, to); err != nil {
		return err
	}
	return fmt.Errorf("%w: submission %s changed concurrently", ErrInvalidTransition, id)
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Submission, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	sub, err := repository.QueryOne(ctx, r.db, q, args, scanSubmission)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &sub, nil
}

func (r *repo) History(ctx context.Context, id uuid.UUID) ([]Event, error) {
	q, args := query.
		NewBuilder(eventProjection, eventSort).
		WhereEquals("SubmissionID", id).
		Build()

	events, err := repository.QueryMany(ctx, r.db, q, args, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query submission history: %w", err)
	}

	// Creation always records an event.
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Submission], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanSubmission)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return result, nil
}
