package submissions

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/formwise/pkg/pagination"
)

// System defines the public contract for the submission store. Every write
// is committed before it returns.
type System interface {
	Handler() *Handler

	// Create validates the data against a published template and stores a
	// pending submission. Validation failures wrap ErrValidation.
	Create(ctx context.Context, cmd CreateCommand) (*Submission, error)

	// Transition moves a pending submission to a terminal status.
	Transition(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (*Submission, error)

	// Recover moves a submission in error to processed.
	Recover(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (*Submission, error)

	Find(ctx context.Context, id uuid.UUID) (*Submission, error)
	History(ctx context.Context, id uuid.UUID) ([]Event, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Submission], error)
}
