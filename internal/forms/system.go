package forms

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/formwise/pkg/pagination"
)

// System defines the public contract for the form template catalog.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Template], error)

	Find(ctx context.Context, id uuid.UUID) (*Template, error)

	// Published returns every published template ordered by id. The result
	// may be served from cache.
	Published(ctx context.Context) ([]Template, error)
}
