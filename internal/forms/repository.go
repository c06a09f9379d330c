package forms

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/formwise/pkg/cache"
	"github.com/JaimeStill/formwise/pkg/pagination"
	"github.com/JaimeStill/formwise/pkg/query"
	"github.com/JaimeStill/formwise/pkg/repository"
)

const publishedCacheKey = "forms:published"

type repo struct {
	db         *sql.DB
	cache      cache.System
	cacheTTL   time.Duration
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a form catalog implementing the System interface. The
// published catalog is cached for cacheTTL; a non-positive TTL defers to
// the cache's configured default.
func New(
	db *sql.DB,
	c cache.System,
	cacheTTL time.Duration,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		cache:      c,
		cacheTTL:   cacheTTL,
		logger:     logger.With("system", "forms"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Template], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Description")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanTemplate)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Template, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	t, err := repository.QueryOne(ctx, r.db, q, args, scanTemplate)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &t, nil
}

func (r *repo) Published(ctx context.Context) ([]Template, error) {
	if data, ok, err := r.cache.Get(ctx, publishedCacheKey); err != nil {
		r.logger.Warn("published catalog cache read failed", "error", err)
	} else if ok {
		var cached []Template
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		r.logger.Warn("discarding undecodable published catalog cache entry")
	}

	q, args := query.
		NewBuilder(projection, query.SortField{Field: "ID"}).
		WhereEquals("Status", string(StatusPublished)).
		Build()

	templates, err := repository.QueryMany(ctx, r.db, q, args, scanTemplate)
	if err != nil {
		return nil, fmt.Errorf("query published forms: %w", err)
	}

	if data, err := json.Marshal(templates); err == nil {
		if err := r.cache.Set(ctx, publishedCacheKey, data, r.cacheTTL); err != nil {
			r.logger.Warn("published catalog cache write failed", "error", err)
		}
	}

	return templates, nil
}
