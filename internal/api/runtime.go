package api

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaimeStill/formwise/internal/config"
	"github.com/JaimeStill/formwise/internal/infrastructure"
	"github.com/JaimeStill/formwise/pkg/cache"
	"github.com/JaimeStill/formwise/pkg/pagination"
	"github.com/JaimeStill/formwise/pkg/storage"
)

// Runtime is the part of the infrastructure the domain systems draw on,
// logged under the api module.
type Runtime struct {
	DB         *sql.DB
	Storage    storage.System
	Cache      cache.System
	CacheTTL   time.Duration
	Registry   *prometheus.Registry
	Logger     *slog.Logger
	Pagination pagination.Config
}

func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		DB:         infra.Database.Connection(),
		Storage:    infra.Storage,
		Cache:      infra.Cache,
		CacheTTL:   cfg.Cache.TTLDuration(),
		Registry:   infra.Registry,
		Logger:     infra.Logger.With("module", "api"),
		Pagination: cfg.API.Pagination,
	}
}
