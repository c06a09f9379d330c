// Package database manages the PostgreSQL connection pool (pgx stdlib driver)
// and reports readiness once the startup ping succeeds.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/formwise/pkg/lifecycle"
	"github.com/JaimeStill/formwise/pkg/retry"
)

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Start registers startup and shutdown hooks with the lifecycle
	// coordinator and tracks the database for readiness.
	Start(lc *lifecycle.Coordinator) error
	// Ready reports whether the startup ping succeeded.
	Ready() bool
}

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
	connect     retry.Policy
	ready       atomic.Bool
}

// New creates a database system with the given configuration.
// It calls sql.Open to validate the DSN and configure pool parameters,
// but does not establish a connection until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		logger:      logger.With("system", "database"),
		connTimeout: cfg.ConnTimeoutDuration(),
		connect: retry.Policy{
			MaxAttempts:     cfg.ConnectAttempts,
			InitialInterval: 500 * time.Millisecond,
			Multiplier:      2,
			MaxInterval:     5 * time.Second,
		},
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Ready() bool {
	return d.ready.Load()
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")
	lc.Track("database", d)

	lc.OnStartup(func() {
		if err := d.ping(lc.Context()); err != nil {
			d.logger.Error("database unavailable", "error", err)
			return
		}

		d.ready.Store(true)
		d.logger.Info("database connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.ready.Store(false)
		d.logger.Info("closing database connection")

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed")
	})

	return nil
}

func (d *database) ping(ctx context.Context) error {
	schedule := d.connect.Start()
	for {
		pingCtx, cancel := context.WithTimeout(ctx, d.connTimeout)
		err := d.conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		delay, ok := schedule.Next()
		if !ok {
			return fmt.Errorf("ping after %d attempts: %w", schedule.Attempt(), err)
		}
		d.logger.Warn("database ping failed, retrying",
			"attempt", schedule.Attempt()-1,
			"delay", delay,
			"error", err,
		)
		if err := retry.Wait(ctx, delay); err != nil {
			return err
		}
	}
}
