package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/JaimeStill/formwise/internal/config"
	"github.com/JaimeStill/formwise/internal/infrastructure"
)

// Server owns the infrastructure, the mounted modules and the listener.
type Server struct {
	infra   *infrastructure.Infrastructure
	handler http.Handler
	http    *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("infrastructure: %w", err)
	}
	return newServer(cfg, infra)
}

func newServer(cfg *config.Config, infra *infrastructure.Infrastructure) (*Server, error) {
	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"env", cfg.Env(),
		"version", cfg.Version,
		"ocr_engine", cfg.OCR.Engine,
		"archive", cfg.Storage.Enabled,
		"cache", cfg.Cache.Enabled,
	)

	return &Server{
		infra:   infra,
		handler: router,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Run starts every subsystem and the listener, blocks until ctx is done,
// then shuts down within timeout.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		s.infra.Lifecycle.Shutdown(timeout)
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	<-ctx.Done()
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
