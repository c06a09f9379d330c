package main

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/formwise/internal/api"
	"github.com/JaimeStill/formwise/internal/config"
	"github.com/JaimeStill/formwise/internal/infrastructure"
	"github.com/JaimeStill/formwise/pkg/handlers"
	"github.com/JaimeStill/formwise/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

type probeStatus struct {
	Status     string          `json:"status"`
	Subsystems map[string]bool `json:"subsystems"`
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		status := probeStatus{Status: "ready", Subsystems: infra.Lifecycle.Readiness()}
		if !infra.Lifecycle.Ready() {
			status.Status = "not ready"
			handlers.RespondJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		handlers.RespondJSON(w, http.StatusOK, status)
	})

	router.HandleNative("GET /metrics", promhttp.HandlerFor(infra.Registry, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(infra.Logger.Handler(), slog.LevelError),
	}).ServeHTTP)

	return router
}
