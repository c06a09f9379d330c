package workflow

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/formwise/pkg/handlers"
	"github.com/JaimeStill/formwise/pkg/routes"
)

// Handler exposes the engine's workflow catalog and execution history.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "workflows"),
	}
}

// Routes returns the route group definition for workflow endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:  "/workflows",
		Tags:    []string{"Workflows"},
		Schemas: Spec.Schemas,
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Workflows, OpenAPI: Spec.Workflows},
			{Method: "PATCH", Pattern: "/{name}", Handler: h.SetActive, OpenAPI: Spec.SetActive},
			{Method: "GET", Pattern: "/{name}/executions", Handler: h.History, OpenAPI: Spec.History},
		},
	}
}

func (h *Handler) Workflows(w http.ResponseWriter, r *http.Request) {
	wfs, err := h.sys.Workflows(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, wfs)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	execs, err := h.sys.History(r.Context(), r.PathValue("name"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, execs)
}

// SetActive toggles a workflow on or off. Body: {"active": bool}.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	wf, err := h.sys.SetActive(r.Context(), r.PathValue("name"), *req.Active)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, wf)
}
