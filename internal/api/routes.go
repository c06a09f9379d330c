package api

import (
	"cmp"
	"fmt"
	"net/http"

	"github.com/JaimeStill/formwise/internal/config"
	"github.com/JaimeStill/formwise/pkg/openapi"
	"github.com/JaimeStill/formwise/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) error {
	groups := []routes.Group{
		domain.Forms.Handler().Routes(),
		domain.Submissions.Handler().Routes(),
		domain.Workflow.Handler().Routes(),
		domain.Pipeline.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
	}

	routes.Register(mux, groups...)

	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cmp.Or(cfg.API.OpenAPI.ServerURL, cfg.API.BasePath))
	routes.Describe(spec, groups...)

	specBytes, err := openapi.MarshalJSON(spec)
	if err != nil {
		return fmt.Errorf("marshal openapi spec: %w", err)
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(specBytes))

	return nil
}
