package api

import (
	"fmt"

	"github.com/JaimeStill/formwise/internal/config"
	"github.com/JaimeStill/formwise/internal/extraction"
	"github.com/JaimeStill/formwise/internal/forms"
	"github.com/JaimeStill/formwise/internal/infrastructure"
	"github.com/JaimeStill/formwise/internal/matching"
	"github.com/JaimeStill/formwise/internal/ocr"
	"github.com/JaimeStill/formwise/internal/pipeline"
	"github.com/JaimeStill/formwise/internal/submissions"
	"github.com/JaimeStill/formwise/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Forms       forms.System
	Submissions submissions.System
	Workflow    workflow.System
	Pipeline    pipeline.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	formsSystem := forms.New(runtime.DB, runtime.Cache, runtime.CacheTTL, runtime.Logger, runtime.Pagination)
	submissionsSystem := submissions.New(runtime.DB, formsSystem, runtime.Logger, runtime.Pagination)

	workflowSystem := workflow.New(&cfg.Workflow, runtime.Logger)

	engine, err := ocr.New(&cfg.OCR, runtime.Logger)
	if err != nil {
		return nil, fmt.Errorf("ocr init failed: %w", err)
	}

	policy, err := cfg.Matching.NewPolicy()
	if err != nil {
		return nil, fmt.Errorf("matching init failed: %w", err)
	}

	pipelineSystem := pipeline.New(
		&pipeline.Runtime{
			OCR:           engine,
			Extractor:     extraction.New(),
			Matcher:       matching.New(policy),
			MatchLimit:    cfg.Matching.Limit,
			Forms:         formsSystem,
			Submissions:   submissionsSystem,
			Workflow:      workflowSystem,
			Storage:       runtime.Storage,
			ArchivePrefix: cfg.Storage.Prefix,
			Language:      cfg.OCR.Language,
			Metrics:       pipeline.NewMetrics(runtime.Registry, infrastructure.MetricsNamespace),
			Logger:        runtime.Logger,
		},
		&cfg.Pipeline,
	)

	return &Domain{
		Forms:       formsSystem,
		Submissions: submissionsSystem,
		Workflow:    workflowSystem,
		Pipeline:    pipelineSystem,
	}, nil
}
