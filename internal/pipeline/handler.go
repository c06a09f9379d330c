package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/formwise/internal/documents"
	"github.com/JaimeStill/formwise/pkg/fieldmap"
	"github.com/JaimeStill/formwise/pkg/formatting"
	"github.com/JaimeStill/formwise/pkg/handlers"
	"github.com/JaimeStill/formwise/pkg/routes"
)

// Handler exposes document processing and submission over HTTP.
type Handler struct {
	sys             System
	logger          *slog.Logger
	maxUploadSize   int64
	maxDocumentSize int64
}

func NewHandler(sys System, logger *slog.Logger, maxUploadSize, maxDocumentSize int64) *Handler {
	return &Handler{
		sys:             sys,
		logger:          logger.With("handler", "pipeline"),
		maxUploadSize:   maxUploadSize,
		maxDocumentSize: maxDocumentSize,
	}
}

// Routes returns the route groups for the pipeline endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Schemas: Spec.Schemas,
		Children: []routes.Group{
			{
				Prefix: "/ocr",
				Tags:   []string{"OCR"},
				Routes: []routes.Route{
					{Method: "POST", Pattern: "/process", Handler: h.Process, OpenAPI: Spec.Process},
					{Method: "POST", Pattern: "/batch", Handler: h.Batch, OpenAPI: Spec.Batch},
				},
			},
			{
				Prefix: "/forms",
				Tags:   []string{"Forms"},
				Routes: []routes.Route{
					{Method: "POST", Pattern: "/{id}/submit", Handler: h.Submit, OpenAPI: Spec.Submit},
				},
			},
			{
				Prefix: "/submissions",
				Tags:   []string{"Submissions"},
				Routes: []routes.Route{
					{Method: "POST", Pattern: "/{id}/retry", Handler: h.Retry, OpenAPI: Spec.Retry},
				},
			},
		},
	}
}

// Process runs intake, recognition, and matching for a single uploaded file.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	if !h.parseUpload(w, r) {
		return
	}

	fh, ok := firstFile(r, "file")
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	doc, err := documents.Read(fh, h.maxDocumentSize)
	if err != nil {
		handlers.RespondError(w, h.logger, documents.MapHTTPStatus(err), err)
		return
	}

	res := h.sys.Process(r.Context(), doc, r.FormValue("language"))
	h.respond(w, &res)
}

// Batch processes every file in the files field independently. Individual
// failures are reported per result.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	if !h.parseUpload(w, r) {
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	docs := make([]documents.Document, 0, len(headers))
	for _, fh := range headers {
		doc, err := documents.Read(fh, h.maxDocumentSize)
		if err != nil {
			handlers.RespondError(w, h.logger, documents.MapHTTPStatus(err), err)
			return
		}
		docs = append(docs, doc)
	}

	results := h.sys.ProcessBatch(r.Context(), docs, r.FormValue("language"))
	handlers.RespondJSON(w, http.StatusOK, results)
}

// Submit stores field data for a form and runs the submission workflow.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	formID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	var data fieldmap.Map
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	res := h.sys.Submit(r.Context(), formID, data)
	h.respond(w, &res)
}

// Retry re-executes the workflow of a submission in error.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	res := h.sys.Retry(r.Context(), id)
	h.respond(w, &res)
}

func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err := fmt.Errorf("%w: upload exceeds %s", documents.ErrTooLarge, formatting.FormatBytes(h.maxUploadSize, 0))
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
			return false
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, res *Result) {
	status := MapHTTPStatus(res)
	if status >= http.StatusInternalServerError {
		h.logger.Error("pipeline run failed", "run_id", res.RunID, "status", status, "code", res.Code)
	}
	handlers.RespondJSON(w, status, res)
}

func firstFile(r *http.Request, field string) (*multipart.FileHeader, bool) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, false
	}
	return r.MultipartForm.File[field][0], true
}
