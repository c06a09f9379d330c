package pipeline

import "github.com/JaimeStill/formwise/pkg/openapi"

type spec struct {
	Schemas map[string]*openapi.Schema
	Process *openapi.Operation
	Batch   *openapi.Operation
	Submit  *openapi.Operation
	Retry   *openapi.Operation
}

func resultResponse(description string) *openapi.Response {
	return openapi.ResponseJSON(description, "PipelineResult")
}

var (
	stages = []any{
		StateReceived, StateExtracting, StateMatching, StatePersisted,
		StateWorkflowRunning, StateCompleted, StateFailed,
	}
	codes = []any{
		CodeInvalidInput, CodeOCR, CodeValidation, CodeNotFound, CodeNotRetryable,
		CodeInvalidTransition, CodeWorkflow, CodeTimeout, CodeCancelled, CodeInternal,
	}
)

var failures = map[int]*openapi.Response{
	400: resultResponse("Invalid input"),
	404: resultResponse("Form or submission not found"),
	409: resultResponse("Submission is not in error"),
	413: resultResponse("Document exceeds the maximum size"),
	422: resultResponse("Submission data failed validation"),
	500: resultResponse("Internal failure"),
	502: resultResponse("OCR or workflow engine failure"),
	503: resultResponse("Run cancelled"),
	504: resultResponse("Stage timed out"),
}

func responses(ok string, codes ...int) map[int]*openapi.Response {
	out := map[int]*openapi.Response{200: resultResponse(ok)}
	for _, code := range codes {
		out[code] = failures[code]
	}
	return out
}

// Spec holds the OpenAPI description of the pipeline endpoints.
var Spec = spec{
	Schemas: map[string]*openapi.Schema{
		"Suggestion": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         {Type: "string", Format: "uuid"},
				"name":       {Type: "string"},
				"confidence": {Type: "number"},
			},
		},
		"DocumentInfo": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"filename":    {Type: "string"},
				"contentType": {Type: "string"},
				"size":        {Type: "integer"},
				"pageCount":   {Type: "integer"},
			},
		},
		"PipelineResult": {
			Type:     "object",
			Required: []string{"runId", "status", "stage"},
			Properties: map[string]*openapi.Schema{
				"runId":           {Type: "string", Format: "uuid"},
				"status":          {Type: "string", Enum: []any{"completed", "failed"}},
				"stage":           {Type: "string", Enum: stages},
				"document":        openapi.SchemaRef("DocumentInfo"),
				"submissionId":    {Type: "string", Format: "uuid"},
				"executionId":     {Type: "string"},
				"extractedFields": openapi.SchemaRef("FieldMap"),
				"suggestedForms":  {Type: "array", Items: openapi.SchemaRef("Suggestion")},
				"workflowResult":  {Type: "object"},
				"code":            {Type: "string", Enum: codes},
				"error":           {Type: "string"},
			},
		},
	},
	Process: &openapi.Operation{
		Summary:     "Recognize a document and suggest forms",
		Description: "Validates the upload, extracts labeled fields from the recognized text, and ranks published forms.",
		RequestBody: openapi.RequestBodyMultipart("Document to process", map[string]*openapi.Schema{
			"file":     {Type: "string", Format: "binary"},
			"language": {Type: "string", Description: "OCR language code"},
		}, "file"),
		Responses: responses("Document processed", 400, 413, 500, 502, 503, 504),
	},
	Batch: &openapi.Operation{
		Summary: "Process several documents independently",
		RequestBody: openapi.RequestBodyMultipart("Documents to process", map[string]*openapi.Schema{
			"files":    {Type: "array", Items: &openapi.Schema{Type: "string", Format: "binary"}},
			"language": {Type: "string", Description: "OCR language code"},
		}, "files"),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSONArray("One result per document, in upload order", "PipelineResult"),
			400: openapi.ResponseRef("BadRequest"),
			413: openapi.ResponseRef("PayloadTooLarge"),
		},
	},
	Submit: &openapi.Operation{
		Summary:     "Submit form data",
		Description: "Stores the data as a pending submission and executes the submission workflow.",
		Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Form template UUID")},
		RequestBody: openapi.RequestBodyJSON("FieldMap", true),
		Responses:   responses("Submission processed", 400, 404, 422, 500, 502, 503, 504),
	},
	Retry: &openapi.Operation{
		Summary:    "Retry a failed submission",
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "Submission UUID")},
		Responses:  responses("Submission recovered", 400, 404, 409, 500, 502, 503, 504),
	},
}
