package submissions

import "github.com/JaimeStill/formwise/pkg/openapi"

type spec struct {
	Schemas map[string]*openapi.Schema
	List    *openapi.Operation
	Find    *openapi.Operation
	History *openapi.Operation
}

var statusEnum = []any{"pending", "processed", "error"}

// Spec holds the OpenAPI description of the submission endpoints.
var Spec = spec{
	Schemas: map[string]*openapi.Schema{
		"Submission": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":          {Type: "string", Format: "uuid"},
				"formId":      {Type: "string", Format: "uuid"},
				"data":        openapi.SchemaRef("FieldMap"),
				"status":      {Type: "string", Enum: statusEnum},
				"executionId": {Type: "string"},
				"result":      {Type: "object", Description: "Workflow outcome recorded with the last transition"},
				"createdAt":   {Type: "string", Format: "date-time"},
				"updatedAt":   {Type: "string", Format: "date-time"},
			},
		},
		"SubmissionPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":       {Type: "array", Items: openapi.SchemaRef("Submission")},
				"total":      {Type: "integer"},
				"page":       {Type: "integer"},
				"pageSize":   {Type: "integer"},
				"totalPages": {Type: "integer"},
			},
		},
		"SubmissionEvent": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           {Type: "string", Format: "uuid"},
				"sequence":     {Type: "integer"},
				"submissionId": {Type: "string", Format: "uuid"},
				"fromStatus":   {Type: "string", Enum: statusEnum},
				"toStatus":     {Type: "string", Enum: statusEnum},
				"executionId":  {Type: "string"},
				"detail":       {Type: "object"},
				"occurredAt":   {Type: "string", Format: "date-time"},
			},
		},
	},
	List: &openapi.Operation{
		Summary: "List submissions",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number", false),
			openapi.QueryParam("pageSize", "integer", "Results per page", false),
			openapi.QueryParam("sort", "string", "Sort fields", false),
			openapi.QueryParam("formId", "string", "Template id", false),
			openapi.QueryParam("status", "string", "Submission status", false),
			openapi.QueryParam("createdAfter", "string", "RFC 3339 lower bound (inclusive)", false),
			openapi.QueryParam("createdBefore", "string", "RFC 3339 upper bound (exclusive)", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Page of submissions", "SubmissionPage"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Find a submission",
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "Submission id")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Submission", "Submission"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	History: &openapi.Operation{
		Summary:    "Submission status history",
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "Submission id")},
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Events in the order they occurred",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("SubmissionEvent")}},
				},
			},
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
}
