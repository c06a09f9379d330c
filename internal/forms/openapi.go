package forms

import "github.com/JaimeStill/formwise/pkg/openapi"

type spec struct {
	Schemas map[string]*openapi.Schema
	List    *openapi.Operation
	Search  *openapi.Operation
	Find    *openapi.Operation
}

// Spec holds the OpenAPI description of the form endpoints.
var Spec = spec{
	Schemas: map[string]*openapi.Schema{
		"FormField": {
			Type:     "object",
			Required: []string{"id", "label", "type", "required"},
			Properties: map[string]*openapi.Schema{
				"id":       {Type: "string"},
				"label":    {Type: "string"},
				"type":     {Type: "string", Enum: []any{"text", "number", "date", "file", "select"}},
				"pattern":  {Type: "string", Description: "Regular expression the whole value must match"},
				"required": {Type: "boolean"},
				"options":  {Type: "array", Items: &openapi.Schema{Type: "string"}},
			},
		},
		"FormTemplate": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":          {Type: "string", Format: "uuid"},
				"name":        {Type: "string"},
				"description": {Type: "string"},
				"fields":      {Type: "array", Items: openapi.SchemaRef("FormField")},
				"status":      {Type: "string", Enum: []any{"draft", "published", "archived"}},
				"fileUrl":     {Type: "string"},
				"createdAt":   {Type: "string", Format: "date-time"},
				"updatedAt":   {Type: "string", Format: "date-time"},
			},
		},
		"FormPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":       {Type: "array", Items: openapi.SchemaRef("FormTemplate")},
				"total":      {Type: "integer"},
				"page":       {Type: "integer"},
				"pageSize":   {Type: "integer"},
				"totalPages": {Type: "integer"},
			},
		},
		"FormSearch": {
			Type:        "object",
			Description: "Pagination fields plus optional status and name filters",
			Properties: map[string]*openapi.Schema{
				"page":     {Type: "integer"},
				"pageSize": {Type: "integer"},
				"search":   {Type: "string"},
				"sort":     {Type: "string"},
				"status":   {Type: "string", Default: "published"},
				"name":     {Type: "string"},
			},
		},
	},
	List: &openapi.Operation{
		Summary: "List form templates",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number", false),
			openapi.QueryParam("pageSize", "integer", "Results per page", false),
			openapi.QueryParam("search", "string", "Matches name or description", false),
			openapi.QueryParam("sort", "string", "Sort fields", false),
			openapi.QueryParam("status", "string", "Template status (default published)", false),
			openapi.QueryParam("name", "string", "Name contains", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Page of templates", "FormPage"),
		},
	},
	Search: &openapi.Operation{
		Summary:     "Search form templates",
		Description: "An empty body lists published templates.",
		RequestBody: openapi.RequestBodyJSON("FormSearch", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Page of templates", "FormPage"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Find a form template",
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "Template id")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Template", "FormTemplate"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
}
