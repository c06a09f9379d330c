package workflow

import "github.com/JaimeStill/formwise/pkg/openapi"

type spec struct {
	Schemas   map[string]*openapi.Schema
	Workflows *openapi.Operation
	SetActive *openapi.Operation
	History   *openapi.Operation
}

var nameParam = openapi.StringPathParam("name", "Workflow name or engine id")

// Spec holds the OpenAPI description of the workflow endpoints.
var Spec = spec{
	Schemas: map[string]*openapi.Schema{
		"Workflow": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":      {Type: "string"},
				"name":    {Type: "string"},
				"active":  {Type: "boolean"},
				"status":  {Type: "string"},
				"lastRun": {Type: "string"},
			},
		},
		"WorkflowExecution": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         {Type: "string"},
				"workflowId": {Type: "string"},
				"status":     {Type: "string", Enum: []any{"running", "success", "error"}},
				"startTime":  {Type: "string", Format: "date-time"},
				"endTime":    {Type: "string", Format: "date-time"},
				"data":       {Type: "object"},
			},
		},
		"WorkflowActivation": {
			Type:     "object",
			Required: []string{"active"},
			Properties: map[string]*openapi.Schema{
				"active": {Type: "boolean"},
			},
		},
	},
	Workflows: &openapi.Operation{
		Summary: "List engine workflows",
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSONArray("Workflows", "Workflow"),
			502: openapi.ResponseRef("BadGateway"),
		},
	},
	SetActive: &openapi.Operation{
		Summary:     "Activate or deactivate a workflow",
		Parameters:  []*openapi.Parameter{nameParam},
		RequestBody: openapi.RequestBodyJSON("WorkflowActivation", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Updated workflow", "Workflow"),
			400: openapi.ResponseRef("BadRequest"),
			502: openapi.ResponseRef("BadGateway"),
		},
	},
	History: &openapi.Operation{
		Summary:    "Workflow execution history",
		Parameters: []*openapi.Parameter{nameParam},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSONArray("Executions", "WorkflowExecution"),
			502: openapi.ResponseRef("BadGateway"),
		},
	},
}
