package routes

import (
	"net/http"

	"github.com/JaimeStill/formwise/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler. OpenAPI is optional
// operation metadata included in the generated API document.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}
