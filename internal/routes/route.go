// Package routes compiles a Swagger 2.0 document into a table of route
// descriptors, one per declared path and method.
//
//	table, err := routes.Build(ctx, spec.FromInput("api/swagger.yaml"),
//	    routes.WithHandlersDir("api/handlers"),
//	    routes.WithSecuritySchemes(schemes),
//	)
//
// The table is built once and only read afterwards; Match selects a route by
// path, method and media type.
package routes

import (
	"net/http"
	"strings"

	"github.com/mark3labs/swaggerroutes/internal/metadata"
	"github.com/mark3labs/swaggerroutes/internal/security"
	"github.com/mark3labs/swaggerroutes/internal/validators"
)

// Route is an executable description of one operation.
type Route struct {
	Method      string
	Path        string
	Name        string
	Description string
	Validators  []*validators.Validator
	Handler     http.Handler
	// Security is nil when the route needs no authentication.
	Security map[string]security.Requirement
	Produces []string
	Consumes []string
	Cache    *metadata.Cache
	Policies []string
	JSONP    string
}

// Table is the result of a build.
type Table struct {
	BasePath string
	Routes   []Route
}

// Len returns the number of routes.
func (t *Table) Len() int { return len(t.Routes) }

// Match finds a route in the table. See the package-level Match.
func (t *Table) Match(path, method, mediaType string) (*Route, error) {
	return Match(t.Routes, path, method, mediaType)
}

// normalizePath returns template with a single leading slash, no trailing
// slash and no empty segments. The root path stays "/".
func normalizePath(template string) string {
	segs := strings.Split(strings.TrimSpace(template), "/")
	kept := segs[:0]
	for _, s := range segs {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return "/" + strings.Join(kept, "/")
}

func normalizeMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
