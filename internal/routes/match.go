package routes

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
)

// ErrRouteNotFound is returned by Match when no route has the requested
// path and method.
var ErrRouteNotFound = errors.New("route not found")

// Match returns the route for path and method whose declared media types
// (produces and consumes) accept mediaType.
//
// Paths are compared after slash normalization and methods case-insensitively.
// Media types are compared on type and subtype, ignoring case and
// parameters. A request for "*/*" or "type/*" accepts any matching declared
// type, an empty mediaType accepts the route, and a route declaring no media
// types accepts any request.
func Match(routes []Route, path, method, mediaType string) (*Route, error) {
	path = normalizePath(path)
	method = normalizeMethod(method)
	for i := range routes {
		r := &routes[i]
		if normalizePath(r.Path) != path || normalizeMethod(r.Method) != method {
			continue
		}
		if acceptsMediaType(r, mediaType) {
			return r, nil
		}
		return nil, &routeerr.Error{
			Code:    routeerr.MediaTypeError,
			Message: fmt.Sprintf("media type %q is not supported", mediaType),
			Path:    r.Path,
			Method:  r.Method,
		}
	}
	return nil, fmt.Errorf("%w: %s %s", ErrRouteNotFound, method, path)
}

func acceptsMediaType(r *Route, requested string) bool {
	want, ok := parseMediaType(requested)
	if !ok {
		return strings.TrimSpace(requested) == ""
	}
	declared := make([]string, 0, len(r.Produces)+len(r.Consumes))
	declared = append(declared, r.Produces...)
	declared = append(declared, r.Consumes...)
	if len(declared) == 0 {
		return true
	}
	for _, d := range declared {
		have, ok := parseMediaType(d)
		if ok && mediaTypeMatches(want, have) {
			return true
		}
	}
	return false
}

// parseMediaType returns the lowercase type/subtype of s without
// parameters.
func parseMediaType(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	mt, _, err := mime.ParseMediaType(s)
	if err != nil {
		mt, _, _ = strings.Cut(s, ";")
	}
	mt = strings.ToLower(strings.TrimSpace(mt))
	if !strings.Contains(mt, "/") {
		return "", false
	}
	return mt, true
}

func mediaTypeMatches(want, have string) bool {
	if want == "*/*" || want == have || have == "*/*" {
		return true
	}
	wt, ws, _ := strings.Cut(want, "/")
	ht, hs, _ := strings.Cut(have, "/")
	if wt != ht {
		return false
	}
	return ws == "*" || hs == "*" || ws == hs
}
