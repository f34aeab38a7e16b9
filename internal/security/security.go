// Package security resolves the security requirements of an operation into
// the schemes, scopes and authorize functions attached to a route.
package security

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
)

// AuthorizeExtension names, on a securityDefinitions entry, the registered
// authorize function implementing the scheme.
const AuthorizeExtension = "x-authorize"

// AuthorizeFunc decides whether r satisfies a scheme for the given scopes.
type AuthorizeFunc func(r *http.Request, scopes []string) error

// Scheme is a configured security scheme implementation.
type Scheme struct {
	// Scopes lists the scopes the scheme accepts. Empty accepts any.
	Scopes    []string
	Authorize AuthorizeFunc
}

// Requirement is what a route needs from one scheme.
type Requirement struct {
	Scopes    []string
	Authorize AuthorizeFunc
}

// Resolver resolves requirements against configured schemes, falling back
// to document security definitions carrying an x-authorize extension.
type Resolver struct {
	Schemes     map[string]Scheme
	Definitions map[string]*openapi2.SecurityScheme
	Authorizers map[string]AuthorizeFunc
}

// Effective returns the requirement list that applies to an operation. An
// operation-level list, even an empty one, replaces the document's.
func Effective(opSecurity *openapi2.SecurityRequirements, docSecurity openapi2.SecurityRequirements) openapi2.SecurityRequirements {
	if opSecurity != nil {
		return *opSecurity
	}
	return docSecurity
}

// Resolve maps every scheme named by the effective requirements to its
// scopes and authorize function. Scopes are the union across requirement
// objects in declaration order. No requirements yield nil.
func (r *Resolver) Resolve(opSecurity *openapi2.SecurityRequirements, docSecurity openapi2.SecurityRequirements) (map[string]Requirement, error) {
	reqs := Effective(opSecurity, docSecurity)
	var out map[string]Requirement
	for _, req := range reqs {
		for _, name := range sortedNames(req) {
			scheme, err := r.scheme(name)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = map[string]Requirement{}
			}
			cur, ok := out[name]
			if !ok {
				cur = Requirement{Scopes: []string{}, Authorize: scheme.Authorize}
			}
			for _, scope := range req[name] {
				if len(scheme.Scopes) > 0 && !contains(scheme.Scopes, scope) {
					return nil, routeerr.Configuration(fmt.Sprintf("scope %q is not defined for security scheme %q", scope, name), nil)
				}
				if !contains(cur.Scopes, scope) {
					cur.Scopes = append(cur.Scopes, scope)
				}
			}
			out[name] = cur
		}
	}
	return out, nil
}

func (r *Resolver) scheme(name string) (Scheme, error) {
	if s, ok := r.Schemes[name]; ok {
		if s.Authorize == nil {
			return Scheme{}, routeerr.Configuration(fmt.Sprintf("security scheme %q has no authorize function", name), nil)
		}
		return s, nil
	}
	def, ok := r.Definitions[name]
	if !ok || def == nil {
		return Scheme{}, routeerr.Configuration(fmt.Sprintf("unknown security scheme %q", name), nil)
	}
	fn, _ := def.Extensions[AuthorizeExtension].(string)
	if fn = strings.TrimSpace(fn); fn == "" {
		return Scheme{}, routeerr.Configuration(fmt.Sprintf("security scheme %q has no implementation", name), nil)
	}
	authorize, ok := r.Authorizers[fn]
	if !ok || authorize == nil {
		return Scheme{}, routeerr.Configuration(fmt.Sprintf("security scheme %q names unregistered authorizer %q", name, fn), nil)
	}
	s := Scheme{Authorize: authorize}
	for scope := range def.Scopes {
		s.Scopes = append(s.Scopes, scope)
	}
	sort.Strings(s.Scopes)
	return s, nil
}

// sortedNames orders the schemes of one requirement object. Go maps do not
// keep the document order, so names sort lexically.
func sortedNames(req map[string][]string) []string {
	names := make([]string, 0, len(req))
	for name := range req {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
