// Package manifest renders a built route table as a JSON or YAML document
// and writes it to disk.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swaggerroutes/internal/handlers"
	"github.com/mark3labs/swaggerroutes/internal/metadata"
	"github.com/mark3labs/swaggerroutes/internal/routes"
)

// Supported output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Manifest is the serializable view of a route table.
type Manifest struct {
	Title    string  `json:"title,omitempty" yaml:"title,omitempty"`
	Version  string  `json:"version,omitempty" yaml:"version,omitempty"`
	Source   string  `json:"source,omitempty" yaml:"source,omitempty"`
	BasePath string  `json:"basePath,omitempty" yaml:"basePath,omitempty"`
	Routes   []Route `json:"routes" yaml:"routes"`
}

// Route is one entry of a manifest.
type Route struct {
	Method      string              `json:"method" yaml:"method"`
	Path        string              `json:"path" yaml:"path"`
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Handler     string              `json:"handler" yaml:"handler"`
	Parameters  []Parameter         `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Security    map[string][]string `json:"security,omitempty" yaml:"security,omitempty"`
	Produces    []string            `json:"produces,omitempty" yaml:"produces,omitempty"`
	Consumes    []string            `json:"consumes,omitempty" yaml:"consumes,omitempty"`
	Cache       *Cache              `json:"cache,omitempty" yaml:"cache,omitempty"`
	Policies    []string            `json:"policies,omitempty" yaml:"policies,omitempty"`
	JSONP       string              `json:"jsonp,omitempty" yaml:"jsonp,omitempty"`
}

type Parameter struct {
	Name     string `json:"name" yaml:"name"`
	In       string `json:"in" yaml:"in"`
	Scope    string `json:"scope" yaml:"scope"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Cache mirrors metadata.Cache with a printable duration.
type Cache struct {
	Statuses  []int  `json:"statuses" yaml:"statuses"`
	ExpiresIn string `json:"expiresIn,omitempty" yaml:"expiresIn,omitempty"`
	Privacy   string `json:"privacy,omitempty" yaml:"privacy,omitempty"`
}

// Info describes the document a table was built from.
type Info struct {
	Title   string
	Version string
	Source  string
}

// FromTable converts table into a manifest.
func FromTable(table *routes.Table, info Info) Manifest {
	m := Manifest{
		Title:   info.Title,
		Version: info.Version,
		Source:  info.Source,
		Routes:  []Route{},
	}
	if table == nil {
		return m
	}
	m.BasePath = table.BasePath
	for i := range table.Routes {
		m.Routes = append(m.Routes, FromRoute(&table.Routes[i]))
	}
	return m
}

// FromRoute converts a single route.
func FromRoute(r *routes.Route) Route {
	out := Route{
		Method:      r.Method,
		Path:        r.Path,
		Name:        r.Name,
		Description: r.Description,
		Handler:     describeHandler(r.Handler),
		Produces:    r.Produces,
		Consumes:    r.Consumes,
		Cache:       fromCache(r.Cache),
		Policies:    r.Policies,
		JSONP:       r.JSONP,
	}
	for _, v := range r.Validators {
		out.Parameters = append(out.Parameters, Parameter{
			Name:     v.Name(),
			In:       v.In(),
			Scope:    string(v.Scope),
			Required: v.Required(),
		})
	}
	if r.Security != nil {
		out.Security = make(map[string][]string, len(r.Security))
		for name, req := range r.Security {
			out.Security[name] = append([]string{}, req.Scopes...)
		}
	}
	return out
}

func fromCache(c *metadata.Cache) *Cache {
	if c == nil {
		return nil
	}
	out := &Cache{Statuses: c.Statuses, Privacy: c.Privacy}
	if c.ExpiresIn > 0 {
		out.ExpiresIn = c.ExpiresIn.String()
	}
	return out
}

func describeHandler(h http.Handler) string {
	switch v := h.(type) {
	case nil:
		return "none"
	case *handlers.StaticResponse:
		return fmt.Sprintf("static %d", v.Status)
	default:
		return fmt.Sprintf("%T", h)
	}
}

// Render encodes m in format.
func Render(m Manifest, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("manifest: marshal json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "yml", "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return nil, fmt.Errorf("manifest: marshal yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("manifest: marshal yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("manifest: unsupported format %q (allowed: json, yaml)", format)
	}
}

// SchemeNames lists the security schemes referenced anywhere in m, sorted.
func (m Manifest) SchemeNames() []string {
	seen := map[string]struct{}{}
	for _, r := range m.Routes {
		for name := range r.Security {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
