// Package validators composes the request-parameter validators of a route.
//
// Path-item parameters are applied first and operation parameters override
// them by name, keeping the position of the first declaration. Each
// parameter is compiled once into a Draft-4 JSON schema; body parameters
// carry the document's definitions so nested references resolve.
package validators

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
)

const (
	parameterRefPrefix  = "#/parameters/"
	definitionRefPrefix = "#/definitions/"
)

// Composer builds validators for the operations of one document. It caches
// compiled parameters and is not safe for concurrent use.
type Composer struct {
	params map[string]*openapi2.Parameter
	defs   map[string]any
	cache  map[*openapi2.Parameter]*compiled
}

// NewComposer prepares a composer for api. schemas overlays the document's
// definitions by name; values are JSON-compatible schema documents.
func NewComposer(api *openapi2.T, schemas map[string]any) (*Composer, error) {
	c := &Composer{
		params: map[string]*openapi2.Parameter{},
		defs:   map[string]any{},
		cache:  map[*openapi2.Parameter]*compiled{},
	}
	if api != nil {
		for name, p := range api.Parameters {
			c.params[name] = p
		}
		for name, ref := range api.Definitions {
			if ref == nil || (ref.Ref == "" && ref.Value == nil) {
				continue
			}
			v, err := toJSONValue(ref)
			if err != nil {
				return nil, routeerr.Configuration(fmt.Sprintf("definition %q", name), err)
			}
			c.defs[name] = v
		}
	}
	for name, s := range schemas {
		v, err := toJSONValue(s)
		if err != nil {
			return nil, routeerr.Configuration(fmt.Sprintf("schema %q", name), err)
		}
		c.defs[name] = v
	}
	return c, nil
}

// Compose merges pathParams and opParams into the route's validators. An
// operation parameter replaces the path parameter with the same name at the
// path parameter's position. No parameters yield an empty, non-nil slice.
func (c *Composer) Compose(pathParams, opParams openapi2.Parameters) ([]*Validator, error) {
	type entry struct {
		param *openapi2.Parameter
		scope Scope
	}
	var order []string
	set := map[string]entry{}
	add := func(params openapi2.Parameters, scope Scope) error {
		for _, p := range params {
			if p == nil {
				continue
			}
			resolved, err := c.resolveParameter(p)
			if err != nil {
				return err
			}
			if _, seen := set[resolved.Name]; !seen {
				order = append(order, resolved.Name)
			}
			set[resolved.Name] = entry{param: resolved, scope: scope}
		}
		return nil
	}
	if err := add(pathParams, PathScope); err != nil {
		return nil, err
	}
	if err := add(opParams, OperationScope); err != nil {
		return nil, err
	}

	out := make([]*Validator, 0, len(order))
	for _, name := range order {
		e := set[name]
		comp, err := c.compile(e.param)
		if err != nil {
			return nil, err
		}
		doc, err := cloneSchema(comp.doc)
		if err != nil {
			return nil, routeerr.Configuration(fmt.Sprintf("parameter %q", e.param.Name), err)
		}
		out = append(out, &Validator{
			Parameter: cloneParameter(e.param),
			Scope:     e.scope,
			Schema:    doc,
			schema:    comp,
		})
	}
	return out, nil
}

func (c *Composer) resolveParameter(p *openapi2.Parameter) (*openapi2.Parameter, error) {
	seen := map[string]bool{}
	for p.Ref != "" {
		if seen[p.Ref] {
			return nil, routeerr.Configuration(fmt.Sprintf("circular parameter reference %q", p.Ref), nil)
		}
		seen[p.Ref] = true
		if !strings.HasPrefix(p.Ref, parameterRefPrefix) {
			return nil, routeerr.Configuration(fmt.Sprintf("unsupported parameter reference %q", p.Ref), nil)
		}
		target, ok := c.params[strings.TrimPrefix(p.Ref, parameterRefPrefix)]
		if !ok || target == nil {
			return nil, routeerr.Configuration(fmt.Sprintf("unresolved parameter reference %q", p.Ref), nil)
		}
		p = target
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, routeerr.Configuration("parameter without a name", nil)
	}
	return p, nil
}

func (c *Composer) compile(p *openapi2.Parameter) (*compiled, error) {
	if comp, ok := c.cache[p]; ok {
		return comp, nil
	}
	doc, err := c.schemaFor(p)
	if err != nil {
		return nil, routeerr.Configuration(fmt.Sprintf("parameter %q", p.Name), err)
	}
	comp, err := compileSchema(doc)
	if err != nil {
		return nil, routeerr.Configuration(fmt.Sprintf("parameter %q", p.Name), err)
	}
	c.cache[p] = comp
	return comp, nil
}

// cloneSchema deep-copies a schema document so each validator owns its own.
// The compiled schema behind it is immutable and stays shared.
func cloneSchema(doc map[string]any) (map[string]any, error) {
	v, err := toJSONValue(doc)
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]any)
	return out, nil
}

// cloneParameter copies p so a route's parameter does not alias the
// document. Schema and Items refs are copied one level deep.
func cloneParameter(p *openapi2.Parameter) *openapi2.Parameter {
	c := *p
	c.Extensions = maps.Clone(p.Extensions)
	c.Enum = slices.Clone(p.Enum)
	c.MultipleOf = clonePtr(p.MultipleOf)
	c.Minimum = clonePtr(p.Minimum)
	c.Maximum = clonePtr(p.Maximum)
	c.MaxLength = clonePtr(p.MaxLength)
	c.MaxItems = clonePtr(p.MaxItems)
	c.Schema = clonePtr(p.Schema)
	c.Items = clonePtr(p.Items)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// toJSONValue reduces v to the plain JSON types the schema compiler and
// validator work on.
func toJSONValue(v any) (any, error) {
	switch v.(type) {
	case nil, bool, string, float64, json.Number:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
