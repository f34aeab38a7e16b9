package validators

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaURL names the in-memory resource each parameter schema is compiled
// from. Every compile uses its own compiler, so one name suffices.
const schemaURL = "parameter.json"

type compiled struct {
	doc    map[string]any
	schema *jsonschema.Schema
}

// schemaFor returns the Draft-4 schema document validating p.
func (c *Composer) schemaFor(p *openapi2.Parameter) (map[string]any, error) {
	if strings.EqualFold(p.In, "body") {
		return c.bodySchema(p)
	}
	return parameterSchema(p)
}

// bodySchema wraps the body schema in allOf so the definitions can sit
// beside it; Draft 4 ignores siblings of $ref.
func (c *Composer) bodySchema(p *openapi2.Parameter) (map[string]any, error) {
	doc := map[string]any{}
	if p.Schema == nil || (p.Schema.Ref == "" && p.Schema.Value == nil) {
		return doc, nil
	}
	if ref := p.Schema.Ref; ref != "" {
		if !strings.HasPrefix(ref, definitionRefPrefix) {
			return nil, fmt.Errorf("unsupported schema reference %q", ref)
		}
		if _, ok := c.defs[strings.TrimPrefix(ref, definitionRefPrefix)]; !ok {
			return nil, fmt.Errorf("unresolved schema reference %q", ref)
		}
	}
	body, err := toJSONValue(p.Schema)
	if err != nil {
		return nil, err
	}
	doc["allOf"] = []any{body}
	if len(c.defs) > 0 {
		doc["definitions"] = c.defs
	}
	return doc, nil
}

// parameterSchema translates the inline constraints of a non-body
// parameter.
func parameterSchema(p *openapi2.Parameter) (map[string]any, error) {
	s := map[string]any{}
	switch p.Type {
	case "", "file":
	default:
		s["type"] = p.Type
	}
	if p.Format != "" {
		s["format"] = p.Format
	}
	if len(p.Enum) > 0 {
		s["enum"] = p.Enum
	}
	if p.Minimum != nil {
		s["minimum"] = *p.Minimum
		if p.ExclusiveMin {
			s["exclusiveMinimum"] = true
		}
	}
	if p.Maximum != nil {
		s["maximum"] = *p.Maximum
		if p.ExclusiveMax {
			s["exclusiveMaximum"] = true
		}
	}
	if p.MultipleOf != nil {
		s["multipleOf"] = *p.MultipleOf
	}
	if p.MinLength > 0 {
		s["minLength"] = p.MinLength
	}
	if p.MaxLength != nil {
		s["maxLength"] = *p.MaxLength
	}
	if p.Pattern != "" {
		s["pattern"] = p.Pattern
	}
	if p.MinItems > 0 {
		s["minItems"] = p.MinItems
	}
	if p.MaxItems != nil {
		s["maxItems"] = *p.MaxItems
	}
	if p.UniqueItems {
		s["uniqueItems"] = true
	}
	if p.Items != nil && (p.Items.Ref != "" || p.Items.Value != nil) {
		items, err := toJSONValue(p.Items)
		if err != nil {
			return nil, err
		}
		s["items"] = items
	}
	return s, nil
}

func compileSchema(doc map[string]any) (*compiled, error) {
	// Round-trip through the compiler's own decoder so numbers and slices
	// have the shapes it expects.
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	res, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft4)
	if err := compiler.AddResource(schemaURL, res); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	normalized, _ := res.(map[string]any)
	return &compiled{doc: normalized, schema: sch}, nil
}
