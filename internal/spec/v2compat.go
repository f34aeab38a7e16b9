package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// preprocessV2ForCompatibility rewrites operations openapi2conv cannot
// convert, so the structural check can still run. The routed document is
// never touched; only the copy handed to the converter is.
//
//   - several body parameters collapse into one object-typed body parameter;
//   - body mixed with formData turns every body parameter into formData and
//     adds multipart/form-data to consumes.
func preprocessV2ForCompatibility(data []byte) ([]byte, bool, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return data, false, err
	}
	paths, _ := doc["paths"].(map[string]any)
	modified := false
	for _, item := range paths {
		ops, _ := item.(map[string]any)
		for _, m := range Methods {
			op, _ := ops[string(m)].(map[string]any)
			if op != nil && rewriteBodyParams(op) {
				modified = true
			}
		}
	}
	if !modified {
		return data, false, nil
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func rewriteBodyParams(op map[string]any) bool {
	params, _ := op["parameters"].([]any)
	var bodies, rest []map[string]any
	hasForm := false
	for _, p := range params {
		pm, _ := p.(map[string]any)
		if pm == nil {
			continue
		}
		switch in := asString(pm["in"]); {
		case strings.EqualFold(in, "body"):
			bodies = append(bodies, pm)
		case strings.EqualFold(in, "formData"):
			hasForm = true
			rest = append(rest, pm)
		default:
			rest = append(rest, pm)
		}
	}

	switch {
	case len(bodies) > 0 && hasForm:
		out := make([]any, 0, len(params))
		for _, p := range params {
			pm, _ := p.(map[string]any)
			if pm != nil && strings.EqualFold(asString(pm["in"]), "body") {
				out = append(out, formDataFromBodyParam(pm))
				continue
			}
			out = append(out, p)
		}
		op["parameters"] = out
		consumes, _ := op["consumes"].([]any)
		if !containsString(consumes, "multipart/form-data") {
			op["consumes"] = append(consumes, "multipart/form-data")
		}
		return true
	case len(bodies) > 1:
		props := map[string]any{}
		var required []any
		for _, b := range bodies {
			name := asString(b["name"])
			if name == "" {
				name = "field"
			}
			props[name] = schemaOf(b)
			if req, _ := b["required"].(bool); req {
				required = append(required, name)
			}
		}
		merged := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			merged["required"] = required
		}
		out := []any{map[string]any{"in": "body", "name": "body", "schema": merged}}
		for _, r := range rest {
			out = append(out, r)
		}
		op["parameters"] = out
		return true
	}
	return false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func containsString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

// schemaOf returns the parameter's schema, synthesizing one from type/items/format.
func schemaOf(pm map[string]any) map[string]any {
	if sch, ok := pm["schema"].(map[string]any); ok {
		return sch
	}
	t := asString(pm["type"])
	if t == "" {
		return map[string]any{"type": "string"}
	}
	out := map[string]any{"type": t}
	if it, ok := pm["items"].(map[string]any); ok {
		out["items"] = it
	}
	if f := asString(pm["format"]); f != "" {
		out["format"] = f
	}
	return out
}

func formDataFromBodyParam(pm map[string]any) map[string]any {
	name := asString(pm["name"])
	if name == "" {
		name = "field"
	}
	out := map[string]any{"in": "formData", "name": name}
	if desc := asString(pm["description"]); desc != "" {
		out["description"] = desc
	}
	if req, ok := pm["required"].(bool); ok {
		out["required"] = req
	}
	sch := schemaOf(pm)
	typ := asString(sch["type"])
	// Referenced objects have no formData form.
	if typ == "" || typ == "object" {
		typ = "string"
	}
	out["type"] = typ
	if it, ok := sch["items"]; ok {
		out["items"] = it
	}
	if f := asString(sch["format"]); f != "" {
		out["format"] = f
	}
	return out
}
