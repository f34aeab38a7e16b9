package validators

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cast"
)

// Coerce converts raw request strings to the parameter's declared type.
// Body values and values that are not strings pass through unchanged.
func (v *Validator) Coerce(value any) (any, error) {
	p := v.Parameter
	if strings.EqualFold(p.In, "body") {
		return value, nil
	}
	switch raw := value.(type) {
	case string:
		if p.Type == "array" {
			return coerceItems(splitCollection(raw, p.CollectionFormat), p.Items)
		}
		return coerceScalar(raw, p.Type)
	case []string:
		if p.Type == "array" {
			parts := raw
			// One raw value of a non-multi array still needs splitting.
			if len(raw) == 1 && p.CollectionFormat != "multi" {
				parts = splitCollection(raw[0], p.CollectionFormat)
			}
			return coerceItems(parts, p.Items)
		}
		if len(raw) == 0 {
			return nil, nil
		}
		return coerceScalar(raw[0], p.Type)
	}
	return value, nil
}

func splitCollection(raw, format string) []string {
	if raw == "" {
		return []string{}
	}
	sep := ","
	switch format {
	case "ssv":
		sep = " "
	case "tsv":
		sep = "\t"
	case "pipes":
		sep = "|"
	}
	return strings.Split(raw, sep)
}

func coerceItems(parts []string, items *openapi3.SchemaRef) ([]any, error) {
	typ := ""
	if items != nil && items.Value != nil {
		typ = items.Value.Type
	}
	out := make([]any, 0, len(parts))
	for i, s := range parts {
		v, err := coerceScalar(s, typ)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func coerceScalar(raw, typ string) (any, error) {
	switch typ {
	case "integer":
		s, err := decimalInteger(raw)
		if err != nil {
			return nil, err
		}
		return cast.ToInt64E(s)
	case "number":
		return cast.ToFloat64E(strings.TrimSpace(raw))
	case "boolean":
		return cast.ToBoolE(strings.TrimSpace(raw))
	}
	return raw, nil
}

// decimalInteger checks that raw is a base-10 integer and drops leading
// zeros, so cast does not read "010" as octal or accept "0x1F".
func decimalInteger(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	sign := ""
	if s != "" && (s[0] == '-' || s[0] == '+') {
		sign, s = s[:1], s[1:]
	}
	if s == "" {
		return "", fmt.Errorf("%q is not a decimal integer", raw)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%q is not a decimal integer", raw)
		}
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		s = "0"
	}
	return sign + s, nil
}
