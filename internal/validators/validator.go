package validators

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
)

// Scope tells where a parameter was declared.
type Scope string

const (
	PathScope      Scope = "path"
	OperationScope Scope = "operation"
)

// Validator checks one request parameter.
type Validator struct {
	Parameter *openapi2.Parameter
	Scope     Scope
	// Schema is the compiled JSON schema document, definitions included.
	Schema map[string]any

	schema *compiled
}

func (v *Validator) Name() string   { return v.Parameter.Name }
func (v *Validator) In() string     { return v.Parameter.In }
func (v *Validator) Required() bool { return v.Parameter.Required }

// Validate checks value against the parameter. A nil value fails only when
// the parameter is required. Raw strings of non-body parameters are coerced
// to the declared type first.
func (v *Validator) Validate(value any) error {
	if value == nil {
		if v.Required() {
			return v.fail("missing required parameter", nil)
		}
		return nil
	}
	coerced, err := v.Coerce(value)
	if err != nil {
		return v.fail("cannot coerce value", err)
	}
	instance, err := toJSONValue(coerced)
	if err != nil {
		return v.fail("value is not JSON-compatible", err)
	}
	if err := v.schema.schema.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return v.fail(firstFailure(verr), nil)
		}
		return v.fail("invalid value", err)
	}
	return nil
}

func (v *Validator) fail(msg string, cause error) error {
	return routeerr.Validation(fmt.Sprintf("%s parameter %q: %s", v.In(), v.Name(), msg), cause)
}

// firstFailure describes the first leaf of a validation error tree.
func firstFailure(verr *jsonschema.ValidationError) string {
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	return strings.TrimSpace(verr.Error())
}
