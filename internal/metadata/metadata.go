// Package metadata extracts per-route metadata from an operation: media
// types and the x-cache, x-policies, x-jsonp and x-handler extensions.
//
// Extensions are looked up on the operation, then its path item, then the
// document root, so a document-wide x-cache applies to every route that does
// not set its own.
package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/go-viper/mapstructure/v2"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
)

// Vendor extensions read by Extract.
const (
	ExtCache    = "x-cache"
	ExtPolicies = "x-policies"
	ExtJSONP    = "x-jsonp"
	ExtHandler  = "x-handler"
)

// Privacy values accepted in x-cache.
const (
	PrivacyDefault = "default"
	PrivacyPublic  = "public"
	PrivacyPrivate = "private"
)

// Cache is the caching directive of a route.
type Cache struct {
	Statuses  []int         `mapstructure:"statuses" json:"statuses" yaml:"statuses"`
	ExpiresIn time.Duration `mapstructure:"expiresIn" json:"expiresIn,omitempty" yaml:"expiresIn,omitempty"`
	Privacy   string        `mapstructure:"privacy" json:"privacy,omitempty" yaml:"privacy,omitempty"`
}

// Metadata is everything a route carries besides handler, validators and
// security.
type Metadata struct {
	Produces []string
	Consumes []string
	Cache    *Cache
	Policies []string
	JSONP    string
	// Handler is the x-handler override, empty when absent. Only the
	// operation and its path item are consulted.
	Handler string
}

// Extract reads the metadata of op declared under item in doc. Malformed
// extensions are ConfigurationErrors.
func Extract(op *openapi2.Operation, item *openapi2.PathItem, doc *openapi2.T) (Metadata, error) {
	var md Metadata
	layers := extensionLayers(op, item, doc)

	if op != nil && len(op.Produces) > 0 {
		md.Produces = append([]string(nil), op.Produces...)
	} else if doc != nil {
		md.Produces = append([]string(nil), doc.Produces...)
	}
	if op != nil && len(op.Consumes) > 0 {
		md.Consumes = append([]string(nil), op.Consumes...)
	} else if doc != nil {
		md.Consumes = append([]string(nil), doc.Consumes...)
	}

	if raw, ok := lookup(layers, ExtCache); ok {
		c, err := decodeCache(raw)
		if err != nil {
			return Metadata{}, err
		}
		md.Cache = c
	}
	if raw, ok := lookup(layers, ExtPolicies); ok {
		var policies []string
		if err := decode(raw, &policies); err != nil {
			return Metadata{}, routeerr.Configuration(ExtPolicies+" must be a list of policy names", err)
		}
		md.Policies = policies
	}
	if raw, ok := lookup(layers, ExtJSONP); ok {
		s, isString := raw.(string)
		if !isString {
			return Metadata{}, routeerr.Configuration(fmt.Sprintf("%s must be a string, got %T", ExtJSONP, raw), nil)
		}
		md.JSONP = strings.TrimSpace(s)
	}
	// x-handler never comes from the document root.
	if raw, ok := lookup(layers[:min(len(layers), 2)], ExtHandler); ok {
		s, isString := raw.(string)
		if !isString {
			return Metadata{}, routeerr.Configuration(fmt.Sprintf("%s must be a string, got %T", ExtHandler, raw), nil)
		}
		md.Handler = strings.TrimSpace(s)
	}
	return md, nil
}

func extensionLayers(op *openapi2.Operation, item *openapi2.PathItem, doc *openapi2.T) []map[string]interface{} {
	layers := make([]map[string]interface{}, 3)
	if op != nil {
		layers[0] = op.Extensions
	}
	if item != nil {
		layers[1] = item.Extensions
	}
	if doc != nil {
		layers[2] = doc.Extensions
	}
	return layers
}

func lookup(layers []map[string]interface{}, key string) (any, bool) {
	for _, l := range layers {
		if v, ok := l[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func decodeCache(raw any) (*Cache, error) {
	if _, ok := raw.(map[string]interface{}); !ok {
		return nil, routeerr.Configuration(fmt.Sprintf("%s must be an object, got %T", ExtCache, raw), nil)
	}
	c := &Cache{}
	if err := decode(raw, c); err != nil {
		return nil, routeerr.Configuration("malformed "+ExtCache, err)
	}
	if len(c.Statuses) == 0 {
		c.Statuses = []int{200}
	}
	if c.ExpiresIn < 0 {
		return nil, routeerr.Configuration(fmt.Sprintf("%s expiresIn must not be negative", ExtCache), nil)
	}
	switch c.Privacy = strings.ToLower(strings.TrimSpace(c.Privacy)); c.Privacy {
	case "":
		c.Privacy = PrivacyDefault
	case PrivacyDefault, PrivacyPublic, PrivacyPrivate:
	default:
		return nil, routeerr.Configuration(fmt.Sprintf("%s privacy %q is not one of default, public, private", ExtCache, c.Privacy), nil)
	}
	return c, nil
}

func decode(raw, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			millisecondsHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// millisecondsHook reads bare numbers decoded into a time.Duration as
// milliseconds.
func millisecondsHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Millisecond)), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if from == to {
			return data, nil
		}
		return time.Duration(reflect.ValueOf(data).Int()) * time.Millisecond, nil
	}
	return data, nil
}
