package spec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	jsonyaml "github.com/invopop/yaml"
	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// Validate runs the structural check on the parsed document. Turn it off
	// for documents already validated upstream.
	Validate bool
	Logger   *slog.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
		Validate:    true,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option  { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithValidation(on bool) Option          { return func(s *Settings) { s.Validate = on } }
func WithLogger(l *slog.Logger) Option       { return func(s *Settings) { s.Logger = l } }

// Load reads and parses a Swagger 2.0 document.
//
// input may be a filesystem path or an http/https URL. file:// URLs are
// blocked; pass the plain path instead.
func Load(ctx context.Context, input string, opts ...Option) (*Document, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	var (
		raw      []byte
		location string
	)

	// Classify input as URL or file path.
	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && u.Host != ""

	if isURL {
		scheme := strings.ToLower(u.Scheme)
		if scheme == "file" {
			return nil, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked by default", Location: input}
		}
		if scheme != "http" && scheme != "https" {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		body, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		raw, location = body, input
	} else {
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
		}
		body, err := os.ReadFile(abs)
		if err != nil {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
		}
		raw, location = body, abs
	}

	return parse(ctx, raw, location, settings)
}

// Parse parses an in-memory Swagger 2.0 document (YAML or JSON).
func Parse(ctx context.Context, data []byte, opts ...Option) (*Document, error) {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	return parse(ctx, data, "", settings)
}

func parse(ctx context.Context, raw []byte, location string, settings Settings) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse spec: %v", err), Location: location, Cause: err}
	}
	version, err := detectSpecVersion(&root)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
	}
	if version != 2 {
		return nil, &SpecError{Code: ParseError, Message: "spec: only Swagger 2.0 documents can be routed", Location: location}
	}

	api, err := decodeV2(raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("decode swagger 2.0: %v", err), Location: location, Cause: err}
	}

	if settings.Validate {
		if err := checkStructure(ctx, raw, settings); err != nil {
			var se *SpecError
			if errors.As(err, &se) {
				se.Location = location
			}
			return nil, err
		}
	}

	return &Document{
		API:       api,
		PathOrder: pathOrder(&root, api),
		Location:  location,
	}, nil
}

// decodeV2 goes through JSON so kin-openapi's unmarshalers collect the x-
// extensions of every node.
func decodeV2(raw []byte) (*openapi2.T, error) {
	data, err := jsonyaml.YAMLToJSON(raw)
	if err != nil {
		return nil, err
	}
	var api openapi2.T
	if err := json.Unmarshal(data, &api); err != nil {
		return nil, err
	}
	return &api, nil
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(root *yaml.Node) (int, error) {
	doc := mappingRoot(root)
	if doc == nil {
		return 0, fmt.Errorf("spec: document is not a mapping")
	}
	if v := mappingValue(doc, "openapi"); v != nil && strings.HasPrefix(strings.TrimSpace(v.Value), "3.") {
		return 3, nil
	}
	if v := mappingValue(doc, "swagger"); v != nil && strings.HasPrefix(strings.TrimSpace(v.Value), "2.") {
		return 2, nil
	}
	return 0, fmt.Errorf("spec: missing or unknown version (expected 'swagger: 2.0')")
}

// pathOrder lists the keys under "paths" as they appear in the source.
func pathOrder(root *yaml.Node, api *openapi2.T) []string {
	seen := make(map[string]struct{}, len(api.Paths))
	order := make([]string, 0, len(api.Paths))
	if paths := mappingValue(mappingRoot(root), "paths"); paths != nil && paths.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(paths.Content); i += 2 {
			key := paths.Content[i].Value
			if _, ok := api.Paths[key]; !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			order = append(order, key)
		}
	}
	// Anything the node walk missed goes last, sorted for determinism.
	var rest []string
	for key := range api.Paths {
		if _, ok := seen[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func mappingRoot(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	return n
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// checkStructure converts a copy of the document to v3 and runs kin-openapi's
// validator over it.
func checkStructure(ctx context.Context, raw []byte, settings Settings) error {
	if fixed, changed, _ := preprocessV2ForCompatibility(raw); changed {
		raw = fixed
	}
	v2, err := decodeV2(raw)
	if err != nil {
		return &SpecError{Code: ParseError, Message: fmt.Sprintf("decode swagger 2.0: %v", err), Cause: err}
	}
	v3, err := openapi2conv.ToV3(v2)
	if err != nil {
		return &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Cause: err}
	}
	if err := openapi3.NewLoader().ResolveRefsIn(v3, nil); err != nil && settings.Logger != nil {
		settings.Logger.Warn("failed to resolve refs after conversion", slog.Any("error", err))
	}
	if err := v3.Validate(ctx); err != nil {
		if !canProceedDespiteValidation(err) {
			return mapValidateOrParseErr(err, "")
		}
	}
	return nil
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, done, err := readResponse(resp)
			if done {
				return body, err
			}
			lastErr = err
		}
		if settings.Logger != nil {
			settings.Logger.Debug("retrying spec fetch", slog.String("url", rawURL), slog.Int("attempt", i+1), slog.Any("error", lastErr))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

// readResponse consumes and closes resp. done is false for transient
// failures worth retrying.
func readResponse(resp *http.Response) (body []byte, done bool, err error) {
	defer resp.Body.Close()
	switch {
	case resp.StatusCode < 300:
		body, err = io.ReadAll(resp.Body)
		return body, true, err
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, false, fmt.Errorf("transient http error %d", resp.StatusCode)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, true, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	// Heuristics: some loader errors are parse errors.
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	if me, ok := err.(openapi3.MultiError); ok {
		if len(me) > 0 {
			return extractJSONPointer(me[0])
		}
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}

// canProceedDespiteValidation returns true for validation errors that do not
// affect routing (e.g., unresolved $ref entries after conversion).
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unresolved ref") || strings.Contains(s, "found unresolved ref")
}
