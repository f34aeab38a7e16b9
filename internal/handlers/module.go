package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
)

// moduleExts lists the file extensions a handler module may carry, in
// lookup order.
var moduleExts = []string{".yaml", ".yml", ".json"}

// Module is a handler module file: one Entry per method. Keys may be
// written "get" or "$get".
//
//	get:
//	  handler: listPets
//	post:
//	  status: 201
//	  body: {created: true}
type Module map[string]Entry

// Entry describes the handler for one method. When Handler is set it names
// a registered function; otherwise the entry is a static response.
type Entry struct {
	Handler     string            `yaml:"handler" json:"handler,omitempty"`
	Status      int               `yaml:"status" json:"status,omitempty"`
	ContentType string            `yaml:"contentType" json:"contentType,omitempty"`
	Headers     map[string]string `yaml:"headers" json:"headers,omitempty"`
	Body        any               `yaml:"body" json:"body,omitempty"`
}

// moduleCandidates returns the files that may hold the module named name:
// name.<ext> first, then name/index.<ext>.
func moduleCandidates(name string) []string {
	name = strings.TrimSuffix(path.Clean(strings.TrimPrefix(name, "./")), "/")
	if ext := path.Ext(name); ext != "" {
		for _, e := range moduleExts {
			if ext == e {
				return []string{name}
			}
		}
	}
	var out []string
	if name != "." && name != "" {
		for _, e := range moduleExts {
			out = append(out, name+e)
		}
	}
	for _, e := range moduleExts {
		out = append(out, path.Join(name, "index"+e))
	}
	return out
}

// loadModule reads the first existing candidate for name from fsys. When no
// candidate exists the error matches fs.ErrNotExist.
func loadModule(fsys fs.FS, name string) (Module, string, error) {
	for _, file := range moduleCandidates(name) {
		if !fs.ValidPath(file) {
			continue
		}
		fi, err := fs.Stat(fsys, file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, file, err
		}
		if fi.IsDir() {
			continue
		}
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, file, err
		}
		mod, err := parseModule(data)
		if err != nil {
			return nil, file, routeerr.Configuration(fmt.Sprintf("malformed handler module %s", file), err)
		}
		return mod, file, nil
	}
	return nil, "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func parseModule(data []byte) (Module, error) {
	var raw map[string]Entry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	mod := make(Module, len(raw))
	for k, e := range raw {
		key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(k), "$"))
		if key == "" {
			return nil, errors.New("empty method key")
		}
		if e.Status != 0 && (e.Status < 100 || e.Status > 599) {
			return nil, fmt.Errorf("%s: status %d out of range", key, e.Status)
		}
		if e.Handler == "" {
			if _, err := newStaticResponse(e); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
		mod[key] = e
	}
	return mod, nil
}

// handlerFor turns the module's entry for method into a handler. A missing
// method matches fs.ErrNotExist.
func (m Module) handlerFor(file, method string, funcs map[string]http.Handler) (http.Handler, error) {
	e, ok := m[strings.ToLower(method)]
	if !ok {
		return nil, &fs.PathError{Op: "lookup", Path: file + "#" + MethodKey(method), Err: fs.ErrNotExist}
	}
	if e.Handler != "" {
		h, ok := funcs[e.Handler]
		if !ok || h == nil {
			return nil, routeerr.Configuration(fmt.Sprintf("handler module %s names unregistered function %q", file, e.Handler), nil)
		}
		return h, nil
	}
	s, err := newStaticResponse(e)
	if err != nil {
		return nil, routeerr.Configuration(fmt.Sprintf("handler module %s", file), err)
	}
	return s, nil
}

// StaticResponse answers every request with a fixed status, headers and
// body.
type StaticResponse struct {
	Status      int
	ContentType string
	Headers     map[string]string
	Body        []byte
}

func newStaticResponse(e Entry) (*StaticResponse, error) {
	s := &StaticResponse{Status: e.Status, ContentType: e.ContentType, Headers: e.Headers}
	if s.Status == 0 {
		s.Status = http.StatusOK
	}
	switch b := e.Body.(type) {
	case nil:
	case string:
		s.Body = []byte(b)
		if s.ContentType == "" {
			s.ContentType = "text/plain; charset=utf-8"
		}
	default:
		// Mappings with non-string keys and .nan do not encode.
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("body is not JSON-encodable: %w", err)
		}
		s.Body = data
		if s.ContentType == "" {
			s.ContentType = "application/json"
		}
	}
	return s, nil
}

func (s *StaticResponse) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	for k, v := range s.Headers {
		w.Header().Set(k, v)
	}
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.WriteHeader(s.Status)
	if len(s.Body) > 0 {
		_, _ = w.Write(s.Body)
	}
}
