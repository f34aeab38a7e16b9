// Package handlers resolves the http.Handler serving each operation.
//
// Handlers live in a Source addressed by the segments of the path template,
// with path parameters kept literally, so "/pets/{id}/items" is looked up
// under pets → {id} → items. The method is selected at the leaf with a
// "$<method>" key. Two sources exist: Tree, an in-memory map, and Dir, a
// directory of YAML/JSON handler modules.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strings"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
)

// Source locates the handler for method at the node addressed by segments.
// A missing node or method is reported with an error matching fs.ErrNotExist.
type Source interface {
	Lookup(ctx context.Context, segments []string, method string) (http.Handler, error)
}

// Checker is implemented by sources that can verify themselves once before
// a build walks them.
type Checker interface {
	Check(ctx context.Context) error
}

// Segments splits a path template into lookup segments. The root path has
// none.
func Segments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// MethodKey is the key a handler for method is stored under.
func MethodKey(method string) string { return "$" + strings.ToLower(method) }

func notFound(segments []string, leaf string) error {
	p := strings.Join(segments, "/")
	if leaf != "" {
		if p == "" {
			p = leaf
		} else {
			p += "/" + leaf
		}
	}
	if p == "" {
		p = "."
	}
	return &fs.PathError{Op: "lookup", Path: p, Err: fs.ErrNotExist}
}

// Tree is an in-memory handler source. Values are either a nested Tree (or
// map[string]any) keyed by path segment, or, under "$<method>" keys, an
// http.Handler or a func(http.ResponseWriter, *http.Request).
//
//	handlers.Tree{
//	    "pets": handlers.Tree{
//	        "$get": listPets,
//	        "{id}": handlers.Tree{"$get": getPet},
//	    },
//	}
type Tree map[string]any

func (t Tree) Lookup(_ context.Context, segments []string, method string) (http.Handler, error) {
	node := t
	for i, seg := range segments {
		child, ok := node[seg]
		if !ok {
			return nil, notFound(segments[:i+1], "")
		}
		sub, ok := asTree(child)
		if !ok {
			return nil, routeerr.Configuration(fmt.Sprintf("handler tree entry %q is %T, want a subtree", strings.Join(segments[:i+1], "/"), child), nil)
		}
		node = sub
	}
	key := MethodKey(method)
	v, ok := node[key]
	if !ok {
		return nil, notFound(segments, key)
	}
	h, ok := asHandler(v)
	if !ok {
		return nil, routeerr.Configuration(fmt.Sprintf("handler tree entry %q is %T, want a handler", strings.Join(append(append([]string{}, segments...), key), "/"), v), nil)
	}
	return h, nil
}

// Check walks the whole tree and rejects values that are neither subtrees
// nor handlers.
func (t Tree) Check(context.Context) error {
	return checkTree(t, nil)
}

func checkTree(t Tree, prefix []string) error {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		at := strings.Join(append(append([]string{}, prefix...), k), "/")
		v := t[k]
		if strings.HasPrefix(k, "$") {
			if _, ok := asHandler(v); !ok {
				return routeerr.Configuration(fmt.Sprintf("handler tree entry %q is %T, want a handler", at, v), nil)
			}
			continue
		}
		sub, ok := asTree(v)
		if !ok {
			return routeerr.Configuration(fmt.Sprintf("handler tree entry %q is %T, want a subtree", at, v), nil)
		}
		if err := checkTree(sub, append(append([]string{}, prefix...), k)); err != nil {
			return err
		}
	}
	return nil
}

func asTree(v any) (Tree, bool) {
	switch x := v.(type) {
	case Tree:
		return x, true
	case map[string]any:
		return Tree(x), true
	}
	return nil, false
}

func asHandler(v any) (http.Handler, bool) {
	switch x := v.(type) {
	case http.Handler:
		return x, x != nil
	case func(http.ResponseWriter, *http.Request):
		return http.HandlerFunc(x), x != nil
	}
	return nil, false
}

// ErrNoSource is returned by Resolver.Resolve when neither a source nor a
// default handler is configured and the operation names no override.
var ErrNoSource = errors.New("handlers: no handler source configured")
