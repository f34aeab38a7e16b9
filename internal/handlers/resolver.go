package handlers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
)

// Resolver picks the handler for one operation.
//
// Order: an x-handler override (a registered function, else a module under
// BaseDir); then the Source; then Default when the Source has nothing for
// the path. With neither Source nor Default configured, operations without
// an override resolve to ErrNoSource and are left out of the table.
type Resolver struct {
	Source  Source
	BaseDir fs.FS
	Funcs   map[string]http.Handler
	Default http.Handler
}

// Check verifies the source once, when it supports it.
func (r *Resolver) Check(ctx context.Context) error {
	if c, ok := r.Source.(Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

// Resolve returns the handler for method on path. override is the
// operation's x-handler value, empty when absent.
func (r *Resolver) Resolve(ctx context.Context, path, method, override string) (http.Handler, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	method = strings.ToLower(method)
	if override = strings.TrimSpace(override); override != "" {
		h, err := r.resolveOverride(override, method)
		if err != nil {
			return nil, routeerr.At(err, path, method)
		}
		return h, nil
	}

	if r.Source == nil {
		if r.Default != nil {
			return r.Default, nil
		}
		return nil, ErrNoSource
	}
	h, err := r.Source.Lookup(ctx, Segments(path), method)
	switch {
	case err == nil:
		return h, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case errors.Is(err, fs.ErrNotExist) && r.Default != nil:
		return r.Default, nil
	}
	var re *routeerr.Error
	if errors.As(err, &re) {
		return nil, routeerr.At(err, path, method)
	}
	return nil, routeerr.At(routeerr.Resolution("no handler found", err), path, method)
}

func (r *Resolver) resolveOverride(name, method string) (http.Handler, error) {
	if h, ok := r.Funcs[name]; ok && h != nil {
		return h, nil
	}
	if r.BaseDir == nil {
		return nil, routeerr.Resolution(fmt.Sprintf("x-handler %q is not a registered function and no base directory is set", name), nil)
	}
	mod, file, err := loadModule(r.BaseDir, trimModuleName(name))
	if err != nil {
		var re *routeerr.Error
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, routeerr.Resolution(fmt.Sprintf("x-handler %q", name), err)
	}
	h, err := mod.handlerFor(file, method, r.Funcs)
	if err != nil {
		var re *routeerr.Error
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, routeerr.Resolution(fmt.Sprintf("x-handler %q", name), err)
	}
	return h, nil
}
