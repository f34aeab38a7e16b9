package routes

import (
	"io/fs"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"runtime"

	"github.com/mark3labs/swaggerroutes/internal/handlers"
	"github.com/mark3labs/swaggerroutes/internal/security"
)

// Option configures a build.
type Option func(*config)

type config struct {
	source         handlers.Source
	handlersDir    string
	baseDir        fs.FS
	funcs          map[string]http.Handler
	defaultHandler http.Handler
	schemes        map[string]security.Scheme
	authorizers    map[string]security.AuthorizeFunc
	schemas        map[string]any
	logger         *slog.Logger
	concurrency    int
}

func defaultConfig() config {
	return config{
		logger:      slog.New(slog.DiscardHandler),
		concurrency: runtime.GOMAXPROCS(0),
	}
}

// WithHandlers resolves handlers from src, a handlers.Tree or handlers.Dir.
func WithHandlers(src handlers.Source) Option { return func(c *config) { c.source = src } }

// WithHandlersDir resolves handlers from module files under dir. Module
// entries naming a function use the WithHandlerFuncs registry.
func WithHandlersDir(dir string) Option { return func(c *config) { c.handlersDir = dir } }

// WithBaseDir sets the directory x-handler module names are relative to.
func WithBaseDir(dir string) Option { return func(c *config) { c.baseDir = os.DirFS(dir) } }

// WithBaseFS is WithBaseDir for an arbitrary file system.
func WithBaseFS(fsys fs.FS) Option { return func(c *config) { c.baseDir = fsys } }

// WithHandlerFuncs registers handlers by name for x-handler values and
// module entries.
func WithHandlerFuncs(funcs map[string]http.Handler) Option {
	return func(c *config) { c.funcs = funcs }
}

// WithDefaultHandler serves operations no handler was found for.
func WithDefaultHandler(h http.Handler) Option { return func(c *config) { c.defaultHandler = h } }

// WithSecuritySchemes sets the implementations of the document's security
// schemes by name.
func WithSecuritySchemes(schemes map[string]security.Scheme) Option {
	return func(c *config) { c.schemes = schemes }
}

// WithAuthorizers registers authorize functions named by x-authorize on
// security definitions.
func WithAuthorizers(fns map[string]security.AuthorizeFunc) Option {
	return func(c *config) { c.authorizers = fns }
}

// WithSchemas adds shared schemas, overlaying the document's definitions.
func WithSchemas(schemas map[string]any) Option { return func(c *config) { c.schemas = schemas } }

// WithLogger sets the build logger. A nil logger keeps the default, which
// discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConcurrency bounds the number of handler lookups in flight.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// snapshot copies the caller's maps so later changes do not leak into a
// build in progress.
func (c config) snapshot() config {
	c.funcs = maps.Clone(c.funcs)
	c.schemes = maps.Clone(c.schemes)
	c.authorizers = maps.Clone(c.authorizers)
	c.schemas = maps.Clone(c.schemas)
	return c
}
