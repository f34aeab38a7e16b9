package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/swaggerroutes/internal/handlers"
	"github.com/mark3labs/swaggerroutes/internal/routes"
	"github.com/mark3labs/swaggerroutes/internal/security"
	"github.com/mark3labs/swaggerroutes/internal/spec"
)

// newLogger writes text logs to w: debug and up when verbose, warnings
// otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// notImplemented serves operations built with --stub-handlers.
var notImplemented = &handlers.StaticResponse{
	Status:      http.StatusNotImplemented,
	ContentType: "application/json",
	Body:        []byte(`{"message":"not implemented"}`),
}

// errStubSecurity is what stubbed schemes answer to every request.
var errStubSecurity = errors.New("security scheme is stubbed")

func stubAuthorize(*http.Request, []string) error { return errStubSecurity }

// buildTable loads cfg.Input and builds its route table.
func buildTable(ctx context.Context, cfg *BuildConfig, logger *slog.Logger) (*spec.Document, *routes.Table, error) {
	doc, err := spec.Load(ctx, cfg.Input, spec.WithValidation(cfg.Validate), spec.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	opts := []routes.Option{routes.WithLogger(logger)}
	if cfg.HandlersDir != "" {
		opts = append(opts, routes.WithHandlersDir(cfg.HandlersDir))
	}
	if baseDir := resolveBaseDir(cfg); baseDir != "" {
		opts = append(opts, routes.WithBaseDir(baseDir))
	}
	if cfg.StubHandlers {
		opts = append(opts, routes.WithDefaultHandler(notImplemented))
	}
	if cfg.StubSecurity {
		opts = append(opts, routes.WithSecuritySchemes(stubSchemes(doc)))
	}
	if cfg.Concurrency > 0 {
		opts = append(opts, routes.WithConcurrency(cfg.Concurrency))
	}

	table, err := routes.Build(ctx, spec.Resolved(doc), opts...)
	if err != nil {
		return nil, nil, err
	}
	return doc, table, nil
}

// resolveBaseDir defaults the x-handler base to the directory of a local
// document.
func resolveBaseDir(cfg *BuildConfig) string {
	if cfg.BaseDir != "" {
		return cfg.BaseDir
	}
	lower := strings.ToLower(cfg.Input)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ""
	}
	return filepath.Dir(cfg.Input)
}

func stubSchemes(doc *spec.Document) map[string]security.Scheme {
	schemes := make(map[string]security.Scheme, len(doc.API.SecurityDefinitions))
	for name, def := range doc.API.SecurityDefinitions {
		s := security.Scheme{Authorize: stubAuthorize}
		if def != nil {
			for scope := range def.Scopes {
				s.Scopes = append(s.Scopes, scope)
			}
			sort.Strings(s.Scopes)
		}
		schemes[name] = s
	}
	return schemes
}
