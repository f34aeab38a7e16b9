package routes

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mark3labs/swaggerroutes/internal/handlers"
	"github.com/mark3labs/swaggerroutes/internal/metadata"
	"github.com/mark3labs/swaggerroutes/internal/routeerr"
	"github.com/mark3labs/swaggerroutes/internal/security"
	"github.com/mark3labs/swaggerroutes/internal/spec"
	"github.com/mark3labs/swaggerroutes/internal/validators"
)

// Build compiles the document from src into a route table.
//
// Routes follow the document's path order and, within a path, the order
// get, post, put, delete, patch, head, options. Any failure aborts the build;
// no partial table is returned. Operations without an x-handler are left out
// when neither a handler source nor a default handler is configured.
func Build(ctx context.Context, src spec.Source, opts ...Option) (*Table, error) {
	if src == nil {
		return nil, routeerr.Configuration("no document source", nil)
	}
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cfg = cfg.snapshot()
	log := cfg.logger

	doc, err := src.Document(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.API == nil {
		return nil, routeerr.Configuration("document source returned no document", nil)
	}
	api := doc.API

	resolver, err := cfg.resolver()
	if err != nil {
		return nil, err
	}
	if err := resolver.Check(ctx); err != nil {
		return nil, err
	}
	composer, err := validators.NewComposer(api, cfg.schemas)
	if err != nil {
		return nil, err
	}
	secResolver := &security.Resolver{
		Schemes:     cfg.schemes,
		Definitions: api.SecurityDefinitions,
		Authorizers: cfg.authorizers,
	}

	type job struct {
		path, method, override string
	}
	var (
		built []Route
		jobs  []job
	)
	for _, path := range doc.PathOrder {
		item := api.Paths[path]
		if item == nil {
			continue
		}
		for _, m := range spec.Methods {
			op := spec.Operation(item, m)
			if op == nil {
				continue
			}
			method := string(m)
			md, err := metadata.Extract(op, item, api)
			if err != nil {
				return nil, routeerr.At(err, path, method)
			}
			vs, err := composer.Compose(item.Parameters, op.Parameters)
			if err != nil {
				return nil, routeerr.At(err, path, method)
			}
			sec, err := secResolver.Resolve(op.Security, api.Security)
			if err != nil {
				return nil, routeerr.At(err, path, method)
			}
			name := op.OperationID
			if name == "" {
				name = method + " " + normalizePath(path)
			}
			built = append(built, Route{
				Method:      method,
				Path:        normalizePath(path),
				Name:        name,
				Description: op.Description,
				Validators:  vs,
				Security:    sec,
				Produces:    md.Produces,
				Consumes:    md.Consumes,
				Cache:       md.Cache,
				Policies:    md.Policies,
				JSONP:       md.JSONP,
			})
			jobs = append(jobs, job{path: path, method: method, override: md.Handler})
		}
	}

	// Lookups may touch the file system; run them concurrently into slots
	// indexed like built so the order stays the document's.
	skipped := make([]bool, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			h, err := resolver.Resolve(gctx, j.path, j.method, j.override)
			if errors.Is(err, handlers.ErrNoSource) {
				skipped[i] = true
				log.Debug("skipping operation without handler", "path", j.path, "method", j.method)
				return nil
			}
			if err != nil {
				return err
			}
			built[i].Handler = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := &Table{BasePath: api.BasePath, Routes: make([]Route, 0, len(built))}
	for i, r := range built {
		if !skipped[i] {
			table.Routes = append(table.Routes, r)
		}
	}
	log.Info("built route table",
		"location", doc.Location,
		"routes", len(table.Routes),
		"skipped", len(built)-len(table.Routes),
	)
	return table, nil
}

func (c config) resolver() (*handlers.Resolver, error) {
	if c.source != nil && c.handlersDir != "" {
		return nil, routeerr.Configuration(fmt.Sprintf("both a handler source and handlers directory %q are set", c.handlersDir), nil)
	}
	r := &handlers.Resolver{
		Source:  c.source,
		BaseDir: c.baseDir,
		Funcs:   c.funcs,
		Default: c.defaultHandler,
	}
	if c.handlersDir != "" {
		r.Source = handlers.NewDir(c.handlersDir, c.funcs)
	}
	return r, nil
}
