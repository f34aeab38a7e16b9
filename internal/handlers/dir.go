package handlers

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
)

// Dir is a directory of handler modules mirroring the path hierarchy:
// "/pets/{id}" resolves to pets/{id}.yaml (or .yml, .json) or to
// pets/{id}/index.yaml, and the root path to index.yaml. Intermediate
// segments must be directories.
type Dir struct {
	FS fs.FS
	// Root is the directory FS was opened from; used in messages only.
	Root string
	// Funcs holds the functions module entries refer to by name.
	Funcs map[string]http.Handler
}

// NewDir opens root on the local filesystem.
func NewDir(root string, funcs map[string]http.Handler) *Dir {
	return &Dir{FS: os.DirFS(root), Root: root, Funcs: funcs}
}

// Check reports whether the directory exists. A missing directory yields an
// error matching fs.ErrNotExist.
func (d *Dir) Check(context.Context) error {
	fi, err := fs.Stat(d.FS, ".")
	if err != nil {
		return routeerr.Resolution(fmt.Sprintf("handlers directory %s", d.name()), &fs.PathError{Op: "stat", Path: d.name(), Err: unwrapPathErr(err)})
	}
	if !fi.IsDir() {
		return routeerr.Configuration(fmt.Sprintf("handlers path %s is not a directory", d.name()), nil)
	}
	return nil
}

func (d *Dir) Lookup(ctx context.Context, segments []string, method string) (http.Handler, error) {
	for i := 0; i < len(segments)-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := path.Join(segments[:i+1]...)
		if !fs.ValidPath(p) {
			return nil, notFound(segments[:i+1], "")
		}
		fi, err := fs.Stat(d.FS, p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			return nil, notFound(segments[:i+1], "")
		}
	}
	name := "."
	if len(segments) > 0 {
		name = path.Join(segments...)
	}
	mod, file, err := loadModule(d.FS, name)
	if err != nil {
		return nil, err
	}
	return mod.handlerFor(file, method, d.Funcs)
}

func (d *Dir) name() string {
	if d.Root != "" {
		return d.Root
	}
	return "."
}

func unwrapPathErr(err error) error {
	if pe, ok := err.(*fs.PathError); ok {
		return pe.Err
	}
	return err
}

// trimModuleName strips a leading "./" and surrounding slashes from an
// x-handler value.
func trimModuleName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "./")
	return strings.Trim(name, "/")
}
