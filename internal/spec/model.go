package spec

import (
	"context"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
)

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
)

// Methods lists the operation methods of a Swagger 2.0 path item in the
// order routes are emitted.
var Methods = []HttpMethod{GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS}

// Operation returns the operation declared for m on item, or nil.
func Operation(item *openapi2.PathItem, m HttpMethod) *openapi2.Operation {
	if item == nil {
		return nil
	}
	switch m {
	case GET:
		return item.Get
	case POST:
		return item.Post
	case PUT:
		return item.Put
	case DELETE:
		return item.Delete
	case PATCH:
		return item.Patch
	case HEAD:
		return item.Head
	case OPTIONS:
		return item.Options
	}
	return nil
}

// Document is a parsed Swagger 2.0 description. API is never mutated once
// the document is handed to a builder.
type Document struct {
	API *openapi2.T
	// PathOrder holds the keys of API.Paths in declaration order.
	PathOrder []string
	// Location is the file path or URL the document was read from, if any.
	Location string
}

// Source yields a Document, possibly loading it first.
type Source interface {
	Document(ctx context.Context) (*Document, error)
}

type resolved struct{ doc *Document }

func (r resolved) Document(context.Context) (*Document, error) { return r.doc, nil }

// Resolved wraps an already parsed document.
func Resolved(doc *Document) Source { return resolved{doc: doc} }

type lazy struct {
	input string
	opts  []Option
}

func (l lazy) Document(ctx context.Context) (*Document, error) { return Load(ctx, l.input, l.opts...) }

// FromInput returns a Source that loads input (file path or http/https URL)
// when the document is requested.
func FromInput(input string, opts ...Option) Source { return lazy{input: input, opts: opts} }
