package security

import (
	"errors"
	"net/http"
	"testing"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
)

var errDenied = errors.New("denied")

func allow(*http.Request, []string) error { return nil }
func deny(*http.Request, []string) error  { return errDenied }

func reqs(rs ...map[string][]string) *openapi2.SecurityRequirements {
	out := openapi2.SecurityRequirements(rs)
	return &out
}

func TestResolve_OperationOverridesDocument(t *testing.T) {
	t.Parallel()
	r := &Resolver{Schemes: map[string]Scheme{
		"api_key": {Authorize: allow},
		"oauth":   {Scopes: []string{"read", "write"}, Authorize: deny},
	}}
	doc := openapi2.SecurityRequirements{{"api_key": nil}}

	got, err := r.Resolve(reqs(map[string][]string{"oauth": {"read"}}), doc)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"read"}, got["oauth"].Scopes)
	assert.ErrorIs(t, got["oauth"].Authorize(nil, nil), errDenied)

	// An explicit empty list switches security off.
	got, err = r.Resolve(reqs(), doc)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolve_InheritsDocumentRequirement(t *testing.T) {
	t.Parallel()
	r := &Resolver{Schemes: map[string]Scheme{"api_key": {Authorize: allow}}}
	doc := openapi2.SecurityRequirements{{"api_key": nil}}

	inherited, err := r.Resolve(nil, doc)
	require.NoError(t, err)
	direct, err := r.Resolve(reqs(doc...), nil)
	require.NoError(t, err)

	require.Contains(t, inherited, "api_key")
	assert.Equal(t, direct["api_key"].Scopes, inherited["api_key"].Scopes)
	assert.Empty(t, inherited["api_key"].Scopes)
	assert.NotNil(t, inherited["api_key"].Authorize)
}

func TestResolve_NoRequirements(t *testing.T) {
	t.Parallel()
	got, err := (&Resolver{}).Resolve(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolve_UnknownScheme(t *testing.T) {
	t.Parallel()
	_, err := (&Resolver{}).Resolve(reqs(map[string][]string{"api_key": nil}), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, routeerr.ErrConfiguration)
	assert.Contains(t, err.Error(), `unknown security scheme "api_key"`)
}

func TestResolve_ScopeUnion(t *testing.T) {
	t.Parallel()
	r := &Resolver{Schemes: map[string]Scheme{"oauth": {Authorize: allow}}}
	got, err := r.Resolve(reqs(
		map[string][]string{"oauth": {"read", "write"}},
		map[string][]string{"oauth": {"write", "admin"}},
	), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write", "admin"}, got["oauth"].Scopes)
}

func TestResolve_UndeclaredScope(t *testing.T) {
	t.Parallel()
	r := &Resolver{Schemes: map[string]Scheme{"oauth": {Scopes: []string{"read"}, Authorize: allow}}}
	_, err := r.Resolve(reqs(map[string][]string{"oauth": {"delete"}}), nil)
	assert.ErrorIs(t, err, routeerr.ErrConfiguration)
}

func TestResolve_DefinitionAuthorizer(t *testing.T) {
	t.Parallel()
	r := &Resolver{
		Definitions: map[string]*openapi2.SecurityScheme{
			"petstore_auth": {
				Type:       "oauth2",
				Scopes:     map[string]string{"read:pets": "read", "write:pets": "write"},
				Extensions: map[string]interface{}{AuthorizeExtension: "oauthCheck"},
			},
			"bare": {Type: "apiKey"},
		},
		Authorizers: map[string]AuthorizeFunc{"oauthCheck": deny},
	}

	got, err := r.Resolve(reqs(map[string][]string{"petstore_auth": {"write:pets"}}), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"write:pets"}, got["petstore_auth"].Scopes)
	assert.ErrorIs(t, got["petstore_auth"].Authorize(nil, nil), errDenied)

	_, err = r.Resolve(reqs(map[string][]string{"petstore_auth": {"admin"}}), nil)
	assert.ErrorIs(t, err, routeerr.ErrConfiguration)

	_, err = r.Resolve(reqs(map[string][]string{"bare": nil}), nil)
	assert.ErrorIs(t, err, routeerr.ErrConfiguration)

	r.Authorizers = nil
	_, err = r.Resolve(reqs(map[string][]string{"petstore_auth": nil}), nil)
	assert.ErrorIs(t, err, routeerr.ErrConfiguration)
}

func TestResolve_ConfiguredSchemeWins(t *testing.T) {
	t.Parallel()
	r := &Resolver{
		Schemes: map[string]Scheme{"api_key": {Authorize: allow}},
		Definitions: map[string]*openapi2.SecurityScheme{
			"api_key": {Type: "apiKey", Extensions: map[string]interface{}{AuthorizeExtension: "other"}},
		},
		Authorizers: map[string]AuthorizeFunc{"other": deny},
	}
	got, err := r.Resolve(reqs(map[string][]string{"api_key": nil}), nil)
	require.NoError(t, err)
	assert.NoError(t, got["api_key"].Authorize(nil, nil))
}
