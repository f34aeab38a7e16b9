package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
)

func matchRoutes() []Route {
	return []Route{
		{Method: "get", Path: "/pets", Name: "listPets", Produces: []string{"application/json"}},
		{Method: "post", Path: "/pets", Name: "createPet", Produces: []string{"application/json"}, Consumes: []string{"application/x-www-form-urlencoded"}},
		{Method: "get", Path: "/", Name: "root"},
	}
}

func TestMatch_MediaType(t *testing.T) {
	t.Parallel()
	routes := matchRoutes()

	r, err := Match(routes, "/pets", "get", "application/json")
	require.NoError(t, err)
	assert.Equal(t, "listPets", r.Name)

	_, err = Match(routes, "/pets", "get", "text/xml")
	require.Error(t, err)
	assert.ErrorIs(t, err, routeerr.ErrMediaType)
	assert.Equal(t, routeerr.MediaTypeError, routeerr.CodeOf(err))
}

func TestMatch_Normalization(t *testing.T) {
	t.Parallel()
	routes := matchRoutes()

	r, err := Match(routes, " /pets/ ", " GET ", "Application/JSON; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "listPets", r.Name)

	r, err = Match(routes, "//pets", "post", "application/x-www-form-urlencoded")
	require.NoError(t, err)
	assert.Equal(t, "createPet", r.Name)
}

func TestMatch_Wildcards(t *testing.T) {
	t.Parallel()
	routes := matchRoutes()
	for _, mt := range []string{"*/*", "application/*", ""} {
		r, err := Match(routes, "/pets", "get", mt)
		require.NoError(t, err, mt)
		assert.Equal(t, "listPets", r.Name)
	}
	_, err := Match(routes, "/pets", "get", "text/*")
	assert.ErrorIs(t, err, routeerr.ErrMediaType)

	// Substrings of a declared type are not enough.
	_, err = Match(routes, "/pets", "get", "application/js")
	assert.ErrorIs(t, err, routeerr.ErrMediaType)

	// A route declaring no media types accepts anything.
	r, err := Match(routes, "/", "get", "text/html")
	require.NoError(t, err)
	assert.Equal(t, "root", r.Name)
}

func TestMatch_NotFound(t *testing.T) {
	t.Parallel()
	_, err := Match(matchRoutes(), "/owners", "get", "application/json")
	assert.ErrorIs(t, err, ErrRouteNotFound)

	_, err = Match(matchRoutes(), "/pets", "delete", "")
	assert.ErrorIs(t, err, ErrRouteNotFound)

	table := &Table{Routes: matchRoutes()}
	r, err := table.Match("/pets", "post", "application/json")
	require.NoError(t, err)
	assert.Equal(t, "createPet", r.Name)
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"":                "/",
		"/":               "/",
		"pets":            "/pets",
		"/pets/":          "/pets",
		"//pets//{id}/":   "/pets/{id}",
		" /pets/{id}/x/ ": "/pets/{id}/x",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), in)
	}
}
