package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
	"github.com/mark3labs/swaggerroutes/internal/spec"
)

const doc = `swagger: "2.0"
info: {title: Pets, version: "1.0.0"}
produces: [application/json]
consumes: [application/json]
x-cache: {expiresIn: 1000}
paths:
  /pets:
    x-policies: [fromPathItem]
    x-handler: handlers/pets
    get:
      produces: [application/xml]
      x-jsonp: callback
      x-cache:
        statuses: [200, "304"]
        expiresIn: 90s
        privacy: Private
      x-policies: [isLoggedIn, addTracking, logThis]
      responses: {"200": {description: ok}}
    post:
      x-handler: handlers/create
      responses: {"200": {description: ok}}
`

func load(t *testing.T, src string) *openapi2.T {
	t.Helper()
	d, err := spec.Parse(context.Background(), []byte(src), spec.WithValidation(false))
	require.NoError(t, err)
	return d.API
}

func TestExtract_OperationLevel(t *testing.T) {
	t.Parallel()
	api := load(t, doc)
	item := api.Paths["/pets"]

	md, err := Extract(item.Get, item, api)
	require.NoError(t, err)
	assert.Equal(t, []string{"application/xml"}, md.Produces)
	assert.Equal(t, []string{"application/json"}, md.Consumes)
	assert.Equal(t, "callback", md.JSONP)
	assert.Equal(t, []string{"isLoggedIn", "addTracking", "logThis"}, md.Policies)
	require.NotNil(t, md.Cache)
	assert.Equal(t, []int{200, 304}, md.Cache.Statuses)
	assert.Equal(t, 90*time.Second, md.Cache.ExpiresIn)
	assert.Equal(t, PrivacyPrivate, md.Cache.Privacy)
	assert.Equal(t, "handlers/pets", md.Handler)
}

func TestExtract_Inheritance(t *testing.T) {
	t.Parallel()
	api := load(t, doc)
	item := api.Paths["/pets"]

	md, err := Extract(item.Post, item, api)
	require.NoError(t, err)
	assert.Equal(t, []string{"application/json"}, md.Produces)
	assert.Equal(t, []string{"fromPathItem"}, md.Policies)
	assert.Equal(t, "handlers/create", md.Handler)
	assert.Empty(t, md.JSONP)
	require.NotNil(t, md.Cache)
	assert.Equal(t, time.Second, md.Cache.ExpiresIn)
	assert.Equal(t, []int{200}, md.Cache.Statuses)
	assert.Equal(t, PrivacyDefault, md.Cache.Privacy)
}

func TestExtract_HandlerNotInheritedFromDocument(t *testing.T) {
	t.Parallel()
	api := &openapi2.T{Extensions: map[string]interface{}{ExtHandler: "everything"}}
	op := &openapi2.Operation{}
	md, err := Extract(op, &openapi2.PathItem{}, api)
	require.NoError(t, err)
	assert.Empty(t, md.Handler)
	assert.Nil(t, md.Cache)
	assert.Nil(t, md.Policies)
}

func TestExtract_PoliciesFromString(t *testing.T) {
	t.Parallel()
	op := &openapi2.Operation{Extensions: map[string]interface{}{ExtPolicies: "a,b"}}
	md, err := Extract(op, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, md.Policies)
}

func TestExtract_Malformed(t *testing.T) {
	t.Parallel()
	cases := map[string]map[string]interface{}{
		"cache not object":  {ExtCache: "yes"},
		"cache bad privacy": {ExtCache: map[string]interface{}{"privacy": "secret"}},
		"cache bad status":  {ExtCache: map[string]interface{}{"statuses": []interface{}{"ok"}}},
		"cache unknown key": {ExtCache: map[string]interface{}{"ttl": 5}},
		"cache negative":    {ExtCache: map[string]interface{}{"expiresIn": -5}},
		"policies object":   {ExtPolicies: map[string]interface{}{"a": 1}},
		"jsonp number":      {ExtJSONP: 3.0},
		"handler list":      {ExtHandler: []interface{}{"a"}},
	}
	for name, ext := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Extract(&openapi2.Operation{Extensions: ext}, nil, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, routeerr.ErrConfiguration)
		})
	}
}
