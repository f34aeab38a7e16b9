package e2e

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cli "github.com/mark3labs/swaggerroutes/internal/cli"
	"github.com/mark3labs/swaggerroutes/internal/routeerr"
	"github.com/mark3labs/swaggerroutes/internal/routes"
	"github.com/mark3labs/swaggerroutes/internal/spec"
)

const petStore = "" +
	"swagger: '2.0'\n" +
	"info:\n" +
	"  title: E2E Sample\n" +
	"  version: '1.0.0'\n" +
	"basePath: /api\n" +
	"produces:\n" +
	"  - application/json\n" +
	"paths:\n" +
	"  /pets:\n" +
	"    get:\n" +
	"      operationId: listPets\n" +
	"      x-jsonp: callback\n" +
	"      x-cache:\n" +
	"        statuses: [200, 304]\n" +
	"        expiresIn: 2m\n" +
	"        privacy: public\n" +
	"      x-policies: [isLoggedIn, logThis]\n" +
	"      parameters:\n" +
	"        - name: limit\n" +
	"          in: query\n" +
	"          type: integer\n" +
	"          maximum: 50\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n" +
	"  /pets/{id}:\n" +
	"    parameters:\n" +
	"      - name: id\n" +
	"        in: path\n" +
	"        required: true\n" +
	"        type: integer\n" +
	"    get:\n" +
	"      operationId: getPet\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n" +
	"    delete:\n" +
	"      operationId: deletePet\n" +
	"      x-handler: admin/remove\n" +
	"      responses:\n" +
	"        '204':\n" +
	"          description: gone\n"

// writeProject lays out the document, a handlers tree and an x-handler
// module next to the document.
func writeProject(t *testing.T) (specPath, handlersDir string) {
	t.Helper()
	dir := t.TempDir()
	specPath = filepath.Join(dir, "swagger.yaml")
	handlersDir = filepath.Join(dir, "handlers")
	files := map[string]string{
		"swagger.yaml":            petStore,
		"handlers/pets.yaml":      "get:\n  body: [{id: 1}]\n",
		"handlers/pets/{id}.yaml": "get:\n  body: {id: 1}\n",
		"admin/remove.yaml":       "delete:\n  status: 204\n",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return specPath, handlersDir
}

func runCLI(t *testing.T, args ...string) {
	t.Helper()
	root := cli.NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("cli execute %v: %v", args, err)
	}
}

func digestDir(t *testing.T, dir string) (files []string, sum string) {
	t.Helper()
	var list []string
	h := sha256.New()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		list = append(list, rel)
		_, _ = h.Write([]byte(rel))
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		_, _ = h.Write(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	sort.Strings(list)
	return list, hex.EncodeToString(h.Sum(nil))
}

func TestE2E_Routes_Deterministic(t *testing.T) {
	t.Parallel()
	specPath, handlersDir := writeProject(t)

	for _, format := range []string{"yaml", "json"} {
		dir1 := t.TempDir()
		dir2 := t.TempDir()

		runCLI(t, "routes", "--input", specPath, "--handlers", handlersDir, "--format", format, "--out", dir1, "--concurrency", "1")
		runCLI(t, "routes", "--input", specPath, "--handlers", handlersDir, "--format", format, "--out", dir2, "--concurrency", "8")

		files1, sum1 := digestDir(t, dir1)
		files2, sum2 := digestDir(t, dir2)
		if !assert.Equal(t, files1, files2) || sum1 != sum2 {
			t.Fatalf("%s manifests differ between runs\nfiles1=%v\nfiles2=%v\nsum1=%s\nsum2=%s", format, files1, files2, sum1, sum2)
		}
		assert.Equal(t, []string{"routes." + format}, files1)
	}
}

func TestE2E_ServeMatchedRoutes(t *testing.T) {
	t.Parallel()
	specPath, handlersDir := writeProject(t)
	ctx := context.Background()

	table, err := routes.Build(ctx, spec.FromInput(specPath),
		routes.WithHandlersDir(handlersDir),
		routes.WithBaseDir(filepath.Dir(specPath)),
	)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, "/api", table.BasePath)

	list, err := table.Match("/pets", http.MethodGet, "application/json")
	require.NoError(t, err)
	assert.Equal(t, "callback", list.JSONP)
	assert.Equal(t, []string{"isLoggedIn", "logThis"}, list.Policies)
	require.NotNil(t, list.Cache)
	assert.Equal(t, []int{200, 304}, list.Cache.Statuses)
	require.Len(t, list.Validators, 1)
	assert.NoError(t, list.Validators[0].Validate("10"))
	assert.ErrorIs(t, list.Validators[0].Validate("51"), routeerr.ErrValidation)

	rec := httptest.NewRecorder()
	list.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pets", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1}]`, rec.Body.String())

	one, err := table.Match("/pets/{id}", http.MethodGet, "")
	require.NoError(t, err)
	require.Len(t, one.Validators, 1)
	assert.ErrorIs(t, one.Validators[0].Validate(nil), routeerr.ErrValidation)
	assert.NoError(t, one.Validators[0].Validate("7"))

	del, err := table.Match("/pets/{id}", http.MethodDelete, "")
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	del.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/pets/7", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = table.Match("/pets", http.MethodGet, "text/html")
	assert.ErrorIs(t, err, routeerr.ErrMediaType)
	_, err = table.Match("/owners", http.MethodGet, "")
	assert.True(t, errors.Is(err, routes.ErrRouteNotFound))
}
