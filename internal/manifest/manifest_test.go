package manifest

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi2"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swaggerroutes/internal/handlers"
	"github.com/mark3labs/swaggerroutes/internal/metadata"
	"github.com/mark3labs/swaggerroutes/internal/routes"
	"github.com/mark3labs/swaggerroutes/internal/security"
	"github.com/mark3labs/swaggerroutes/internal/validators"
)

func sampleTable(t *testing.T) *routes.Table {
	t.Helper()
	c, err := validators.NewComposer(nil, nil)
	if err != nil {
		t.Fatalf("composer: %v", err)
	}
	vs, err := c.Compose(openapi2.Parameters{{In: "path", Name: "id", Required: true, Type: "integer"}}, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	return &routes.Table{
		BasePath: "/v1",
		Routes: []routes.Route{
			{
				Method:   "get",
				Path:     "/pets",
				Name:     "listPets",
				Handler:  http.NotFoundHandler(),
				Produces: []string{"application/json"},
				Cache:    &metadata.Cache{Statuses: []int{200}, ExpiresIn: 30 * time.Second, Privacy: "public"},
				Policies: []string{"isLoggedIn", "logThis"},
				JSONP:    "callback",
				Security: map[string]security.Requirement{"oauth": {Scopes: []string{"read"}}},
			},
			{
				Method:     "get",
				Path:       "/pets/{id}",
				Name:       "get /pets/{id}",
				Handler:    &handlers.StaticResponse{Status: 204},
				Validators: vs,
			},
		},
	}
}

func TestFromTable(t *testing.T) {
	t.Parallel()
	m := FromTable(sampleTable(t), Info{Title: "Pets", Version: "1.0.0", Source: "swagger.yaml"})
	if m.BasePath != "/v1" || len(m.Routes) != 2 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	list := m.Routes[0]
	if list.Cache == nil || list.Cache.ExpiresIn != "30s" {
		t.Fatalf("cache: %+v", list.Cache)
	}
	if got := list.Security["oauth"]; len(got) != 1 || got[0] != "read" {
		t.Fatalf("security: %v", list.Security)
	}
	one := m.Routes[1]
	if one.Handler != "static 204" {
		t.Fatalf("handler: %q", one.Handler)
	}
	if len(one.Parameters) != 1 || one.Parameters[0].Name != "id" || !one.Parameters[0].Required || one.Parameters[0].Scope != "path" {
		t.Fatalf("parameters: %+v", one.Parameters)
	}
	if names := m.SchemeNames(); len(names) != 1 || names[0] != "oauth" {
		t.Fatalf("scheme names: %v", names)
	}

	empty := FromTable(nil, Info{})
	if empty.Routes == nil {
		t.Fatalf("expected non-nil routes on empty manifest")
	}
}

func TestRender_Formats(t *testing.T) {
	t.Parallel()
	m := FromTable(sampleTable(t), Info{Title: "Pets"})

	js, err := Render(m, "json")
	if err != nil {
		t.Fatalf("render json: %v", err)
	}
	var back Manifest
	if err := json.Unmarshal(js, &back); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if back.Routes[0].JSONP != "callback" {
		t.Fatalf("json roundtrip lost jsonp: %+v", back.Routes[0])
	}

	ym, err := Render(m, "YAML")
	if err != nil {
		t.Fatalf("render yaml: %v", err)
	}
	var node map[string]any
	if err := yaml.Unmarshal(ym, &node); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if node["basePath"] != "/v1" {
		t.Fatalf("yaml basePath: %v", node["basePath"])
	}
	if !strings.Contains(string(ym), "policies:\n") {
		t.Fatalf("expected policies in yaml:\n%s", ym)
	}

	if _, err := Render(m, "toml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	res, err := Emit(context.Background(), FromTable(sampleTable(t), Info{}), Options{OutDir: dir, Format: "json", DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(res.Planned) != 1 || res.Planned[0].RelPath != "routes.json" || res.Planned[0].Size == 0 {
		t.Fatalf("plan: %+v", res.Planned)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected no files written on dry-run")
	}
}

func TestEmit_WriteAndForce(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "out")
	m := FromTable(sampleTable(t), Info{})

	if _, err := Emit(context.Background(), m, Options{OutDir: dir}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "routes.yaml"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if !strings.Contains(string(data), "listPets") {
		t.Fatalf("unexpected manifest:\n%s", data)
	}

	if _, err := Emit(context.Background(), m, Options{OutDir: dir}); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing-file error, got %v", err)
	}
	if _, err := Emit(context.Background(), m, Options{OutDir: dir, Force: true}); err != nil {
		t.Fatalf("emit with force: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestEmit_RequiresOutDir(t *testing.T) {
	t.Parallel()
	if _, err := Emit(context.Background(), Manifest{}, Options{}); err == nil {
		t.Fatalf("expected error without OutDir")
	}
}
