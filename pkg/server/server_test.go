package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/fetch"
	"github.com/matzehuels/jet/pkg/loader"
	"github.com/matzehuels/jet/pkg/manifest"
)

var quiet = log.New(io.Discard)

const testManifest = `
base = "/assets/"
timeout = "5s"
poll_interval = "5ms"

[server]
root = "public"

[[modules]]
name = "event"

[[modules]]
name = "attr"
requires = ["event"]

[[modules]]
name = "theme"
kind = "css"
`

// writeSite lays out a manifest and its assets under a temp dir.
func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"jet.toml":                      testManifest,
		"public/assets/event/event.js":  `{"Target": "event.Target"}`,
		"public/assets/attr/attr.js":    `{"Attributes": "attr.Attributes"}`,
		"public/assets/theme/theme.css": "body{}",
	}
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestServer(t *testing.T, reg *prometheus.Registry) (*Server, *httptest.Server, string) {
	t.Helper()
	dir := writeSite(t)
	m, err := manifest.Load(filepath.Join(dir, "jet.toml"))
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(m, Options{Logger: quiet, Registry: reg})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { s.Close() })
	return s, ts, dir
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, body
}

func TestIndex(t *testing.T) {
	_, ts, _ := newTestServer(t, nil)

	code, body := get(t, ts.URL+"/manifest")
	if code != http.StatusOK {
		t.Fatalf("GET /manifest = %d", code)
	}
	var idx Index
	if err := json.Unmarshal(body, &idx); err != nil {
		t.Fatal(err)
	}
	if idx.Base != "/assets/" || len(idx.Modules) != 3 {
		t.Fatalf("index = %+v", idx)
	}
	if got := idx.Modules[2]; got.Name != "theme" || got.Kind != loader.Stylesheet || got.URL != "/assets/theme/theme.css" {
		t.Errorf("theme entry = %+v", got)
	}
}

func TestModuleRoute(t *testing.T) {
	_, ts, _ := newTestServer(t, nil)

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantOrder []string
	}{
		{"leaf", "/manifest/event", http.StatusOK, []string{"event"}},
		{"with requirements", "/manifest/attr", http.StatusOK, []string{"event", "attr"}},
		{"unknown", "/manifest/nope", http.StatusNotFound, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, ts.URL+tt.path)
			if code != tt.wantCode {
				t.Fatalf("GET %s = %d, want %d", tt.path, code, tt.wantCode)
			}
			if tt.wantOrder == nil {
				if !strings.Contains(string(body), string(errors.ErrCodeModuleNotFound)) {
					t.Errorf("body = %s, want %s", body, errors.ErrCodeModuleNotFound)
				}
				return
			}
			var e Entry
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(e.Order, tt.wantOrder) {
				t.Errorf("Order = %v, want %v", e.Order, tt.wantOrder)
			}
		})
	}
}

func TestHealthAndAssets(t *testing.T) {
	_, ts, _ := newTestServer(t, nil)

	if code, body := get(t, ts.URL+"/healthz"); code != http.StatusOK || string(body) != "ok\n" {
		t.Errorf("GET /healthz = %d %q", code, body)
	}
	if code, body := get(t, ts.URL+"/assets/theme/theme.css"); code != http.StatusOK || string(body) != "body{}" {
		t.Errorf("GET theme.css = %d %q", code, body)
	}
	if code, _ := get(t, ts.URL+"/assets/missing.js"); code != http.StatusNotFound {
		t.Errorf("GET missing asset = %d, want 404", code)
	}
	if code, _ := get(t, ts.URL+"/metrics"); code == http.StatusOK {
		t.Error("GET /metrics served without a registry")
	}
}

func TestMetrics(t *testing.T) {
	_, ts, _ := newTestServer(t, prometheus.NewRegistry())

	get(t, ts.URL+"/manifest")
	code, body := get(t, ts.URL+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", code)
	}
	if !strings.Contains(string(body), `jet_server_requests_total{method="GET",status="2xx"}`) {
		t.Errorf("metrics missing request counter:\n%s", body)
	}
}

func TestReload(t *testing.T) {
	s, _, dir := newTestServer(t, nil)
	var reloaded []string
	s.OnReload(func(m *manifest.Manifest) { reloaded = m.Names() })

	path := filepath.Join(dir, "jet.toml")
	if err := os.WriteFile(path, []byte(testManifest+"\n[[modules]]\nname = \"extra\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if len(reloaded) != 4 {
		t.Errorf("OnReload saw %v, want 4 modules", reloaded)
	}

	if err := os.WriteFile(path, []byte("[[modules]]\nname = \"a\"\nrequires = [\"a\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err == nil {
		t.Error("Reload() of cyclic manifest succeeded")
	}
	if got := len(s.Manifest().Modules); got != 4 {
		t.Errorf("after failed reload len(Modules) = %d, want 4", got)
	}
}

func TestWatch(t *testing.T) {
	s, _, dir := newTestServer(t, nil)
	if err := s.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	path := filepath.Join(dir, "jet.toml")
	if err := os.WriteFile(path, []byte(testManifest+"\n[[modules]]\nname = \"extra\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.Manifest().Module("extra"); ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("manifest not reloaded after write")
}

func TestLoaderAgainstServer(t *testing.T) {
	s, ts, _ := newTestServer(t, nil)

	opts := s.Manifest().LoaderOptions()
	opts.Base = ts.URL + opts.Base
	opts.Logger = quiet
	opts.Reporter = errors.Discard

	inj := fetch.New(fetch.Options{Logger: quiet})
	l := loader.New(inj, opts)
	defer l.Close()
	if err := s.Manifest().Define(l); err != nil {
		t.Fatal(err)
	}

	req, err := l.Use([]string{loader.All}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ns, err := req.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if v, _ := ns.Get("Attributes"); v != "attr.Attributes" {
		t.Errorf("Attributes = %v", v)
	}
	if v, _ := ns.Get("Target"); v != "event.Target" {
		t.Errorf("Target = %v", v)
	}
	if !inj.StylesheetLoaded(ts.URL + "/assets/theme/theme.css") {
		t.Error("theme stylesheet not loaded")
	}
}
