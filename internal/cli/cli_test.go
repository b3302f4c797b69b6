package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/jet/pkg/cache"
	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/manifest"
	"github.com/matzehuels/jet/pkg/render/nodelink"
)

const testManifest = `
base = "https://cdn.example.com/"

[[modules]]
name = "event"

[[modules]]
name = "attr"
requires = ["event"]

[[modules]]
name = "base"
requires = ["attr"]

[[modules]]
name = "theme"
kind = "css"
`

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jet.toml")
	if err := os.WriteFile(path, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func parseManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(testManifest), manifest.TOML)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func names(mods []resolvedModule) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Name
	}
	return out
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error = %v", err)
	}
	if want := filepath.Join("/tmp/xdg", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}

	t.Setenv("XDG_CACHE_HOME", "")
	dir, err = cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error = %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestResolve(t *testing.T) {
	m := parseManifest(t)

	tests := []struct {
		name  string
		args  []string
		want  []string
		wantC errors.Code
	}{
		{"all", nil, []string{"event", "attr", "base", "theme"}, ""},
		{"wildcard", []string{"*"}, []string{"event", "attr", "base", "theme"}, ""},
		{"subset", []string{"base"}, []string{"event", "attr", "base"}, ""},
		{"leaf", []string{"theme"}, []string{"theme"}, ""},
		{"unknown", []string{"nope"}, nil, errors.ErrCodeModuleNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mods, err := resolve(m, tt.args)
			if tt.wantC != "" {
				if !errors.Is(err, tt.wantC) {
					t.Fatalf("resolve() error = %v, want %s", err, tt.wantC)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve() error = %v", err)
			}
			if got := names(mods); !slices.Equal(got, tt.want) {
				t.Errorf("resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveURLs(t *testing.T) {
	mods, err := resolve(parseManifest(t), []string{"theme"})
	if err != nil {
		t.Fatal(err)
	}
	if mods[0].URL != "https://cdn.example.com/theme/theme.css" {
		t.Errorf("URL = %q", mods[0].URL)
	}
}

func TestRenderGraph(t *testing.T) {
	g, err := moduleGraph(parseManifest(t), []string{"base"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tree, err := renderGraph(ctx, g, formatTree, nodelink.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if want := "base\n└── attr\n    └── event\n"; string(tree) != want {
		t.Errorf("tree =\n%s\nwant\n%s", tree, want)
	}

	dot, err := renderGraph(ctx, g, formatDOT, nodelink.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dot), `"attr" -> "event";`) {
		t.Errorf("dot missing edge:\n%s", dot)
	}

	if _, err := renderGraph(ctx, g, "png", nodelink.Options{}); err == nil {
		t.Error("renderGraph(png) error = nil")
	}
}

func TestClearCache(t *testing.T) {
	dir := t.TempDir()
	if n, err := clearCache(filepath.Join(dir, "missing")); n != 0 || err != nil {
		t.Errorf("clearCache(missing) = %d, %v, want 0, nil", n, err)
	}

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := fc.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	n, err := clearCache(dir)
	if err != nil || n == 0 {
		t.Fatalf("clearCache() = %d, %v", n, err)
	}
	if _, hit, _ := fc.Get(ctx, "k"); hit {
		t.Error("entry survived clearCache")
	}
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()
	c := New(io.Discard, LogInfo)

	c.noCache = true
	got, err := c.newCache(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(cache.NullCache); !ok {
		t.Errorf("newCache(--no-cache) = %T, want cache.NullCache", got)
	}

	c.noCache = false
	m := parseManifest(t)
	m.Cache.Dir = t.TempDir()
	got, err = c.newCache(ctx, m)
	if err != nil {
		t.Fatal(err)
	}
	if err := got.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := got.Get(ctx, "k"); !hit {
		t.Error("file cache from manifest dir missed after Set")
	}
}

func TestRootCommandResolve(t *testing.T) {
	var logs bytes.Buffer
	c := New(&logs, log.DebugLevel)
	root := c.RootCommand()
	root.SetArgs([]string{"resolve", "-m", writeManifest(t), "base"})
	root.SetOut(io.Discard)

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(logs.String(), "manifest loaded") {
		t.Errorf("debug log missing manifest load:\n%s", logs.String())
	}
}

func TestRootCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing manifest", []string{"resolve", "-m", "/nonexistent/jet.toml"}},
		{"bad graph format", []string{"graph", "-f", "gif"}},
		{"unknown shell", []string{"completion", "tcsh"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := New(io.Discard, LogInfo).RootCommand()
			root.SetArgs(tt.args)
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			if err := root.ExecuteContext(context.Background()); err == nil {
				t.Error("Execute() error = nil")
			}
		})
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	var got []string
	for _, cmd := range root.Commands() {
		got = append(got, cmd.Name())
	}
	for _, want := range []string{"resolve", "graph", "use", "serve", "cache", "completion"} {
		if !slices.Contains(got, want) {
			t.Errorf("subcommand %q missing from %v", want, got)
		}
	}
}
