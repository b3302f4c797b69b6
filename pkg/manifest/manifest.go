// Package manifest reads module manifests: the base URL, loader timing,
// cache settings and module descriptors for one site.
//
// Manifests are TOML, YAML or JSON, chosen by file extension:
//
//	base = "https://cdn.example.com/jet/"
//	minify = true
//	timeout = "10s"
//
//	[[modules]]
//	name = "attr"
//	requires = ["event"]
//
//	[[modules]]
//	name = "event"
//
//	[[modules]]
//	name = "theme"
//	kind = "css"
//
// Environment variables in the file are expanded before parsing, and
// JET_BASE, JET_MINIFY, JET_TIMEOUT and JET_REDIS_ADDR override the parsed
// values.
package manifest

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/jet/pkg/dag"
	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/loader"
)

// Defaults applied to fields left empty.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 10 * time.Millisecond
	DefaultCacheTTL     = 24 * time.Hour
)

// Manifest describes a module set.
type Manifest struct {
	Base         string          `toml:"base" yaml:"base" json:"base"`
	Minify       bool            `toml:"minify" yaml:"minify" json:"minify"`
	Timeout      Duration        `toml:"timeout" yaml:"timeout" json:"timeout"`
	PollInterval Duration        `toml:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
	Cache        CacheConfig     `toml:"cache" yaml:"cache" json:"cache"`
	Server       ServerConfig    `toml:"server" yaml:"server" json:"server"`
	Modules      []loader.Module `toml:"modules" yaml:"modules" json:"modules"`

	path string
}

// CacheConfig selects where fetched bodies are cached. Redis wins over Dir
// when both are set.
type CacheConfig struct {
	Dir    string   `toml:"dir" yaml:"dir" json:"dir,omitempty"`
	TTL    Duration `toml:"ttl" yaml:"ttl" json:"ttl"`
	Redis  string   `toml:"redis" yaml:"redis" json:"redis,omitempty"`
	Prefix string   `toml:"prefix" yaml:"prefix" json:"prefix,omitempty"`
}

// ServerConfig configures `jet serve`.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr" json:"addr,omitempty"`
	// Root is the asset directory, relative to the manifest.
	Root    string `toml:"root" yaml:"root" json:"root,omitempty"`
	Metrics bool   `toml:"metrics" yaml:"metrics" json:"metrics"`
}

// Format is a manifest encoding.
type Format string

const (
	TOML Format = "toml"
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported manifest extension %q", filepath.Ext(path))
}

// Load reads, parses and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "read manifest")
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	m.path = path
	return m, nil
}

// Parse decodes data, applies environment overrides and defaults, and
// validates the result.
func Parse(data []byte, format Format) (*Manifest, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var m Manifest
	var err error
	switch format {
	case TOML:
		_, err = toml.Decode(string(data), &m)
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&m)
		if stderrors.Is(err, io.EOF) {
			err = nil
		}
	case JSON:
		err = json.Unmarshal(data, &m)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported manifest format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s manifest", format)
	}

	applyEnvOverrides(&m)
	setDefaults(&m)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func applyEnvOverrides(m *Manifest) {
	if v := os.Getenv("JET_BASE"); v != "" {
		m.Base = v
	}
	if v := os.Getenv("JET_MINIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			m.Minify = b
		}
	}
	if v := os.Getenv("JET_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			m.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("JET_REDIS_ADDR"); v != "" {
		m.Cache.Redis = v
	}
}

func setDefaults(m *Manifest) {
	if m.Timeout == 0 {
		m.Timeout = Duration(DefaultTimeout)
	}
	if m.PollInterval == 0 {
		m.PollInterval = Duration(DefaultPollInterval)
	}
	if m.Cache.TTL == 0 {
		m.Cache.TTL = Duration(DefaultCacheTTL)
	}
	if m.Server.Addr == "" {
		m.Server.Addr = ":8080"
	}
}

// Validate checks module names, that every requirement is declared in the
// manifest, and that the requirements are acyclic.
func (m *Manifest) Validate() error {
	if m.Timeout < 0 || m.PollInterval < 0 || m.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidManifest, "durations must not be negative")
	}
	seen := make(map[string]bool, len(m.Modules))
	for _, mod := range m.Modules {
		if err := mod.Validate(); err != nil {
			return err
		}
		if seen[mod.Name] {
			return errors.New(errors.ErrCodeInvalidManifest, "module %q declared twice", mod.Name)
		}
		seen[mod.Name] = true
	}
	for _, mod := range m.Modules {
		for _, r := range mod.Requires {
			if !seen[r] {
				return errors.New(errors.ErrCodeInvalidDependency, "module %q requires undeclared module %q", mod.Name, r)
			}
		}
	}
	g, err := m.Graph()
	if err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeDependencyCycle, err, "manifest")
	}
	return nil
}

// Path returns the file the manifest was loaded from, if any.
func (m *Manifest) Path() string { return m.path }

// Names returns the module names in declaration order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Modules))
	for i, mod := range m.Modules {
		names[i] = mod.Name
	}
	return names
}

// Module returns the descriptor named name.
func (m *Manifest) Module(name string) (loader.Module, bool) {
	i := slices.IndexFunc(m.Modules, func(mod loader.Module) bool { return mod.Name == name })
	if i < 0 {
		return loader.Module{}, false
	}
	return m.Modules[i], true
}

// URL resolves the fetch URL of mod against the manifest's base.
func (m *Manifest) URL(mod loader.Module) string {
	return loader.ResolveURL(m.Base, m.Minify, mod)
}

// Graph builds the requirement graph. It does not check for cycles.
func (m *Manifest) Graph() (*dag.DAG, error) {
	g := dag.New(dag.Metadata{"base": m.Base, "minify": m.Minify})
	for _, mod := range m.Modules {
		n, err := g.EnsureNode(mod.Name)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "module %q", mod.Name)
		}
		n.Meta["kind"] = mod.Kind.String()
		n.Meta["url"] = m.URL(mod)
	}
	for _, mod := range m.Modules {
		for _, r := range mod.Requires {
			if err := g.AddEdge(dag.Edge{From: mod.Name, To: r}); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidDependency, err, "module %q", mod.Name)
			}
		}
	}
	return g, nil
}

// LoaderOptions returns loader options for this manifest. Logger,
// Reporter, Hooks and Ready are left for the caller.
func (m *Manifest) LoaderOptions() loader.Options {
	return loader.Options{
		Base:         m.Base,
		Minify:       m.Minify,
		Timeout:      m.Timeout.D(),
		PollInterval: m.PollInterval.D(),
	}
}

// Define registers every module with l.
func (m *Manifest) Define(l *loader.Loader) error {
	return l.Define(m.Modules...)
}

// ServerRoot resolves Server.Root relative to the manifest file.
func (m *Manifest) ServerRoot() string {
	root := m.Server.Root
	if root == "" {
		root = "."
	}
	if filepath.IsAbs(root) || m.path == "" {
		return root
	}
	return filepath.Join(filepath.Dir(m.path), root)
}
