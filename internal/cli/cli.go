// Package cli implements the jet command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/jet/pkg/buildinfo"
	"github.com/matzehuels/jet/pkg/cache"
	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/manifest"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "jet"

	// defaultManifest is looked up in the working directory when --manifest
	// is not given.
	defaultManifest = "jet.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	manifestPath string
	noCache      bool
	redisAddr    string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "jet resolves, fetches and serves JavaScript modules",
		Long: `jet manages a set of browser modules described by a manifest.

It resolves dependency order, fetches modules over HTTP into a loader,
draws the dependency graph and serves the module assets with a JSON index.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			errors.SetDefault(errors.LogReporter{Logger: c.Logger})
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.manifestPath, "manifest", "m", defaultManifest, "manifest file (.toml, .yaml or .json)")
	pf.BoolVar(&c.noCache, "no-cache", false, "disable the module cache")
	pf.StringVar(&c.redisAddr, "redis", "", "use a Redis cache at this address instead of the file cache")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.useCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Shared Setup
// =============================================================================

// loadManifest reads the manifest named by --manifest.
func (c *CLI) loadManifest() (*manifest.Manifest, error) {
	m, err := manifest.Load(c.manifestPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("manifest loaded", "path", c.manifestPath, "modules", len(m.Modules))
	return m, nil
}

// newCache picks the module cache: none with --no-cache, Redis when an
// address is configured, otherwise the file cache.
func (c *CLI) newCache(ctx context.Context, m *manifest.Manifest) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}

	addr := c.redisAddr
	if addr == "" && m != nil {
		addr = m.Cache.Redis
	}
	if addr != "" {
		var prefix string
		if m != nil {
			prefix = m.Cache.Prefix
		}
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{Addr: addr, Prefix: prefix})
		if err != nil {
			return nil, err
		}
		return cache.Instrument(rc, "redis"), nil
	}

	dir := ""
	if m != nil {
		dir = m.Cache.Dir
	}
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.Instrument(fc, "file"), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/jet/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
