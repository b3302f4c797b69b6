package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/jet/pkg/fetch"
	"github.com/matzehuels/jet/pkg/loader"
	"github.com/matzehuels/jet/pkg/manifest"
)

// useCommand creates the use command, which loads modules over HTTP.
func (c *CLI) useCommand() *cobra.Command {
	var (
		timeout time.Duration
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "use [module...]",
		Short: "Fetch modules into a loader and print their exports",
		Long: `Fetch modules and their requirements from the manifest's base URL,
run their factories in dependency order and print the resulting namespace.

Module bodies are JSON objects whose keys become exports. Bodies are cached
(see 'jet cache'); --refresh bypasses cached entries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.loadManifest()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{loader.All}
			}
			return c.runUse(cmd.Context(), m, args, timeout, refresh)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "fail if modules have not arrived after this long (default from manifest)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached module bodies")
	return cmd
}

func (c *CLI) runUse(ctx context.Context, m *manifest.Manifest, names []string, timeout time.Duration, refresh bool) error {
	store, err := c.newCache(ctx, m)
	if err != nil {
		return err
	}
	defer store.Close()

	inj := fetch.New(fetch.Options{
		Cache:   store,
		TTL:     m.Cache.TTL.D(),
		Refresh: refresh,
		Logger:  c.Logger,
	})
	opts := m.LoaderOptions()
	opts.Logger = c.Logger
	if timeout > 0 {
		opts.Timeout = timeout
	}
	l := loader.New(inj, opts)
	defer l.Close()
	if err := m.Define(l); err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Loading modules...")
	spinner.Start()

	req, err := l.Use(names, nil)
	if err != nil {
		spinner.StopWithError("Invalid request")
		return err
	}
	ns, err := req.Wait(ctx)
	if err != nil {
		spinner.StopWithError("Load failed")
		return fmt.Errorf("use: %w", err)
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Loaded %d modules", len(req.Modules())))

	printSuccess("Request %s dispatched", StyleDim.Render(req.ID()))
	for _, name := range req.Modules() {
		printDetail("%s", name)
	}
	printNewline()
	printNamespace(ns)
	return nil
}

func printNamespace(ns *loader.Namespace) {
	if ns.Len() == 0 {
		printInfo("No exports")
		return
	}
	printInfo("Exports")
	snap := ns.Snapshot()
	for _, k := range ns.Keys() {
		printKeyValue(k, fmt.Sprint(snap[k]))
	}
}
