package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/jet/pkg/observability"
	"github.com/matzehuels/jet/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		root    string
		watch   bool
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve module assets and the manifest index over HTTP",
		Long: `Serve the module assets under the manifest's server root together with a
JSON index at /manifest and a health check at /healthz.

With --watch the manifest is reloaded whenever the file changes. With
--metrics Prometheus metrics are exposed at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			m, err := c.loadManifest()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = m.Server.Addr
			}
			if root == "" {
				root = m.ServerRoot()
			}

			opts := server.Options{Root: root, Logger: logger}
			if metrics || m.Server.Metrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				prom := observability.NewPrometheus(reg)
				observability.SetLoaderHooks(prom)
				observability.SetCacheHooks(prom)
				observability.SetHTTPHooks(prom)
				opts.Registry = reg
			}

			srv, err := server.New(m, opts)
			if err != nil {
				return err
			}
			defer srv.Close()
			if watch {
				if err := srv.Watch(); err != nil {
					return err
				}
			}

			printInfo("Serving %s on %s", StyleValue.Render(root), StyleLink.Render("http://"+displayAddr(addr)))
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from manifest, :8080)")
	cmd.Flags().StringVar(&root, "root", "", "asset directory (default from manifest)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the manifest when it changes")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "expose Prometheus metrics at /metrics")
	return cmd
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
