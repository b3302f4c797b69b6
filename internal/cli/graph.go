package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/jet/pkg/dag"
	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/loader"
	"github.com/matzehuels/jet/pkg/manifest"
	"github.com/matzehuels/jet/pkg/render/nodelink"
)

// Graph output formats.
const (
	formatTree = "tree"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

var graphFormats = []string{formatTree, formatDOT, formatSVG}

// graphCommand creates the graph command for drawing the dependency graph.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format string
		output string
		opts   nodelink.Options
	)

	cmd := &cobra.Command{
		Use:   "graph [module...]",
		Short: "Draw the module dependency graph",
		Long: `Draw the module dependency graph as a text tree, Graphviz DOT or SVG.

Arrows point from a module to the modules it requires. Stylesheets are drawn
as dashed notes. With module arguments only those modules and their
requirements are drawn.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(graphFormats, format) {
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want one of %v)", format, graphFormats)
			}
			m, err := c.loadManifest()
			if err != nil {
				return err
			}
			g, err := moduleGraph(m, args)
			if err != nil {
				return err
			}
			data, err := renderGraph(cmd.Context(), g, format, opts)
			if err != nil {
				return err
			}
			if output == "" {
				_, err := os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess("Wrote %s graph", format)
			printFile(output)
			printStats(g.NodeCount(), g.EdgeCount())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTree, "output format: tree, dot, svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "include kind and URL in node labels")
	cmd.Flags().BoolVar(&opts.LeftToRight, "lr", false, "lay out left to right")
	return cmd
}

// moduleGraph returns the manifest graph, restricted to names and their
// requirements when names are given. loader.All selects everything.
func moduleGraph(m *manifest.Manifest, names []string) (*dag.DAG, error) {
	g, err := m.Graph()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 || slices.Contains(names, loader.All) {
		return g, nil
	}
	for _, n := range names {
		if _, ok := g.Node(n); !ok {
			return nil, errors.New(errors.ErrCodeModuleNotFound, "module %q not in manifest", n)
		}
	}
	sub, err := g.Subgraph(names...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDependencyCycle, err, "graph")
	}
	return sub, nil
}

func renderGraph(ctx context.Context, g *dag.DAG, format string, opts nodelink.Options) ([]byte, error) {
	switch format {
	case formatTree:
		return []byte(nodelink.Tree(g)), nil
	case formatDOT:
		return []byte(nodelink.ToDOT(g, opts)), nil
	case formatSVG:
		return nodelink.RenderSVG(ctx, nodelink.ToDOT(g, opts))
	}
	return nil, fmt.Errorf("unknown format %q", format)
}
