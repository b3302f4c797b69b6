package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/matzehuels/jet/pkg/loader"
	"github.com/matzehuels/jet/pkg/manifest"
)

// resolvedModule is one line of `jet resolve` output.
type resolvedModule struct {
	Name string      `json:"name"`
	Kind loader.Kind `json:"kind"`
	URL  string      `json:"url"`
}

// resolveCommand creates the resolve command, which prints load order.
func (c *CLI) resolveCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve [module...]",
		Short: "Print the load order of modules and their requirements",
		Long: `Print the order in which modules are loaded, requirements first.

Without arguments every module in the manifest is resolved. The order is the
one a loader uses when running module factories.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.loadManifest()
			if err != nil {
				return err
			}
			mods, err := resolve(m, args)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(mods)
			}
			printResolved(mods)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// resolve returns names and their requirements in load order. No names
// means every module.
func resolve(m *manifest.Manifest, names []string) ([]resolvedModule, error) {
	g, err := moduleGraph(m, names)
	if err != nil {
		return nil, err
	}
	order, err := g.TopoSort()
	if err != nil {
		return nil, err
	}
	out := make([]resolvedModule, 0, len(order))
	for _, name := range order {
		mod, ok := m.Module(name)
		if !ok {
			mod = loader.Module{Name: name}
		}
		out = append(out, resolvedModule{Name: name, Kind: mod.Kind, URL: m.URL(mod)})
	}
	return out, nil
}

func printResolved(mods []resolvedModule) {
	for i, mod := range mods {
		fmt.Printf("%s %s %s\n",
			StyleNumber.Render(fmt.Sprintf("%3d", i+1)),
			StyleValue.Render(fmt.Sprintf("%-24s", mod.Name)),
			StyleLink.Render(mod.URL))
	}
	printStats(len(mods), 0)
}
