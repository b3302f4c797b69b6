// Package nodelink draws module dependency graphs as Graphviz node-link
// diagrams.
//
// [ToDOT] produces DOT source: one box per script module, a dashed note
// shape per stylesheet, and an arrow from every module to each module it
// requires. [RenderSVG] lays the graph out in-process with
// [github.com/goccy/go-graphviz].
//
//	g, _ := l.Graph()
//	svg, err := nodelink.RenderSVG(nodelink.ToDOT(g, nodelink.Options{
//	    Loaded: l.Loaded,
//	}))
package nodelink
