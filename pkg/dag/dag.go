package dag

import (
	"errors"
	"slices"

	jeterrors "github.com/matzehuels/jet/pkg/errors"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")
)

// Metadata stores arbitrary key-value pairs attached to nodes or the graph,
// such as a module's kind or resolved URL. Metadata maps are never nil after
// insertion.
type Metadata map[string]any

// Node is a module in the dependency graph.
type Node struct {
	ID   string   // Module name
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Edge points from a module to one of its requirements: From requires To.
type Edge struct {
	From string
	To   string
}

// DAG is a directed module dependency graph. Despite the name it can hold
// cycles until [DAG.Validate] rejects them; builders add edges first and
// validate once.
//
// The zero value is not usable; use New. DAG is not safe for concurrent use
// without external synchronization.
type DAG struct {
	nodes    map[string]*Node
	order    []string // insertion order of node IDs
	edges    []Edge
	outgoing map[string][]string // nodeID -> requirement IDs
	incoming map[string][]string // nodeID -> dependent IDs
	meta     Metadata
}

// New creates an empty DAG with optional graph-level metadata.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		meta:     meta,
	}
}

// Meta returns the graph-level metadata map.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode adds a node to the graph.
// Returns ErrInvalidNodeID if the node ID is empty, or ErrDuplicateNodeID
// if a node with the same ID already exists.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	d.nodes[n.ID] = &n
	d.order = append(d.order, n.ID)
	return nil
}

// EnsureNode adds id if it is not in the graph yet and returns its node.
func (d *DAG) EnsureNode(id string) (*Node, error) {
	if n, ok := d.nodes[id]; ok {
		return n, nil
	}
	if err := d.AddNode(Node{ID: id}); err != nil {
		return nil, err
	}
	return d.nodes[id], nil
}

// AddEdge adds a directed edge between two existing nodes. Duplicate edges
// are ignored so that requirement lists can be replayed safely.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(d.outgoing[e.From], e.To) {
		return nil
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// Nodes returns all nodes in insertion order. The pointers refer to the
// graph's own nodes.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, 0, len(d.order))
	for _, id := range d.order {
		nodes = append(nodes, d.nodes[id])
	}
	return nodes
}

// IDs returns node IDs in insertion order.
func (d *DAG) IDs() []string { return slices.Clone(d.order) }

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Children returns the requirements of id in declaration order.
// The returned slice should not be modified.
func (d *DAG) Children(id string) []string { return d.outgoing[id] }

// Parents returns the modules that require id.
// The returned slice should not be modified.
func (d *DAG) Parents(id string) []string { return d.incoming[id] }

// Node returns the node with the given ID.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Sources returns nodes nothing depends on (entry points), in insertion order.
func (d *DAG) Sources() []*Node {
	var out []*Node
	for _, id := range d.order {
		if len(d.incoming[id]) == 0 {
			out = append(out, d.nodes[id])
		}
	}
	return out
}

// Sinks returns nodes without requirements (leaves), in insertion order.
func (d *DAG) Sinks() []*Node {
	var out []*Node
	for _, id := range d.order {
		if len(d.outgoing[id]) == 0 {
			out = append(out, d.nodes[id])
		}
	}
	return out
}

// Validate returns a *errors.CycleError naming the first cycle found, or nil.
// Nodes are visited in insertion order and requirements in declaration order,
// so the reported path is deterministic.
func (d *DAG) Validate() error {
	_, err := d.TopoSort()
	return err
}

// TopoSort orders all nodes so that every requirement comes before the
// modules that need it. Among independent nodes insertion order is kept.
// A cycle yields a *errors.CycleError with the path that closes it.
func (d *DAG) TopoSort() ([]string, error) {
	return d.Closure(d.order...)
}

// Closure returns ids and their transitive requirements, requirements
// first. It is the depth-first expansion used when resolving module
// requests. IDs that are not in the graph are included as leaves.
func (d *DAG) Closure(ids ...string) ([]string, error) {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	out := make([]string, 0, len(d.nodes))
	var stack []string

	var dfs func(id string) error
	dfs = func(id string) error {
		color[id] = gray
		stack = append(stack, id)
		for _, child := range d.outgoing[id] {
			switch color[child] {
			case white:
				if err := dfs(child); err != nil {
					return err
				}
			case gray:
				i := slices.Index(stack, child)
				path := append(slices.Clone(stack[i:]), child)
				return &jeterrors.CycleError{Path: path}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		out = append(out, id)
		return nil
	}

	for _, id := range ids {
		if color[id] == white {
			if err := dfs(id); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Depths assigns every node the length of its longest requirement chain:
// leaves get 0 and each module sits one level above its deepest
// requirement. It fails on cycles like TopoSort.
func (d *DAG) Depths() (map[string]int, error) {
	order, err := d.TopoSort()
	if err != nil {
		return nil, err
	}
	depth := make(map[string]int, len(order))
	for _, id := range order {
		dd := 0
		for _, c := range d.outgoing[id] {
			dd = max(dd, depth[c]+1)
		}
		depth[id] = dd
	}
	return depth, nil
}

// Subgraph returns the graph induced by ids and everything they require.
func (d *DAG) Subgraph(ids ...string) (*DAG, error) {
	keep, err := d.Closure(ids...)
	if err != nil {
		return nil, err
	}
	sub := New(d.meta)
	for _, id := range keep {
		if n, ok := d.nodes[id]; ok {
			sub.AddNode(Node{ID: n.ID, Meta: n.Meta})
		}
	}
	for _, e := range d.edges {
		if _, ok := sub.nodes[e.From]; ok {
			sub.AddEdge(e)
		}
	}
	return sub, nil
}
