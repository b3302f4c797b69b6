// Package dag provides the module dependency graph.
//
// # Overview
//
// Every module names the modules it requires. An edge From→To means From
// requires To, so sinks are leaf modules and sources are entry points.
// The loader and the manifest validator use this graph to expand requests
// depth-first, dependencies before dependents, and to detect cycles.
//
// # Basic Usage
//
// Create a new graph with [New], add nodes with [DAG.AddNode], and edges with
// [DAG.AddEdge]:
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "app"})
//	g.AddNode(dag.Node{ID: "event"})
//	g.AddEdge(dag.Edge{From: "app", To: "event"})
//
//	order, err := g.TopoSort() // [event app]
//
// # Cycles
//
// [DAG.Validate], [DAG.TopoSort] and [DAG.Closure] report cycles as
// *errors.CycleError from package jet/pkg/errors, carrying the path that
// closes the cycle, e.g. a -> b -> a. Traversal follows insertion order of
// nodes and declaration order of requirements, so results are deterministic.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. Callers must synchronize
// access if multiple goroutines read or modify the same graph.
package dag
