// Package pkg holds the jet libraries.
//
// # Object model
//
//   - [github.com/matzehuels/jet/pkg/event]: named events with listeners
//   - [github.com/matzehuels/jet/pkg/attr]: declared attributes with
//     validators, setters, getters and change events
//   - [github.com/matzehuels/jet/pkg/base]: the root object with an "on"
//     binding attribute and a destroy lifecycle
//   - [github.com/matzehuels/jet/pkg/class]: prototype classes with
//     extend and augment
//
// # Loading
//
//   - [github.com/matzehuels/jet/pkg/loader]: the asynchronous module
//     loader and its in-process catalog
//   - [github.com/matzehuels/jet/pkg/fetch]: HTTP injector for the loader
//   - [github.com/matzehuels/jet/pkg/manifest]: TOML, YAML and JSON module
//     manifests
//   - [github.com/matzehuels/jet/pkg/dag]: the module dependency graph
//   - [github.com/matzehuels/jet/pkg/cache]: file, Redis and null caches
//     for fetched bodies
//
// # Serving and tooling
//
//   - [github.com/matzehuels/jet/pkg/server]: asset server with a manifest
//     index and hot reload
//   - [github.com/matzehuels/jet/pkg/render/nodelink]: Graphviz and text
//     renderings of the module graph
//   - [github.com/matzehuels/jet/pkg/observability]: loader, cache and HTTP
//     hooks with a Prometheus implementation
//   - [github.com/matzehuels/jet/pkg/errors]: coded errors and the error
//     reporter
//   - [github.com/matzehuels/jet/pkg/buildinfo]: version information
//
// A typical program loads a manifest, defines its modules on a loader backed
// by the HTTP injector and requests what it needs:
//
//	m, _ := manifest.Load("jet.toml")
//	l := loader.New(fetch.New(fetch.Options{}), m.LoaderOptions())
//	defer l.Close()
//	m.Define(l)
//
//	req, _ := l.Use([]string{"class"}, func(ns *loader.Namespace) {
//	    // factories of event, attr, base and class have run, in that order
//	})
//	ns, err := req.Wait(ctx)
package pkg
