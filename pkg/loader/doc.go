// Package loader implements an asynchronous, dependency-resolving module
// loader.
//
// A [Loader] keeps a registry of module descriptors ([Module]) and of the
// factories that have arrived for them. Application code requests modules
// with [Loader.Use]; fetched modules announce themselves with
// [Loader.Add]. Each request moves through these states:
//
//	Pending ──all modules added──▶ Ready ──host ready──▶ Dispatched
//	   │                             │
//	   └──timeout / fetch error──────┴──factory panic / Close──▶ Failed
//
// On dispatch a fresh [Namespace] is created and every module factory runs
// against it in the request's resolved order, requirements first. The
// callback then receives the populated namespace.
//
// # Fetching
//
// The loader never fetches anything itself. An [Injector] does, and the
// fetched module calls Add when it is ready. A module is fetched at most once
// while its fetch is in flight, even when several modules share a URL, and a
// single Add satisfies every pending request that names the module. A failed fetch is forgotten so
// that a later Use retries it.
//
// [Catalog] serves factories compiled into the binary. Package fetch
// provides an HTTP injector.
//
// # Example
//
//	cat := loader.NewCatalog().
//	    Register("event", func(ns *loader.Namespace) { ns.Set("Target", event.NewTarget) }).
//	    Register("app", func(ns *loader.Namespace) { ... })
//
//	l := loader.New(cat, loader.Options{Timeout: 5 * time.Second})
//	defer l.Close()
//	l.Define(loader.Module{Name: "app", Requires: []string{"event"}})
//
//	req, err := l.Use([]string{"app"}, func(ns *loader.Namespace) {
//	    // "event" ran before "app"
//	})
//	ns, err := req.Wait(ctx)
package loader
