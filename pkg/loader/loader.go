package loader

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/jet/pkg/dag"
	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/observability"
)

// All is the request marker that expands to every defined module.
const All = "*"

// DefaultPollInterval is used for Ready and stylesheet polling when
// Options.PollInterval is zero.
const DefaultPollInterval = 10 * time.Millisecond

// Factory attaches a module's exports to the namespace.
type Factory func(ns *Namespace)

// Callback receives the populated namespace of a dispatched request.
type Callback func(ns *Namespace)

// Registrar is the side of the loader a fetched module talks to.
type Registrar interface {
	Add(name string, f Factory)
}

// Injector performs the actual fetches.
//
// LoadScript starts loading the module at url. The module arrives when
// somebody calls r.Add with its name, which may happen before or after
// LoadScript returns, from any goroutine. A non-nil error means the module
// will never arrive.
//
// LoadStylesheet applies the stylesheet at url. If the injector also
// implements StylesheetProber the loader polls it until the stylesheet is
// reported applied; otherwise a nil return counts as applied.
type Injector interface {
	LoadScript(ctx context.Context, url string, m Module, r Registrar) error
	LoadStylesheet(ctx context.Context, url string, m Module) error
}

// StylesheetProber reports whether a stylesheet requested through
// LoadStylesheet has been applied.
type StylesheetProber interface {
	StylesheetLoaded(url string) bool
}

// ReadyFunc reports whether the host is ready to run callbacks. Dispatch
// waits until it returns true.
type ReadyFunc func() bool

// Options configure a Loader. The zero value is usable.
type Options struct {
	// Base is prefixed to derived module URLs.
	Base string
	// Minify selects ".min" assets.
	Minify bool
	// Timeout fails requests still pending after this long with
	// DEPENDENCY_UNRESOLVED. Zero waits forever.
	Timeout time.Duration
	// PollInterval paces Ready and stylesheet polling.
	PollInterval time.Duration
	// Ready gates dispatch. Nil means always ready.
	Ready ReadyFunc
	// Logger receives debug traces. Defaults to log.Default().
	Logger *log.Logger
	// Reporter receives every request failure. Defaults to errors.Default().
	Reporter errors.Reporter
	// Hooks receives instrumentation events. Defaults to observability.Loader().
	Hooks observability.LoaderHooks
}

// Loader is an asynchronous, idempotent module registry.
//
// Use requests modules and a callback; Add records a module factory as it
// arrives. A module is fetched at most once no matter how many requests name
// it, and every pending request that names a module is
// satisfied by its single Add. Dispatch runs on one goroutine, so callbacks
// never run concurrently with each other.
//
// All methods are safe for concurrent use.
type Loader struct {
	inj  Injector
	opts Options
	log  *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	defs      map[string]Module
	defOrder  []string
	graph     *dag.DAG
	factories map[string]Factory
	inflight  map[string]string // module name -> url
	queue     []*Request
	ready     []*Request
	closed    bool

	wake      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Loader backed by inj and starts its dispatcher.
// Call Close to stop it.
func New(inj Injector, opts Options) *Loader {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Hooks == nil {
		opts.Hooks = observability.Loader()
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loader{
		inj:       inj,
		opts:      opts,
		log:       opts.Logger.WithPrefix("loader"),
		ctx:       ctx,
		cancel:    cancel,
		defs:      make(map[string]Module),
		graph:     dag.New(nil),
		factories: make(map[string]Factory),
		inflight:  make(map[string]string),
		wake:      make(chan struct{}, 1),
	}
	l.wg.Add(1)
	go l.dispatchLoop()
	return l
}

// Define registers module descriptors. Requirements may name modules that
// are defined later. Redefining a module is an error.
func (l *Loader) Define(mods ...Module) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, m := range mods {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, dup := l.defs[m.Name]; dup {
			return errors.New(errors.ErrCodeInvalidModule, "module %q already defined", m.Name)
		}
		n, err := l.graph.EnsureNode(m.Name)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidModule, err, "define %q", m.Name)
		}
		n.Meta["kind"] = m.Kind.String()
		n.Meta["url"] = l.url(m)
		for _, r := range m.Requires {
			if _, err := l.graph.EnsureNode(r); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidDependency, err, "define %q", m.Name)
			}
			if err := l.graph.AddEdge(dag.Edge{From: m.Name, To: r}); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidDependency, err, "define %q", m.Name)
			}
		}
		l.defs[m.Name] = m
		l.defOrder = append(l.defOrder, m.Name)
	}
	return nil
}

// Modules returns the defined descriptors in definition order.
func (l *Loader) Modules() []Module {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Module, 0, len(l.defOrder))
	for _, name := range l.defOrder {
		out = append(out, l.defs[name])
	}
	return out
}

// Module returns the descriptor for name. Undefined names resolve to a bare
// Script module so that they can still be requested.
func (l *Loader) Module(name string) (Module, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.module(name)
}

func (l *Loader) module(name string) (Module, bool) {
	m, ok := l.defs[name]
	if !ok {
		m = Module{Name: name}
	}
	return m, ok
}

// ResolveURL returns the URL m is fetched from under this loader's options.
func (l *Loader) ResolveURL(m Module) string { return l.url(m) }

func (l *Loader) url(m Module) string {
	return ResolveURL(l.opts.Base, l.opts.Minify, m)
}

// Use requests names and schedules cb to run with a fresh namespace once
// every requested module and its transitive requirements have arrived.
//
// The request list is normalized first: All expands to every defined
// module, empty names are dropped and duplicates removed. Requirements are
// expanded depth first so that each module's factory runs after the factories
// of everything it requires. Modules that are neither loaded nor already in
// flight are handed to the injector.
//
// Use returns a DEPENDENCY_CYCLE error wrapping an *errors.CycleError when
// the requirements form a cycle, and LOADER_CLOSED after Close.
func (l *Loader) Use(names []string, cb Callback) (*Request, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, l.fail(errors.New(errors.ErrCodeLoaderClosed, "loader is closed"))
	}

	roots, err := l.normalize(names)
	if err != nil {
		l.mu.Unlock()
		return nil, l.fail(err)
	}
	order, err := l.graph.Closure(roots...)
	if err != nil {
		l.mu.Unlock()
		return nil, l.fail(errors.Wrap(errors.ErrCodeDependencyCycle, err, "use %s", strings.Join(roots, ", ")))
	}

	var fetch []Module
	for _, name := range order {
		if _, ok := l.factories[name]; ok {
			continue
		}
		if _, busy := l.inflight[name]; busy {
			continue
		}
		m, _ := l.module(name)
		l.inflight[name] = l.url(m)
		fetch = append(fetch, m)
	}

	req := newRequest(uuid.NewString(), order, cb)
	l.queue = append(l.queue, req)
	if l.opts.Timeout > 0 {
		req.timer = time.AfterFunc(l.opts.Timeout, func() { l.expire(req) })
	}
	l.mu.Unlock()

	l.log.Debug("use", "request", req.id, "modules", order, "fetch", len(fetch))
	for _, m := range fetch {
		go l.fetch(m)
	}
	l.update()
	return req, nil
}

// normalize must be called with l.mu held.
func (l *Loader) normalize(names []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, n := range names {
		switch {
		case n == "":
		case n == All:
			for _, d := range l.defOrder {
				add(d)
			}
		default:
			if err := errors.ValidateModuleName(n); err != nil {
				return nil, err
			}
			add(n)
		}
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no modules requested")
	}
	return out, nil
}

// Add records f as the factory of name and re-evaluates every pending
// request. The first registration of a name wins; later ones are ignored.
// A nil f registers a module without exports.
func (l *Loader) Add(name string, f Factory) {
	if f == nil {
		f = func(*Namespace) {}
	}
	l.mu.Lock()
	if _, dup := l.factories[name]; dup {
		l.mu.Unlock()
		l.log.Debug("duplicate add ignored", "module", name)
		return
	}
	l.factories[name] = f
	delete(l.inflight, name)
	l.mu.Unlock()

	l.log.Debug("add", "module", name)
	l.update()
}

// Loaded reports whether name has been added.
func (l *Loader) Loaded(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.factories[name]
	return ok
}

// InFlight reports whether a fetch for name is running. It turns false once
// the module is added or its fetch fails.
func (l *Loader) InFlight(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.inflight[name]
	return ok
}

// Pending returns the number of requests waiting for modules.
func (l *Loader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Graph returns the dependency graph of the defined modules, restricted to
// names and their requirements when names are given.
func (l *Loader) Graph(names ...string) (*dag.DAG, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(names) == 0 {
		names = l.graph.IDs()
		if len(names) == 0 {
			return dag.New(nil), nil
		}
	}
	roots, err := l.normalize(names)
	if err != nil {
		return nil, err
	}
	g, err := l.graph.Subgraph(roots...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDependencyCycle, err, "graph")
	}
	return g, nil
}

// update moves every pending request whose modules are all loaded to Ready
// and wakes the dispatcher.
func (l *Loader) update() {
	l.mu.Lock()
	kept := l.queue[:0]
	moved := 0
	for _, req := range l.queue {
		if !l.satisfied(req) {
			kept = append(kept, req)
			continue
		}
		if req.transition(Ready, Pending) {
			l.ready = append(l.ready, req)
			moved++
		}
	}
	clear(l.queue[len(kept):])
	l.queue = kept
	l.mu.Unlock()

	if moved > 0 {
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}
}

func (l *Loader) satisfied(req *Request) bool {
	for _, name := range req.modules {
		if _, ok := l.factories[name]; !ok {
			return false
		}
	}
	return true
}

func (l *Loader) missing(req *Request) []string {
	var out []string
	for _, name := range req.modules {
		if _, ok := l.factories[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func (l *Loader) dispatchLoop() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.wake:
		}
		for {
			l.mu.Lock()
			if len(l.ready) == 0 {
				l.mu.Unlock()
				break
			}
			req := l.ready[0]
			l.ready = l.ready[1:]
			l.mu.Unlock()

			if !l.waitReady() {
				if req.transition(Failed, Ready) {
					l.finishFailed(req, errors.New(errors.ErrCodeLoaderClosed, "request %s: loader closed", req.id))
				}
				return
			}
			l.dispatch(req)
		}
	}
}

// waitReady polls the Ready predicate. It returns false if the loader closes
// while waiting.
func (l *Loader) waitReady() bool {
	if l.opts.Ready == nil || l.opts.Ready() {
		return true
	}
	t := time.NewTicker(l.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-l.ctx.Done():
			return false
		case <-t.C:
			if l.opts.Ready() {
				return true
			}
		}
	}
}

func (l *Loader) dispatch(req *Request) {
	l.mu.Lock()
	factories := make([]Factory, len(req.modules))
	for i, name := range req.modules {
		factories[i] = l.factories[name]
	}
	l.mu.Unlock()

	ns := NewNamespace()
	for i, f := range factories {
		if err := runFactory(req.modules[i], f, ns); err != nil {
			if req.transition(Failed, Ready) {
				l.finishFailed(req, err)
			}
			return
		}
	}

	if !req.transition(Dispatched, Ready) {
		return
	}
	if req.cb != nil {
		if err := runCallback(req.cb, ns); err != nil {
			l.fail(err)
		}
	}
	req.finish(ns, nil)
	wait := time.Since(req.created)
	l.opts.Hooks.OnDispatch(l.ctx, req.id, len(req.modules), wait)
	l.log.Debug("dispatch", "request", req.id, "modules", len(req.modules), "wait", wait)
}

func runFactory(name string, f Factory, ns *Namespace) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeFactoryPanic, "factory of %q panicked: %v", name, r)
		}
	}()
	f(ns)
	return nil
}

func runCallback(cb Callback, ns *Namespace) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeFactoryPanic, "callback panicked: %v", r)
		}
	}()
	cb(ns)
	return nil
}

func (l *Loader) fetch(m Module) {
	u := l.ResolveURL(m)
	hooks := l.opts.Hooks
	hooks.OnFetchStart(l.ctx, m.Name, u)
	start := time.Now()
	l.log.Debug("fetch", "module", m.Name, "url", u, "kind", m.Kind)

	var err error
	switch m.Kind {
	case Stylesheet:
		err = l.inj.LoadStylesheet(l.ctx, u, m)
		if err == nil {
			err = l.awaitStylesheet(u)
		}
		if err == nil {
			l.Add(m.Name, nil)
		}
	default:
		err = l.inj.LoadScript(l.ctx, u, m, l)
	}

	hooks.OnFetchComplete(l.ctx, m.Name, u, time.Since(start), err)
	if err != nil {
		l.fetchFailed(m, u, err)
	}
}

func (l *Loader) awaitStylesheet(u string) error {
	p, ok := l.inj.(StylesheetProber)
	if !ok || p.StylesheetLoaded(u) {
		return nil
	}
	t := time.NewTicker(l.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-l.ctx.Done():
			return l.ctx.Err()
		case <-t.C:
			if p.StylesheetLoaded(u) {
				return nil
			}
		}
	}
}

// fetchFailed forgets the in-flight entry, so that a later Use retries, and
// fails every pending request that needs the module.
func (l *Loader) fetchFailed(m Module, u string, cause error) {
	l.mu.Lock()
	delete(l.inflight, m.Name)
	if _, ok := l.factories[m.Name]; ok {
		// Arrived anyway; the error is moot.
		l.mu.Unlock()
		return
	}
	var failed []*Request
	kept := l.queue[:0]
	for _, req := range l.queue {
		if slices.Contains(req.modules, m.Name) && req.transition(Failed, Pending) {
			failed = append(failed, req)
			continue
		}
		kept = append(kept, req)
	}
	clear(l.queue[len(kept):])
	l.queue = kept
	l.mu.Unlock()

	l.log.Debug("fetch failed", "module", m.Name, "url", u, "err", cause)
	for _, req := range failed {
		l.finishFailed(req, errors.Wrap(errors.ErrCodeFetchFailed, cause, "fetch %q from %s", m.Name, u))
	}
}

// expire fails req if it is still pending.
func (l *Loader) expire(req *Request) {
	l.mu.Lock()
	i := slices.Index(l.queue, req)
	if i < 0 || !req.transition(Failed, Pending) {
		l.mu.Unlock()
		return
	}
	l.queue = slices.Delete(l.queue, i, i+1)
	missing := l.missing(req)
	l.mu.Unlock()

	l.opts.Hooks.OnStall(l.ctx, req.id, missing)
	l.finishFailed(req, errors.New(errors.ErrCodeDependencyUnresolved,
		"request %s unresolved after %s: missing %s", req.id, l.opts.Timeout, strings.Join(missing, ", ")))
}

func (l *Loader) finishFailed(req *Request, err error) {
	req.finish(nil, err)
	l.fail(err)
}

func (l *Loader) fail(err error) error {
	errors.Report(l.opts.Reporter, err)
	return err
}

// Close stops the dispatcher and fails every request that has not been
// dispatched with LOADER_CLOSED. It waits for a running dispatch to finish,
// so it must not be called from a factory or callback.
func (l *Loader) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		pending := append(l.queue, l.ready...)
		l.queue, l.ready = nil, nil
		l.mu.Unlock()

		l.cancel()
		l.wg.Wait()

		for _, req := range pending {
			if req.transition(Failed, Pending, Ready) {
				l.finishFailed(req, errors.New(errors.ErrCodeLoaderClosed, "request %s: loader closed", req.id))
			}
		}
	})
	return nil
}

// String describes the loader state for debugging.
func (l *Loader) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("loader{defined=%d loaded=%d inflight=%d pending=%d}",
		len(l.defs), len(l.factories), len(l.inflight), len(l.queue))
}
