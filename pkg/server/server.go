// Package server serves a module set over HTTP for `jet serve`.
//
// Routes:
//
//	GET /manifest          JSON index of every module with its resolved URL
//	GET /manifest/{name}   one module plus its load order
//	GET /healthz           liveness
//	GET /metrics           Prometheus metrics, when a registry is configured
//	GET /*                 module assets from the root directory
//
// [Server.Watch] reloads the manifest when its file changes. A manifest that
// fails to load is logged and the previous one kept.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/loader"
	"github.com/matzehuels/jet/pkg/manifest"
)

// Options configures a Server.
type Options struct {
	// Root is the asset directory. Defaults to the manifest's server root.
	Root string
	// Registry enables /metrics. It is also used for the server's own
	// request counter.
	Registry *prometheus.Registry
	Logger   *log.Logger
}

// Entry is one module in the manifest index.
type Entry struct {
	Name     string      `json:"name"`
	Kind     loader.Kind `json:"kind"`
	Requires []string    `json:"requires,omitempty"`
	URL      string      `json:"url"`
	// Order is the module's load order, requirements first. Only set by
	// GET /manifest/{name}.
	Order []string `json:"order,omitempty"`
}

// Index is the body of GET /manifest.
type Index struct {
	Base    string  `json:"base"`
	Minify  bool    `json:"minify"`
	Modules []Entry `json:"modules"`
}

// Server serves a manifest and its assets.
type Server struct {
	opts     Options
	log      *log.Logger
	router   chi.Router
	requests *prometheus.CounterVec

	mu       sync.RWMutex
	manifest *manifest.Manifest
	index    []byte
	onReload []func(*manifest.Manifest)

	watchMu sync.Mutex
	stop    chan struct{}
	done    chan struct{}
}

// New builds a Server for m.
func New(m *manifest.Manifest, opts Options) (*Server, error) {
	if opts.Root == "" {
		opts.Root = m.ServerRoot()
	}
	s := &Server{opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = log.Default()
	}
	s.log = s.log.WithPrefix("server")
	if opts.Registry != nil {
		s.requests = promauto.With(opts.Registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jet",
				Name:      "server_requests_total",
				Help:      "Requests served by jet serve by method and status class",
			},
			[]string{"method", "status"},
		)
	}
	if err := s.SetManifest(m); err != nil {
		return nil, err
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	r.Get("/manifest", s.handleIndex)
	r.Get("/manifest/{name}", s.handleModule)
	if s.opts.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{}))
	}
	r.Handle("/*", http.FileServer(http.Dir(s.opts.Root)))
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Manifest returns the manifest currently served.
func (s *Server) Manifest() *manifest.Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest
}

// SetManifest replaces the served manifest and notifies OnReload callbacks.
func (s *Server) SetManifest(m *manifest.Manifest) error {
	idx, err := json.Marshal(buildIndex(m))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode manifest index")
	}
	s.mu.Lock()
	first := s.manifest == nil
	s.manifest, s.index = m, idx
	callbacks := s.onReload
	s.mu.Unlock()

	if !first {
		for _, fn := range callbacks {
			fn(m)
		}
	}
	return nil
}

// OnReload registers fn to run after every manifest replacement.
func (s *Server) OnReload(fn func(*manifest.Manifest)) {
	s.mu.Lock()
	s.onReload = append(s.onReload, fn)
	s.mu.Unlock()
}

// Reload re-reads the manifest from its file. On error the current manifest
// stays in place.
func (s *Server) Reload() error {
	path := s.Manifest().Path()
	if path == "" {
		return errors.New(errors.ErrCodeInvalidInput, "manifest was not loaded from a file")
	}
	m, err := manifest.Load(path)
	if err != nil {
		s.log.Error("reload failed, keeping previous manifest", "path", path, "err", err)
		return err
	}
	if err := s.SetManifest(m); err != nil {
		return err
	}
	s.log.Info("manifest reloaded", "path", path, "modules", len(m.Modules))
	return nil
}

func buildIndex(m *manifest.Manifest) Index {
	idx := Index{Base: m.Base, Minify: m.Minify, Modules: make([]Entry, 0, len(m.Modules))}
	for _, mod := range m.Modules {
		idx.Modules = append(idx.Modules, Entry{
			Name:     mod.Name,
			Kind:     mod.Kind,
			Requires: mod.Requires,
			URL:      m.URL(mod),
		})
	}
	return idx
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	body := s.index
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m := s.Manifest()
	mod, ok := m.Module(name)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New(errors.ErrCodeModuleNotFound, "module %q not in manifest", name))
		return
	}
	g, err := m.Graph()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	order, err := g.Closure(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Entry{
		Name:     mod.Name,
		Kind:     mod.Kind,
		Requires: mod.Requires,
		URL:      m.URL(mod),
		Order:    order,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, map[string]string{
		"code":    string(code),
		"message": errors.UserMessage(err),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.requests != nil && r.URL.Path != "/metrics" {
			s.requests.WithLabelValues(r.Method, strconv.Itoa(status/100)+"xx").Inc()
		}
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr, "root", s.opts.Root)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
