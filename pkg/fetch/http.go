package fetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/jet/pkg/cache"
	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/loader"
	"github.com/matzehuels/jet/pkg/observability"
)

const (
	// DefaultTimeout bounds a single HTTP round trip.
	DefaultTimeout = 10 * time.Second
	// DefaultTTL is how long fetched bodies stay cached.
	DefaultTTL = 24 * time.Hour
	// MaxBodySize caps the size of a module body.
	MaxBodySize = 8 << 20
)

// Options configures an HTTP injector. Zero values select defaults.
type Options struct {
	Client  *http.Client
	Cache   cache.Cache
	Keyer   cache.Keyer
	TTL     time.Duration
	Backoff cache.Backoff
	// Headers are sent with every request.
	Headers map[string]string
	// Refresh bypasses cache reads; fetched bodies are still stored.
	Refresh bool
	Logger  *log.Logger
}

// HTTP fetches modules over HTTP.
type HTTP struct {
	client  *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	backoff cache.Backoff
	headers map[string]string
	refresh bool
	log     *log.Logger

	group singleflight.Group

	mu     sync.RWMutex
	sheets map[string][]byte
}

var (
	_ loader.Injector         = (*HTTP)(nil)
	_ loader.StylesheetProber = (*HTTP)(nil)
)

// New returns an HTTP injector.
func New(opts Options) *HTTP {
	h := &HTTP{
		client:  opts.Client,
		cache:   opts.Cache,
		keyer:   opts.Keyer,
		ttl:     opts.TTL,
		backoff: opts.Backoff,
		headers: opts.Headers,
		refresh: opts.Refresh,
		log:     opts.Logger,
		sheets:  make(map[string][]byte),
	}
	if h.client == nil {
		h.client = &http.Client{Timeout: DefaultTimeout}
	}
	if h.cache == nil {
		h.cache = cache.NewNullCache()
	}
	if h.keyer == nil {
		h.keyer = cache.NewDefaultKeyer()
	}
	if h.ttl <= 0 {
		h.ttl = DefaultTTL
	}
	if h.backoff.Attempts <= 0 {
		h.backoff = cache.DefaultBackoff
	}
	if h.log == nil {
		h.log = log.Default()
	}
	h.log = h.log.WithPrefix("fetch")
	return h
}

// LoadScript downloads and decodes the module at u, then registers its
// factory with r. It returns after Add has been called.
func (h *HTTP) LoadScript(ctx context.Context, u string, m loader.Module, r loader.Registrar) error {
	body, err := h.Fetch(ctx, m.Name, u)
	if err != nil {
		return err
	}
	exports, err := Decode(body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidModule, err, "module %q", m.Name)
	}
	h.log.Debug("script loaded", "module", m.Name, "exports", len(exports))
	r.Add(m.Name, exports.Factory())
	return nil
}

// LoadStylesheet downloads the stylesheet at u and records it as applied.
func (h *HTTP) LoadStylesheet(ctx context.Context, u string, m loader.Module) error {
	body, err := h.Fetch(ctx, m.Name, u)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.sheets[u] = body
	h.mu.Unlock()
	return nil
}

// StylesheetLoaded reports whether the stylesheet at u has been fetched.
func (h *HTTP) StylesheetLoaded(u string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sheets[u]
	return ok
}

// Stylesheet returns the body of a loaded stylesheet.
func (h *HTTP) Stylesheet(u string) ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.sheets[u]
	return b, ok
}

// Fetch returns the body at u, from cache when possible. Concurrent calls
// for the same URL share one download.
func (h *HTTP) Fetch(ctx context.Context, name, u string) ([]byte, error) {
	key := h.keyer.ModuleKey(name, u)
	if !h.refresh {
		if body, ok, err := h.cache.Get(ctx, key); err != nil {
			h.log.Warn("cache read failed", "module", name, "err", err)
		} else if ok {
			return body, nil
		}
	}

	v, err, shared := h.group.Do(u, func() (any, error) {
		var body []byte
		err := h.backoff.Retry(ctx, func() error {
			var err error
			body, err = h.get(ctx, u)
			return err
		})
		return body, err
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "fetch %s", u)
	}
	body := v.([]byte)
	if shared {
		h.log.Debug("shared fetch", "url", u)
	}
	if err := h.cache.Set(ctx, key, body, h.ttl); err != nil {
		h.log.Warn("cache write failed", "module", name, "err", err)
	}
	return body, nil
}

func (h *HTTP) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	host, path := splitURL(rawURL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, http.MethodGet, host, path)
	start := time.Now()

	resp, err := h.client.Do(req)
	if err != nil {
		hooks.OnError(ctx, http.MethodGet, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, http.MethodGet, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	if len(body) > MaxBodySize {
		return nil, stderrors.New("module body exceeds size limit")
	}
	return body, nil
}

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return cache.ErrNotFound
	case code == http.StatusTooManyRequests, code >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", cache.ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", cache.ErrNetwork, code)
	}
}

func splitURL(raw string) (host, path string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", raw
	}
	return u.Host, u.Path
}
