package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jet"

// Prometheus implements LoaderHooks, CacheHooks and HTTPHooks on top of
// Prometheus collectors.
type Prometheus struct {
	FetchesTotal    *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	FetchesInFlight prometheus.Gauge

	Dispatches   prometheus.Counter
	DispatchWait prometheus.Histogram
	Stalls       prometheus.Counter
	StalledMods  *prometheus.CounterVec

	CacheOps *prometheus.CounterVec
	CacheSet *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPErrors   *prometheus.CounterVec
}

var (
	_ LoaderHooks = (*Prometheus)(nil)
	_ CacheHooks  = (*Prometheus)(nil)
	_ HTTPHooks   = (*Prometheus)(nil)
)

// NewPrometheus creates the collectors and registers them with reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid global state.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_fetches_total",
				Help:      "Total number of module fetches by outcome",
			},
			[]string{"outcome"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "module_fetch_duration_seconds",
				Help:      "Module fetch duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
		FetchesInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "module_fetches_in_flight",
				Help:      "Number of module fetches currently running",
			},
		),
		Dispatches: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_dispatched_total",
				Help:      "Total number of dispatched load requests",
			},
		),
		DispatchWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_wait_seconds",
				Help:      "Time from Use to dispatch in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		Stalls: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_stalled_total",
				Help:      "Total number of load requests that timed out",
			},
		),
		StalledMods: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stalled_modules_total",
				Help:      "Modules missing when a load request timed out",
			},
			[]string{"module"},
		),
		CacheOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by key type and result",
			},
			[]string{"key_type", "result"},
		),
		CacheSet: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_written_bytes_total",
				Help:      "Bytes written to the cache by key type",
			},
			[]string{"key_type"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_client_requests_total",
				Help:      "Outgoing HTTP requests by host and status",
			},
			[]string{"host", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_client_duration_seconds",
				Help:      "Outgoing HTTP request duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"host"},
		),
		HTTPErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_client_errors_total",
				Help:      "Outgoing HTTP requests that failed without a response",
			},
			[]string{"host"},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnFetchStart(context.Context, string, string) {
	p.FetchesInFlight.Inc()
}

func (p *Prometheus) OnFetchComplete(_ context.Context, _, _ string, d time.Duration, err error) {
	p.FetchesInFlight.Dec()
	o := outcome(err)
	p.FetchesTotal.WithLabelValues(o).Inc()
	p.FetchDuration.WithLabelValues(o).Observe(d.Seconds())
}

func (p *Prometheus) OnDispatch(_ context.Context, _ string, _ int, wait time.Duration) {
	p.Dispatches.Inc()
	p.DispatchWait.Observe(wait.Seconds())
}

func (p *Prometheus) OnStall(_ context.Context, _ string, missing []string) {
	p.Stalls.Inc()
	for _, m := range missing {
		p.StalledMods.WithLabelValues(m).Inc()
	}
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.CacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.CacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.CacheSet.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	p.HTTPRequests.WithLabelValues(host, statusClass(status)).Inc()
	p.HTTPDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, _, host, _ string, _ error) {
	p.HTTPErrors.WithLabelValues(host).Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
