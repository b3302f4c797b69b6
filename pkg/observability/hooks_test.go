package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Loader hooks
	l := NoopLoaderHooks{}
	l.OnFetchStart(ctx, "widget", "https://cdn/widget/widget.js")
	l.OnFetchComplete(ctx, "widget", "https://cdn/widget/widget.js", time.Second, nil)
	l.OnDispatch(ctx, "req-1", 3, time.Second)
	l.OnStall(ctx, "req-1", []string{"widget"})

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "module")
	c.OnCacheMiss(ctx, "module")
	c.OnCacheSet(ctx, "module", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "cdn.example.com", "/widget/widget.js")
	h.OnResponse(ctx, "GET", "cdn.example.com", "/widget/widget.js", 200, time.Second)
	h.OnError(ctx, "GET", "cdn.example.com", "/widget/widget.js", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Loader().(NoopLoaderHooks); !ok {
		t.Error("Loader() should return NoopLoaderHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customLoader := &testLoaderHooks{}
	SetLoaderHooks(customLoader)
	if Loader() != customLoader {
		t.Error("SetLoaderHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Loader().(NoopLoaderHooks); !ok {
		t.Error("Reset() should restore NoopLoaderHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testLoaderHooks{}
	SetLoaderHooks(custom)
	SetLoaderHooks(nil)

	if Loader() != custom {
		t.Error("SetLoaderHooks(nil) should be ignored")
	}
}

func TestPrometheusHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)
	ctx := context.Background()

	p.OnFetchStart(ctx, "a", "u")
	p.OnFetchComplete(ctx, "a", "u", time.Millisecond, nil)
	p.OnFetchStart(ctx, "b", "u")
	p.OnFetchComplete(ctx, "b", "u", time.Millisecond, errors.New("boom"))
	p.OnDispatch(ctx, "r", 2, time.Millisecond)
	p.OnStall(ctx, "r", []string{"c", "d"})
	p.OnCacheHit(ctx, "module")
	p.OnCacheMiss(ctx, "module")
	p.OnCacheSet(ctx, "module", 10)
	p.OnResponse(ctx, "GET", "cdn", "/x", 404, time.Millisecond)
	p.OnError(ctx, "GET", "cdn", "/x", errors.New("reset"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[f.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[f.GetName()] += m.GetGauge().GetValue()
			}
		}
	}

	tests := []struct {
		name string
		want float64
	}{
		{"jet_module_fetches_total", 2},
		{"jet_module_fetches_in_flight", 0},
		{"jet_requests_dispatched_total", 1},
		{"jet_requests_stalled_total", 1},
		{"jet_stalled_modules_total", 2},
		{"jet_cache_lookups_total", 2},
		{"jet_cache_written_bytes_total", 10},
		{"jet_http_client_requests_total", 1},
		{"jet_http_client_errors_total", 1},
	}
	for _, tt := range tests {
		if got := values[tt.name]; got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{101: "1xx", 200: "2xx", 304: "3xx", 404: "4xx", 503: "5xx"}
	for code, want := range tests {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", code, got, want)
		}
	}
}

// Test implementations
type testLoaderHooks struct{ NoopLoaderHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
