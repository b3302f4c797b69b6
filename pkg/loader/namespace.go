package loader

import (
	"maps"
	"slices"
	"sync"
)

// Namespace is the flat export container threaded through the factories of
// one dispatched request. Factories mutate it in place; the callback reads
// the result. A fresh Namespace is created per dispatch.
type Namespace struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewNamespace returns an empty Namespace.
func NewNamespace() *Namespace {
	return &Namespace{values: make(map[string]any)}
}

// Set stores v under key, replacing any previous export.
func (ns *Namespace) Set(key string, v any) {
	ns.mu.Lock()
	ns.values[key] = v
	ns.mu.Unlock()
}

// Get returns the export stored under key.
func (ns *Namespace) Get(key string) (any, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	v, ok := ns.values[key]
	return v, ok
}

// Has reports whether key is exported.
func (ns *Namespace) Has(key string) bool {
	_, ok := ns.Get(key)
	return ok
}

// Keys returns the exported keys in sorted order.
func (ns *Namespace) Keys() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return slices.Sorted(maps.Keys(ns.values))
}

// Len returns the number of exports.
func (ns *Namespace) Len() int {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.values)
}

// Snapshot returns a copy of all exports.
func (ns *Namespace) Snapshot() map[string]any {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return maps.Clone(ns.values)
}

// Lookup returns the export under key converted to T.
func Lookup[T any](ns *Namespace, key string) (T, bool) {
	v, _ := ns.Get(key)
	t, ok := v.(T)
	return t, ok
}
