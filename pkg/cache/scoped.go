package cache

// ScopedKeyer wraps a Keyer with a prefix so that several module sets can
// share one backend, typically a Redis instance used by more than one
// manifest.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "site:docs:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// ModuleKey generates a prefixed key for module body caching.
func (k *ScopedKeyer) ModuleKey(name, url string) string {
	return k.prefix + k.inner.ModuleKey(name, url)
}
