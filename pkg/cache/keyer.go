package cache

// Keyer produces cache keys.
type Keyer interface {
	// HTTPKey keys a raw HTTP response body.
	HTTPKey(namespace, key string) string
	// ModuleKey keys a fetched module body by name and resolved URL.
	ModuleKey(name, url string) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// ModuleKey returns "module:<name>:<sha256(name, url)>". The URL is hashed
// because it may carry characters that some backends reject in keys.
func (DefaultKeyer) ModuleKey(name, url string) string {
	return hashKey("module:"+name, name, url)
}
