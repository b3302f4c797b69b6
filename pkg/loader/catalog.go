package loader

import (
	"context"
	"sync"

	"github.com/matzehuels/jet/pkg/errors"
)

// Catalog is an in-process Injector: factories are registered up front by
// module name and delivered asynchronously when the loader asks for them.
// It is how applications bundle modules into the binary, and what tests use
// in place of a network.
type Catalog struct {
	mu          sync.RWMutex
	factories   map[string]Factory
	stylesheets map[string]bool
}

var _ Injector = (*Catalog)(nil)

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		factories:   make(map[string]Factory),
		stylesheets: make(map[string]bool),
	}
}

// Register makes f available under name. A later registration replaces an
// earlier one.
func (c *Catalog) Register(name string, f Factory) *Catalog {
	c.mu.Lock()
	c.factories[name] = f
	c.mu.Unlock()
	return c
}

// Has reports whether name is registered.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[name]
	return ok
}

// LoadScript looks up m.Name and calls r.Add on a new goroutine, so the
// module arrives after LoadScript returns. Unknown names fail with
// MODULE_NOT_FOUND.
func (c *Catalog) LoadScript(ctx context.Context, url string, m Module, r Registrar) error {
	c.mu.RLock()
	f, ok := c.factories[m.Name]
	c.mu.RUnlock()
	if !ok {
		return errors.New(errors.ErrCodeModuleNotFound, "module %q not in catalog", m.Name)
	}
	go func() {
		if ctx.Err() == nil {
			r.Add(m.Name, f)
		}
	}()
	return nil
}

// LoadStylesheet records url as applied.
func (c *Catalog) LoadStylesheet(_ context.Context, url string, _ Module) error {
	c.mu.Lock()
	c.stylesheets[url] = true
	c.mu.Unlock()
	return nil
}

// StylesheetLoaded reports whether url was loaded through LoadStylesheet.
func (c *Catalog) StylesheetLoaded(url string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stylesheets[url]
}
