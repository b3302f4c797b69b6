// Package base provides the composition root for attribute-bearing objects.
//
// A [Base] is an [attr.Attributes] with one predeclared attribute, "on",
// which wires event listeners supplied in the construction config. Everything
// layered on top (classes in package class, application components) builds
// on this construction contract:
//
//	b, err := base.New(base.Config{
//	    "title": "inbox",
//	    "on": map[string]event.Listener{
//	        "titleChange": func(e *event.Event, args ...any) { ... },
//	    },
//	}, attr.Decl{Name: "title", Schema: attr.Schema{Value: ""}})
//
// Because "on" is declared before the caller's attributes, the listeners it
// wires are registered before any other attribute is initialized.
package base

import (
	"maps"
	"slices"

	"github.com/matzehuels/jet/pkg/attr"
	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/event"
)

// OnAttr is the name of the pseudo-attribute that carries construction-time
// listener bindings.
const OnAttr = "on"

// DestroyEvent is fired by Destroy before teardown. Preventing it keeps the
// object alive.
const DestroyEvent = "destroy"

// Object is the capability set every attribute-bearing object exposes.
type Object interface {
	Get(name string) any
	Set(name string, v any) (attr.Result, error)
	On(typ string, fn event.Listener) event.ListenerID
	Fire(typ string, args ...any) bool
}

// Config is the construction config. Keys name attributes; the "on" key
// holds listener bindings as []event.Binding or map[string]event.Listener.
type Config map[string]any

// Base is the common ancestor of attribute-bearing objects.
type Base struct {
	*attr.Attributes

	destroyed bool
}

var _ Object = (*Base)(nil)

// Option configures a Base.
type Option = attr.Option

// WithReporter routes contract violations to r.
func WithReporter(r errors.Reporter) Option { return attr.WithReporter(r) }

// New builds a Base from cfg and declares decls in order. The "on" binding
// is wired first. Contract violations go to the default reporter.
func New(cfg Config, decls ...attr.Decl) (*Base, error) {
	return Build(cfg, decls, nil)
}

// Build is New with options.
func Build(cfg Config, decls []attr.Decl, opts []Option) (*Base, error) {
	b := &Base{Attributes: attr.New(cfg, opts...)}
	if err := b.AddAttr(OnAttr, attr.Schema{
		WriteOnce: true,
		Validator: validBindings,
		Setter:    func(v any, _ string) any { return Bindings(v) },
	}); err != nil {
		return nil, err
	}
	// Reading locks "on": listeners are only bulk-registered here.
	if on, ok := b.Get(OnAttr).([]event.Binding); ok {
		b.Bind(on...)
	}
	if err := b.AddAttrs(decls...); err != nil {
		return nil, err
	}
	return b, nil
}

// Destroy fires "destroy" and, unless a listener prevents it, removes every
// listener and drops every stored value. It reports whether teardown
// happened. Destroying twice is a no-op that returns false.
func (b *Base) Destroy() bool {
	if b.destroyed {
		return false
	}
	if !b.Fire(DestroyEvent) {
		return false
	}
	b.UnbindAll()
	b.Clear()
	b.destroyed = true
	return true
}

// Destroyed reports whether Destroy completed.
func (b *Base) Destroyed() bool { return b.destroyed }

// Bindings normalizes the accepted "on" config shapes into an ordered
// binding list. Map entries are ordered by event type. Unsupported values
// yield nil.
func Bindings(v any) []event.Binding {
	switch on := v.(type) {
	case []event.Binding:
		return slices.Clone(on)
	case event.Binding:
		return []event.Binding{on}
	case map[string]event.Listener:
		out := make([]event.Binding, 0, len(on))
		for _, typ := range slices.Sorted(maps.Keys(on)) {
			out = append(out, event.Binding{Type: typ, Listener: on[typ]})
		}
		return out
	case map[string]func(*event.Event, ...any):
		out := make([]event.Binding, 0, len(on))
		for _, typ := range slices.Sorted(maps.Keys(on)) {
			out = append(out, event.Binding{Type: typ, Listener: on[typ]})
		}
		return out
	}
	return nil
}

func validBindings(v any) bool {
	switch v.(type) {
	case []event.Binding, event.Binding, map[string]event.Listener, map[string]func(*event.Event, ...any):
		return true
	}
	return false
}
