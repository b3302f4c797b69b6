package attr

import (
	stderrors "errors"
	"maps"
	"slices"

	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/event"
)

// Attributes is a schema-governed property bag with change notification.
//
// Each Attributes owns exactly one event registry; the embedded
// [event.Target] exposes On, Once, Unbind, UnbindAll and Fire directly.
//
// Attributes is not safe for concurrent use: Get materializes defaults and
// locks write-once attributes, so even reads mutate state.
type Attributes struct {
	event.Target

	config   map[string]any
	schemas  map[string]*Schema
	order    []string
	values   map[string]any
	explicit map[string]bool
	locked   map[string]bool
	reporter errors.Reporter
}

// Option configures an Attributes at construction.
type Option func(*Attributes)

// WithReporter sets the sink that receives schema contract violations in
// addition to the error returned to the caller. Without it the process-wide
// default from [errors.Default] is used.
func WithReporter(r errors.Reporter) Option {
	return func(a *Attributes) { a.reporter = r }
}

// New creates an empty Attributes. config supplies initial values that
// AddAttr consults when each attribute is declared; it is copied.
func New(config map[string]any, opts ...Option) *Attributes {
	a := &Attributes{
		config:   maps.Clone(config),
		schemas:  make(map[string]*Schema),
		values:   make(map[string]any),
		explicit: make(map[string]bool),
		locked:   make(map[string]bool),
	}
	if a.config == nil {
		a.config = make(map[string]any)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Events returns the owned event registry.
func (a *Attributes) Events() *event.Target { return &a.Target }

// AddAttr registers (or replaces) the schema for name.
//
// It fails with ATTR_CONFLICT when s is both Required and ReadOnly, and with
// ATTR_REQUIRED when s is Required and the construction config has no value
// for name. For a ReadOnly schema any configured value is discarded.
// Otherwise a configured value passing the validator is transformed by the
// setter and stored as an explicit write, which locks a WriteOnce attribute.
func (a *Attributes) AddAttr(name string, s Schema) error {
	if name == "" {
		return a.fail(errors.New(errors.ErrCodeInvalidInput, "attribute name cannot be empty"))
	}
	if s.Required && s.ReadOnly {
		return a.fail(errors.New(errors.ErrCodeAttrConflict, "attribute %q cannot be both required and readOnly", name))
	}
	init, has := a.config[name]
	has = has && init != nil
	if s.Required && !has {
		return a.fail(errors.New(errors.ErrCodeAttrRequired, "missing required attribute %q", name))
	}

	if _, known := a.schemas[name]; !known {
		a.order = append(a.order, name)
	}
	sc := s
	a.schemas[name] = &sc

	if !has || s.ReadOnly {
		return nil
	}
	if s.Validator != nil && !s.Validator(init) {
		return nil
	}
	v := init
	if s.Setter != nil {
		v = s.Setter(init, name)
	}
	a.values[name] = v
	a.explicit[name] = true
	if s.WriteOnce {
		a.locked[name] = true
	}
	return nil
}

// AddAttrs applies AddAttr to each declaration in order and stops at the
// first error.
func (a *Attributes) AddAttrs(decls ...Decl) error {
	for _, d := range decls {
		if err := a.AddAttr(d.Name, d.Schema); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the current value of name.
//
// Reading a WriteOnce attribute locks it, even when it was never set.
// When nothing is stored the schema default is stored first. The Getter,
// if any, transforms the result.
func (a *Attributes) Get(name string) any {
	s := a.schemas[name]
	if s != nil && s.WriteOnce {
		a.locked[name] = true
	}
	v, ok := a.values[name]
	if !ok && s != nil && s.Value != nil {
		v = s.Value
		a.values[name] = v
	}
	if s != nil && s.Getter != nil {
		return s.Getter(v, name)
	}
	return v
}

// As returns the value of name converted to T. The second result is false
// when the value is not a T.
func As[T any](a *Attributes, name string) (T, bool) {
	v, ok := a.Get(name).(T)
	return v, ok
}

// Plan computes what Set(name, v) would do without changing any state or
// firing events. It runs the validator and the setter.
func (a *Attributes) Plan(name string, v any) Change {
	c := Change{Name: name, Value: v}
	s := a.schemas[name]

	if a.readOnly(name) {
		c.Result = RejectedReadOnly
		return c
	}
	if s != nil && s.Validator != nil && !s.Validator(v) {
		c.Result = RejectedByValidator
		return c
	}
	if s != nil && s.Setter != nil {
		c.Value = s.Setter(v, name)
	}

	prev, stored := a.values[name]
	if !stored && s != nil && s.Value != nil {
		prev = s.Value
		c.backfill = true
	}
	c.Prev = prev

	if (stored || c.backfill) && equal(prev, c.Value) {
		c.Result = Unchanged
	} else {
		c.Result = Applied
	}
	return c
}

// Set writes v to name.
//
// The write is validated, transformed by the setter and compared to the
// stored value. A differing value fires "<name>Change" with the new and the
// previous value as arguments; any listener may veto the write with
// PreventDefault. Writing an unknown name declares a schema-less attribute.
//
// Only RejectedReadOnly comes with an error (ATTR_READ_ONLY), which is also
// sent to the configured Reporter. Only an Applied write locks a WriteOnce
// attribute.
func (a *Attributes) Set(name string, v any) (Result, error) {
	c := a.Plan(name, v)
	switch c.Result {
	case RejectedReadOnly:
		return c.Result, a.fail(errors.New(errors.ErrCodeAttrReadOnly, "attribute %q is read-only", name))
	case RejectedByValidator:
		return c.Result, nil
	}

	s := a.schemas[name]
	if s == nil {
		s = &Schema{}
		a.schemas[name] = s
		a.order = append(a.order, name)
	}
	if c.backfill {
		a.values[name] = s.Value
	}
	if c.Result == Unchanged {
		return Unchanged, nil
	}

	if !a.Fire(ChangeEvent(name), c.Value, c.Prev) {
		return Prevented, nil
	}
	a.values[name] = c.Value
	a.explicit[name] = true
	if s.WriteOnce {
		a.locked[name] = true
	}
	return Applied, nil
}

// SetAll applies Set for every entry of values in sorted key order.
// Errors from individual writes are joined.
func (a *Attributes) SetAll(values map[string]any) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if _, err := a.Set(name, values[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Unset forgets the stored value of name. The schema stays, so the next Get
// materializes the default again. Locks are not lifted.
func (a *Attributes) Unset(name string) {
	delete(a.values, name)
	delete(a.explicit, name)
}

// GetAll snapshots every known attribute through Get, in declaration order
// of first appearance. Because it reads through Get it locks every
// WriteOnce attribute.
func (a *Attributes) GetAll() map[string]any {
	out := make(map[string]any, len(a.order))
	for _, name := range a.order {
		out[name] = a.Get(name)
	}
	return out
}

// IsSet reports whether a value was explicitly stored for name, through
// construction config or Set. Materialized defaults do not count.
func (a *Attributes) IsSet(name string) bool {
	return a.explicit[name]
}

// Has reports whether name has a schema.
func (a *Attributes) Has(name string) bool {
	_, ok := a.schemas[name]
	return ok
}

// Names returns attribute names in order of first declaration.
func (a *Attributes) Names() []string {
	return slices.Clone(a.order)
}

// Locked reports whether name currently rejects writes.
func (a *Attributes) Locked(name string) bool {
	return a.readOnly(name)
}

// Clear drops every stored value. Schemas, locks and listeners stay.
func (a *Attributes) Clear() {
	clear(a.values)
	clear(a.explicit)
}

func (a *Attributes) readOnly(name string) bool {
	if s := a.schemas[name]; s != nil && s.ReadOnly {
		return true
	}
	return a.locked[name]
}

func (a *Attributes) fail(err *errors.Error) error {
	errors.Report(a.reporter, err)
	return err
}
