package class

import (
	"maps"
	"slices"

	"github.com/matzehuels/jet/pkg/attr"
	"github.com/matzehuels/jet/pkg/errors"
)

// Constructor is the reserved member name under which every prototype
// refers back to its own class. Augment never copies it.
const Constructor = "constructor"

// Initializer is the method Class.New calls after the attributes are built.
const Initializer = "initializer"

// Method is a prototype member that can be invoked on an [Instance].
type Method func(self *Instance, args ...any) any

// Members maps member names to values. Values of type Method (or an
// equivalent func literal) are callable through [Instance.Call]; anything
// else is plain data shared by all instances.
type Members map[string]any

// Class is a named prototype with an optional superclass.
//
// Member lookups walk the chain at call time, so changes to a superclass
// prototype are visible to subclasses that do not override the member.
// Classes are meant to be assembled during setup; mutating a class while
// other goroutines call its instances is not safe.
type Class struct {
	name  string
	proto Members
	super *Class
	decls []attr.Decl
}

// New returns a root class with a copy of members as its prototype and
// decls as its attribute declarations.
func New(name string, members Members, decls ...attr.Decl) *Class {
	c := &Class{name: name, decls: slices.Clone(decls)}
	c.proto = freshProto(c)
	for k, v := range members {
		if k != Constructor {
			c.proto[k] = v
		}
	}
	return c
}

func freshProto(c *Class) Members {
	return Members{Constructor: c}
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Superclass returns the class c delegates to, or nil for a root class.
func (c *Class) Superclass() *Class { return c.super }

// Define sets an own prototype member.
func (c *Class) Define(name string, v any) {
	c.proto[name] = v
}

// Lookup resolves name on c's prototype chain.
func (c *Class) Lookup(name string) (any, bool) {
	for k := c; k != nil; k = k.super {
		if v, ok := k.proto[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether name resolves on c's prototype chain.
func (c *Class) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// HasOwn reports whether name is an own member of c's prototype.
func (c *Class) HasOwn(name string) bool {
	_, ok := c.proto[name]
	return ok
}

// Method resolves name to a callable member.
func (c *Class) Method(name string) (Method, bool) {
	v, ok := c.Lookup(name)
	if !ok {
		return nil, false
	}
	return asMethod(v)
}

// Members returns every member visible on c, own members shadowing
// inherited ones. The Constructor entry is omitted.
func (c *Class) Members() Members {
	out := Members{}
	for k := c; k != nil; k = k.super {
		for name, v := range k.proto {
			if _, seen := out[name]; !seen && name != Constructor {
				out[name] = v
			}
		}
	}
	return out
}

// MemberNames returns the sorted names of Members.
func (c *Class) MemberNames() []string {
	return slices.Sorted(maps.Keys(c.Members()))
}

// Attrs merges attribute declarations from the root class down to c. A
// subclass redeclaring a name replaces the schema but keeps the position of
// the first declaration.
func (c *Class) Attrs() []attr.Decl {
	var chain []*Class
	for k := c; k != nil; k = k.super {
		chain = append(chain, k)
	}
	var out []attr.Decl
	idx := map[string]int{}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, d := range chain[i].decls {
			if j, ok := idx[d.Name]; ok {
				out[j] = d
				continue
			}
			idx[d.Name] = len(out)
			out = append(out, d)
		}
	}
	return out
}

// AddAttrs appends attribute declarations to c.
func (c *Class) AddAttrs(decls ...attr.Decl) {
	c.decls = append(c.decls, decls...)
}

// Extend makes sub delegate to super.
//
// sub receives a fresh prototype whose only own member is its Constructor;
// everything else resolves through super at lookup time. overrides are then
// copied onto the new prototype, except names that already resolve through
// super, unless force is set.
func Extend(sub, super *Class, overrides Members, force bool) error {
	if sub == nil || super == nil {
		return errors.New(errors.ErrCodeInvalidDependency, "extend: verify dependencies: nil class")
	}
	for k := super; k != nil; k = k.super {
		if k == sub {
			return errors.New(errors.ErrCodeInvalidDependency,
				"extend: verify dependencies: %s already in the chain of %s", sub.name, super.name)
		}
	}

	sub.proto = freshProto(sub)
	sub.super = super
	for name, v := range overrides {
		if name == Constructor {
			continue
		}
		if !force && super.Has(name) {
			continue
		}
		sub.proto[name] = v
	}
	return nil
}

// Augment copies every member visible on source onto target's own
// prototype. Names that already resolve on target are skipped unless
// overwrite is set. Attribute declarations of source that target does not
// declare are appended to target.
//
// Unlike Extend there is no delegation: later changes to source are not
// seen by target.
func Augment(target, source *Class, overwrite bool) error {
	if target == nil || source == nil {
		return errors.New(errors.ErrCodeInvalidDependency, "augment: verify dependencies: nil class")
	}
	AugmentMembers(target, source.Members(), overwrite)

	declared := map[string]bool{}
	for _, d := range target.Attrs() {
		declared[d.Name] = true
	}
	for _, d := range source.Attrs() {
		if !declared[d.Name] {
			target.decls = append(target.decls, d)
			declared[d.Name] = true
		}
	}
	return nil
}

// AugmentMembers copies members onto target's own prototype with the same
// skipping rules as Augment.
func AugmentMembers(target *Class, members Members, overwrite bool) {
	for name, v := range members {
		if name == Constructor {
			continue
		}
		if !overwrite && target.Has(name) {
			continue
		}
		target.proto[name] = v
	}
}

func asMethod(v any) (Method, bool) {
	switch m := v.(type) {
	case Method:
		return m, m != nil
	case func(*Instance, ...any) any:
		return m, m != nil
	}
	return nil, false
}
