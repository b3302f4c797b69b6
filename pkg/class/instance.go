package class

import (
	"github.com/matzehuels/jet/pkg/base"
	"github.com/matzehuels/jet/pkg/errors"
)

// Instance is an object built from a Class: a [base.Base] carrying the
// merged attribute declarations plus access to the prototype chain.
type Instance struct {
	*base.Base

	class *Class
}

// New builds an instance of c from cfg. The attributes declared along the
// chain are added root first, then the Initializer method runs with cfg as
// its only argument.
func (c *Class) New(cfg base.Config, opts ...base.Option) (*Instance, error) {
	b, err := base.Build(cfg, c.Attrs(), opts)
	if err != nil {
		return nil, err
	}
	inst := &Instance{Base: b, class: c}
	if fn, ok := c.Method(Initializer); ok {
		fn(inst, cfg)
	}
	return inst, nil
}

// Class returns the class inst was built from.
func (inst *Instance) Class() *Class { return inst.class }

// Call invokes the method name resolved through the instance's class.
func (inst *Instance) Call(name string, args ...any) (any, error) {
	return inst.CallAs(inst.class, name, args...)
}

// CallAs invokes name as resolved on cls, typically an ancestor of the
// instance's class. It is the explicit form of a super call:
//
//	inst.CallAs(inst.Class().Superclass(), "render")
func (inst *Instance) CallAs(cls *Class, name string, args ...any) (any, error) {
	if cls == nil {
		return nil, errors.New(errors.ErrCodeMethodNotFound, "%s: no class to resolve %q on", inst.class.name, name)
	}
	m, ok := cls.Method(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeMethodNotFound, "%s has no method %q", cls.name, name)
	}
	return m(inst, args...), nil
}

// Member resolves a non-method member through the instance's class.
func (inst *Instance) Member(name string) (any, bool) {
	return inst.class.Lookup(name)
}
