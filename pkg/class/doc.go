// Package class composes attribute-bearing objects from named prototypes.
//
// Two composition strategies are provided:
//
//   - [Extend] sets up single-parent delegation. The subclass gets a fresh
//     prototype and resolves everything it does not override through its
//     superclass at call time, so later changes to the superclass show up in
//     the subclass.
//   - [Augment] is a flat mixin copy. Every member visible on the source is
//     copied onto the target's own prototype; nothing links the two
//     afterwards.
//
// Instances are built with [Class.New], which creates a [base.Base] with the
// attribute declarations merged from the root of the chain down to the
// class, then runs the "initializer" method when present:
//
//	widget := class.New("widget", class.Members{
//	    "describe": class.Method(func(self *class.Instance, _ ...any) any {
//	        return "widget " + self.Get("label").(string)
//	    }),
//	}, attr.Decl{Name: "label", Schema: attr.Schema{Value: "?"}})
//
//	button := class.New("button", nil)
//	class.Extend(button, widget, class.Members{"press": pressMethod}, false)
//
//	b, _ := button.New(base.Config{"label": "OK"})
//	out, _ := b.Call("describe") // "widget OK"
package class
