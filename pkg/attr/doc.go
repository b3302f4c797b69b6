// Package attr implements schema-governed attributes with vetoable change
// events.
//
// An [Attributes] value pairs a property map with an [event.Target]. Each
// attribute is declared with a [Schema] that may carry a lazy default, a
// validator, setter and getter transforms, and one of the access modes
// WriteOnce, ReadOnly or Required.
//
// # Writes
//
// [Attributes.Set] runs in two phases. [Attributes.Plan] is the pure part:
// it checks access, validates, transforms with the setter and compares the
// result with the stored value. If the value differs, Set fires
// "<name>Change" with the new and previous value; any listener can call
// PreventDefault to keep the old value. Set always reports what happened as
// a [Result]:
//
//	a := attr.New(map[string]any{"count": 1})
//	a.AddAttr("count", attr.Schema{
//	    Value:     0,
//	    Validator: func(v any) bool { _, ok := v.(int); return ok },
//	})
//	a.On(attr.ChangeEvent("count"), func(e *event.Event, args ...any) {
//	    if args[0].(int) > 10 {
//	        e.PreventDefault()
//	    }
//	})
//	a.Set("count", "x") // RejectedByValidator
//	a.Set("count", 5)   // Applied
//	a.Set("count", 5)   // Unchanged
//	a.Set("count", 50)  // Prevented
//
// # Write-once attributes
//
// A WriteOnce attribute locks after its first successful write and also
// after its first read. Reading a never-written write-once attribute
// therefore freezes it at its default. GetAll reads every attribute, so it
// locks all of them.
//
// # Errors
//
// Contract violations (required value missing, required combined with
// read-only, writes to locked attributes) are returned as *errors.Error and
// also handed to the configured [errors.Reporter].
package attr
