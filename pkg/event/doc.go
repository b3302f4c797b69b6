// Package event provides a synchronous publish/subscribe primitive with
// cancelable dispatch.
//
// A [Target] keeps an ordered list of listeners per event type. [Target.Fire]
// runs the listeners registered for the fired type in registration order,
// then the listeners registered for [Wildcard]. Each listener receives an
// [*Event] control object:
//
//   - PreventDefault marks the dispatch as canceled; Fire returns false.
//   - StopPropagation skips the remaining listeners of this dispatch.
//
// The return value of Fire is how higher layers build vetoable operations:
// perform the default action only if Fire returned true. The attribute
// system in package attr uses this for "<name>Change" events.
//
// # Usage
//
//	var t event.Target
//	id := t.On("save", func(e *event.Event, args ...any) {
//	    if args[0] == "" {
//	        e.PreventDefault()
//	    }
//	})
//	if t.Fire("save", doc) {
//	    persist(doc)
//	}
//	t.Unbind("save", id)
//
// Listeners are removed by the [ListenerID] returned at registration because
// Go function values are not comparable.
package event
