package event

import (
	"slices"
	"sync"
)

// Wildcard is the event type whose listeners run after the type-specific
// listeners of every Fire call.
const Wildcard = "*"

// Listener is a callback registered with [Target.On]. It receives the event
// control for the current dispatch followed by the arguments passed to Fire.
type Listener func(e *Event, args ...any)

// ListenerID identifies a registered listener for removal. Go function values
// cannot be compared, so [Target.Unbind] works on IDs instead of callbacks.
// The zero ID is never assigned.
type ListenerID uint64

// Event is the control object handed to every listener of one Fire call.
// Listeners flip its flags; the dispatch loop reads them after each call.
//
// An Event must not be retained or used after its listener returns.
type Event struct {
	// Type is the event type passed to Fire.
	Type string

	defaultPrevented   bool
	propagationStopped bool
}

// PreventDefault cancels the default action that follows the dispatch.
// Fire returns false once any listener calls it.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// StopPropagation skips every listener that has not run yet for this dispatch.
// It does not change Fire's return value by itself.
func (e *Event) StopPropagation() { e.propagationStopped = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// PropagationStopped reports whether StopPropagation was called.
func (e *Event) PropagationStopped() bool { return e.propagationStopped }

type entry struct {
	id       ListenerID
	listener Listener
	once     bool
}

// Target is a synchronous publish/subscribe registry.
//
// The zero value is ready to use. Registration and removal are safe for
// concurrent use; listeners run synchronously on the goroutine calling Fire.
type Target struct {
	mu        sync.RWMutex
	listeners map[string][]entry
	nextID    ListenerID
}

// NewTarget returns an empty Target.
func NewTarget() *Target {
	return &Target{}
}

// On registers fn for events of type typ and returns its ID.
// Registering the same function twice keeps both entries and both fire.
// A nil fn is ignored and yields the zero ID.
func (t *Target) On(typ string, fn Listener) ListenerID {
	return t.add(typ, fn, false)
}

// Once registers fn like On, but removes it after its first invocation.
func (t *Target) Once(typ string, fn Listener) ListenerID {
	return t.add(typ, fn, true)
}

func (t *Target) add(typ string, fn Listener, once bool) ListenerID {
	if fn == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listeners == nil {
		t.listeners = make(map[string][]entry)
	}
	t.nextID++
	id := t.nextID
	t.listeners[typ] = append(t.listeners[typ], entry{id: id, listener: fn, once: once})
	return id
}

// Unbind removes the listener with the given ID from typ.
// It reports whether a listener was removed.
func (t *Target) Unbind(typ string, id ListenerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeLocked(typ, id)
}

func (t *Target) removeLocked(typ string, id ListenerID) bool {
	entries := t.listeners[typ]
	i := slices.IndexFunc(entries, func(e entry) bool { return e.id == id })
	if i < 0 {
		return false
	}
	entries = slices.Delete(slices.Clone(entries), i, i+1)
	if len(entries) == 0 {
		delete(t.listeners, typ)
	} else {
		t.listeners[typ] = entries
	}
	return true
}

// UnbindAll removes every listener of every type.
func (t *Target) UnbindAll() {
	t.mu.Lock()
	t.listeners = nil
	t.mu.Unlock()
}

// Has reports whether typ has at least one listener. Wildcard listeners
// are not counted.
func (t *Target) Has(typ string) bool {
	return t.Count(typ) > 0
}

// Count returns the number of listeners registered for typ.
func (t *Target) Count(typ string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.listeners[typ])
}

// Fire dispatches an event of type typ. Listeners registered for typ run
// first, in registration order, followed by the Wildcard listeners.
// A listener calling StopPropagation ends the dispatch early.
//
// Fire returns false if any listener called PreventDefault, true otherwise.
// Dispatch works on a snapshot of the registry taken when Fire starts, so
// listeners added or removed during the dispatch take effect on the next call.
// Once listeners are the exception: each is removed right before it runs and
// is skipped if it is no longer registered, so it runs at most once even when
// it fires its own type again.
// Panics in listeners propagate to the caller.
func (t *Target) Fire(typ string, args ...any) bool {
	entries := t.snapshot(typ)
	if len(entries) == 0 {
		return true
	}

	e := &Event{Type: typ}
	for _, en := range entries {
		if en.once && !t.claim(typ, en.id) {
			continue
		}
		en.listener(e, args...)
		if e.propagationStopped {
			break
		}
	}
	return !e.defaultPrevented
}

// claim removes a once listener before it runs. It reports false when the
// listener is already gone, either unbound or spent by a nested Fire.
func (t *Target) claim(typ string, id ListenerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeLocked(typ, id) || t.removeLocked(Wildcard, id)
}

func (t *Target) snapshot(typ string) []entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	typed := t.listeners[typ]
	if typ == Wildcard {
		return slices.Clone(typed)
	}
	wild := t.listeners[Wildcard]
	out := make([]entry, 0, len(typed)+len(wild))
	out = append(out, typed...)
	return append(out, wild...)
}

// Binding pairs an event type with a listener for bulk registration.
type Binding struct {
	Type     string
	Listener Listener
}

// Bind registers every binding in order and returns their IDs.
func (t *Target) Bind(bindings ...Binding) []ListenerID {
	ids := make([]ListenerID, 0, len(bindings))
	for _, b := range bindings {
		ids = append(ids, t.On(b.Type, b.Listener))
	}
	return ids
}
