package attr

import "fmt"

// Schema declares how one attribute behaves.
//
// The zero Schema describes a plain attribute: no default, no validation,
// no transformation, freely writable.
type Schema struct {
	// Value is the default. It is stored lazily, on the first Get or on the
	// first Set that needs a previous value to compare against.
	Value any

	// Validator gates writes. When it returns false the write is dropped and
	// Set reports RejectedByValidator without firing a change event.
	Validator func(v any) bool

	// Setter transforms an accepted value; its result is what gets stored.
	Setter func(v any, name string) any

	// Getter transforms the stored value on every Get.
	Getter func(v any, name string) any

	// WriteOnce locks the attribute after its first successful write or its
	// first read, whichever happens first. The lock never lifts. Only an
	// Applied Set counts as a write: a Set that is Unchanged, Prevented or
	// rejected by the Validator leaves the attribute unlocked.
	WriteOnce bool

	// ReadOnly rejects every Set. Values supplied at construction are ignored,
	// so the attribute only ever exposes its default (through the Getter).
	ReadOnly bool

	// Required makes AddAttr fail when the construction config carries no
	// value for the attribute. Required and ReadOnly are mutually exclusive.
	Required bool
}

// Decl names a Schema. Slices of Decl keep declaration order explicit.
type Decl struct {
	Name   string
	Schema Schema
}

// Result is the outcome of a Set call.
type Result int

const (
	// Applied means the value was stored and a change event was fired.
	Applied Result = iota
	// Unchanged means the transformed value equals the stored value; nothing
	// was fired.
	Unchanged
	// Prevented means a "<name>Change" listener called PreventDefault; the
	// stored value is untouched.
	Prevented
	// RejectedByValidator means the validator returned false.
	RejectedByValidator
	// RejectedReadOnly means the attribute is read-only or a locked write-once
	// attribute. Set also returns an ATTR_READ_ONLY error.
	RejectedReadOnly
)

// String returns the lowercase name of the result.
func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case Unchanged:
		return "unchanged"
	case Prevented:
		return "prevented"
	case RejectedByValidator:
		return "rejected-by-validator"
	case RejectedReadOnly:
		return "rejected-read-only"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Change is the side-effect-free plan for one Set call, produced by
// [Attributes.Plan]. Result is Applied when the write would fire a change
// event; the event itself may still veto it.
type Change struct {
	Name   string
	Result Result
	Prev   any // stored value (or the default that would be backfilled)
	Value  any // value after the Setter

	backfill bool
}

// ChangeEvent returns the event type fired when attribute name changes.
func ChangeEvent(name string) string {
	return name + "Change"
}
