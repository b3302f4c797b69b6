package attr

import "reflect"

// equal compares attribute values. Comparable dynamic types use ==;
// slices, maps and values whose == would panic fall back to reflect.DeepEqual.
func equal(a, b any) (eq bool) {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}
