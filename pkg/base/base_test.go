package base

import (
	"slices"
	"testing"

	"github.com/matzehuels/jet/pkg/attr"
	"github.com/matzehuels/jet/pkg/errors"
	"github.com/matzehuels/jet/pkg/event"
)

func TestNewWiresOnBindings(t *testing.T) {
	var calls []string
	b, err := New(Config{
		"on": []event.Binding{
			{Type: "ping", Listener: func(e *event.Event, args ...any) { calls = append(calls, "first") }},
			{Type: "ping", Listener: func(e *event.Event, args ...any) { calls = append(calls, "second") }},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	b.Fire("ping")
	if want := []string{"first", "second"}; !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestNewWiresListenerMapSorted(t *testing.T) {
	var calls []string
	rec := func(name string) event.Listener {
		return func(e *event.Event, args ...any) { calls = append(calls, name) }
	}
	b, err := New(Config{
		"on": map[string]event.Listener{"b": rec("b"), "a": rec("a")},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := Bindings(b.Get(OnAttr))
	if len(got) != 2 || got[0].Type != "a" || got[1].Type != "b" {
		t.Errorf("bindings = %v, want types [a b]", got)
	}
	b.Fire("b")
	b.Fire("a")
	if want := []string{"b", "a"}; !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestOnListenersSeeConstructionChanges(t *testing.T) {
	var seen []any
	b, err := New(Config{
		"on": map[string]event.Listener{
			attr.ChangeEvent("size"): func(e *event.Event, args ...any) { seen = append(seen, args[0]) },
		},
	}, attr.Decl{Name: "size", Schema: attr.Schema{Value: 1}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	b.Set("size", 2)
	if len(seen) != 1 || seen[0] != 2 {
		t.Errorf("seen = %v, want [2]", seen)
	}
}

func TestOnIsWriteOnce(t *testing.T) {
	c := &errors.Collector{}
	b, err := Build(Config{}, nil, []Option{WithReporter(c)})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	r, err := b.Set(OnAttr, []event.Binding{{Type: "x", Listener: func(*event.Event, ...any) {}}})
	if r != attr.RejectedReadOnly || !errors.Is(err, errors.ErrCodeAttrReadOnly) {
		t.Errorf("Set(on) = %v, %v, want rejected-read-only", r, err)
	}
	if b.Count("x") != 0 {
		t.Error("late bindings must not be wired")
	}
	if c.Len() != 1 {
		t.Errorf("reported %d errors, want 1", c.Len())
	}
}

func TestInvalidOnIgnored(t *testing.T) {
	b, err := New(Config{"on": "not bindings"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if b.IsSet(OnAttr) {
		t.Error("invalid on value should be rejected by validator")
	}
}

func TestNewRequiredAttr(t *testing.T) {
	_, err := Build(Config{}, []attr.Decl{{Name: "id", Schema: attr.Schema{Required: true}}},
		[]Option{WithReporter(errors.Discard)})
	if !errors.Is(err, errors.ErrCodeAttrRequired) {
		t.Errorf("Build() error = %v, want ATTR_REQUIRED", err)
	}
}

func TestDestroy(t *testing.T) {
	b, _ := New(Config{"name": "x"}, attr.Decl{Name: "name"})
	fired := 0
	b.On("ping", func(e *event.Event, args ...any) { fired++ })

	if !b.Destroy() {
		t.Fatal("Destroy() = false, want true")
	}
	if !b.Destroyed() {
		t.Error("Destroyed() = false after Destroy")
	}
	if b.IsSet("name") {
		t.Error("values should be cleared")
	}
	b.Fire("ping")
	if fired != 0 {
		t.Error("listeners should be unbound")
	}
	if b.Destroy() {
		t.Error("second Destroy() = true, want false")
	}
}

func TestDestroyPrevented(t *testing.T) {
	b, _ := New(Config{
		"on": event.Binding{Type: DestroyEvent, Listener: func(e *event.Event, args ...any) { e.PreventDefault() }},
	})

	if b.Destroy() {
		t.Error("Destroy() = true, want false when prevented")
	}
	if b.Destroyed() {
		t.Error("Destroyed() = true after prevented Destroy")
	}
}

func TestBindingsUnsupported(t *testing.T) {
	if got := Bindings(42); got != nil {
		t.Errorf("Bindings(42) = %v, want nil", got)
	}
}
