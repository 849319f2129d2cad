// Package parametric provides Env, the immutable binding of parametric
// parameter names to concrete values that identifies one instantiation.
package parametric

import (
	"slices"
	"strings"

	"hdlfront/internal/value"
)

// Binding is one name/value pair of an Env.
type Binding struct {
	Name  string
	Value value.Value
}

// Env maps parametric names to values. It is immutable once built, ordered by
// name, and compared by full content. The zero Env is the empty environment
// used for non-parametric contexts.
//
// Go maps cannot use slices as keys, so Key() provides the canonical string
// used wherever an Env keys a map.
type Env struct {
	bindings []Binding
	key      string
}

// NewEnv builds an Env from bindings. Later duplicates of a name win.
func NewEnv(bindings ...Binding) Env {
	byName := make(map[string]value.Value, len(bindings))
	for _, b := range bindings {
		byName[b.Name] = b.Value
	}
	return FromMap(byName)
}

// FromMap builds an Env from a name → value map.
func FromMap(m map[string]value.Value) Env {
	if len(m) == 0 {
		return Env{}
	}
	out := make([]Binding, 0, len(m))
	for name, v := range m {
		out = append(out, Binding{Name: name, Value: v})
	}
	slices.SortFunc(out, func(a, b Binding) int { return strings.Compare(a.Name, b.Name) })
	return Env{bindings: out, key: render(out)}
}

// Len returns the number of bindings.
func (e Env) Len() int { return len(e.bindings) }

// Empty reports whether the env has no bindings.
func (e Env) Empty() bool { return len(e.bindings) == 0 }

// Bindings returns a copy of the ordered bindings.
func (e Env) Bindings() []Binding {
	return slices.Clone(e.bindings)
}

// Lookup returns the value bound to name.
func (e Env) Lookup(name string) (value.Value, bool) {
	i, found := slices.BinarySearchFunc(e.bindings, name, func(b Binding, n string) int {
		return strings.Compare(b.Name, n)
	})
	if !found {
		return value.Value{}, false
	}
	return e.bindings[i].Value, true
}

// ToMap returns a fresh name → value map.
func (e Env) ToMap() map[string]value.Value {
	m := make(map[string]value.Value, len(e.bindings))
	for _, b := range e.bindings {
		m[b.Name] = b.Value
	}
	return m
}

// Key is the canonical hash key of the env.
func (e Env) Key() string { return e.key }

// Equal compares by content.
func (e Env) Equal(o Env) bool { return e.Compare(o) == 0 }

// Compare orders envs by size, then name by name and value by value.
func (e Env) Compare(o Env) int {
	if len(e.bindings) != len(o.bindings) {
		if len(e.bindings) < len(o.bindings) {
			return -1
		}
		return 1
	}
	for i := range e.bindings {
		if c := strings.Compare(e.bindings[i].Name, o.bindings[i].Name); c != 0 {
			return c
		}
		if c := e.bindings[i].Value.Compare(o.bindings[i].Value); c != 0 {
			return c
		}
	}
	return 0
}

// String renders "{M: u32:9, N: u32:8}".
func (e Env) String() string {
	return "{" + e.key + "}"
}

func render(bs []Binding) string {
	var sb strings.Builder
	for i, b := range bs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.Name)
		sb.WriteString(": ")
		sb.WriteString(b.Value.String())
	}
	return sb.String()
}
