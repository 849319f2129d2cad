package parametric

import (
	"testing"

	"hdlfront/internal/value"
)

func TestEnvIsOrderedAndKeyedByContent(t *testing.T) {
	a := NewEnv(Binding{"N", value.UBits(32, 8)}, Binding{"M", value.UBits(32, 9)})
	b := FromMap(map[string]value.Value{"M": value.UBits(32, 9), "N": value.UBits(32, 8)})
	if !a.Equal(b) || a.Key() != b.Key() {
		t.Fatalf("envs with the same content must be equal: %s vs %s", a, b)
	}
	if got := a.String(); got != "{M: u32:9, N: u32:8}" {
		t.Fatalf("unexpected rendering %q", got)
	}
	seen := map[string]Env{a.Key(): a}
	if _, ok := seen[b.Key()]; !ok {
		t.Fatalf("equal envs must hash to the same key")
	}
}

func TestEnvCompare(t *testing.T) {
	small := NewEnv(Binding{"N", value.UBits(32, 4)})
	big := NewEnv(Binding{"N", value.UBits(32, 8)})
	if small.Compare(big) >= 0 || big.Compare(small) <= 0 {
		t.Fatalf("expected {N: 4} < {N: 8}")
	}
	if (Env{}).Compare(small) >= 0 {
		t.Fatalf("empty env orders first")
	}
	if !(Env{}).Empty() || (Env{}).Key() != "" {
		t.Fatalf("zero env must be empty with empty key")
	}
}

func TestEnvLookupAndImmutability(t *testing.T) {
	env := NewEnv(Binding{"N", value.UBits(32, 8)})
	bs := env.Bindings()
	bs[0].Name = "X"
	if _, ok := env.Lookup("N"); !ok {
		t.Fatalf("mutating Bindings() result must not affect the env")
	}
	if _, ok := env.Lookup("X"); ok {
		t.Fatalf("unexpected binding X")
	}
	m := env.ToMap()
	m["Z"] = value.UBits(1, 1)
	if env.Len() != 1 {
		t.Fatalf("mutating ToMap() result must not affect the env")
	}
}
