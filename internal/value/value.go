// Package value models compile-time constant values: the results of constant
// evaluation recorded in type information and the values bound to parametric
// parameters.
package value

import (
	"fmt"
	"math/big"
	"strings"

	"fortio.org/safecast"
)

// Kind enumerates value shapes.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBits
	KindTuple
	KindArray
	KindToken
)

func (k Kind) String() string {
	switch k {
	case KindBits:
		return "bits"
	case KindTuple:
		return "tuple"
	case KindArray:
		return "array"
	case KindToken:
		return "token"
	default:
		return "invalid"
	}
}

// Value is an immutable constant. Bits values hold their mathematical integer
// (negative for signed values with the top bit set) already wrapped to width.
type Value struct {
	kind   Kind
	signed bool
	width  int64
	bits   *big.Int
	elems  []Value
}

// UBits makes an unsigned bits value; v is wrapped to width.
func UBits(width int64, v uint64) Value {
	return FromBig(false, width, new(big.Int).SetUint64(v))
}

// SBits makes a signed bits value; v is wrapped to width.
func SBits(width int64, v int64) Value {
	return FromBig(true, width, big.NewInt(v))
}

// Bool makes a u1 value.
func Bool(b bool) Value {
	if b {
		return UBits(1, 1)
	}
	return UBits(1, 0)
}

// FromBig makes a bits value from x wrapped to width.
func FromBig(signed bool, width int64, x *big.Int) Value {
	if width < 0 {
		panic(fmt.Sprintf("value: negative width %d", width))
	}
	return Value{kind: KindBits, signed: signed, width: width, bits: wrap(signed, width, x)}
}

// Tuple makes a tuple value.
func Tuple(elems ...Value) Value {
	return Value{kind: KindTuple, elems: append([]Value(nil), elems...)}
}

// Array makes an array value; callers guarantee homogeneous elements.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, elems: append([]Value(nil), elems...)}
}

// Token makes the token value.
func Token() Value { return Value{kind: KindToken} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsBits() bool   { return v.kind == KindBits }
func (v Value) IsSigned() bool { return v.signed }
func (v Value) Width() int64   { return v.width }

// Elements returns a copy of tuple/array elements.
func (v Value) Elements() []Value {
	return append([]Value(nil), v.elems...)
}

// Big returns a copy of the integer value of a bits value.
func (v Value) Big() *big.Int {
	if v.bits == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v.bits)
}

// Int64 returns the integer value when it fits.
func (v Value) Int64() (int64, error) {
	if !v.IsBits() {
		return 0, fmt.Errorf("value %s is not bits", v)
	}
	if !v.bits.IsInt64() {
		return 0, fmt.Errorf("value %s does not fit in int64", v)
	}
	return v.bits.Int64(), nil
}

// IsTrue reports whether v is a nonzero bits value.
func (v Value) IsTrue() bool {
	return v.IsBits() && v.bits.Sign() != 0
}

// Equal compares kind, signedness, width and content.
func (v Value) Equal(o Value) bool {
	return v.Compare(o) == 0
}

// Compare is a total order over values: by kind, then signedness, width and
// integer value for bits, then element-wise for aggregates.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		return cmpInt(int64(v.kind), int64(o.kind))
	}
	switch v.kind {
	case KindBits:
		if v.signed != o.signed {
			if v.signed {
				return 1
			}
			return -1
		}
		if c := cmpInt(v.width, o.width); c != 0 {
			return c
		}
		return v.bits.Cmp(o.bits)
	case KindTuple, KindArray:
		if c := cmpInt(int64(len(v.elems)), int64(len(o.elems))); c != 0 {
			return c
		}
		for i := range v.elems {
			if c := v.elems[i].Compare(o.elems[i]); c != 0 {
				return c
			}
		}
	}
	return 0
}

func (v Value) String() string {
	switch v.kind {
	case KindBits:
		prefix := "u"
		if v.signed {
			prefix = "s"
		}
		return fmt.Sprintf("%s%d:%s", prefix, v.width, v.bits.String())
	case KindTuple:
		return "(" + joinValues(v.elems) + ")"
	case KindArray:
		return "[" + joinValues(v.elems) + "]"
	case KindToken:
		return "token"
	default:
		return "<invalid>"
	}
}

func joinValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, e := range vs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// wrap reduces x modulo 2^width and reinterprets the top bit for signed values.
func wrap(signed bool, width int64, x *big.Int) *big.Int {
	w, err := safecast.Conv[uint](width)
	if err != nil {
		panic(fmt.Errorf("value: width %d: %w", width, err))
	}
	if w == 0 {
		return new(big.Int)
	}
	modulus := new(big.Int).Lsh(big.NewInt(1), w)
	out := new(big.Int).Mod(x, modulus)
	if signed && out.Bit(int(w-1)) == 1 {
		out.Sub(out, modulus)
	}
	return out
}
