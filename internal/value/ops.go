package value

import (
	"fmt"
	"math/big"

	"fortio.org/safecast"
)

func sameBits(op string, a, b Value) error {
	if !a.IsBits() || !b.IsBits() {
		return fmt.Errorf("%s: operands must be bits, got %s and %s", op, a, b)
	}
	if a.signed != b.signed || a.width != b.width {
		return fmt.Errorf("%s: operand types differ: %s vs %s", op, a, b)
	}
	return nil
}

func arith(op string, a, b Value, f func(z, x, y *big.Int) *big.Int) (Value, error) {
	if err := sameBits(op, a, b); err != nil {
		return Value{}, err
	}
	return FromBig(a.signed, a.width, f(new(big.Int), a.bits, b.bits)), nil
}

func (v Value) Add(o Value) (Value, error) { return arith("add", v, o, (*big.Int).Add) }
func (v Value) Sub(o Value) (Value, error) { return arith("sub", v, o, (*big.Int).Sub) }
func (v Value) Mul(o Value) (Value, error) { return arith("mul", v, o, (*big.Int).Mul) }

// big.Int bitwise ops use two's complement semantics for negative operands.
func (v Value) And(o Value) (Value, error) { return arith("and", v, o, (*big.Int).And) }
func (v Value) Or(o Value) (Value, error)  { return arith("or", v, o, (*big.Int).Or) }
func (v Value) Xor(o Value) (Value, error) { return arith("xor", v, o, (*big.Int).Xor) }

// Shl shifts left by amount; the amount may have any bits type.
func (v Value) Shl(amount Value) (Value, error) {
	n, err := shiftAmount(v, amount)
	if err != nil {
		return Value{}, err
	}
	return FromBig(v.signed, v.width, new(big.Int).Lsh(v.bits, n)), nil
}

// Shr is a logical shift for unsigned values and arithmetic for signed ones.
func (v Value) Shr(amount Value) (Value, error) {
	n, err := shiftAmount(v, amount)
	if err != nil {
		return Value{}, err
	}
	return FromBig(v.signed, v.width, new(big.Int).Rsh(v.bits, n)), nil
}

func shiftAmount(v, amount Value) (uint, error) {
	if !v.IsBits() || !amount.IsBits() {
		return 0, fmt.Errorf("shift: operands must be bits, got %s and %s", v, amount)
	}
	if amount.bits.Sign() < 0 {
		return 0, fmt.Errorf("shift: negative amount %s", amount)
	}
	if !amount.bits.IsInt64() {
		return 0, fmt.Errorf("shift: amount %s too large", amount)
	}
	n, err := safecast.Conv[uint](amount.bits.Int64())
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Neg is two's complement negation.
func (v Value) Neg() (Value, error) {
	if !v.IsBits() {
		return Value{}, fmt.Errorf("neg: operand must be bits, got %s", v)
	}
	return FromBig(v.signed, v.width, new(big.Int).Neg(v.bits)), nil
}

// Not is bitwise inversion.
func (v Value) Not() (Value, error) {
	if !v.IsBits() {
		return Value{}, fmt.Errorf("not: operand must be bits, got %s", v)
	}
	return FromBig(v.signed, v.width, new(big.Int).Not(v.bits)), nil
}

// Cmp compares two bits values of the same type.
func (v Value) Cmp(o Value) (int, error) {
	if err := sameBits("cmp", v, o); err != nil {
		return 0, err
	}
	return v.bits.Cmp(o.bits), nil
}

// Convert reinterprets v as a bits value of the given signedness and width,
// wrapping as a cast does. truncated reports whether significant bits were lost.
func (v Value) Convert(signed bool, width int64) (out Value, truncated bool, err error) {
	if !v.IsBits() {
		return Value{}, false, fmt.Errorf("convert: operand must be bits, got %s", v)
	}
	out = FromBig(signed, width, v.bits)
	truncated = width < v.width && !FromBig(v.signed, v.width, out.bits).Equal(v)
	return out, truncated, nil
}
