package types

import (
	"fmt"
	"math/big"

	"fortio.org/safecast"
)

// As type-asserts t to the variant T.
func As[T Type](t Type) (T, bool) {
	v, ok := t.(T)
	return v, ok
}

// SizedToFit returns the narrowest bits type able to hold x: unsigned for
// non-negative values, signed otherwise. Zero needs one bit.
func SizedToFit(x *big.Int) *BitsType {
	if x.Sign() >= 0 {
		n := x.BitLen()
		if n == 0 {
			n = 1
		}
		return U(mustInt64(n))
	}
	// -x-1 has the magnitude bits of a negative two's complement value.
	mag := new(big.Int).Neg(x)
	mag.Sub(mag, big.NewInt(1))
	return S(mustInt64(mag.BitLen() + 1))
}

// Fits reports whether x is representable in t.
func Fits(x *big.Int, t *BitsType) bool {
	w, err := safecast.Conv[uint](t.Width)
	if err != nil {
		return false
	}
	one := big.NewInt(1)
	if !t.Signed {
		limit := new(big.Int).Lsh(one, w)
		return x.Sign() >= 0 && x.Cmp(limit) < 0
	}
	if w == 0 {
		return x.Sign() == 0
	}
	limit := new(big.Int).Lsh(one, w-1)
	low := new(big.Int).Neg(limit)
	return x.Cmp(low) >= 0 && x.Cmp(limit) < 0
}

// BitCount returns the flattened bit width of t.
func BitCount(t Type) (int64, error) {
	switch v := t.(type) {
	case *BitsType:
		return v.Width, nil
	case *TupleType:
		return sumBits(v.Members)
	case *StructType:
		members := make([]Type, len(v.Fields))
		for i, f := range v.Fields {
			members[i] = f.Type
		}
		return sumBits(members)
	case *ArrayType:
		n, err := BitCount(v.Elem)
		if err != nil {
			return 0, err
		}
		return n * v.Size, nil
	case *TokenType:
		return 0, nil
	default:
		return 0, fmt.Errorf("type %s has no bit count", t)
	}
}

func sumBits(ts []Type) (int64, error) {
	var total int64
	for _, m := range ts {
		n, err := BitCount(m)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// IsParametric reports whether t mentions a parametric placeholder.
func IsParametric(t Type) bool {
	switch v := t.(type) {
	case *ParametricType:
		return true
	case *TupleType:
		return anyParametric(v.Members)
	case *StructType:
		for _, f := range v.Fields {
			if IsParametric(f.Type) {
				return true
			}
		}
	case *ArrayType:
		return IsParametric(v.Elem)
	case *FunctionType:
		return anyParametric(v.Params) || IsParametric(v.Return)
	}
	return false
}

func anyParametric(ts []Type) bool {
	for _, t := range ts {
		if IsParametric(t) {
			return true
		}
	}
	return false
}

func mustInt64(n int) int64 {
	v, err := safecast.Conv[int64](n)
	if err != nil {
		panic(fmt.Errorf("bit length overflow: %w", err))
	}
	return v
}
