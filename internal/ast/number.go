package ast

import (
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

// Value parses the literal text. Ints accept an optional sign, 0x/0b/0o
// prefixes and '_' separators; bools are true/false; chars are quoted
// single runes.
func (n *Number) Value() (*big.Int, error) {
	switch n.Kind {
	case NumberBool:
		switch n.Text {
		case "true":
			return big.NewInt(1), nil
		case "false":
			return big.NewInt(0), nil
		}
		return nil, fmt.Errorf("invalid bool literal %q", n.Text)
	case NumberChar:
		s := strings.TrimSuffix(strings.TrimPrefix(n.Text, "'"), "'")
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError || size != len(s) {
			return nil, fmt.Errorf("invalid char literal %q", n.Text)
		}
		return big.NewInt(int64(r)), nil
	}
	text := strings.ReplaceAll(n.Text, "_", "")
	neg := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(text, "-")
	base := 10
	if len(text) > 2 && text[0] == '0' {
		switch text[1] {
		case 'x', 'X':
			base = 16
		case 'b', 'B':
			base = 2
		case 'o', 'O':
			base = 8
		}
		if base != 10 {
			text = text[2:]
		}
	}
	v, ok := new(big.Int).SetString(text, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer literal %q", n.Text)
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}
