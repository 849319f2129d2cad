package modfile

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"hdlfront/internal/ast"
	"hdlfront/internal/diag"
)

func nfc(s string) string { return norm.NFC.String(s) }

// bitsWidth parses u8 / s16 style names.
func bitsWidth(s string) (signed bool, width int64, ok bool) {
	if len(s) < 2 || (s[0] != 'u' && s[0] != 's') {
		return false, 0, false
	}
	w, err := strconv.ParseInt(s[1:], 10, 64)
	if err != nil || w <= 0 {
		return false, 0, false
	}
	return s[0] == 's', w, true
}

func (d *decoder) typ(scope *names, e sexpr) (ast.NodeID, error) {
	if !e.isList {
		switch {
		case e.quoted:
			return ast.NoNodeID, errorf(diag.InputBadType, e.span, "unexpected string in type")
		case e.atom == "bool":
			return d.m.New(e.span, &ast.BuiltinType{Base: ast.BuiltinBool}), nil
		case e.atom == "token":
			return d.m.New(e.span, &ast.BuiltinType{Base: ast.BuiltinToken}), nil
		case strings.Contains(e.atom, "::"):
			imp, member, err := d.colonRef(e)
			if err != nil {
				return ast.NoNodeID, err
			}
			return d.m.New(e.span, &ast.TypeRef{Name: member, Import: imp}), nil
		}
		if signed, width, ok := bitsWidth(e.atom); ok {
			return d.m.Bits(e.span, signed, width), nil
		}
		name := nfc(e.atom)
		if !validIdent(name) {
			return ast.NoNodeID, errorf(diag.InputBadType, e.span, "invalid type %q", e.atom)
		}
		id := d.m.New(e.span, &ast.TypeRef{Name: name})
		d.typeRef = append(d.typeRef, pendingRef{ref: id, span: e.span})
		return id, nil
	}
	if len(e.list) == 0 {
		return d.m.New(e.span, &ast.TupleType{}), nil
	}
	args := e.list[1:]
	switch e.head() {
	case "uN", "sN":
		if err := arity(e, 1); err != nil {
			return ast.NoNodeID, err
		}
		dim, err := d.expr(scope, args[0])
		if err != nil {
			return ast.NoNodeID, err
		}
		base := ast.BuiltinUN
		if e.head() == "sN" {
			base = ast.BuiltinSN
		}
		return d.m.New(e.span, &ast.BuiltinType{Base: base, Dim: dim}), nil
	case "array":
		if err := arity(e, 2); err != nil {
			return ast.NoNodeID, err
		}
		elem, err := d.typ(scope, args[0])
		if err != nil {
			return ast.NoNodeID, err
		}
		dim, err := d.expr(scope, args[1])
		if err != nil {
			return ast.NoNodeID, err
		}
		return d.m.New(e.span, &ast.ArrayType{Elem: elem, Dim: dim}), nil
	case "tuple":
		members := make([]ast.NodeID, 0, len(args))
		for _, a := range args {
			t, err := d.typ(scope, a)
			if err != nil {
				return ast.NoNodeID, err
			}
			members = append(members, t)
		}
		return d.m.New(e.span, &ast.TupleType{Members: members}), nil
	}
	return ast.NoNodeID, errorf(diag.InputBadType, e.span, "unknown type form %s", e.head())
}
