package modfile

import (
	"strconv"
	"strings"

	"hdlfront/internal/ast"
	"hdlfront/internal/diag"
)

func (d *decoder) exprText(scope *names, text string) (ast.NodeID, error) {
	e, err := parseSexpr(text, d.locate(text))
	if err != nil {
		return ast.NoNodeID, err
	}
	return d.expr(scope, e)
}

func (d *decoder) typeText(scope *names, text string) (ast.NodeID, error) {
	e, err := parseSexpr(text, d.locate(text))
	if err != nil {
		return ast.NoNodeID, err
	}
	return d.typ(scope, e)
}

func arity(e sexpr, n int) error {
	if len(e.list)-1 != n {
		return errorf(diag.InputDecode, e.span, "%s takes %d operands, got %d", e.head(), n, len(e.list)-1)
	}
	return nil
}

func isNumeric(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func (d *decoder) exprs(scope *names, es []sexpr) ([]ast.NodeID, error) {
	out := make([]ast.NodeID, 0, len(es))
	for _, e := range es {
		id, err := d.expr(scope, e)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// optional decodes e unless it is the placeholder "_".
func (d *decoder) optional(scope *names, e sexpr) (ast.NodeID, error) {
	if e.isAtom("_") {
		return ast.NoNodeID, nil
	}
	return d.expr(scope, e)
}

func (d *decoder) colonRef(e sexpr) (importID ast.NodeID, member string, err error) {
	alias, member, _ := strings.Cut(e.atom, "::")
	imp, ok := d.imports[alias]
	if !ok {
		return ast.NoNodeID, "", errorf(diag.InputUnresolvedName, e.span, "unknown import %s", alias)
	}
	if member == "" {
		return ast.NoNodeID, "", errorf(diag.InputDecode, e.span, "missing member after %s::", alias)
	}
	return imp, member, nil
}

func (d *decoder) atom(scope *names, e sexpr) (ast.NodeID, error) {
	switch {
	case e.quoted:
		return ast.NoNodeID, errorf(diag.InputDecode, e.span, "unexpected string %q", e.atom)
	case e.atom == "true" || e.atom == "false":
		return d.m.New(e.span, &ast.Number{Text: e.atom, Kind: ast.NumberBool}), nil
	case strings.Contains(e.atom, "::"):
		imp, member, err := d.colonRef(e)
		if err != nil {
			return ast.NoNodeID, err
		}
		return d.m.New(e.span, &ast.ColonRef{Import: imp, Member: member}), nil
	case isNumeric(e.atom):
		return d.m.Num(e.span, e.atom), nil
	case strings.Contains(e.atom, ":"):
		// u8:3, s4:-1, bool:true
		typText, lit, _ := strings.Cut(e.atom, ":")
		t, err := d.typ(scope, sexpr{atom: typText, span: e.span})
		if err != nil {
			return ast.NoNodeID, err
		}
		kind := ast.NumberInt
		switch {
		case lit == "true" || lit == "false":
			kind = ast.NumberBool
		case !isNumeric(lit):
			return ast.NoNodeID, errorf(diag.InputDecode, e.span, "invalid literal %q", e.atom)
		}
		return d.m.New(e.span, &ast.Number{Text: lit, Kind: kind, Type: t}), nil
	}
	def, ok := scope.lookup(nfc(e.atom))
	if !ok {
		return ast.NoNodeID, errorf(diag.InputUnresolvedName, e.span, "unknown name %s", e.atom)
	}
	return d.m.Ref(e.span, def), nil
}

func (d *decoder) expr(scope *names, e sexpr) (ast.NodeID, error) {
	if !e.isList {
		return d.atom(scope, e)
	}
	head := e.head()
	if head == "" {
		return ast.NoNodeID, errorf(diag.InputUnknownNodeKind, e.span, "expression list needs an operator")
	}
	args := e.list[1:]
	if op, ok := ast.ParseBinop(head); ok && len(args) == 2 {
		ops, err := d.exprs(scope, args)
		if err != nil {
			return ast.NoNodeID, err
		}
		return d.m.New(e.span, &ast.Binop{Op: op, Lhs: ops[0], Rhs: ops[1]}), nil
	}
	switch head {
	case "-", "!":
		if err := arity(e, 1); err != nil {
			return ast.NoNodeID, err
		}
		operand, err := d.expr(scope, args[0])
		if err != nil {
			return ast.NoNodeID, err
		}
		op := ast.UnopNeg
		if head == "!" {
			op = ast.UnopInvert
		}
		return d.m.New(e.span, &ast.Unop{Op: op, Operand: operand}), nil
	case "as":
		if err := arity(e, 2); err != nil {
			return ast.NoNodeID, err
		}
		x, err := d.expr(scope, args[0])
		if err != nil {
			return ast.NoNodeID, err
		}
		t, err := d.typ(scope, args[1])
		if err != nil {
			return ast.NoNodeID, err
		}
		return d.m.New(e.span, &ast.Cast{Expr: x, Type: t}), nil
	case "tuple":
		members, err := d.exprs(scope, args)
		if err != nil {
			return ast.NoNodeID, err
		}
		return d.m.New(e.span, &ast.Tuple{Members: members}), nil
	case "array":
		members, err := d.exprs(scope, args)
		if err != nil {
			return ast.NoNodeID, err
		}
		return d.m.New(e.span, &ast.Array{Members: members}), nil
	case "array-of":
		if len(args) == 0 {
			return ast.NoNodeID, errorf(diag.InputDecode, e.span, "array-of needs an element type")
		}
		t, err := d.typ(scope, args[0])
		if err != nil {
			return ast.NoNodeID, err
		}
		members, err := d.exprs(scope, args[1:])
		if err != nil {
			return ast.NoNodeID, err
		}
		return d.m.New(e.span, &ast.Array{Members: members, Type: t}), nil
	case "index":
		if err := arity(e, 2); err != nil {
			return ast.NoNodeID, err
		}
		ops, err := d.exprs(scope, args)
		if err != nil {
			return ast.NoNodeID, err
		}
		return d.m.New(e.span, &ast.Index{Lhs: ops[0], Index: ops[1]}), nil
	case "tindex":
		if err := arity(e, 2); err != nil {
			return ast.NoNodeID, err
		}
		lhs, err := d.expr(scope, args[0])
		if err != nil {
			return ast.NoNodeID, err
		}
		idx, err := strconv.ParseInt(args[1].atom, 10, 64)
		if err != nil || args[1].isList {
			return ast.NoNodeID, errorf(diag.InputDecode, args[1].span, "tuple index must be an integer")
		}
		return d.m.New(e.span, &ast.TupleIndex{Lhs: lhs, Index: idx}), nil
	case "slice":
		if err := arity(e, 3); err != nil {
			return ast.NoNodeID, err
		}
		lhs, err := d.expr(scope, args[0])
		if err != nil {
			return ast.NoNodeID, err
		}
		start, err := d.optional(scope, args[1])
		if err != nil {
			return ast.NoNodeID, err
		}
		limit, err := d.optional(scope, args[2])
		if err != nil {
			return ast.NoNodeID, err
		}
		return d.m.New(e.span, &ast.Slice{Lhs: lhs, Start: start, Limit: limit}), nil
	case "if":
		if err := arity(e, 3); err != nil {
			return ast.NoNodeID, err
		}
		ops, err := d.exprs(scope, args)
		if err != nil {
			return ast.NoNodeID, err
		}
		return d.m.New(e.span, &ast.Conditional{Test: ops[0], Consequent: ops[1], Alternate: ops[2]}), nil
	case "block":
		return d.block(scope, e)
	case "let":
		return ast.NoNodeID, errorf(diag.InputDecode, e.span, "let is only allowed inside a block")
	case "call", "spawn":
		return d.invocation(scope, e)
	case "fail!", "cover!":
		if err := arity(e, 2); err != nil {
			return ast.NoNodeID, err
		}
		if !args[0].quoted {
			return ast.NoNodeID, errorf(diag.InputDecode, args[0].span, "%s label must be a string", head)
		}
		x, err := d.expr(scope, args[1])
		if err != nil {
			return ast.NoNodeID, err
		}
		if head == "fail!" {
			return d.m.New(e.span, &ast.Fail{Label: args[0].atom, Value: x}), nil
		}
		return d.m.New(e.span, &ast.Cover{Label: args[0].atom, Condition: x}), nil
	case "struct":
		return d.structInstance(scope, e)
	case ".":
		if err := arity(e, 2); err != nil {
			return ast.NoNodeID, err
		}
		lhs, err := d.expr(scope, args[0])
		if err != nil {
			return ast.NoNodeID, err
		}
		return d.m.New(e.span, &ast.Attr{Lhs: lhs, Field: nfc(args[1].atom)}), nil
	case "char":
		if err := arity(e, 1); err != nil {
			return ast.NoNodeID, err
		}
		if !args[0].quoted {
			return ast.NoNodeID, errorf(diag.InputDecode, args[0].span, "char takes a string")
		}
		return d.m.New(e.span, &ast.Number{Text: "'" + args[0].atom + "'", Kind: ast.NumberChar}), nil
	}
	return ast.NoNodeID, errorf(diag.InputUnknownNodeKind, e.span, "unknown form %s", head)
}

// block decodes (block stmt... result). A trailing let leaves the block
// without a result.
func (d *decoder) block(scope *names, e sexpr) (ast.NodeID, error) {
	inner := scope
	var stmts []ast.NodeID
	result := ast.NoNodeID
	for i, item := range e.list[1:] {
		last := i == len(e.list)-2
		if item.head() != "let" {
			id, err := d.expr(inner, item)
			if err != nil {
				return ast.NoNodeID, err
			}
			if last {
				result = id
			} else {
				stmts = append(stmts, id)
			}
			continue
		}
		// (let name rhs) or (let name type rhs)
		args := item.list[1:]
		if len(args) != 2 && len(args) != 3 {
			return ast.NoNodeID, errorf(diag.InputDecode, item.span, "let takes a name, an optional type and a value")
		}
		typ := ast.NoNodeID
		if len(args) == 3 {
			t, err := d.typ(inner, args[1])
			if err != nil {
				return ast.NoNodeID, err
			}
			typ = t
		}
		rhs, err := d.expr(inner, args[len(args)-1])
		if err != nil {
			return ast.NoNodeID, err
		}
		inner = inner.child()
		nd, err := d.declare(inner, args[0].atom, args[0].span)
		if err != nil {
			return ast.NoNodeID, err
		}
		stmts = append(stmts, d.m.New(item.span, &ast.Let{NameDef: nd, Type: typ, Rhs: rhs}))
	}
	return d.m.New(e.span, &ast.Block{Stmts: stmts, Result: result}), nil
}

// invocation decodes (call f args...) and (spawn P args...). The callee may
// be a list (f p...) carrying explicit parametrics.
func (d *decoder) invocation(scope *names, e sexpr) (ast.NodeID, error) {
	if len(e.list) < 2 {
		return ast.NoNodeID, errorf(diag.InputDecode, e.span, "%s needs a callee", e.head())
	}
	target := e.list[1]
	var parametrics []ast.NodeID
	if target.isList {
		if len(target.list) == 0 || target.list[0].isList {
			return ast.NoNodeID, errorf(diag.InputDecode, target.span, "malformed callee")
		}
		ps, err := d.exprs(scope, target.list[1:])
		if err != nil {
			return ast.NoNodeID, err
		}
		parametrics = ps
		target = target.list[0]
	}
	callee, err := d.atom(scope, target)
	if err != nil {
		return ast.NoNodeID, err
	}
	args, err := d.exprs(scope, e.list[2:])
	if err != nil {
		return ast.NoNodeID, err
	}
	if e.head() == "spawn" {
		return d.m.New(e.span, &ast.Spawn{Proc: callee, Parametrics: parametrics, Args: args}), nil
	}
	return d.m.New(e.span, &ast.Invocation{Callee: callee, Parametrics: parametrics, Args: args}), nil
}

// structInstance decodes (struct S (field value)...).
func (d *decoder) structInstance(scope *names, e sexpr) (ast.NodeID, error) {
	if len(e.list) < 2 {
		return ast.NoNodeID, errorf(diag.InputDecode, e.span, "struct needs a type")
	}
	t, err := d.typ(scope, e.list[1])
	if err != nil {
		return ast.NoNodeID, err
	}
	var members []ast.StructMember
	for _, f := range e.list[2:] {
		if !f.isList || len(f.list) != 2 || f.list[0].isList {
			return ast.NoNodeID, errorf(diag.InputDecode, f.span, "struct member must be (field value)")
		}
		v, err := d.expr(scope, f.list[1])
		if err != nil {
			return ast.NoNodeID, err
		}
		members = append(members, ast.StructMember{Name: nfc(f.list[0].atom), Value: v})
	}
	return d.m.New(e.span, &ast.StructInstance{Struct: t, Members: members}), nil
}
