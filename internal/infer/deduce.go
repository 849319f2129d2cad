package infer

import (
	"fmt"

	"hdlfront/internal/ast"
	"hdlfront/internal/typeinfo"
	"hdlfront/internal/types"
)

// deduce computes the type of id in s. expected is the type demanded by the
// context, nil when the context does not constrain it. A bound variable or a
// user-written annotation on the node takes precedence over expected; an
// auto annotation only applies when nothing else does.
func (r *resolver) deduce(s *scope, id ast.NodeID, expected types.Type) (types.Type, error) {
	n := s.module.MustNode(id)
	if err := r.settleRef(s, n, expected); err != nil {
		return nil, err
	}
	want := expected
	fixed, err := r.fixedAnnotation(s, n)
	if err != nil {
		return nil, err
	}
	if fixed != nil {
		want = fixed
	}
	if bound := r.boundVar(s, n); bound != nil {
		want = bound
	}
	if want != nil && types.IsParametric(want) {
		want = nil
	}
	got, err := r.deduceNode(s, n, want)
	if err != nil {
		return nil, err
	}
	if err := r.assign(s, n, got, expected); err != nil {
		return nil, err
	}
	if err := r.noteConst(s, n, got); err != nil {
		return nil, err
	}
	return got, nil
}

// assign records t for n after checking it against expected, the node's
// variable and its fixed annotation; the variable is bound on first use.
func (r *resolver) assign(s *scope, n *ast.Node, t, expected types.Type) error {
	if expected != nil && !types.IsParametric(expected) && !expected.Equal(t) {
		return mismatch(n, expected, t, "type mismatch")
	}
	if v, ok := s.tab.table.GetTypeVariable(n); ok {
		if b := s.subst[v]; b != nil {
			if !b.Equal(t) {
				variable, _ := s.tab.table.Variable(v)
				return mismatch(n, b, t, "conflicting types for "+variable.Name)
			}
		} else {
			s.subst[v] = t
		}
	}
	fixed, err := r.fixedAnnotation(s, n)
	if err != nil {
		return err
	}
	if fixed != nil && !fixed.Equal(t) {
		return mismatch(n, fixed, t, "annotated type mismatch")
	}
	s.ti.SetType(n, t)
	return nil
}

func (r *resolver) boundVar(s *scope, n *ast.Node) types.Type {
	if v, ok := s.tab.table.GetTypeVariable(n); ok {
		return s.subst[v]
	}
	return nil
}

// fixedAnnotation resolves the non-negotiable annotation of n, if any.
func (r *resolver) fixedAnnotation(s *scope, n *ast.Node) (types.Type, error) {
	aid, ok := s.tab.table.GetTypeAnnotation(n)
	if !ok || s.tab.auto.Has(aid) {
		return nil, nil
	}
	ann, _ := s.tab.table.Annotation(aid)
	switch ann.Kind {
	case AnnSyntax:
		return r.concreteAnnotation(s, ann.Node)
	case AnnVariable:
		return r.variableType(s, ann.Var), nil
	case AnnBits:
		if ann.Signed {
			return types.S(ann.Width), nil
		}
		return types.U(ann.Width), nil
	}
	return nil, nil
}

// variableType is the type bound to v in s, or the type recorded for the
// variable's definer in the enclosing tree.
func (r *resolver) variableType(s *scope, v VarID) types.Type {
	if t := s.subst[v]; t != nil {
		return t
	}
	variable, ok := s.tab.table.Variable(v)
	if !ok {
		return nil
	}
	if t, ok := s.ti.GetType(s.module.MustNode(variable.Definer)); ok && !types.IsParametric(t) {
		return t
	}
	return nil
}

// negotiable reports whether id is built only from unsized literals and
// parked bindings, so its type is still open.
func (r *resolver) negotiable(s *scope, id ast.NodeID) bool {
	n := s.module.MustNode(id)
	if r.boundVar(s, n) != nil {
		return false
	}
	switch x := n.Payload.(type) {
	case *ast.Number:
		aid, ok := s.tab.table.GetTypeAnnotation(n)
		return ok && s.tab.auto.Has(aid)
	case *ast.Unop:
		return r.negotiable(s, x.Operand)
	case *ast.Binop:
		switch {
		case x.Op.IsShift(), x.Op.IsComparison(), x.Op == ast.BinopConcat,
			x.Op == ast.BinopLogicalAnd, x.Op == ast.BinopLogicalOr:
			return false
		}
		return r.negotiable(s, x.Lhs) && r.negotiable(s, x.Rhs)
	case *ast.NameRef:
		if nd, ok := ast.Get[ast.NameDef](s.module, x.Def); ok && r.ensureDefiner(s, nd.Definer) != nil {
			return false
		}
		_, p := r.pendingOf(s, n)
		return p != nil
	}
	return false
}

// deducePair deduces two operands that must share a type. Without context
// two open operands meet at the wider of their natural types; otherwise the
// operand whose type is fixed goes first.
func (r *resolver) deducePair(s *scope, a, b ast.NodeID, want types.Type) (types.Type, error) {
	if want == nil && r.negotiable(s, a) && r.negotiable(s, b) {
		if t := widerBits(r.naturalType(s, a), r.naturalType(s, b)); t != nil {
			if _, err := r.deduce(s, a, t); err != nil {
				return nil, err
			}
			if _, err := r.deduce(s, b, t); err != nil {
				return nil, err
			}
			return t, nil
		}
	}
	if want == nil && r.negotiable(s, a) && !r.negotiable(s, b) {
		bt, err := r.deduce(s, b, nil)
		if err != nil {
			return nil, err
		}
		if _, err := r.deduce(s, a, bt); err != nil {
			return nil, err
		}
		return bt, nil
	}
	at, err := r.deduce(s, a, want)
	if err != nil {
		return nil, err
	}
	if _, err := r.deduce(s, b, at); err != nil {
		return nil, err
	}
	return at, nil
}

func (r *resolver) deduceNode(s *scope, n *ast.Node, want types.Type) (types.Type, error) {
	switch x := n.Payload.(type) {
	case *ast.Number:
		return r.deduceNumber(s, n, x, want)
	case *ast.NameRef:
		return r.deduceNameRef(s, n, x)
	case *ast.ColonRef:
		member, info, err := r.importedMember(s, n, x.Import, x.Member)
		if err != nil {
			return nil, err
		}
		return info.TypeInfo.GetTypeOrError(member)
	case *ast.Binop:
		return r.deduceBinop(s, n, x, want)
	case *ast.Unop:
		t, err := r.deduce(s, x.Operand, want)
		if err != nil {
			return nil, err
		}
		if _, ok := t.(*types.BitsType); !ok {
			return nil, invalid(n, "unary %s needs a bits operand, got %s", x.Op, t)
		}
		return t, nil
	case *ast.Cast:
		return r.deduceCast(s, n, x)
	case *ast.Tuple:
		wt, _ := want.(*types.TupleType)
		members := make([]types.Type, 0, len(x.Members))
		for i, mid := range x.Members {
			var mw types.Type
			if wt != nil && len(wt.Members) == len(x.Members) {
				mw = wt.Members[i]
			}
			mt, err := r.deduce(s, mid, mw)
			if err != nil {
				return nil, err
			}
			members = append(members, mt)
		}
		return types.Tuple(members...), nil
	case *ast.Array:
		return r.deduceArray(s, n, x, want)
	case *ast.Index:
		lt, err := r.deduce(s, x.Lhs, nil)
		if err != nil {
			return nil, err
		}
		at, ok := lt.(*types.ArrayType)
		if !ok {
			return nil, invalid(n, "cannot index a value of type %s", lt)
		}
		it, err := r.deduce(s, x.Index, nil)
		if err != nil {
			return nil, err
		}
		if _, ok := it.(*types.BitsType); !ok {
			return nil, invalid(n, "array index must be bits, got %s", it)
		}
		return at.Elem, nil
	case *ast.TupleIndex:
		lt, err := r.deduce(s, x.Lhs, nil)
		if err != nil {
			return nil, err
		}
		tt, ok := lt.(*types.TupleType)
		if !ok {
			return nil, invalid(n, "cannot tuple-index a value of type %s", lt)
		}
		if x.Index < 0 || x.Index >= int64(len(tt.Members)) {
			return nil, invalid(n, "tuple index %d out of range for %s", x.Index, tt)
		}
		return tt.Members[x.Index], nil
	case *ast.Slice:
		return r.deduceSlice(s, n, x)
	case *ast.Conditional:
		if _, err := r.deduce(s, x.Test, types.Bool()); err != nil {
			return nil, err
		}
		return r.deducePair(s, x.Consequent, x.Alternate, want)
	case *ast.Block:
		return r.deduceBlock(s, x, want)
	case *ast.Let:
		return r.deduceLet(s, x)
	case *ast.Invocation:
		return r.deduceInvocation(s, n, x)
	case *ast.Spawn:
		return r.deduceSpawn(s, n, x)
	case *ast.Fail:
		if s.token != nil {
			*s.token = true
		}
		return r.deduce(s, x.Value, want)
	case *ast.Cover:
		if s.token != nil {
			*s.token = true
		}
		if _, err := r.deduce(s, x.Condition, types.Bool()); err != nil {
			return nil, err
		}
		return types.Unit(), nil
	case *ast.StructInstance:
		return r.deduceStructInstance(s, n, x)
	case *ast.Attr:
		lt, err := r.deduce(s, x.Lhs, nil)
		if err != nil {
			return nil, err
		}
		st, ok := lt.(*types.StructType)
		if !ok {
			return nil, invalid(n, "cannot access field %s of %s", x.Field, lt)
		}
		_, ft, ok := st.Field(x.Field)
		if !ok {
			return nil, invalid(n, "struct %s has no field %s", st.Name, x.Field)
		}
		return ft, nil
	}
	return nil, invalid(n, "unexpected %s in expression position", n.Kind)
}

func (r *resolver) deduceNumber(s *scope, n *ast.Node, num *ast.Number, want types.Type) (types.Type, error) {
	v, err := num.Value()
	if err != nil {
		return nil, invalid(n, "%v", err)
	}
	if num.Type.IsValid() {
		t, err := r.concreteAnnotation(s, num.Type)
		if err != nil {
			return nil, err
		}
		bt, ok := t.(*types.BitsType)
		if !ok {
			return nil, invalid(n, "literal annotated with non-bits type %s", t)
		}
		if !types.Fits(v, bt) {
			return nil, invalid(n, "literal %s does not fit in %s", num.Text, bt)
		}
		return bt, nil
	}
	if num.Kind == ast.NumberBool {
		return types.Bool(), nil
	}
	sized := types.SizedToFit(v)
	if want == nil {
		return sized, nil
	}
	bt, ok := want.(*types.BitsType)
	if !ok {
		return nil, mismatch(n, want, sized, "literal cannot take type")
	}
	if !types.Fits(v, bt) {
		return nil, &Error{Kind: Unification, Node: n,
			Msg: fmt.Sprintf("literal %s does not fit in %s (needs %s)", num.Text, bt, sized)}
	}
	return bt, nil
}

func (r *resolver) deduceNameRef(s *scope, n *ast.Node, ref *ast.NameRef) (types.Type, error) {
	nameDef := s.module.Node(ref.Def)
	if nameDef == nil {
		return nil, invalid(n, "unresolved name %s", ref.Identifier)
	}
	if nd, ok := nameDef.Payload.(*ast.NameDef); ok {
		if err := r.ensureDefiner(s, nd.Definer); err != nil {
			return nil, err
		}
	}
	t, ok := s.ti.GetType(nameDef)
	if !ok {
		return nil, invalid(n, "type of %s is not known here", ref.Identifier)
	}
	return t, nil
}

// importedMember resolves name in the module bound to an import node.
func (r *resolver) importedMember(s *scope, n *ast.Node, importID ast.NodeID, name string) (*ast.Node, *typeinfo.ImportedInfo, error) {
	imp := s.module.Node(importID)
	if imp == nil || imp.Kind != ast.KindImport {
		return nil, nil, invalid(n, "%s does not refer to an import", name)
	}
	info, err := s.ti.Root().GetImportedOrError(imp)
	if err != nil {
		return nil, nil, err
	}
	member, ok := info.Module.Member(name)
	if !ok {
		return nil, nil, invalid(n, "module %s has no member %s", info.Module.Name, name)
	}
	if !isPublic(member) {
		return nil, nil, invalid(n, "%s::%s is not public", info.Module.Name, name)
	}
	return member, info, nil
}

func isPublic(n *ast.Node) bool {
	switch x := n.Payload.(type) {
	case *ast.ConstantDef:
		return x.Public
	case *ast.Function:
		return x.Public
	case *ast.Proc:
		return x.Public
	case *ast.StructDef:
		return x.Public
	}
	return false
}

func (r *resolver) deduceBinop(s *scope, n *ast.Node, b *ast.Binop, want types.Type) (types.Type, error) {
	switch {
	case b.Op.IsShift():
		lt, err := r.deduce(s, b.Lhs, want)
		if err != nil {
			return nil, err
		}
		rt, err := r.deduce(s, b.Rhs, nil)
		if err != nil {
			return nil, err
		}
		if _, ok := lt.(*types.BitsType); !ok {
			return nil, invalid(n, "cannot shift %s", lt)
		}
		if rb, ok := rt.(*types.BitsType); !ok || rb.Signed {
			return nil, invalid(n, "shift amount must be unsigned bits, got %s", rt)
		}
		return lt, nil
	case b.Op == ast.BinopLogicalAnd || b.Op == ast.BinopLogicalOr:
		for _, id := range []ast.NodeID{b.Lhs, b.Rhs} {
			if _, err := r.deduce(s, id, types.Bool()); err != nil {
				return nil, err
			}
		}
		return types.Bool(), nil
	case b.Op == ast.BinopConcat:
		lt, err := r.deduce(s, b.Lhs, nil)
		if err != nil {
			return nil, err
		}
		rt, err := r.deduce(s, b.Rhs, nil)
		if err != nil {
			return nil, err
		}
		return concatType(n, lt, rt)
	case b.Op.IsComparison():
		if _, err := r.deducePair(s, b.Lhs, b.Rhs, nil); err != nil {
			return nil, err
		}
		return types.Bool(), nil
	}
	t, err := r.deducePair(s, b.Lhs, b.Rhs, want)
	if err != nil {
		return nil, err
	}
	if _, ok := t.(*types.BitsType); !ok {
		return nil, invalid(n, "operator %s needs bits operands, got %s", b.Op, t)
	}
	return t, nil
}

func concatType(n *ast.Node, lt, rt types.Type) (types.Type, error) {
	switch l := lt.(type) {
	case *types.BitsType:
		if rb, ok := rt.(*types.BitsType); ok {
			return types.U(l.Width + rb.Width), nil
		}
	case *types.ArrayType:
		if ra, ok := rt.(*types.ArrayType); ok && l.Elem.Equal(ra.Elem) {
			return types.Array(l.Elem, l.Size+ra.Size), nil
		}
	}
	return nil, invalid(n, "cannot concatenate %s and %s", lt, rt)
}

func (r *resolver) deduceCast(s *scope, n *ast.Node, c *ast.Cast) (types.Type, error) {
	to, err := r.concreteAnnotation(s, c.Type)
	if err != nil {
		return nil, err
	}
	from, err := r.deduce(s, c.Expr, nil)
	if err != nil {
		return nil, err
	}
	_, fromBits := from.(*types.BitsType)
	_, toBits := to.(*types.BitsType)
	if fromBits && toBits {
		return to, nil
	}
	fw, ferr := types.BitCount(from)
	tw, terr := types.BitCount(to)
	if ferr != nil || terr != nil || fw != tw {
		return nil, invalid(n, "cannot cast %s to %s", from, to)
	}
	return to, nil
}

func (r *resolver) deduceArray(s *scope, n *ast.Node, a *ast.Array, want types.Type) (types.Type, error) {
	var elem types.Type
	if a.Type.IsValid() {
		t, err := r.concreteAnnotation(s, a.Type)
		if err != nil {
			return nil, err
		}
		at, ok := t.(*types.ArrayType)
		if !ok {
			return nil, invalid(n, "array literal annotated with %s", t)
		}
		if at.Size != int64(len(a.Members)) {
			return nil, invalid(n, "array literal has %d members, type %s expects %d", len(a.Members), at, at.Size)
		}
		elem = at.Elem
	} else if wa, ok := want.(*types.ArrayType); ok {
		elem = wa.Elem
	}
	if len(a.Members) == 0 && elem == nil {
		return nil, invalid(n, "cannot infer the element type of an empty array")
	}
	for _, mid := range a.Members {
		mt, err := r.deduce(s, mid, elem)
		if err != nil {
			return nil, err
		}
		if elem == nil {
			elem = mt
		}
	}
	return types.Array(elem, int64(len(a.Members))), nil
}

func (r *resolver) deduceSlice(s *scope, n *ast.Node, sl *ast.Slice) (types.Type, error) {
	lt, err := r.deduce(s, sl.Lhs, nil)
	if err != nil {
		return nil, err
	}
	bt, ok := lt.(*types.BitsType)
	if !ok {
		return nil, invalid(n, "cannot slice a value of type %s", lt)
	}
	bound := func(id ast.NodeID, dflt int64) (int64, error) {
		if !id.IsValid() {
			return dflt, nil
		}
		if _, err := r.deduce(s, id, nil); err != nil {
			return 0, err
		}
		bn := s.module.MustNode(id)
		v, ok := s.ti.GetConstExprOption(bn)
		if !ok {
			return 0, invalid(bn, "slice bound must be a constant")
		}
		x, err := v.Int64()
		if err != nil {
			return 0, invalid(bn, "%v", err)
		}
		if x < 0 {
			x += bt.Width
		}
		return min(max(x, 0), bt.Width), nil
	}
	start, err := bound(sl.Start, 0)
	if err != nil {
		return nil, err
	}
	limit, err := bound(sl.Limit, bt.Width)
	if err != nil {
		return nil, err
	}
	width := max(limit-start, 0)
	s.ti.AddSliceStartAndWidth(n, s.env, typeinfo.StartAndWidth{Start: start, Width: width})
	return types.U(width), nil
}

// deduceBlock parks lets that only literals would size and settles the ones
// no later statement settled once the block is done.
func (r *resolver) deduceBlock(s *scope, b *ast.Block, want types.Type) (types.Type, error) {
	var parked []VarID
	for _, st := range b.Stmts {
		n := s.module.MustNode(st)
		if l, ok := n.Payload.(*ast.Let); ok {
			if v, ok := r.deferBinding(s, n, l.NameDef, l.Type, l.Rhs); ok {
				parked = append(parked, v)
				continue
			}
		}
		if _, err := r.deduce(s, st, nil); err != nil {
			return nil, err
		}
	}
	var t types.Type = types.Unit()
	if b.Result.IsValid() {
		var err error
		if t, err = r.deduce(s, b.Result, want); err != nil {
			return nil, err
		}
	}
	if err := r.settleAll(s, parked); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *resolver) deduceLet(s *scope, l *ast.Let) (types.Type, error) {
	var declared types.Type
	if l.Type.IsValid() {
		t, err := r.concreteAnnotation(s, l.Type)
		if err != nil {
			return nil, err
		}
		declared = t
	}
	return r.bindLet(s, l, declared, declared)
}

// bindLet types the initializer of l against want and binds its name.
func (r *resolver) bindLet(s *scope, l *ast.Let, want, declared types.Type) (types.Type, error) {
	nameDef := s.module.MustNode(l.NameDef)
	t, err := r.deduce(s, l.Rhs, want)
	if err != nil {
		return nil, err
	}
	if err := r.assign(s, nameDef, t, declared); err != nil {
		return nil, err
	}
	if v, ok := s.ti.GetConstExprOption(s.module.MustNode(l.Rhs)); ok {
		s.ti.NoteConstExpr(nameDef, v)
	} else {
		s.ti.NoteNonConstExpr(nameDef)
	}
	return t, nil
}

func (r *resolver) deduceStructInstance(s *scope, n *ast.Node, si *ast.StructInstance) (types.Type, error) {
	t, err := r.concreteAnnotation(s, si.Struct)
	if err != nil {
		return nil, err
	}
	st, ok := t.(*types.StructType)
	if !ok {
		return nil, invalid(n, "%s is not a struct", t)
	}
	seen := make(map[string]bool, len(si.Members))
	for _, mem := range si.Members {
		if seen[mem.Name] {
			return nil, invalid(n, "field %s given twice", mem.Name)
		}
		seen[mem.Name] = true
		_, ft, ok := st.Field(mem.Name)
		if !ok {
			return nil, invalid(n, "struct %s has no field %s", st.Name, mem.Name)
		}
		if _, err := r.deduce(s, mem.Value, ft); err != nil {
			return nil, err
		}
	}
	for _, f := range st.Fields {
		if !seen[f.Name] {
			return nil, invalid(n, "missing field %s of struct %s", f.Name, st.Name)
		}
	}
	return st, nil
}
