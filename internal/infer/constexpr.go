package infer

import (
	"fmt"
	"math/big"

	"hdlfront/internal/ast"
	"hdlfront/internal/diag"
	"hdlfront/internal/types"
	"hdlfront/internal/value"
)

// noteConst records the constant value of a freshly typed node, or that it
// is not constant, in the scope's TypeInfo.
func (r *resolver) noteConst(s *scope, n *ast.Node, t types.Type) error {
	v, ok, err := r.fold(s, n, t)
	if err != nil {
		return err
	}
	if ok {
		s.ti.NoteConstExpr(n, v)
	} else {
		s.ti.NoteNonConstExpr(n)
	}
	return nil
}

func (r *resolver) constOf(s *scope, id ast.NodeID) (value.Value, bool) {
	return s.ti.GetConstExprOption(s.module.MustNode(id))
}

func (r *resolver) constsOf(s *scope, ids []ast.NodeID) ([]value.Value, bool) {
	out := make([]value.Value, 0, len(ids))
	for _, id := range ids {
		v, ok := r.constOf(s, id)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// fold computes the value of n from the recorded values of its operands.
func (r *resolver) fold(s *scope, n *ast.Node, t types.Type) (value.Value, bool, error) {
	switch x := n.Payload.(type) {
	case *ast.Number:
		bt, ok := t.(*types.BitsType)
		if !ok {
			return value.Value{}, false, nil
		}
		v, err := x.Value()
		if err != nil {
			return value.Value{}, false, invalid(n, "%v", err)
		}
		return value.FromBig(bt.Signed, bt.Width, v), true, nil
	case *ast.NameRef:
		v, ok := r.constOf(s, x.Def)
		return v, ok, nil
	case *ast.ColonRef:
		member, info, err := r.importedMember(s, n, x.Import, x.Member)
		if err != nil {
			return value.Value{}, false, err
		}
		v, ok := info.TypeInfo.GetConstExprOption(member)
		return v, ok, nil
	case *ast.Binop:
		l, lok := r.constOf(s, x.Lhs)
		rv, rok := r.constOf(s, x.Rhs)
		if !lok || !rok {
			return value.Value{}, false, nil
		}
		v, err := foldBinop(x.Op, l, rv)
		if err != nil {
			return value.Value{}, false, invalid(n, "%v", err)
		}
		return v, true, nil
	case *ast.Unop:
		v, ok := r.constOf(s, x.Operand)
		if !ok {
			return value.Value{}, false, nil
		}
		var err error
		if x.Op == ast.UnopNeg {
			v, err = v.Neg()
		} else {
			v, err = v.Not()
		}
		if err != nil {
			return value.Value{}, false, invalid(n, "%v", err)
		}
		return v, true, nil
	case *ast.Cast:
		v, ok := r.constOf(s, x.Expr)
		bt, isBits := t.(*types.BitsType)
		if !ok || !isBits || !v.IsBits() {
			return value.Value{}, false, nil
		}
		out, truncated, err := v.Convert(bt.Signed, bt.Width)
		if err != nil {
			return value.Value{}, false, invalid(n, "%v", err)
		}
		if truncated {
			diag.ReportWarning(r.warnings, diag.TypeWarnTruncatingCast, n.Span,
				fmt.Sprintf("cast of %s to %s drops significant bits (result %s)", v, bt, out))
		}
		return out, true, nil
	case *ast.Tuple:
		vs, ok := r.constsOf(s, x.Members)
		if !ok {
			return value.Value{}, false, nil
		}
		return value.Tuple(vs...), true, nil
	case *ast.Array:
		vs, ok := r.constsOf(s, x.Members)
		if !ok {
			return value.Value{}, false, nil
		}
		return value.Array(vs...), true, nil
	case *ast.Index:
		arr, aok := r.constOf(s, x.Lhs)
		idx, iok := r.constOf(s, x.Index)
		if !aok || !iok {
			return value.Value{}, false, nil
		}
		i, err := idx.Int64()
		elems := arr.Elements()
		if err != nil || i < 0 || i >= int64(len(elems)) {
			return value.Value{}, false, invalid(n, "constant index %s out of range", idx)
		}
		return elems[i], true, nil
	case *ast.TupleIndex:
		tup, ok := r.constOf(s, x.Lhs)
		if !ok {
			return value.Value{}, false, nil
		}
		return tup.Elements()[x.Index], true, nil
	case *ast.Slice:
		v, ok := r.constOf(s, x.Lhs)
		if !ok {
			return value.Value{}, false, nil
		}
		sw, ok := s.ti.GetSliceStartAndWidth(n, s.env)
		if !ok {
			return value.Value{}, false, nil
		}
		bits := unsignedBig(v)
		bits.Rsh(bits, uint(sw.Start))
		return value.FromBig(false, sw.Width, bits), true, nil
	case *ast.Conditional:
		test, ok := r.constOf(s, x.Test)
		if !ok {
			return value.Value{}, false, nil
		}
		branch := x.Alternate
		if test.IsTrue() {
			branch = x.Consequent
		}
		v, ok := r.constOf(s, branch)
		return v, ok, nil
	case *ast.Block:
		if !x.Result.IsValid() {
			return value.Tuple(), true, nil
		}
		v, ok := r.constOf(s, x.Result)
		return v, ok, nil
	case *ast.Let:
		v, ok := r.constOf(s, x.Rhs)
		return v, ok, nil
	case *ast.StructInstance:
		st, ok := t.(*types.StructType)
		if !ok {
			return value.Value{}, false, nil
		}
		byName := make(map[string]ast.NodeID, len(x.Members))
		for _, m := range x.Members {
			byName[m.Name] = m.Value
		}
		ordered := make([]ast.NodeID, 0, len(st.Fields))
		for _, f := range st.Fields {
			ordered = append(ordered, byName[f.Name])
		}
		vs, ok := r.constsOf(s, ordered)
		if !ok {
			return value.Value{}, false, nil
		}
		return value.Tuple(vs...), true, nil
	case *ast.Attr:
		v, ok := r.constOf(s, x.Lhs)
		if !ok {
			return value.Value{}, false, nil
		}
		lt, _ := s.ti.GetType(s.module.MustNode(x.Lhs))
		st, isStruct := lt.(*types.StructType)
		if !isStruct {
			return value.Value{}, false, nil
		}
		i, _, _ := st.Field(x.Field)
		return v.Elements()[i], true, nil
	}
	return value.Value{}, false, nil
}

func foldBinop(op ast.BinopKind, l, r value.Value) (value.Value, error) {
	switch op {
	case ast.BinopAdd:
		return l.Add(r)
	case ast.BinopSub:
		return l.Sub(r)
	case ast.BinopMul:
		return l.Mul(r)
	case ast.BinopAnd:
		return l.And(r)
	case ast.BinopOr:
		return l.Or(r)
	case ast.BinopXor:
		return l.Xor(r)
	case ast.BinopShl:
		return l.Shl(r)
	case ast.BinopShr:
		return l.Shr(r)
	case ast.BinopLogicalAnd:
		return value.Bool(l.IsTrue() && r.IsTrue()), nil
	case ast.BinopLogicalOr:
		return value.Bool(l.IsTrue() || r.IsTrue()), nil
	case ast.BinopConcat:
		if !l.IsBits() || !r.IsBits() {
			return value.Array(append(l.Elements(), r.Elements()...)...), nil
		}
		x := unsignedBig(l)
		x.Lsh(x, uint(r.Width()))
		x.Or(x, unsignedBig(r))
		return value.FromBig(false, l.Width()+r.Width(), x), nil
	}
	c, err := l.Cmp(r)
	if err != nil {
		return value.Value{}, err
	}
	switch op {
	case ast.BinopEq:
		return value.Bool(c == 0), nil
	case ast.BinopNe:
		return value.Bool(c != 0), nil
	case ast.BinopLt:
		return value.Bool(c < 0), nil
	case ast.BinopLe:
		return value.Bool(c <= 0), nil
	case ast.BinopGt:
		return value.Bool(c > 0), nil
	case ast.BinopGe:
		return value.Bool(c >= 0), nil
	}
	return value.Value{}, fmt.Errorf("operator %s cannot be folded", op)
}

// unsignedBig is the raw bit pattern of a bits value.
func unsignedBig(v value.Value) *big.Int {
	u, _, _ := v.Convert(false, v.Width())
	return u.Big()
}
