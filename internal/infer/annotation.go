package infer

import (
	"fmt"
	"math/big"
	"strings"

	"hdlfront/internal/ast"
	"hdlfront/internal/parametric"
	"hdlfront/internal/types"
	"hdlfront/internal/value"
)

// concreteAnnotation resolves a type annotation under the scope's env; every
// dimension must be known.
func (r *resolver) concreteAnnotation(s *scope, id ast.NodeID) (types.Type, error) {
	t, ok, err := r.resolveAnnotation(s, s.env, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		n := s.module.MustNode(id)
		return nil, invalid(n, "type %s depends on an unbound parametric", renderAnnotation(s.module, id))
	}
	return t, nil
}

// symbolicAnnotation resolves what it can and falls back to a placeholder.
func (r *resolver) symbolicAnnotation(s *scope, id ast.NodeID) (types.Type, error) {
	t, ok, err := r.resolveAnnotation(s, s.env, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.Parametric(renderAnnotation(s.module, id)), nil
	}
	return t, nil
}

// resolveAnnotation evaluates an annotation without recording anything.
// ok is false when a dimension depends on a binding absent from env.
func (r *resolver) resolveAnnotation(s *scope, env parametric.Env, id ast.NodeID) (types.Type, bool, error) {
	n := s.module.MustNode(id)
	switch a := n.Payload.(type) {
	case *ast.BuiltinType:
		switch a.Base {
		case ast.BuiltinBool:
			return types.Bool(), true, nil
		case ast.BuiltinToken:
			return types.Token(), true, nil
		}
		width := a.Width
		if a.Dim.IsValid() {
			w, ok, err := r.evalDim(s, env, a.Dim)
			if err != nil || !ok {
				return nil, ok, err
			}
			width = w
		}
		if width < 0 {
			return nil, false, invalid(n, "negative bit width %d", width)
		}
		if a.Base == ast.BuiltinSN {
			return types.S(width), true, nil
		}
		return types.U(width), true, nil
	case *ast.ArrayType:
		elem, ok, err := r.resolveAnnotation(s, env, a.Elem)
		if err != nil || !ok {
			return nil, ok, err
		}
		size, ok, err := r.evalDim(s, env, a.Dim)
		if err != nil || !ok {
			return nil, ok, err
		}
		if size < 0 {
			return nil, false, invalid(n, "negative array size %d", size)
		}
		return types.Array(elem, size), true, nil
	case *ast.TupleType:
		members := make([]types.Type, 0, len(a.Members))
		for _, mid := range a.Members {
			mt, ok, err := r.resolveAnnotation(s, env, mid)
			if err != nil || !ok {
				return nil, ok, err
			}
			members = append(members, mt)
		}
		return types.Tuple(members...), true, nil
	case *ast.TypeRef:
		t, err := r.structType(s, n, a)
		return t, err == nil, err
	}
	return nil, false, invalid(n, "%s is not a type annotation", n.Kind)
}

func (r *resolver) structType(s *scope, n *ast.Node, ref *ast.TypeRef) (types.Type, error) {
	if ref.Import.IsValid() {
		member, info, err := r.importedMember(s, n, ref.Import, ref.Name)
		if err != nil {
			return nil, err
		}
		if member.Kind != ast.KindStructDef {
			return nil, invalid(n, "%s is not a struct", ref.Name)
		}
		return info.TypeInfo.GetTypeOrError(member)
	}
	def := s.module.Node(ref.Def)
	if def == nil || def.Kind != ast.KindStructDef {
		return nil, invalid(n, "%s is not a struct", ref.Name)
	}
	if err := r.ensureDefiner(s, def.ID); err != nil {
		return nil, err
	}
	return s.ti.GetTypeOrError(def)
}

// evalDim evaluates a dimension expression to an int64 without typing it.
func (r *resolver) evalDim(s *scope, env parametric.Env, id ast.NodeID) (int64, bool, error) {
	x, ok, err := r.evalInt(s, env, id)
	if err != nil || !ok {
		return 0, ok, err
	}
	if !x.IsInt64() {
		return 0, false, invalid(s.module.MustNode(id), "dimension %s out of range", x)
	}
	return x.Int64(), true, nil
}

func (r *resolver) evalInt(s *scope, env parametric.Env, id ast.NodeID) (*big.Int, bool, error) {
	n := s.module.MustNode(id)
	switch x := n.Payload.(type) {
	case *ast.Number:
		v, err := x.Value()
		if err != nil {
			return nil, false, invalid(n, "%v", err)
		}
		return v, true, nil
	case *ast.NameRef:
		def := s.module.Node(ast.MustGet[ast.NameDef](s.module, x.Def).Definer)
		if def == nil {
			return nil, false, invalid(n, "unresolved name %s", x.Identifier)
		}
		switch def.Kind {
		case ast.KindParametricBinding:
			v, ok := env.Lookup(x.Identifier)
			if !ok {
				return nil, false, nil
			}
			return v.Big(), true, nil
		case ast.KindConstantDef:
			if err := r.ensureDefiner(s, def.ID); err != nil {
				return nil, false, err
			}
			if err := r.settleDefiner(def); err != nil {
				return nil, false, err
			}
			v, ok := s.ti.Root().GetConstExprOption(def)
			if !ok || !v.IsBits() {
				return nil, false, invalid(n, "%s is not a constant integer", x.Identifier)
			}
			return v.Big(), true, nil
		}
		return nil, false, invalid(n, "%s cannot be used in a type dimension", x.Identifier)
	case *ast.ColonRef:
		member, info, err := r.importedMember(s, n, x.Import, x.Member)
		if err != nil {
			return nil, false, err
		}
		v, ok := info.TypeInfo.GetConstExprOption(member)
		if !ok || !v.IsBits() {
			return nil, false, invalid(n, "%s is not a constant integer", x.Member)
		}
		return v.Big(), true, nil
	case *ast.Cast:
		return r.evalInt(s, env, x.Expr)
	case *ast.Unop:
		v, ok, err := r.evalInt(s, env, x.Operand)
		if err != nil || !ok {
			return nil, ok, err
		}
		if x.Op == ast.UnopNeg {
			return new(big.Int).Neg(v), true, nil
		}
		return new(big.Int).Not(v), true, nil
	case *ast.Binop:
		l, ok, err := r.evalInt(s, env, x.Lhs)
		if err != nil || !ok {
			return nil, ok, err
		}
		rv, ok, err := r.evalInt(s, env, x.Rhs)
		if err != nil || !ok {
			return nil, ok, err
		}
		return evalIntBinop(n, x.Op, l, rv)
	}
	return nil, false, invalid(n, "unsupported %s in type dimension", n.Kind)
}

func evalIntBinop(n *ast.Node, op ast.BinopKind, l, r *big.Int) (*big.Int, bool, error) {
	z := new(big.Int)
	switch op {
	case ast.BinopAdd:
		return z.Add(l, r), true, nil
	case ast.BinopSub:
		return z.Sub(l, r), true, nil
	case ast.BinopMul:
		return z.Mul(l, r), true, nil
	case ast.BinopAnd:
		return z.And(l, r), true, nil
	case ast.BinopOr:
		return z.Or(l, r), true, nil
	case ast.BinopXor:
		return z.Xor(l, r), true, nil
	case ast.BinopShl, ast.BinopShr:
		if r.Sign() < 0 || !r.IsUint64() || r.Uint64() > 1<<16 {
			return nil, false, invalid(n, "shift amount %s out of range", r)
		}
		if op == ast.BinopShl {
			return z.Lsh(l, uint(r.Uint64())), true, nil
		}
		return z.Rsh(l, uint(r.Uint64())), true, nil
	}
	return nil, false, invalid(n, "operator %s not allowed in type dimension", op)
}

// bindParametrics binds the parametrics that appear as bare dimension names in
// an annotation from the concrete type t. bindable maps binding NameDefs to
// names.
func (r *resolver) bindParametrics(s *scope, ann ast.NodeID, t types.Type, bindable map[ast.NodeID]string, got map[string]*big.Int) error {
	n := s.module.MustNode(ann)
	bindDim := func(dim ast.NodeID, x int64) error {
		ref, ok := ast.Get[ast.NameRef](s.module, dim)
		if !ok {
			return nil
		}
		name, ok := bindable[ref.Def]
		if !ok {
			return nil
		}
		v := big.NewInt(x)
		if prev, ok := got[name]; ok && prev.Cmp(v) != 0 {
			return &Error{Kind: Unification, Node: n,
				Msg: fmt.Sprintf("parametric %s deduced as both %s and %s", name, prev, v)}
		}
		got[name] = v
		return nil
	}
	switch a := n.Payload.(type) {
	case *ast.BuiltinType:
		bt, ok := t.(*types.BitsType)
		if !ok || !a.Dim.IsValid() || bt.Signed != (a.Base == ast.BuiltinSN) {
			return nil
		}
		return bindDim(a.Dim, bt.Width)
	case *ast.ArrayType:
		at, ok := t.(*types.ArrayType)
		if !ok {
			return nil
		}
		if err := r.bindParametrics(s, a.Elem, at.Elem, bindable, got); err != nil {
			return err
		}
		return bindDim(a.Dim, at.Size)
	case *ast.TupleType:
		tt, ok := t.(*types.TupleType)
		if !ok || len(tt.Members) != len(a.Members) {
			return nil
		}
		for i, mid := range a.Members {
			if err := r.bindParametrics(s, mid, tt.Members[i], bindable, got); err != nil {
				return err
			}
		}
	}
	return nil
}

// bindingValue converts a deduced integer to a value of the binding's type.
func bindingValue(n *ast.Node, name string, t types.Type, x *big.Int) (value.Value, error) {
	bt, ok := t.(*types.BitsType)
	if !ok {
		return value.Value{}, invalid(n, "parametric %s must have a bits type, got %s", name, t)
	}
	if !types.Fits(x, bt) {
		return value.Value{}, &Error{Kind: Unification, Node: n,
			Msg: fmt.Sprintf("value %s for parametric %s does not fit in %s", x, name, bt)}
	}
	return value.FromBig(bt.Signed, bt.Width, x), nil
}

// renderAnnotation prints an annotation the way it is written in source.
func renderAnnotation(m *ast.Module, id ast.NodeID) string {
	n := m.Node(id)
	if n == nil {
		return "?"
	}
	switch a := n.Payload.(type) {
	case *ast.BuiltinType:
		prefix := "u"
		switch a.Base {
		case ast.BuiltinBool:
			return "bool"
		case ast.BuiltinToken:
			return "token"
		case ast.BuiltinSN:
			prefix = "s"
		}
		if a.Dim.IsValid() {
			return fmt.Sprintf("%sN[%s]", prefix, renderExpr(m, a.Dim))
		}
		return fmt.Sprintf("%s%d", prefix, a.Width)
	case *ast.ArrayType:
		return fmt.Sprintf("%s[%s]", renderAnnotation(m, a.Elem), renderExpr(m, a.Dim))
	case *ast.TupleType:
		parts := make([]string, 0, len(a.Members))
		for _, mid := range a.Members {
			parts = append(parts, renderAnnotation(m, mid))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *ast.TypeRef:
		return a.Name
	}
	return renderExpr(m, id)
}

func renderExpr(m *ast.Module, id ast.NodeID) string {
	n := m.Node(id)
	if n == nil {
		return "?"
	}
	switch x := n.Payload.(type) {
	case *ast.Number:
		return x.Text
	case *ast.NameRef:
		return x.Identifier
	case *ast.ColonRef:
		return m.Identifier(x.Import) + "::" + x.Member
	case *ast.Binop:
		return fmt.Sprintf("(%s %s %s)", renderExpr(m, x.Lhs), x.Op, renderExpr(m, x.Rhs))
	case *ast.Unop:
		return x.Op.String() + renderExpr(m, x.Operand)
	case *ast.Cast:
		return fmt.Sprintf("(%s as %s)", renderExpr(m, x.Expr), renderAnnotation(m, x.Type))
	}
	return n.Kind.String()
}
