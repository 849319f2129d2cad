package infer

import (
	"hdlfront/internal/ast"
	"hdlfront/internal/types"
)

// pending is a let or constant without an annotation whose initializer is
// built only from unsized literals. Its type is decided by the first
// reference that sees it: a concrete context type wins, otherwise the
// initializer is sized to fit.
type pending struct {
	scope *scope
	node  *ast.Node // Let or ConstantDef
	init  ast.NodeID
}

// deferBinding parks binding n with initializer init when nothing but its
// literals would decide its type.
func (r *resolver) deferBinding(s *scope, n *ast.Node, nameDef, typeAnn, init ast.NodeID) (VarID, bool) {
	if typeAnn.IsValid() || !r.negotiable(s, init) {
		return NoVarID, false
	}
	v, ok := s.tab.table.GetTypeVariable(s.module.MustNode(nameDef))
	if !ok || s.subst[v] != nil {
		return NoVarID, false
	}
	s.pending[v] = &pending{scope: s, node: n, init: init}
	return v, true
}

// pendingOf returns the parked binding a name reference points at.
func (r *resolver) pendingOf(s *scope, n *ast.Node) (VarID, *pending) {
	ref, ok := n.Payload.(*ast.NameRef)
	if !ok {
		return NoVarID, nil
	}
	def := s.module.Node(ref.Def)
	if def == nil {
		return NoVarID, nil
	}
	v, ok := s.tab.table.GetTypeVariable(def)
	if !ok {
		return NoVarID, nil
	}
	if p := s.pending[v]; p != nil {
		return v, p
	}
	if s.module == r.module && r.top != nil {
		if p := r.top.pending[v]; p != nil {
			return v, p
		}
	}
	return NoVarID, nil
}

// settle types a parked binding against want; a want that is not bits sizes
// the initializer to fit.
func (r *resolver) settle(v VarID, p *pending, want types.Type) error {
	delete(p.scope.pending, v)
	if _, ok := want.(*types.BitsType); !ok {
		want = nil
	}
	s := p.scope
	switch x := p.node.Payload.(type) {
	case *ast.Let:
		t, err := r.bindLet(s, x, want, nil)
		if err != nil {
			return err
		}
		if err := r.assign(s, p.node, t, nil); err != nil {
			return err
		}
		return r.noteConst(s, p.node, t)
	case *ast.ConstantDef:
		return r.bindConstant(s, p.node, x, want)
	}
	return nil
}

// settleRef settles the binding behind reference n, if it is still parked.
func (r *resolver) settleRef(s *scope, n *ast.Node, want types.Type) error {
	if ref, ok := n.Payload.(*ast.NameRef); ok {
		if nd, ok := ast.Get[ast.NameDef](s.module, ref.Def); ok {
			if err := r.ensureDefiner(s, nd.Definer); err != nil {
				return err
			}
		}
	}
	v, p := r.pendingOf(s, n)
	if p == nil {
		return nil
	}
	return r.settle(v, p, want)
}

// settleDefiner settles a parked top-level constant before its value is
// read directly, as in a type dimension.
func (r *resolver) settleDefiner(def *ast.Node) error {
	c, ok := def.Payload.(*ast.ConstantDef)
	if !ok || def.Owner != r.module || r.top == nil {
		return nil
	}
	v, ok := r.top.tab.table.GetTypeVariable(r.module.MustNode(c.NameDef))
	if !ok {
		return nil
	}
	if p := r.top.pending[v]; p != nil {
		return r.settle(v, p, nil)
	}
	return nil
}

// settleAll settles, in order, whatever vars are still parked in s.
func (r *resolver) settleAll(s *scope, vars []VarID) error {
	for _, v := range vars {
		if p := s.pending[v]; p != nil {
			if err := r.settle(v, p, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// naturalType is the type a negotiable expression takes with no context:
// every literal sized to fit, binary operands unified to the wider side.
func (r *resolver) naturalType(s *scope, id ast.NodeID) *types.BitsType {
	n := s.module.MustNode(id)
	switch x := n.Payload.(type) {
	case *ast.Number:
		v, err := x.Value()
		if err != nil {
			return nil
		}
		return types.SizedToFit(v)
	case *ast.Unop:
		return r.naturalType(s, x.Operand)
	case *ast.Binop:
		return widerBits(r.naturalType(s, x.Lhs), r.naturalType(s, x.Rhs))
	case *ast.NameRef:
		if _, p := r.pendingOf(s, n); p != nil {
			return r.naturalType(p.scope, p.init)
		}
	}
	return nil
}

func widerBits(a, b *types.BitsType) *types.BitsType {
	if a == nil || b == nil {
		return nil
	}
	if b.Width > a.Width {
		return b
	}
	return a
}
