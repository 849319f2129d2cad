package infer

import (
	"fmt"
	"math/big"

	"hdlfront/internal/ast"
	"hdlfront/internal/parametric"
	"hdlfront/internal/trace"
	"hdlfront/internal/typeinfo"
	"hdlfront/internal/types"
	"hdlfront/internal/value"
)

// callee is a resolved invocation or spawn target.
type callee struct {
	node *ast.Node // Function or Proc
	root *typeinfo.TypeInfo
}

func (c callee) module() *ast.Module { return c.node.Owner }

func (r *resolver) resolveCallee(s *scope, n *ast.Node, id ast.NodeID) (callee, error) {
	ref := s.module.MustNode(id)
	switch x := ref.Payload.(type) {
	case *ast.NameRef:
		nd, ok := ast.Get[ast.NameDef](s.module, x.Def)
		if !ok {
			return callee{}, invalid(n, "unresolved callee %s", x.Identifier)
		}
		def := s.module.Node(nd.Definer)
		if def == nil || (def.Kind != ast.KindFunction && def.Kind != ast.KindProc) {
			return callee{}, invalid(n, "%s is not callable", x.Identifier)
		}
		if err := r.ensureDefiner(s, def.ID); err != nil {
			return callee{}, err
		}
		return callee{node: def, root: s.ti.Root()}, nil
	case *ast.ColonRef:
		member, info, err := r.importedMember(s, n, x.Import, x.Member)
		if err != nil {
			return callee{}, err
		}
		if member.Kind != ast.KindFunction && member.Kind != ast.KindProc {
			return callee{}, invalid(n, "%s::%s is not callable", info.Module.Name, x.Member)
		}
		return callee{node: member, root: info.TypeInfo}, nil
	}
	return callee{}, invalid(n, "unsupported callee %s", ref.Kind)
}

func (r *resolver) deduceInvocation(s *scope, n *ast.Node, inv *ast.Invocation) (types.Type, error) {
	c, err := r.resolveCallee(s, n, inv.Callee)
	if err != nil {
		return nil, err
	}
	fn, ok := c.node.Payload.(*ast.Function)
	if !ok {
		return nil, invalid(n, "cannot invoke proc %s; use spawn", c.module().Identifier(c.node.ID))
	}
	if !fn.IsParametric() {
		if len(inv.Parametrics) > 0 {
			return nil, invalid(n, "%s takes no parametrics", c.module().Identifier(c.node.ID))
		}
		sig, err := typeinfo.As[*types.FunctionType](c.root, c.node)
		if err != nil {
			return nil, err
		}
		if err := r.deduceArgs(s, n, sig, inv.Args); err != nil {
			return nil, err
		}
		if err := r.assign(s, s.module.MustNode(inv.Callee), sig, nil); err != nil {
			return nil, err
		}
		if c.module() == r.module && s.module == r.module {
			if err := r.ensureBody(c.node.ID); err != nil {
				return nil, err
			}
		}
		r.propagateToken(s, c)
		if err := s.ti.AddInvocationTypeInfo(n, s.fn, s.env, parametric.Env{}, nil); err != nil {
			return nil, err
		}
		return sig.Return, nil
	}
	sig, err := r.instantiate(s, n, c, fn.Parametrics, c.node, []*ast.Node{c.node}, inv.Parametrics, inv.Args)
	if err != nil {
		return nil, err
	}
	if err := r.assign(s, s.module.MustNode(inv.Callee), sig, nil); err != nil {
		return nil, err
	}
	return sig.Return, nil
}

func (r *resolver) deduceSpawn(s *scope, n *ast.Node, sp *ast.Spawn) (types.Type, error) {
	c, err := r.resolveCallee(s, n, sp.Proc)
	if err != nil {
		return nil, err
	}
	p, ok := c.node.Payload.(*ast.Proc)
	if !ok {
		return nil, invalid(n, "can only spawn a proc")
	}
	m := c.module()
	cfg := m.MustNode(p.Config)
	if len(p.Parametrics) == 0 {
		if len(sp.Parametrics) > 0 {
			return nil, invalid(n, "proc %s takes no parametrics", m.Identifier(c.node.ID))
		}
		entry, err := c.root.GetEntryTypeInfo(c.node)
		if err != nil {
			return nil, err
		}
		sig, err := typeinfo.As[*types.FunctionType](entry, cfg)
		if err != nil {
			return nil, err
		}
		if err := r.deduceArgs(s, n, sig, sp.Args); err != nil {
			return nil, err
		}
		if err := s.ti.AddInvocationTypeInfo(n, s.fn, s.env, parametric.Env{}, nil); err != nil {
			return nil, err
		}
		return types.Unit(), nil
	}
	bodies := []*ast.Node{cfg, m.MustNode(p.Next)}
	if _, err := r.instantiate(s, n, c, p.Parametrics, cfg, bodies, sp.Parametrics, sp.Args); err != nil {
		return nil, err
	}
	return types.Unit(), nil
}

func (r *resolver) deduceArgs(s *scope, n *ast.Node, sig *types.FunctionType, args []ast.NodeID) error {
	if len(args) != len(sig.Params) {
		return invalid(n, "expected %d arguments, got %d", len(sig.Params), len(args))
	}
	for i, a := range args {
		if _, err := r.deduce(s, a, sig.Params[i]); err != nil {
			return err
		}
	}
	return nil
}

// propagateToken marks the scope's function as needing an implicit token
// when the callee needs one.
func (r *resolver) propagateToken(s *scope, c callee) {
	if s.token == nil {
		return
	}
	if req, ok := c.root.GetRequiresImplicitToken(c.node); ok && req {
		*s.token = true
	}
}

// instantiate checks one parametric instantiation of callee at invocation n
// and returns the concrete signature of sigFn. Bindings come from explicit
// parametrics, then from argument types, then from defaults. The derived
// TypeInfo is created once per (invocation, caller env) and recorded before
// the bodies are checked so recursive instantiation reuses it.
func (r *resolver) instantiate(s *scope, n *ast.Node, c callee, bindings []ast.NodeID, sigFn *ast.Node, bodies []*ast.Node, explicit, args []ast.NodeID) (*types.FunctionType, error) {
	m := c.module()
	fn := sigFn.Payload.(*ast.Function)
	if len(args) != len(fn.Params) {
		return nil, invalid(n, "expected %d arguments, got %d", len(fn.Params), len(args))
	}
	if derived, ok := s.ti.GetInvocationTypeInfo(n, s.env); ok {
		sig, err := typeinfo.As[*types.FunctionType](derived, sigFn)
		if err != nil {
			return nil, err
		}
		if err := r.deduceArgs(s, n, sig, args); err != nil {
			return nil, err
		}
		return sig, nil
	}
	if s.depth >= r.opts.MaxInstantiationDepth {
		return nil, invalid(n, "parametric instantiation nested deeper than %d", r.opts.MaxInstantiationDepth)
	}
	if len(explicit) > len(bindings) {
		return nil, invalid(n, "expected at most %d parametrics, got %d", len(bindings), len(explicit))
	}

	// Callee-side scope used only to resolve annotations; it records nothing.
	cs, err := r.newScope(c.root, parametric.Env{}, nil, s.depth)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(bindings))
	btypes := make([]types.Type, len(bindings))
	bindable := make(map[ast.NodeID]string, len(bindings))
	for i, bid := range bindings {
		b := ast.MustGet[ast.ParametricBinding](m, bid)
		names[i] = m.Identifier(b.NameDef)
		bindable[b.NameDef] = names[i]
		t, err := r.concreteAnnotation(cs, b.Type)
		if err != nil {
			return nil, err
		}
		btypes[i] = t
	}

	vals := make(map[string]value.Value, len(bindings))
	for i, eid := range explicit {
		if _, err := r.deduce(s, eid, btypes[i]); err != nil {
			return nil, err
		}
		v, ok := r.constOf(s, eid)
		if !ok {
			return nil, invalid(s.module.MustNode(eid), "parametric %s must be a constant", names[i])
		}
		vals[names[i]] = v
	}

	deduced := make(map[string]*big.Int)
	for i, aid := range args {
		p := ast.MustGet[ast.Param](m, fn.Params[i])
		pt, ok, err := r.resolveAnnotation(cs, parametric.FromMap(vals), p.Type)
		if err != nil {
			return nil, err
		}
		if ok {
			if _, err := r.deduce(s, aid, pt); err != nil {
				return nil, err
			}
			continue
		}
		at, err := r.deduce(s, aid, nil)
		if err != nil {
			return nil, err
		}
		if err := r.bindParametrics(cs, p.Type, at, bindable, deduced); err != nil {
			return nil, err
		}
		for j, name := range names {
			x, ok := deduced[name]
			if _, done := vals[name]; !ok || done {
				continue
			}
			v, err := bindingValue(n, name, btypes[j], x)
			if err != nil {
				return nil, err
			}
			vals[name] = v
		}
	}

	derived, err := r.owner.New(m, c.root)
	if err != nil {
		return nil, err
	}
	ds, err := r.newScope(derived, parametric.Env{}, nil, s.depth+1)
	if err != nil {
		return nil, err
	}
	for i, bid := range bindings {
		b := ast.MustGet[ast.ParametricBinding](m, bid)
		if _, ok := vals[names[i]]; !ok {
			if !b.Default.IsValid() {
				return nil, invalid(n, "could not infer parametric %s of %s", names[i], m.Identifier(c.node.ID))
			}
			ds.env = parametric.FromMap(vals)
			if _, err := r.deduce(ds, b.Default, btypes[i]); err != nil {
				return nil, err
			}
			v, ok := r.constOf(ds, b.Default)
			if !ok {
				return nil, invalid(m.MustNode(b.Default), "default of parametric %s is not constant", names[i])
			}
			vals[names[i]] = v
		}
		nd := m.MustNode(b.NameDef)
		if err := r.assign(ds, nd, btypes[i], nil); err != nil {
			return nil, err
		}
		if err := r.assign(ds, m.MustNode(bid), btypes[i], nil); err != nil {
			return nil, err
		}
		ds.ti.NoteConstExpr(nd, vals[names[i]])
	}
	env := parametric.FromMap(vals)
	ds.env = env

	for _, body := range bodies {
		if err := r.instantiateSignature(ds, body); err != nil {
			return nil, err
		}
	}
	ft, err := typeinfo.As[*types.FunctionType](derived, sigFn)
	if err != nil {
		return nil, err
	}
	for i, aid := range args {
		at, _ := s.ti.GetType(s.module.MustNode(aid))
		if !ft.Params[i].Equal(at) {
			return nil, mismatch(s.module.MustNode(aid), ft.Params[i], at, "argument type mismatch")
		}
	}
	if err := s.ti.AddInvocationTypeInfo(n, s.fn, s.env, env, derived); err != nil {
		return nil, err
	}
	trace.Point(r.tracer, trace.ScopeNode, "instantiate", r.opts.TraceParent,
		fmt.Sprintf("%s%s at %s -> ti#%d", m.Identifier(c.node.ID), env, n.Span, derived.ID()))

	for _, body := range bodies {
		bs, err := r.newScope(derived, env, body, s.depth+1)
		if err != nil {
			return nil, err
		}
		bs.subst = ds.subst
		if err := r.checkBody(bs, body); err != nil {
			return nil, err
		}
	}
	r.propagateToken(s, callee{node: sigFn, root: c.root})
	return ft, nil
}

// instantiateSignature types the params and signature of fnNode in a
// derived scope whose env binds every parametric.
func (r *resolver) instantiateSignature(ds *scope, fnNode *ast.Node) error {
	m := ds.module
	fn := fnNode.Payload.(*ast.Function)
	ft := &types.FunctionType{Return: types.Unit()}
	for _, pid := range fn.Params {
		p := ast.MustGet[ast.Param](m, pid)
		pt, err := r.concreteAnnotation(ds, p.Type)
		if err != nil {
			return err
		}
		nd := m.MustNode(p.NameDef)
		if err := r.assign(ds, nd, pt, nil); err != nil {
			return err
		}
		if err := r.assign(ds, m.MustNode(pid), pt, nil); err != nil {
			return err
		}
		ds.ti.NoteNonConstExpr(nd)
		ft.Params = append(ft.Params, pt)
	}
	if fn.Return.IsValid() {
		rt, err := r.concreteAnnotation(ds, fn.Return)
		if err != nil {
			return err
		}
		ft.Return = rt
	}
	ds.ti.SetType(fnNode, ft)
	ds.ti.SetType(m.MustNode(fn.NameDef), ft)
	return nil
}
