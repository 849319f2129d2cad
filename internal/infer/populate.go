package infer

import (
	"fmt"

	"hdlfront/internal/ast"
	"hdlfront/internal/types"
)

// Populate walks module once, filling table. Named bindings get a fresh
// variable shared by their name, their node and their initializer; name
// references point at that variable or copy the definition's annotation;
// unannotated literals get a sized-to-fit annotation that is negotiable
// unless the literal is a bool. The returned set holds the negotiable
// annotations.
func Populate(module *ast.Module, table *Table) (AutoSet, error) {
	if table.Module() != module {
		panic("infer: table built for another module")
	}
	p := &populator{m: module, t: table, auto: make(AutoSet)}
	for _, id := range module.Members {
		if err := p.visit(id); err != nil {
			return nil, err
		}
	}
	return p.auto, nil
}

type populator struct {
	m    *ast.Module
	t    *Table
	auto AutoSet
}

func (p *populator) visit(id ast.NodeID) error {
	n := p.m.MustNode(id)
	switch x := n.Payload.(type) {
	case *ast.ConstantDef:
		p.bind(n, x.NameDef, x.Type, x.Value)
	case *ast.Let:
		p.bind(n, x.NameDef, x.Type, x.Rhs)
	case *ast.Param:
		p.bind(n, x.NameDef, x.Type, ast.NoNodeID)
	case *ast.ParametricBinding:
		p.bind(n, x.NameDef, x.Type, x.Default)
	case *ast.NameRef:
		p.reference(n, x.Def)
	case *ast.ColonRef:
		// Imported members are typed in their own module; nothing to share.
	case *ast.Number:
		if err := p.literal(n, x); err != nil {
			return err
		}
	}
	for _, c := range p.m.Children(id) {
		if err := p.visit(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *populator) bind(n *ast.Node, nameDef, typeAnn, init ast.NodeID) {
	name := p.m.MustNode(nameDef)
	v := p.t.DefineInternalVariable(VarType, n, internalName(p.m, name))
	p.t.SetTypeVariable(name, v)
	p.t.SetTypeVariable(n, v)
	if init.IsValid() {
		p.t.SetTypeVariable(p.m.MustNode(init), v)
	}
	if typeAnn.IsValid() {
		p.t.SetTypeAnnotation(name, p.t.NewSyntaxAnnotation(p.m.MustNode(typeAnn)))
	}
}

func (p *populator) reference(n *ast.Node, def ast.NodeID) {
	defNode := p.m.Node(def)
	if defNode == nil {
		return
	}
	if v, ok := p.t.GetTypeVariable(defNode); ok {
		p.t.SetTypeAnnotation(n, p.t.NewVariableAnnotation(v))
		return
	}
	if ann, ok := p.t.GetTypeAnnotation(defNode); ok {
		p.t.SetTypeAnnotation(n, ann)
	}
}

func (p *populator) literal(n *ast.Node, num *ast.Number) error {
	if num.Type.IsValid() {
		p.t.SetTypeAnnotation(n, p.t.NewSyntaxAnnotation(p.m.MustNode(num.Type)))
		return nil
	}
	if num.Kind == ast.NumberBool {
		if _, err := num.Value(); err != nil {
			return invalid(n, "%v", err)
		}
		p.t.SetTypeAnnotation(n, p.t.NewBitsAnnotation(false, 1))
		return nil
	}
	v, err := num.Value()
	if err != nil {
		return invalid(n, "%v", err)
	}
	bt := types.SizedToFit(v)
	ann := p.t.NewBitsAnnotation(bt.Signed, bt.Width)
	p.t.SetTypeAnnotation(n, ann)
	p.auto[ann] = struct{}{}
	return nil
}

func internalName(m *ast.Module, nameDef *ast.Node) string {
	return fmt.Sprintf("internal_type_%s_at_%s", m.Identifier(nameDef.ID), nameDef.Span)
}
