package ast

// Children returns the direct children of id in evaluation order, type
// annotations included. Absent optional children are skipped.
func (m *Module) Children(id NodeID) []NodeID {
	n := m.Node(id)
	if n == nil {
		return nil
	}
	var out []NodeID
	add := func(ids ...NodeID) {
		for _, c := range ids {
			if c.IsValid() {
				out = append(out, c)
			}
		}
	}
	switch p := n.Payload.(type) {
	case *ConstantDef:
		add(p.NameDef, p.Type, p.Value)
	case *Number:
		add(p.Type)
	case *Binop:
		add(p.Lhs, p.Rhs)
	case *Unop:
		add(p.Operand)
	case *Cast:
		add(p.Expr, p.Type)
	case *Tuple:
		add(p.Members...)
	case *Array:
		add(p.Type)
		add(p.Members...)
	case *Index:
		add(p.Lhs, p.Index)
	case *TupleIndex:
		add(p.Lhs)
	case *Slice:
		add(p.Lhs, p.Start, p.Limit)
	case *Conditional:
		add(p.Test, p.Consequent, p.Alternate)
	case *Block:
		add(p.Stmts...)
		add(p.Result)
	case *Let:
		add(p.NameDef, p.Type, p.Rhs)
	case *Invocation:
		add(p.Callee)
		add(p.Parametrics...)
		add(p.Args...)
	case *Spawn:
		add(p.Proc)
		add(p.Parametrics...)
		add(p.Args...)
	case *Fail:
		add(p.Value)
	case *Cover:
		add(p.Condition)
	case *Function:
		add(p.NameDef)
		add(p.Parametrics...)
		add(p.Params...)
		add(p.Return, p.Body)
	case *ParametricBinding:
		add(p.NameDef, p.Type, p.Default)
	case *Param:
		add(p.NameDef, p.Type)
	case *Proc:
		add(p.NameDef)
		add(p.Parametrics...)
		add(p.Config, p.Next)
	case *StructDef:
		add(p.NameDef)
		for _, f := range p.Fields {
			add(f.Type)
		}
	case *StructInstance:
		add(p.Struct)
		for _, mem := range p.Members {
			add(mem.Value)
		}
	case *Attr:
		add(p.Lhs)
	case *BuiltinType:
		add(p.Dim)
	case *ArrayType:
		add(p.Elem, p.Dim)
	case *TupleType:
		add(p.Members...)
	}
	return out
}

// Walk visits id and its descendants in pre-order. Returning false from fn
// skips the subtree.
func (m *Module) Walk(id NodeID, fn func(*Node) bool) {
	n := m.Node(id)
	if n == nil || !fn(n) {
		return
	}
	for _, c := range m.Children(id) {
		m.Walk(c, fn)
	}
}
