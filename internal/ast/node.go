package ast

import (
	"fmt"

	"hdlfront/internal/source"
)

// Kind tags the payload carried by a Node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindImport
	KindConstantDef
	KindNameDef
	KindNameRef
	KindColonRef
	KindNumber
	KindBinop
	KindUnop
	KindCast
	KindTuple
	KindArray
	KindIndex
	KindTupleIndex
	KindSlice
	KindConditional
	KindBlock
	KindLet
	KindInvocation
	KindSpawn
	KindFail
	KindCover
	KindFunction
	KindParametricBinding
	KindParam
	KindProc
	KindStructDef
	KindStructInstance
	KindAttr
	KindBuiltinType
	KindArrayType
	KindTupleType
	KindTypeRef
)

var kindNames = [...]string{
	KindInvalid:           "Invalid",
	KindImport:            "Import",
	KindConstantDef:       "ConstantDef",
	KindNameDef:           "NameDef",
	KindNameRef:           "NameRef",
	KindColonRef:          "ColonRef",
	KindNumber:            "Number",
	KindBinop:             "Binop",
	KindUnop:              "Unop",
	KindCast:              "Cast",
	KindTuple:             "Tuple",
	KindArray:             "Array",
	KindIndex:             "Index",
	KindTupleIndex:        "TupleIndex",
	KindSlice:             "Slice",
	KindConditional:       "Conditional",
	KindBlock:             "Block",
	KindLet:               "Let",
	KindInvocation:        "Invocation",
	KindSpawn:             "Spawn",
	KindFail:              "Fail",
	KindCover:             "Cover",
	KindFunction:          "Function",
	KindParametricBinding: "ParametricBinding",
	KindParam:             "Param",
	KindProc:              "Proc",
	KindStructDef:         "StructDef",
	KindStructInstance:    "StructInstance",
	KindAttr:              "Attr",
	KindBuiltinType:       "BuiltinType",
	KindArrayType:         "ArrayType",
	KindTupleType:         "TupleType",
	KindTypeRef:           "TypeRef",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsTypeAnnotation reports whether nodes of this kind are type annotations.
func (k Kind) IsTypeAnnotation() bool {
	switch k {
	case KindBuiltinType, KindArrayType, KindTupleType, KindTypeRef:
		return true
	}
	return false
}

// IsExpr reports whether nodes of this kind are expressions.
func (k Kind) IsExpr() bool {
	switch k {
	case KindNameRef, KindColonRef, KindNumber, KindBinop, KindUnop, KindCast,
		KindTuple, KindArray, KindIndex, KindTupleIndex, KindSlice, KindConditional,
		KindBlock, KindInvocation, KindSpawn, KindFail, KindCover,
		KindStructInstance, KindAttr:
		return true
	}
	return false
}

// IsTypeBearing reports whether the checker assigns a type to nodes of this
// kind: expressions, bindings and callables.
func (k Kind) IsTypeBearing() bool {
	if k.IsExpr() {
		return true
	}
	switch k {
	case KindConstantDef, KindNameDef, KindLet, KindFunction, KindParam,
		KindParametricBinding, KindStructDef:
		return true
	}
	return false
}

// Node is one AST node. Payload holds the kind-specific struct (see the
// accessors on Module).
type Node struct {
	ID      NodeID
	Kind    Kind
	Span    source.Span
	Owner   *Module
	Payload any
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	name := "?"
	if n.Owner != nil {
		name = n.Owner.Name
	}
	return fmt.Sprintf("%s#%d@%s", n.Kind, n.ID, name)
}

// Module owns every node of one compilation unit.
type Module struct {
	Name    string
	File    source.FileID
	Nodes   *Arena[Node]
	Members []NodeID // top-level declarations in source order
}

// NewModule creates an empty module.
func NewModule(name string, file source.FileID) *Module {
	return &Module{
		Name:  name,
		File:  file,
		Nodes: NewArena[Node](1 << 7),
	}
}

func (m *Module) String() string { return m.Name }

// Node returns the node for id, or nil.
func (m *Module) Node(id NodeID) *Node {
	return m.Nodes.Get(uint32(id))
}

// MustNode panics on an unknown id.
func (m *Module) MustNode(id NodeID) *Node {
	n := m.Node(id)
	if n == nil {
		panic(fmt.Sprintf("ast: module %s has no node #%d", m.Name, id))
	}
	return n
}

// Len returns the number of nodes.
func (m *Module) Len() uint32 { return m.Nodes.Len() }

// Each calls fn for every node in allocation order.
func (m *Module) Each(fn func(*Node)) {
	for i := uint32(1); i <= m.Nodes.Len(); i++ {
		fn(m.Nodes.Get(i))
	}
}

func (m *Module) add(kind Kind, span source.Span, payload any) NodeID {
	id := NodeID(m.Nodes.Len() + 1)
	got := m.Nodes.Allocate(Node{ID: id, Kind: kind, Span: span, Owner: m, Payload: payload})
	if NodeID(got) != id {
		panic("ast: arena out of sync")
	}
	return id
}

// AddMember appends a top-level declaration.
func (m *Module) AddMember(id NodeID) {
	m.Members = append(m.Members, id)
}

// Identifier returns the identifier of a NameDef, or of the NameDef of a
// declaration carrying one.
func (m *Module) Identifier(id NodeID) string {
	n := m.Node(id)
	if n == nil {
		return ""
	}
	switch p := n.Payload.(type) {
	case *NameDef:
		return p.Identifier
	case *NameRef:
		return p.Identifier
	case *ConstantDef:
		return m.Identifier(p.NameDef)
	case *Function:
		return m.Identifier(p.NameDef)
	case *Proc:
		return m.Identifier(p.NameDef)
	case *StructDef:
		return m.Identifier(p.NameDef)
	case *Param:
		return m.Identifier(p.NameDef)
	case *ParametricBinding:
		return m.Identifier(p.NameDef)
	case *Let:
		return m.Identifier(p.NameDef)
	case *Import:
		if p.Alias != "" {
			return p.Alias
		}
		return p.Module
	}
	return ""
}

// Member finds a top-level declaration by name.
func (m *Module) Member(name string) (*Node, bool) {
	for _, id := range m.Members {
		if m.Identifier(id) == name {
			return m.Node(id), true
		}
	}
	return nil, false
}
