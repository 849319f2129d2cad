package ast

import (
	"fmt"

	"hdlfront/internal/source"
)

// KindOf returns the node kind that carries payload.
func KindOf(payload any) Kind {
	switch payload.(type) {
	case *Import:
		return KindImport
	case *ConstantDef:
		return KindConstantDef
	case *NameDef:
		return KindNameDef
	case *NameRef:
		return KindNameRef
	case *ColonRef:
		return KindColonRef
	case *Number:
		return KindNumber
	case *Binop:
		return KindBinop
	case *Unop:
		return KindUnop
	case *Cast:
		return KindCast
	case *Tuple:
		return KindTuple
	case *Array:
		return KindArray
	case *Index:
		return KindIndex
	case *TupleIndex:
		return KindTupleIndex
	case *Slice:
		return KindSlice
	case *Conditional:
		return KindConditional
	case *Block:
		return KindBlock
	case *Let:
		return KindLet
	case *Invocation:
		return KindInvocation
	case *Spawn:
		return KindSpawn
	case *Fail:
		return KindFail
	case *Cover:
		return KindCover
	case *Function:
		return KindFunction
	case *ParametricBinding:
		return KindParametricBinding
	case *Param:
		return KindParam
	case *Proc:
		return KindProc
	case *StructDef:
		return KindStructDef
	case *StructInstance:
		return KindStructInstance
	case *Attr:
		return KindAttr
	case *BuiltinType:
		return KindBuiltinType
	case *ArrayType:
		return KindArrayType
	case *TupleType:
		return KindTupleType
	case *TypeRef:
		return KindTypeRef
	}
	return KindInvalid
}

// New allocates a node for payload. Declarations claim their NameDef as
// definer; config/next functions of a Proc are linked back to it.
func (m *Module) New(span source.Span, payload any) NodeID {
	kind := KindOf(payload)
	if kind == KindInvalid {
		panic(fmt.Sprintf("ast: unsupported payload %T", payload))
	}
	if span.File == 0 {
		span.File = m.File
	}
	id := m.add(kind, span, payload)
	switch p := payload.(type) {
	case *ConstantDef:
		m.claim(p.NameDef, id)
	case *Let:
		m.claim(p.NameDef, id)
	case *Function:
		m.claim(p.NameDef, id)
	case *ParametricBinding:
		m.claim(p.NameDef, id)
	case *Param:
		m.claim(p.NameDef, id)
	case *StructDef:
		m.claim(p.NameDef, id)
	case *Proc:
		m.claim(p.NameDef, id)
		for _, fn := range []NodeID{p.Config, p.Next} {
			if f, ok := Get[Function](m, fn); ok {
				f.Proc = id
			}
		}
	}
	return id
}

func (m *Module) claim(nameDef, definer NodeID) {
	if nd, ok := Get[NameDef](m, nameDef); ok {
		nd.Definer = definer
	}
}

// Get returns the payload of id when it has type *T.
func Get[T any](m *Module, id NodeID) (*T, bool) {
	n := m.Node(id)
	if n == nil {
		return nil, false
	}
	p, ok := n.Payload.(*T)
	return p, ok
}

// MustGet panics when id does not carry a *T payload.
func MustGet[T any](m *Module, id NodeID) *T {
	p, ok := Get[T](m, id)
	if !ok {
		var zero T
		panic(fmt.Sprintf("ast: node %s is not %T", m.Node(id), &zero))
	}
	return p
}

// Small helpers used by builders and tests.

// NewNameDef allocates a NameDef.
func (m *Module) NewNameDef(span source.Span, ident string) NodeID {
	return m.New(span, &NameDef{Identifier: ident})
}

// Ref allocates a NameRef to nameDef.
func (m *Module) Ref(span source.Span, nameDef NodeID) NodeID {
	return m.New(span, &NameRef{Identifier: m.Identifier(nameDef), Def: nameDef})
}

// Num allocates an unannotated integer literal.
func (m *Module) Num(span source.Span, text string) NodeID {
	return m.New(span, &Number{Text: text, Kind: NumberInt})
}

// Bits allocates a fixed-width uN/sN annotation.
func (m *Module) Bits(span source.Span, signed bool, width int64) NodeID {
	base := BuiltinUN
	if signed {
		base = BuiltinSN
	}
	return m.New(span, &BuiltinType{Base: base, Width: width})
}
