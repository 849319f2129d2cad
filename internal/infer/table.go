package infer

import (
	"fmt"

	"hdlfront/internal/ast"
)

// VarID identifies an internal inference variable of a Table.
type VarID uint32

const NoVarID VarID = 0

type VarKind uint8

const (
	VarType VarKind = iota
	VarInteger
	VarBool
)

func (k VarKind) String() string {
	switch k {
	case VarInteger:
		return "integer"
	case VarBool:
		return "bool"
	default:
		return "type"
	}
}

// Variable stands for a type that is deduced from context. Definer is the
// binding node that introduced it.
type Variable struct {
	ID      VarID
	Kind    VarKind
	Definer ast.NodeID
	Name    string
}

// AnnotationID identifies an annotation stored in a Table.
type AnnotationID uint32

type AnnotationKind uint8

const (
	// AnnSyntax points at a type-annotation node of the module.
	AnnSyntax AnnotationKind = iota + 1
	// AnnVariable refers to the type held by an inference variable.
	AnnVariable
	// AnnBits is a synthesized uN/sN annotation.
	AnnBits
)

type Annotation struct {
	ID     AnnotationID
	Kind   AnnotationKind
	Node   ast.NodeID
	Var    VarID
	Signed bool
	Width  int64
}

func (a Annotation) String() string {
	switch a.Kind {
	case AnnSyntax:
		return fmt.Sprintf("syntax(#%d)", a.Node)
	case AnnVariable:
		return fmt.Sprintf("var(%d)", a.Var)
	case AnnBits:
		if a.Signed {
			return fmt.Sprintf("s%d", a.Width)
		}
		return fmt.Sprintf("u%d", a.Width)
	}
	return "annotation(?)"
}

// Table is the transient per-module inference state filled by Populate and
// consumed by Resolve. It never mutates the AST.
type Table struct {
	module  *ast.Module
	vars    []Variable
	anns    []Annotation
	nodeVar map[ast.NodeID]VarID
	nodeAnn map[ast.NodeID]AnnotationID
}

func NewTable(module *ast.Module) *Table {
	return &Table{
		module:  module,
		nodeVar: make(map[ast.NodeID]VarID),
		nodeAnn: make(map[ast.NodeID]AnnotationID),
	}
}

func (t *Table) Module() *ast.Module { return t.module }

func (t *Table) check(n *ast.Node) ast.NodeID {
	if n == nil || n.Owner != t.module {
		panic(fmt.Sprintf("infer: node %s is not part of module %s", n, t.module))
	}
	return n.ID
}

// DefineInternalVariable allocates a fresh variable introduced by definer.
func (t *Table) DefineInternalVariable(kind VarKind, definer *ast.Node, name string) VarID {
	id := VarID(len(t.vars) + 1)
	t.vars = append(t.vars, Variable{ID: id, Kind: kind, Definer: t.check(definer), Name: name})
	return id
}

func (t *Table) Variable(id VarID) (Variable, bool) {
	if id == NoVarID || int(id) > len(t.vars) {
		return Variable{}, false
	}
	return t.vars[id-1], true
}

// Variables returns every variable in creation order.
func (t *Table) Variables() []Variable {
	out := make([]Variable, len(t.vars))
	copy(out, t.vars)
	return out
}

// SetTypeVariable records that n's own type is represented by v.
func (t *Table) SetTypeVariable(n *ast.Node, v VarID) {
	if _, ok := t.Variable(v); !ok {
		panic(fmt.Sprintf("infer: unknown variable %d", v))
	}
	t.nodeVar[t.check(n)] = v
}

func (t *Table) GetTypeVariable(n *ast.Node) (VarID, bool) {
	v, ok := t.nodeVar[t.check(n)]
	return v, ok
}

func (t *Table) newAnnotation(a Annotation) AnnotationID {
	a.ID = AnnotationID(len(t.anns) + 1)
	t.anns = append(t.anns, a)
	return a.ID
}

// NewSyntaxAnnotation wraps a type-annotation node of the module.
func (t *Table) NewSyntaxAnnotation(typeNode *ast.Node) AnnotationID {
	if !typeNode.Kind.IsTypeAnnotation() {
		panic(fmt.Sprintf("infer: %s is not a type annotation", typeNode))
	}
	return t.newAnnotation(Annotation{Kind: AnnSyntax, Node: t.check(typeNode)})
}

func (t *Table) NewVariableAnnotation(v VarID) AnnotationID {
	if _, ok := t.Variable(v); !ok {
		panic(fmt.Sprintf("infer: unknown variable %d", v))
	}
	return t.newAnnotation(Annotation{Kind: AnnVariable, Var: v})
}

func (t *Table) NewBitsAnnotation(signed bool, width int64) AnnotationID {
	return t.newAnnotation(Annotation{Kind: AnnBits, Signed: signed, Width: width})
}

func (t *Table) Annotation(id AnnotationID) (Annotation, bool) {
	if id == 0 || int(id) > len(t.anns) {
		return Annotation{}, false
	}
	return t.anns[id-1], true
}

// SetTypeAnnotation attaches ann to n, replacing any previous one.
func (t *Table) SetTypeAnnotation(n *ast.Node, ann AnnotationID) {
	if _, ok := t.Annotation(ann); !ok {
		panic(fmt.Sprintf("infer: unknown annotation %d", ann))
	}
	t.nodeAnn[t.check(n)] = ann
}

func (t *Table) GetTypeAnnotation(n *ast.Node) (AnnotationID, bool) {
	a, ok := t.nodeAnn[t.check(n)]
	return a, ok
}

// AutoSet holds the annotations synthesized by Populate that resolution may
// refine.
type AutoSet map[AnnotationID]struct{}

func (s AutoSet) Has(id AnnotationID) bool {
	_, ok := s[id]
	return ok
}
