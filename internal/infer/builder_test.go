package infer

import (
	"fmt"
	"testing"

	"hdlfront/internal/ast"
	"hdlfront/internal/source"
	"hdlfront/internal/testkit"
	"hdlfront/internal/typeinfo"
)

// builder assembles small modules for tests; every node gets a distinct span.
type builder struct {
	m   *ast.Module
	pos uint32
}

func newBuilder(name string, file source.FileID) *builder {
	return &builder{m: ast.NewModule(name, file)}
}

func (b *builder) sp() source.Span {
	b.pos += 2
	return source.Span{File: b.m.File, Start: b.pos, End: b.pos + 1}
}

func (b *builder) node(id ast.NodeID) *ast.Node { return b.m.MustNode(id) }

func (b *builder) num(text string) ast.NodeID { return b.m.Num(b.sp(), text) }

func (b *builder) typedNum(text string, typ ast.NodeID) ast.NodeID {
	return b.m.New(b.sp(), &ast.Number{Text: text, Kind: ast.NumberInt, Type: typ})
}

func (b *builder) boolean(text string) ast.NodeID {
	return b.m.New(b.sp(), &ast.Number{Text: text, Kind: ast.NumberBool})
}

func (b *builder) u(width int64) ast.NodeID { return b.m.Bits(b.sp(), false, width) }

func (b *builder) uN(dim ast.NodeID) ast.NodeID {
	return b.m.New(b.sp(), &ast.BuiltinType{Base: ast.BuiltinUN, Dim: dim})
}

func (b *builder) ref(nameDef ast.NodeID) ast.NodeID { return b.m.Ref(b.sp(), nameDef) }

func (b *builder) name(ident string) ast.NodeID { return b.m.NewNameDef(b.sp(), ident) }

func (b *builder) binop(op ast.BinopKind, lhs, rhs ast.NodeID) ast.NodeID {
	return b.m.New(b.sp(), &ast.Binop{Op: op, Lhs: lhs, Rhs: rhs})
}

func (b *builder) block(result ast.NodeID, stmts ...ast.NodeID) ast.NodeID {
	return b.m.New(b.sp(), &ast.Block{Stmts: stmts, Result: result})
}

func (b *builder) tuple(members ...ast.NodeID) ast.NodeID {
	return b.m.New(b.sp(), &ast.Tuple{Members: members})
}

func (b *builder) call(callee ast.NodeID, args ...ast.NodeID) ast.NodeID {
	return b.m.New(b.sp(), &ast.Invocation{Callee: callee, Args: args})
}

func (b *builder) constant(name string, typ, val ast.NodeID) (nameDef, id ast.NodeID) {
	nameDef = b.name(name)
	id = b.m.New(b.sp(), &ast.ConstantDef{NameDef: nameDef, Type: typ, Value: val, Public: true})
	b.m.AddMember(id)
	return nameDef, id
}

func (b *builder) let(name string, typ, rhs ast.NodeID) (nameDef, id ast.NodeID) {
	nameDef = b.name(name)
	id = b.m.New(b.sp(), &ast.Let{NameDef: nameDef, Type: typ, Rhs: rhs})
	return nameDef, id
}

func (b *builder) param(name string, typ ast.NodeID) (nameDef, id ast.NodeID) {
	nameDef = b.name(name)
	id = b.m.New(b.sp(), &ast.Param{NameDef: nameDef, Type: typ})
	return nameDef, id
}

func (b *builder) binding(name string, typ, dflt ast.NodeID) (nameDef, id ast.NodeID) {
	nameDef = b.name(name)
	id = b.m.New(b.sp(), &ast.ParametricBinding{NameDef: nameDef, Type: typ, Default: dflt})
	return nameDef, id
}

// fn allocates a function; the name is allocated up front by the caller so
// bodies may refer to it.
func (b *builder) fn(nameDef ast.NodeID, parametrics, params []ast.NodeID, ret, body ast.NodeID) ast.NodeID {
	return b.m.New(b.sp(), &ast.Function{
		NameDef:     nameDef,
		Parametrics: parametrics,
		Params:      params,
		Return:      ret,
		Body:        body,
		Public:      true,
	})
}

func (b *builder) member(id ast.NodeID) ast.NodeID {
	b.m.AddMember(id)
	return id
}

type fakeImports struct {
	owner *typeinfo.Owner
	mods  map[string]*ast.Module
}

func newImports() *fakeImports {
	return &fakeImports{owner: typeinfo.NewOwner(), mods: make(map[string]*ast.Module)}
}

func (f *fakeImports) Owner() *typeinfo.Owner { return f.owner }

func (f *fakeImports) Import(name string) (*ast.Module, *typeinfo.TypeInfo, error) {
	m, ok := f.mods[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown module %q", name)
	}
	ti, err := f.owner.GetRootTypeInfo(m)
	if err != nil {
		return nil, nil, err
	}
	return m, ti, nil
}

func mustTypecheck(t *testing.T, imports *fakeImports, m *ast.Module) *typeinfo.TypeInfo {
	t.Helper()
	ti, err := TypecheckModule(m, imports, nil, Options{})
	if err != nil {
		t.Fatalf("typecheck %s: %v", m.Name, err)
	}
	if err := testkit.CheckTypeInfoInvariants(imports.owner, nil); err != nil {
		t.Fatalf("type info invariants after %s: %v", m.Name, err)
	}
	imports.mods[m.Name] = m
	return ti
}

func typeString(t *testing.T, ti *typeinfo.TypeInfo, n *ast.Node) string {
	t.Helper()
	ty, err := ti.GetTypeOrError(n)
	if err != nil {
		t.Fatalf("no type for %s: %v", n, err)
	}
	return ty.String()
}
