package typeinfo

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"hdlfront/internal/ast"
	"hdlfront/internal/parametric"
	"hdlfront/internal/source"
	"hdlfront/internal/types"
	"hdlfront/internal/value"
)

func testModule(t *testing.T, name string) (*ast.Module, *ast.Node) {
	t.Helper()
	m := ast.NewModule(name, 1)
	id := m.Num(source.Span{File: 1, Start: 0, End: 2}, "42")
	return m, m.MustNode(id)
}

func envN(n uint64) parametric.Env {
	return parametric.NewEnv(parametric.Binding{Name: "N", Value: value.UBits(32, n)})
}

func TestOwnerDuplicateRoot(t *testing.T) {
	m, _ := testModule(t, "m")
	o := NewOwner()
	root, err := o.New(m, nil)
	if err != nil {
		t.Fatalf("first root: %v", err)
	}
	if _, err := o.New(m, nil); !errors.Is(err, ErrDuplicateRoot) {
		t.Fatalf("expected ErrDuplicateRoot, got %v", err)
	}
	a, err := o.New(m, root)
	if err != nil {
		t.Fatalf("derived: %v", err)
	}
	b, err := o.New(m, root)
	if err != nil {
		t.Fatalf("derived: %v", err)
	}
	if a == b {
		t.Fatalf("derived nodes must be distinct")
	}
	got, err := o.GetRootTypeInfo(m)
	if err != nil || got != root {
		t.Fatalf("GetRootTypeInfo = %v, %v", got, err)
	}
	if o.Len() != 3 || len(o.Children(root)) != 2 || len(o.Roots()) != 1 {
		t.Fatalf("owner bookkeeping wrong: len=%d children=%d", o.Len(), len(o.Children(root)))
	}
	other, _ := testModule(t, "other")
	if _, err := o.GetRootTypeInfo(other); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelegatedTypeLookup(t *testing.T) {
	m, n := testModule(t, "m")
	o := NewOwner()
	root, _ := o.New(m, nil)
	derived, _ := o.New(m, root)

	root.SetType(n, types.U(8))
	if got, ok := derived.GetType(n); !ok || !got.Equal(types.U(8)) {
		t.Fatalf("derived lookup = %v, %v", got, ok)
	}
	derived.SetType(n, types.U(16))
	if got, _ := derived.GetType(n); !got.Equal(types.U(16)) {
		t.Fatalf("derived override = %v", got)
	}
	if got, _ := root.GetType(n); !got.Equal(types.U(8)) {
		t.Fatalf("root must keep u8, got %v", got)
	}
	if !derived.Contains(n) || derived.IsRoot() || derived.Root() != root {
		t.Fatalf("navigation wrong")
	}
}

func TestSetTypeStoresClone(t *testing.T) {
	m, n := testModule(t, "m")
	root, _ := NewOwner().New(m, nil)
	ty := types.U(8)
	root.SetType(n, ty)
	ty.Width = 3
	if got, _ := root.GetType(n); !got.Equal(types.U(8)) {
		t.Fatalf("stored type aliased caller value: %v", got)
	}
}

func TestAsMismatchVersusNotFound(t *testing.T) {
	m, n := testModule(t, "m")
	root, _ := NewOwner().New(m, nil)
	if _, err := As[*types.BitsType](root, n); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	root.SetType(n, types.Tuple(types.U(1)))
	if _, err := As[*types.BitsType](root, n); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	tt, err := As[*types.TupleType](root, n)
	if err != nil || len(tt.Members) != 1 {
		t.Fatalf("As tuple = %v, %v", tt, err)
	}
	var terr *Error
	if _, err := As[*types.ArrayType](root, n); !errors.As(err, &terr) || terr.Kind != TypeMismatch {
		t.Fatalf("expected *Error with TypeMismatch, got %v", err)
	}
}

func TestConstExprThreeStates(t *testing.T) {
	m, n := testModule(t, "m")
	o := NewOwner()
	root, _ := o.New(m, nil)
	derived, _ := o.New(m, root)

	if root.IsKnownConstExpr(n) || root.IsKnownNonConstExpr(n) {
		t.Fatalf("absent entry must be neither")
	}
	if _, err := root.GetConstExpr(n); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	root.NoteConstExpr(n, value.UBits(8, 42))
	if v, err := derived.GetConstExpr(n); err != nil || !v.Equal(value.UBits(8, 42)) {
		t.Fatalf("absent local entry must defer to parent: %v, %v", v, err)
	}

	derived.NoteNonConstExpr(n)
	if !derived.IsKnownNonConstExpr(n) || derived.IsKnownConstExpr(n) {
		t.Fatalf("non-const marker must not fall through to parent")
	}
	if _, ok := derived.GetConstExprOption(n); ok {
		t.Fatalf("non-const marker has no value")
	}
	if !root.IsKnownConstExpr(n) {
		t.Fatalf("derived note must not leak into root")
	}
}

func TestInvocationBindings(t *testing.T) {
	m := ast.NewModule("m", 1)
	sp := source.Span{File: 1}
	callee := m.New(sp, &ast.NameRef{Identifier: "f"})
	inv := m.MustNode(m.New(sp, &ast.Invocation{Callee: callee}))
	f1 := m.MustNode(m.New(sp, &ast.Function{NameDef: m.NewNameDef(sp, "f1")}))
	f2 := m.MustNode(m.New(sp, &ast.Function{NameDef: m.NewNameDef(sp, "f2")}))

	o := NewOwner()
	root, _ := o.New(m, nil)
	d8, _ := o.New(m, root)
	d9, _ := o.New(m, root)

	if err := root.AddInvocationTypeInfo(inv, f1, envN(1), envN(8), d8); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := root.AddInvocationTypeInfo(inv, f1, envN(2), envN(9), d9); err != nil {
		t.Fatalf("add: %v", err)
	}
	// re-recording the same pair replaces, never accumulates
	if err := d8.AddInvocationTypeInfo(inv, f1, envN(1), envN(8), d8); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if got, ok := root.GetInvocationTypeInfo(inv, envN(1)); !ok || got != d8 {
		t.Fatalf("lookup env 1 = %v", got)
	}
	if got, ok := root.GetInvocationCalleeBindings(inv, envN(2)); !ok || !got.Equal(envN(9)) {
		t.Fatalf("callee env = %v", got)
	}
	if _, err := root.GetInvocationTypeInfoOrError(inv, envN(3)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	invs := root.GetRootInvocations()
	if len(invs) != 1 || len(invs[0].Entries()) != 2 {
		t.Fatalf("root invocations = %v", invs)
	}
	if !strings.Contains(invs[0].String(), "caller: f1") {
		t.Fatalf("unexpected String: %s", invs[0])
	}

	err := root.AddInvocationTypeInfo(inv, f2, envN(1), envN(8), d8)
	if !errors.Is(err, ErrReferentialIntegrity) {
		t.Fatalf("expected ErrReferentialIntegrity, got %v", err)
	}
}

func TestOwnershipViolationPanics(t *testing.T) {
	m, _ := testModule(t, "m")
	_, foreign := testModule(t, "other")
	root, _ := NewOwner().New(m, nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for foreign node")
		}
	}()
	root.SetType(foreign, types.U(1))
}

func TestModuleFactsSharedWithRoot(t *testing.T) {
	m := ast.NewModule("m", 1)
	sp := source.Span{File: 1}
	slice := m.MustNode(m.New(sp, &ast.Slice{Lhs: m.Num(sp, "1")}))
	fn := m.MustNode(m.New(sp, &ast.Function{NameDef: m.NewNameDef(sp, "f")}))
	proc := m.MustNode(m.New(sp, &ast.Proc{NameDef: m.NewNameDef(sp, "P")}))
	imp := m.MustNode(m.New(sp, &ast.Import{Module: "lib"}))
	lib := ast.NewModule("lib", 2)

	o := NewOwner()
	root, _ := o.New(m, nil)
	libRoot, _ := o.New(lib, nil)
	derived, _ := o.New(m, root)

	derived.AddSliceStartAndWidth(slice, envN(4), StartAndWidth{Start: 0, Width: 4})
	if sw, ok := root.GetSliceStartAndWidth(slice, envN(4)); !ok || sw.Width != 4 {
		t.Fatalf("slice = %+v, %v", sw, ok)
	}
	if _, ok := root.GetSliceStartAndWidth(slice, envN(5)); ok {
		t.Fatalf("slice for other env must be absent")
	}

	derived.NoteRequiresImplicitToken(fn, true)
	if req, ok := root.GetRequiresImplicitToken(fn); !ok || !req {
		t.Fatalf("implicit token = %v, %v", req, ok)
	}

	root.SetEntryTypeInfo(proc, derived)
	if got, err := root.GetEntryTypeInfo(proc); err != nil || got != derived {
		t.Fatalf("entry = %v, %v", got, err)
	}

	root.AddImport(imp, lib, libRoot)
	if info, err := root.GetImportedOrError(imp); err != nil || info.TypeInfo != libRoot {
		t.Fatalf("import = %v, %v", info, err)
	}
	if got, ok := derived.GetImportedTypeInfo(lib); !ok || got != libRoot {
		t.Fatalf("imported type info = %v", got)
	}
	if got, ok := derived.GetImportedTypeInfo(m); !ok || got != root {
		t.Fatalf("self type info = %v", got)
	}
	if !strings.Contains(root.ImportsDebugString(), "lib") {
		t.Fatalf("imports debug string: %s", root.ImportsDebugString())
	}
	if tree := root.TreeString(); !strings.Contains(tree, "  ti#2 module=m parent=ti#0") {
		t.Fatalf("tree string:\n%s", tree)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m, n := testModule(t, "m")
	o := NewOwner()
	root, _ := o.New(m, nil)
	root.SetType(n, types.U(8))
	root.NoteConstExpr(n, value.UBits(8, 42))
	derived, _ := o.New(m, root)
	derived.NoteNonConstExpr(n)

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, o.Snapshot()); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(snap.Nodes) != 2 || snap.Nodes[1].Parent != 0 {
		t.Fatalf("nodes = %+v", snap.Nodes)
	}
	if got := snap.Nodes[0].Types; len(got) != 1 || got[0].Type != "u8" {
		t.Fatalf("types = %+v", got)
	}
	if got := snap.Nodes[1].ConstExprs; len(got) != 1 || got[0].Known {
		t.Fatalf("derived const exprs = %+v", got)
	}
}
