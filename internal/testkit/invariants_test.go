package testkit

import (
	"strings"
	"testing"

	"hdlfront/internal/ast"
	"hdlfront/internal/source"
	"hdlfront/internal/typeinfo"
	"hdlfront/internal/types"
	"hdlfront/internal/value"
)

type fixture struct {
	owner *typeinfo.Owner
	root  *typeinfo.TypeInfo
	m     *ast.Module
	num   *ast.Node
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	m := ast.NewModule("m", 1)
	num := m.MustNode(m.Num(source.Span{File: 1, Start: 0, End: 1}, "3"))
	owner := typeinfo.NewOwner()
	root, err := owner.New(m, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fixture{owner: owner, root: root, m: m, num: num}
}

func TestInvariantsHold(t *testing.T) {
	f := newFixture(t)
	f.root.SetType(f.num, types.U(8))
	f.root.NoteConstExpr(f.num, value.UBits(8, 3))
	if _, err := f.owner.New(f.m, f.root); err != nil {
		t.Fatalf("derived: %v", err)
	}
	if err := CheckTypeInfoInvariants(f.owner, nil); err != nil {
		t.Fatalf("unexpected violation: %v", err)
	}
}

func TestInvariantViolations(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f fixture)
		want  string
	}{
		{
			name: "constant width differs from type",
			setup: func(t *testing.T, f fixture) {
				f.root.SetType(f.num, types.U(8))
				f.root.NoteConstExpr(f.num, value.UBits(4, 3))
			},
			want: "does not match its type",
		},
		{
			name: "untyped constant",
			setup: func(t *testing.T, f fixture) {
				f.root.NoteConstExpr(f.num, value.UBits(8, 3))
			},
			want: "has no type",
		},
		{
			name: "parametric type in derived",
			setup: func(t *testing.T, f fixture) {
				d, err := f.owner.New(f.m, f.root)
				if err != nil {
					t.Fatalf("derived: %v", err)
				}
				d.SetType(f.num, types.Parametric("N"))
			},
			want: "parametric type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)
			err := CheckTypeInfoInvariants(f.owner, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSpansMustLieInFile(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.toml", []byte("x"))
	m := ast.NewModule("m", id)
	owner := typeinfo.NewOwner()
	root, err := owner.New(m, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	root.SetType(m.MustNode(m.Num(source.Span{File: id, Start: 0, End: 1}, "1")), types.U(8))
	if err := CheckTypeInfoInvariants(owner, fs); err != nil {
		t.Fatalf("span inside file: %v", err)
	}
	long := m.MustNode(m.Num(source.Span{File: id, Start: 0, End: 5}, "12345"))
	root.SetType(long, types.U(8))
	if err := CheckTypeInfoInvariants(owner, fs); err == nil || !strings.Contains(err.Error(), "outside its file") {
		t.Fatalf("span past the end of the file: %v", err)
	}
}
