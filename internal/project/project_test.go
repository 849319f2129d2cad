package project

import (
	"testing"

	"hdlfront/internal/ast"
	"hdlfront/internal/source"
)

func TestIsValidModuleIdent(t *testing.T) {
	for name, want := range map[string]bool{
		"main": true, "_x1": true, "": false, "1a": false, "a-b": false, "café": false,
	} {
		if got := IsValidModuleIdent(name); got != want {
			t.Errorf("IsValidModuleIdent(%q) = %v", name, got)
		}
	}
}

func TestMetaOfCollectsImports(t *testing.T) {
	fs := source.NewFileSet()
	fid := fs.AddVirtual("main.mod.toml", []byte(`module = "main"`))
	m := ast.NewModule("main", fid)
	m.AddMember(m.New(source.Span{Start: 1, End: 2}, &ast.Import{Module: "lib"}))
	m.AddMember(m.New(source.Span{Start: 3, End: 4}, &ast.Import{Module: "util", Alias: "u"}))

	meta := MetaOf(m, fs.Get(fid))
	if meta.Name != "main" || meta.Path != "main.mod.toml" {
		t.Fatalf("meta = %+v", meta)
	}
	if len(meta.Imports) != 2 || meta.Imports[0].Name != "lib" || meta.Imports[1].Name != "util" {
		t.Fatalf("imports = %+v", meta.Imports)
	}
	if meta.Span.Start != 9 {
		t.Fatalf("module span = %v", meta.Span)
	}
}

func TestCombineDependsOnOrder(t *testing.T) {
	a, b, c := Digest{1}, Digest{2}, Digest{3}
	if Combine(a, b, c) == Combine(a, c, b) {
		t.Fatalf("combine must be order sensitive")
	}
	if Combine(a, b) != Combine(a, b) {
		t.Fatalf("combine must be deterministic")
	}
}
