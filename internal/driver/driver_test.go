package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"hdlfront/internal/diag"
	"hdlfront/internal/source"
	"hdlfront/internal/testkit"
	"hdlfront/internal/typeinfo"
)

const libModule = `
module = "lib"

[[fn]]
name = "id"
parametrics = [{ name = "N", type = "u32" }]
params = [{ name = "x", type = "(uN N)" }]
return = "(uN N)"
body = 'x'
pub = true
`

const mainModule = `
module = "main"

[[import]]
module = "lib"

[[fn]]
name = "main"
params = [{ name = "a", type = "u8" }]
return = "u8"
body = '(call lib::id a)'
`

const badConst = `
module = "lib"

[[const]]
name = "X"
type = "u8"
value = '300'
pub = true
`

// run writes files into a temporary directory, loads and checks them.
func run(t *testing.T, files map[string]string) (*Result, map[string]*Module) {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(files))
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return runPaths(t, paths)
}

func runPaths(t *testing.T, paths []string) (*Result, map[string]*Module) {
	t.Helper()
	ctx := context.Background()
	fs := source.NewFileSet()
	mods, err := LoadModules(ctx, fs, paths, 2, 50)
	if err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	res, err := Check(ctx, mods, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := testkit.CheckTypeInfoInvariants(res.Owner, fs); err != nil {
		t.Fatalf("type info invariants: %v", err)
	}
	byFile := make(map[string]*Module, len(mods))
	for _, m := range mods {
		byFile[filepath.Base(m.Path)] = m
	}
	return res, byFile
}

func codes(m *Module) []diag.Code {
	var out []diag.Code
	for _, d := range m.Bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func hasCode(m *Module, code diag.Code) bool {
	for _, c := range codes(m) {
		if c == code {
			return true
		}
	}
	return false
}

func TestCheckImportsBeforeImporters(t *testing.T) {
	res, mods := run(t, map[string]string{"a_main.toml": mainModule, "b_lib.toml": libModule})
	if res.HasErrors() {
		t.Fatalf("unexpected errors: main %v, lib %v", codes(mods["a_main.toml"]), codes(mods["b_lib.toml"]))
	}
	if len(res.Order) != 2 || res.Order[0].AST.Name != "lib" || res.Order[1].AST.Name != "main" {
		t.Fatalf("order = %v", res.Order)
	}
	// lib root, main root, and one instantiation of lib::id under lib.
	if res.Owner.Len() != 3 {
		t.Fatalf("owner has %d type infos, want 3", res.Owner.Len())
	}
	lib := mods["b_lib.toml"].TypeInfo
	children := res.Owner.Children(lib)
	if len(children) != 1 || children[0].Module() != lib.Module() {
		t.Fatalf("expected one derived type info under lib, got %v", children)
	}
	if mods["a_main.toml"].TypeInfo == nil {
		t.Fatalf("main has no type info")
	}
	if len(res.Timings.Phases) == 0 {
		t.Fatalf("no timings recorded")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	res, _ := run(t, map[string]string{"main.toml": mainModule, "lib.toml": libModule})
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, res); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	snap, err := typeinfo.ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(snap.Nodes) != res.Owner.Len() {
		t.Fatalf("snapshot has %d nodes, owner %d", len(snap.Nodes), res.Owner.Len())
	}
	var json bytes.Buffer
	if err := WriteSnapshotJSON(&json, res); err != nil {
		t.Fatalf("WriteSnapshotJSON: %v", err)
	}
	if !bytes.Contains(json.Bytes(), []byte(`"Module": "lib"`)) {
		t.Fatalf("json snapshot lacks lib:\n%s", json.String())
	}
}

func TestCheckReportsImportCycle(t *testing.T) {
	a := "module = \"a\"\n[[import]]\nmodule = \"b\"\n"
	b := "module = \"b\"\n[[import]]\nmodule = \"a\"\n"
	res, mods := run(t, map[string]string{"a.toml": a, "b.toml": b})
	for _, name := range []string{"a.toml", "b.toml"} {
		m := mods[name]
		if !m.Broken || !hasCode(m, diag.ProjImportCycle) {
			t.Fatalf("%s: broken=%v codes=%v", name, m.Broken, codes(m))
		}
		if m.TypeInfo != nil {
			t.Fatalf("%s was checked", name)
		}
	}
	if len(res.Order) != 0 || res.Owner.Len() != 0 {
		t.Fatalf("cyclic modules must not be checked")
	}
}

func TestCheckReportsMissingModule(t *testing.T) {
	_, mods := run(t, map[string]string{"main.toml": mainModule})
	m := mods["main.toml"]
	if !m.Broken || !hasCode(m, diag.ProjMissingModule) {
		t.Fatalf("codes = %v", codes(m))
	}
}

func TestCheckReportsDuplicateModule(t *testing.T) {
	_, mods := run(t, map[string]string{"a.toml": libModule, "b.toml": libModule})
	if !hasCode(mods["a.toml"], diag.ProjDuplicateModule) && !hasCode(mods["b.toml"], diag.ProjDuplicateModule) {
		t.Fatalf("duplicate not reported: %v / %v", codes(mods["a.toml"]), codes(mods["b.toml"]))
	}
}

func TestTypeErrorBreaksImporters(t *testing.T) {
	main := "module = \"main\"\n[[import]]\nmodule = \"lib\"\n"
	res, mods := run(t, map[string]string{"main.toml": main, "lib.toml": badConst})
	lib := mods["lib.toml"]
	if !lib.Broken || !hasCode(lib, diag.TypeUnification) {
		t.Fatalf("lib codes = %v", codes(lib))
	}
	d := lib.Bag.Items()[0]
	if d.Primary.File != lib.File || d.Primary.Empty() {
		t.Fatalf("type error not anchored in lib: %v", d.Primary)
	}
	m := mods["main.toml"]
	if !m.Broken || !hasCode(m, diag.ProjDependencyFailed) || m.TypeInfo != nil {
		t.Fatalf("main codes = %v", codes(m))
	}
	notes := m.Bag.Items()[0].Notes
	if len(notes) != 1 || notes[0].Span != d.Primary {
		t.Fatalf("dependency note = %v", notes)
	}
	if !res.HasErrors() {
		t.Fatalf("HasErrors = false")
	}
}

func TestWarningsDoNotBreakModule(t *testing.T) {
	src := "module = \"w\"\n[[const]]\nname = \"Y\"\ntype = \"u8\"\nvalue = '(as 300 u8)'\n"
	res, mods := run(t, map[string]string{"w.toml": src})
	m := mods["w.toml"]
	if res.HasErrors() || m.Broken || m.TypeInfo == nil {
		t.Fatalf("codes = %v", codes(m))
	}
	if !hasCode(m, diag.TypeWarnTruncatingCast) {
		t.Fatalf("expected truncation warning, got %v", codes(m))
	}
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("module = \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.toml")
	_, mods := runPaths(t, []string{bad, missing})
	if m := mods["bad.toml"]; !m.Broken || m.AST != nil || !hasCode(m, diag.InputDecode) {
		t.Fatalf("bad.toml codes = %v", codes(m))
	}
	if m := mods["missing.toml"]; !m.Broken || !hasCode(m, diag.IOLoadFileError) {
		t.Fatalf("missing.toml codes = %v", codes(m))
	}
}
