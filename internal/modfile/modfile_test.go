package modfile

import (
	"errors"
	"testing"

	"hdlfront/internal/ast"
	"hdlfront/internal/diag"
	"hdlfront/internal/source"
)

func decodeString(t *testing.T, text string) (*ast.Module, error) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.mod.toml", []byte(text))
	return Decode(fs.Get(id))
}

func mustDecode(t *testing.T, text string) *ast.Module {
	t.Helper()
	m, err := decodeString(t, text)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

const everyKind = `
module = "main"

[[import]]
module = "lib"
alias = "l"

[[const]]
name = "W"
type = "u32"
value = '(+ 4 l::FOUR)'
pub = true

[[struct]]
name = "Pair"
fields = [{ name = "a", type = "u8" }, { name = "b", type = "(tuple u4 bool)" }]

[[fn]]
name = "shuffle"
parametrics = [{ name = "N", type = "u32", default = "(* W 2)" }]
params = [{ name = "x", type = "(uN N)" }, { name = "arr", type = "(array u8 4)" }, { name = "p", type = "Pair" }]
return = "(uN N)"
body = '''
(block
  (let y (uN N) (slice x 0 _))
  (let t (tuple (index arr 1) (. p a) (char "a")))
  (let z (tindex t 0))
  (let q (array-of (array u8 2) u8:1 2))
  (let r (array true false))
  (let s (struct Pair (a z) (b (tuple u4:1 true))))
  (cover! "hit" (== z 3))
  (if (&& true (! false)) (fail! "no" (- y)) (as (call (l::id 8) z) (uN N))))
'''

[[proc]]
name = "Counter"
parametrics = [{ name = "M", type = "u32" }]

[proc.config]
params = [{ name = "init", type = "(uN M)" }]
body = '(block)'

[proc.next]
params = [{ name = "state", type = "(uN M)" }]
return = "(uN M)"
body = '(block (spawn (Counter 4) u4:0) (+ state 1))'
`

func TestDecodeEveryKind(t *testing.T) {
	m := mustDecode(t, everyKind)
	if m.Name != "main" {
		t.Fatalf("module name = %q", m.Name)
	}
	seen := make(map[ast.Kind]int)
	m.Each(func(n *ast.Node) { seen[n.Kind]++ })
	for _, k := range []ast.Kind{
		ast.KindImport, ast.KindConstantDef, ast.KindNameDef, ast.KindNameRef, ast.KindColonRef,
		ast.KindNumber, ast.KindBinop, ast.KindUnop, ast.KindCast, ast.KindTuple, ast.KindArray,
		ast.KindIndex, ast.KindTupleIndex, ast.KindSlice, ast.KindConditional, ast.KindBlock,
		ast.KindLet, ast.KindInvocation, ast.KindSpawn, ast.KindFail, ast.KindCover,
		ast.KindFunction, ast.KindParametricBinding, ast.KindParam, ast.KindProc,
		ast.KindStructDef, ast.KindStructInstance, ast.KindAttr, ast.KindBuiltinType,
		ast.KindArrayType, ast.KindTupleType, ast.KindTypeRef,
	} {
		if seen[k] == 0 {
			t.Errorf("no %s node decoded", k)
		}
	}
	if len(m.Members) != 5 {
		t.Fatalf("members = %d, want 5", len(m.Members))
	}
	fn, ok := m.Member("shuffle")
	if !ok {
		t.Fatalf("shuffle not found")
	}
	if !fn.Payload.(*ast.Function).IsParametric() {
		t.Fatalf("shuffle must be parametric")
	}
}

func TestDecodeResolvesNamesToDefinitions(t *testing.T) {
	m := mustDecode(t, everyKind)
	m.Each(func(n *ast.Node) {
		switch x := n.Payload.(type) {
		case *ast.NameRef:
			nd, ok := ast.Get[ast.NameDef](m, x.Def)
			if !ok || nd.Identifier != x.Identifier {
				t.Fatalf("ref %s points at %v", x.Identifier, x.Def)
			}
			if !nd.Definer.IsValid() {
				t.Fatalf("name %s has no definer", nd.Identifier)
			}
		case *ast.TypeRef:
			if !x.Import.IsValid() && m.MustNode(x.Def).Kind != ast.KindStructDef {
				t.Fatalf("type ref %s is not linked to its struct", x.Name)
			}
		}
	})
	proc, _ := m.Member("Counter")
	p := proc.Payload.(*ast.Proc)
	if cfg := ast.MustGet[ast.Function](m, p.Config); cfg.Proc != proc.ID {
		t.Fatalf("config is not linked to its proc")
	}
}

func TestDecodeLetScoping(t *testing.T) {
	m := mustDecode(t, `
module = "m"
[[fn]]
name = "f"
params = [{ name = "x", type = "u8" }]
return = "u8"
body = '(block (let x (+ x 1)) x)'
`)
	fn, _ := m.Member("f")
	f := fn.Payload.(*ast.Function)
	param := ast.MustGet[ast.Param](m, f.Params[0])
	block := ast.MustGet[ast.Block](m, f.Body)
	let := ast.MustGet[ast.Let](m, block.Stmts[0])
	rhs := ast.MustGet[ast.Binop](m, let.Rhs)
	if ast.MustGet[ast.NameRef](m, rhs.Lhs).Def != param.NameDef {
		t.Fatalf("let rhs must see the param, not the binding being defined")
	}
	if ast.MustGet[ast.NameRef](m, block.Result).Def != let.NameDef {
		t.Fatalf("block result must see the let binding")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		code diag.Code
	}{
		{"syntax", "module = ", diag.InputDecode},
		{"unknown key", "module = \"m\"\nbogus = 1", diag.InputDecode},
		{"unknown name", "module = \"m\"\n[[const]]\nname = \"X\"\nvalue = 'Y'", diag.InputUnresolvedName},
		{"unknown import", "module = \"m\"\n[[const]]\nname = \"X\"\nvalue = 'lib::Y'", diag.InputUnresolvedName},
		{"unknown form", "module = \"m\"\n[[const]]\nname = \"X\"\nvalue = '(frob 1)'", diag.InputUnknownNodeKind},
		{"bad type", "module = \"m\"\n[[const]]\nname = \"X\"\ntype = '(vec u8)'\nvalue = '1'", diag.InputBadType},
		{"unknown struct", "module = \"m\"\n[[const]]\nname = \"X\"\ntype = 'Nope'\nvalue = '1'", diag.InputUnresolvedName},
		{"duplicate", "module = \"m\"\n[[const]]\nname = \"X\"\nvalue = '1'\n[[const]]\nname = \"X\"\nvalue = '2'", diag.InputDuplicateName},
		{"unclosed", "module = \"m\"\n[[const]]\nname = \"X\"\nvalue = '(+ 1 2'", diag.InputDecode},
		{"stray let", "module = \"m\"\n[[const]]\nname = \"X\"\nvalue = '(let y 1)'", diag.InputDecode},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeString(t, tc.text)
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("expected decode error, got %v", err)
			}
			var derr *Error
			if !errors.As(err, &derr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if derr.Code != tc.code {
				t.Fatalf("code = %v, want %v (%v)", derr.Code, tc.code, err)
			}
		})
	}
}

func TestDecodeNormalizesIdentifiers(t *testing.T) {
	decomposed := "cafe\u0301"
	m := mustDecode(t, "module = \"m\"\n[[const]]\nname = \""+decomposed+"\"\nvalue = '1'\n"+
		"[[const]]\nname = \"Y\"\nvalue = '"+decomposed+"'")
	if _, ok := m.Member("caf\u00e9"); !ok {
		t.Fatalf("constant name is not NFC-normalized")
	}
}

func TestDecodeSpansPointIntoFile(t *testing.T) {
	text := "module = \"m\"\n[[const]]\nname = \"X\"\nvalue = '(+ 1 22)'\n"
	m := mustDecode(t, text)
	x, _ := m.Member("X")
	c := x.Payload.(*ast.ConstantDef)
	sp := m.MustNode(c.Value).Span
	if got := text[sp.Start:sp.End]; got != "(+ 1 22)" {
		t.Fatalf("value span covers %q", got)
	}
	rhs := m.MustNode(ast.MustGet[ast.Binop](m, c.Value).Rhs).Span
	if got := text[rhs.Start:rhs.End]; got != "22" {
		t.Fatalf("operand span covers %q", got)
	}
}
