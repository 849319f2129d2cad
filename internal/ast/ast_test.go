package ast

import (
	"testing"

	"hdlfront/internal/source"
)

func TestArenaOneBased(t *testing.T) {
	a := NewArena[int](0)
	if got := a.Get(0); got != nil {
		t.Fatalf("index 0 must be nil")
	}
	id := a.Allocate(7)
	if id != 1 || *a.Get(id) != 7 {
		t.Fatalf("unexpected allocation %d", id)
	}
	if a.Get(2) != nil {
		t.Fatalf("out of range must be nil")
	}
}

func TestNewClaimsNameDef(t *testing.T) {
	m := NewModule("m", 1)
	sp := source.Span{}
	name := m.NewNameDef(sp, "FOO")
	c := m.New(sp, &ConstantDef{NameDef: name, Value: m.Num(sp, "42")})
	nd := MustGet[NameDef](m, name)
	if nd.Definer != c {
		t.Fatalf("definer = %d, want %d", nd.Definer, c)
	}
	m.AddMember(c)
	if got, ok := m.Member("FOO"); !ok || got.ID != c {
		t.Fatalf("member lookup failed")
	}
	if m.Node(c).Owner != m {
		t.Fatalf("owner not set")
	}
	if m.Node(c).Span.File != 1 {
		t.Fatalf("span file defaulted wrong")
	}
}

func TestProcLinksFunctions(t *testing.T) {
	m := NewModule("m", 1)
	sp := source.Span{}
	cfg := m.New(sp, &Function{NameDef: m.NewNameDef(sp, "config"), Body: m.New(sp, &Tuple{})})
	next := m.New(sp, &Function{NameDef: m.NewNameDef(sp, "next"), Body: m.New(sp, &Tuple{})})
	p := m.New(sp, &Proc{NameDef: m.NewNameDef(sp, "P"), Config: cfg, Next: next})
	if MustGet[Function](m, cfg).Proc != p || MustGet[Function](m, next).Proc != p {
		t.Fatalf("proc functions not linked")
	}
}

func TestChildrenSkipsAbsent(t *testing.T) {
	m := NewModule("m", 1)
	sp := source.Span{}
	lhs := m.Num(sp, "1")
	s := m.New(sp, &Slice{Lhs: lhs})
	kids := m.Children(s)
	if len(kids) != 1 || kids[0] != lhs {
		t.Fatalf("children = %v", kids)
	}
	count := 0
	m.Walk(s, func(*Node) bool { count++; return true })
	if count != 2 {
		t.Fatalf("walk visited %d nodes", count)
	}
}

func TestNumberValue(t *testing.T) {
	tests := []struct {
		text string
		kind NumberKind
		want int64
		err  bool
	}{
		{"255", NumberInt, 255, false},
		{"010", NumberInt, 10, false},
		{"0xff", NumberInt, 255, false},
		{"0b1010", NumberInt, 10, false},
		{"-5", NumberInt, -5, false},
		{"1_000", NumberInt, 1000, false},
		{"true", NumberBool, 1, false},
		{"false", NumberBool, 0, false},
		{"'a'", NumberChar, 97, false},
		{"xyz", NumberInt, 0, true},
		{"maybe", NumberBool, 0, true},
	}
	for _, tt := range tests {
		n := &Number{Text: tt.text, Kind: tt.kind}
		v, err := n.Value()
		if tt.err {
			if err == nil {
				t.Fatalf("%q: expected error", tt.text)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tt.text, err)
		}
		if v.Int64() != tt.want {
			t.Fatalf("%q = %s, want %d", tt.text, v, tt.want)
		}
	}
}

func TestKindClassification(t *testing.T) {
	if !KindNumber.IsExpr() || KindBuiltinType.IsExpr() {
		t.Fatalf("IsExpr wrong")
	}
	if !KindTypeRef.IsTypeAnnotation() {
		t.Fatalf("TypeRef must be an annotation")
	}
	if !KindParam.IsTypeBearing() || KindImport.IsTypeBearing() {
		t.Fatalf("IsTypeBearing wrong")
	}
	if op, ok := ParseBinop("<<"); !ok || !op.IsShift() {
		t.Fatalf("ParseBinop(<<) = %v", op)
	}
}
