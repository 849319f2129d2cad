package trace

import (
	"bytes"
	"strings"
	"testing"
)

func TestStreamTracerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sp := Begin(tr, ScopePass, "resolve", 0)
	Point(tr, ScopeNode, "instantiate", sp.ID(), "hidden at phase level")
	sp.WithExtra("module", "top").End("ok")

	out := buf.String()
	if !strings.Contains(out, "→ resolve") || !strings.Contains(out, "← resolve (ok) {module=top}") {
		t.Fatalf("missing span events:\n%s", out)
	}
	if strings.Contains(out, "instantiate") {
		t.Fatalf("node-scope event leaked at phase level:\n%s", out)
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeNode, name, 0, "")
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("DEBUG"); err != nil || l != LevelDebug {
		t.Fatalf("ParseLevel(DEBUG) = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestOffYieldsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("expected disabled Nop tracer, got %v %v", tr, err)
	}
	if id := Begin(tr, ScopeDriver, "x", 0).ID(); id != 0 {
		t.Fatalf("inert span must have zero id, got %d", id)
	}
}
