package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"hdlfront/internal/diag"
	"hdlfront/internal/source"
)

func TestJSONOutput(t *testing.T) {
	bag, fs, _ := prettyBag(t)
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true, PathMode: PathModeBasename}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Code != "TYP3003" || d.Severity != "ERROR" || d.Title != diag.TypeUnification.Title() {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if d.Location.File != "main.toml" || d.Location.StartLine != 6 || d.Location.StartCol != 10 || d.Location.EndCol != 13 {
		t.Fatalf("unexpected location %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.StartLine != 4 {
		t.Fatalf("unexpected notes %+v", d.Notes)
	}
}

func TestJSONMaxAndPositions(t *testing.T) {
	bag, fs, id := prettyBag(t)
	bag.Add(diag.NewError(diag.TypeInvalid, source.Span{File: id, Start: 0, End: 6}, "second"))
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 {
		t.Fatalf("Max not applied: %d", out.Count)
	}
	loc := out.Diagnostics[0].Location
	if loc.StartLine != 0 || loc.StartByte == 0 {
		t.Fatalf("positions should be omitted: %+v", loc)
	}
	if out.Diagnostics[0].Notes != nil {
		t.Fatalf("notes should be omitted")
	}
}
