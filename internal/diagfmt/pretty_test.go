package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"hdlfront/internal/diag"
	"hdlfront/internal/source"
)

const prettySource = "module = \"main\"\n\n[[const]]\nname = \"X\"\ntype = \"u8\"\nvalue = \"300\"\n"

func prettyBag(t *testing.T) (*diag.Bag, *source.FileSet, source.FileID) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("/home/user/project/src/main.toml", []byte(prettySource))
	f := fs.Get(id)
	sp, ok := f.Locate("300", 0)
	if !ok {
		t.Fatalf("literal not found")
	}
	decl, _ := f.Locate("name = \"X\"", 0)
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.TypeUnification, sp, "300 does not fit in u8").WithNote(decl, "declared here"))
	return bag, fs, id
}

func TestPathModes(t *testing.T) {
	bag, fs, _ := prettyBag(t)
	tests := []struct {
		name     string
		mode     PathMode
		base     string
		contains string
	}{
		{name: "absolute", mode: PathModeAbsolute, contains: "/home/user/project/src/main.toml:6:10"},
		{name: "relative", mode: PathModeRelative, base: "/home/user/project", contains: "src/main.toml:6:10"},
		{name: "basename", mode: PathModeBasename, contains: "main.toml:6:10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode, BaseDir: tt.base})
			out := buf.String()
			if !strings.Contains(out, tt.contains) {
				t.Fatalf("expected %q in output:\n%s", tt.contains, out)
			}
			if !strings.Contains(out, "ERROR") || !strings.Contains(out, "TYP3003") {
				t.Fatalf("missing severity or code:\n%s", out)
			}
			if tt.mode == PathModeBasename && strings.Contains(out, "src/") {
				t.Fatalf("basename mode kept directories:\n%s", out)
			}
		})
	}
}

func TestPrettyUnderlinesSpan(t *testing.T) {
	bag, fs, _ := prettyBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, source and underline, got:\n%s", buf.String())
	}
	if !strings.HasSuffix(lines[1], "| value = \"300\"") {
		t.Fatalf("unexpected source line %q", lines[1])
	}
	src := strings.Index(lines[1], "300")
	caret := strings.Index(lines[2], "^~~")
	if caret != src || strings.Contains(lines[2], "^~~~") {
		t.Fatalf("underline misplaced:\n%s\n%s", lines[1], lines[2])
	}
}

func TestPrettyContextAndNotes(t *testing.T) {
	bag, fs, _ := prettyBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, Context: 2, ShowNotes: true})
	out := buf.String()
	for _, want := range []string{"4 | name = \"X\"", "5 | type = \"u8\"", "main.toml:4:1: note: declared here"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPrettyColor(t *testing.T) {
	bag, fs, _ := prettyBag(t)
	var plain, colored bytes.Buffer
	Pretty(&plain, bag, fs, PrettyOpts{})
	Pretty(&colored, bag, fs, PrettyOpts{Color: true})
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("plain output contains escape codes")
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("colored output has no escape codes")
	}
}

func TestPrettyWideCharacters(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("wide.toml", []byte("name = \"名前\"\nvalue = \"x\"\n"))
	sp, _ := fs.Get(id).Locate("名前", 0)
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.InputDecode, sp, "bad identifier"))
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if !strings.HasSuffix(lines[2], "| "+strings.Repeat(" ", 8)+"^~~~") {
		t.Fatalf("underline should span four columns:\n%s", buf.String())
	}
}
