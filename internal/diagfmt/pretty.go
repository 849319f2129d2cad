package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"hdlfront/internal/diag"
	"hdlfront/internal/source"
)

type palette struct {
	err, warn, info, code, loc, caret, note *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:   mk(color.FgRed, color.Bold),
		warn:  mk(color.FgYellow, color.Bold),
		info:  mk(color.FgCyan, color.Bold),
		code:  mk(color.Faint),
		loc:   mk(color.Bold),
		caret: mk(color.FgGreen, color.Bold),
		note:  mk(color.FgBlue),
	}
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty prints the diagnostics of bag in bag order (call bag.Sort first):
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// followed by the source line with the span underlined ^~~~, then notes in
// the same format.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.loc.Sprint(location(fs, d.Primary, opts)),
			p.severity(d.Severity).Sprint(d.Severity),
			p.code.Sprint(d.Code.ID()),
			d.Message)
		writeContext(w, fs, d.Primary, opts.Context, p)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s: %s %s\n", p.loc.Sprint(location(fs, n.Span, opts)), p.note.Sprint("note:"), n.Msg)
		}
	}
}

func location(fs *source.FileSet, sp source.Span, opts PrettyOpts) string {
	f := fs.Get(sp.File)
	path := formatPath(f, opts.PathMode, opts.BaseDir)
	if f == nil {
		return path
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
}

// writeContext prints the primary line with up to context lines before it
// and an underline below it. Columns are measured in display width.
func writeContext(w io.Writer, fs *source.FileSet, sp source.Span, context int8, p palette) {
	f := fs.Get(sp.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start, end := fs.Resolve(sp)
	first := start.Line
	for i := int8(0); i < context && first > 1; i++ {
		first--
	}
	gutter := len(fmt.Sprint(start.Line))
	for ln := first; ln <= start.Line; ln++ {
		fmt.Fprintf(w, " %*d | %s\n", gutter, ln, f.GetLine(ln))
	}
	line := f.GetLine(start.Line)
	col := int(start.Col) - 1
	if col > len(line) {
		col = len(line)
	}
	stop := len(line)
	if end.Line == start.Line && int(end.Col)-1 <= len(line) {
		stop = int(end.Col) - 1
	}
	pad := runewidth.StringWidth(line[:col])
	width := max(runewidth.StringWidth(line[col:max(stop, col)]), 1)
	underline := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, " %*s | %s%s\n", gutter, "", strings.Repeat(" ", pad), p.caret.Sprint(underline))
}
