package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"hdlfront/internal/source"
	"hdlfront/internal/typeinfo"
)

const maxExcerptWidth = 32

// TypeTable writes the local facts of ti as an aligned table: one row per
// typed node with its position, source excerpt, type and constant value.
func TypeTable(w io.Writer, ti *typeinfo.TypeInfo, fs *source.FileSet, opts PrettyOpts) error {
	header := fmt.Sprintf("ti#%d module=%s", ti.ID(), ti.Module().Name)
	if p := ti.Parent(); p != nil {
		header += fmt.Sprintf(" parent=ti#%d", p.ID())
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	f := fs.Get(ti.Module().File)
	var rows [][4]string
	for _, e := range ti.TypeEntries() {
		start, _ := fs.Resolve(e.Node.Span)
		pos := fmt.Sprintf("%s:%d:%d", formatPath(f, opts.PathMode, opts.BaseDir), start.Line, start.Col)
		val := ""
		if v, ok := ti.GetConstExprOption(e.Node); ok {
			val = v.String()
		}
		rows = append(rows, [4]string{pos, excerpt(f, e.Node.Span), e.Type.String(), val})
	}
	var widths [3]int
	for _, r := range rows {
		for i := range widths {
			widths[i] = max(widths[i], runewidth.StringWidth(r[i]))
		}
	}
	for _, r := range rows {
		line := "  " + runewidth.FillRight(r[0], widths[0]) +
			"  " + runewidth.FillRight(r[1], widths[1]) +
			"  " + runewidth.FillRight(r[2], widths[2])
		if r[3] != "" {
			line += "  = " + r[3]
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

// TypeTables writes TypeTable for every node of the owner in creation order.
func TypeTables(w io.Writer, owner *typeinfo.Owner, fs *source.FileSet, opts PrettyOpts) error {
	for i, ti := range owner.All() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := TypeTable(w, ti, fs, opts); err != nil {
			return err
		}
	}
	return nil
}

func excerpt(f *source.File, sp source.Span) string {
	if f == nil || sp.End > uint32(len(f.Content)) || sp.Start >= sp.End { //nolint:gosec // content size checked in FileSet.Add
		return "-"
	}
	text := strings.Join(strings.Fields(string(f.Content[sp.Start:sp.End])), " ")
	return runewidth.Truncate(text, maxExcerptWidth, "…")
}
