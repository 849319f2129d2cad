package modfile

import (
	"strings"

	"fortio.org/safecast"

	"hdlfront/internal/diag"
	"hdlfront/internal/source"
)

// sexpr is one element of an expression string: an atom, a quoted string or
// a parenthesised list.
type sexpr struct {
	atom   string
	quoted bool
	list   []sexpr
	isList bool
	span   source.Span
}

func (e sexpr) head() string {
	if !e.isList || len(e.list) == 0 || e.list[0].isList {
		return ""
	}
	return e.list[0].atom
}

func (e sexpr) isAtom(s string) bool { return !e.isList && !e.quoted && e.atom == s }

// reader tokenizes one expression string whose text starts at base in the
// module file.
type reader struct {
	text string
	pos  int
	base source.Span
}

func parseSexpr(text string, base source.Span) (sexpr, error) {
	r := &reader{text: text, base: base}
	r.skipSpace()
	e, err := r.read()
	if err != nil {
		return sexpr{}, err
	}
	r.skipSpace()
	if r.pos < len(r.text) {
		return sexpr{}, r.errorf(r.pos, r.pos+1, "unexpected %q after expression", r.text[r.pos:])
	}
	return e, nil
}

func (r *reader) span(start, end int) source.Span {
	s, err := safecast.Conv[uint32](start)
	if err != nil {
		return r.base
	}
	e, err := safecast.Conv[uint32](end)
	if err != nil {
		return r.base
	}
	return source.Span{File: r.base.File, Start: r.base.Start + s, End: r.base.Start + e}
}

func (r *reader) errorf(start, end int, format string, args ...any) error {
	return errorf(diag.InputDecode, r.span(start, end), format, args...)
}

func (r *reader) skipSpace() {
	for r.pos < len(r.text) && strings.ContainsRune(" \t\r\n", rune(r.text[r.pos])) {
		r.pos++
	}
}

func (r *reader) read() (sexpr, error) {
	if r.pos >= len(r.text) {
		return sexpr{}, r.errorf(r.pos, r.pos, "unexpected end of expression")
	}
	start := r.pos
	switch r.text[r.pos] {
	case '(':
		r.pos++
		var items []sexpr
		for {
			r.skipSpace()
			if r.pos >= len(r.text) {
				return sexpr{}, r.errorf(start, r.pos, "unclosed '('")
			}
			if r.text[r.pos] == ')' {
				r.pos++
				return sexpr{list: items, isList: true, span: r.span(start, r.pos)}, nil
			}
			item, err := r.read()
			if err != nil {
				return sexpr{}, err
			}
			items = append(items, item)
		}
	case ')':
		return sexpr{}, r.errorf(start, start+1, "unexpected ')'")
	case '"':
		end := strings.IndexByte(r.text[start+1:], '"')
		if end < 0 {
			return sexpr{}, r.errorf(start, len(r.text), "unterminated string")
		}
		r.pos = start + end + 2
		return sexpr{atom: r.text[start+1 : start+1+end], quoted: true, span: r.span(start, r.pos)}, nil
	}
	for r.pos < len(r.text) && !strings.ContainsRune(" \t\r\n()\"", rune(r.text[r.pos])) {
		r.pos++
	}
	return sexpr{atom: r.text[start:r.pos], span: r.span(start, r.pos)}, nil
}
