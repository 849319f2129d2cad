// Package modfile decodes module description files into ast.Modules.
//
// A module description is a TOML document. Declarations are arrays of
// tables; expressions and type annotations are S-expression strings,
// conventionally written as TOML literal strings:
//
//	module = "main"
//
//	[[import]]
//	module = "lib"
//
//	[[const]]
//	name = "WIDTH"
//	type = "u32"
//	value = '(+ 4 4)'
//
//	[[fn]]
//	name = "id"
//	parametrics = [{ name = "N", type = "u32" }]
//	params = [{ name = "x", type = "(uN N)" }]
//	return = "(uN N)"
//	body = '(slice x 0 N)'
//
// Names are resolved while decoding; a NameRef always points at its NameDef.
package modfile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"hdlfront/internal/ast"
	"hdlfront/internal/diag"
	"hdlfront/internal/source"
)

// Error is a decoding failure anchored in the module file.
type Error struct {
	Code diag.Code
	Span source.Span
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Msg)
}

// ErrDecode is matched by every *Error.
var ErrDecode = errors.New("modfile: malformed module description")

func (e *Error) Is(target error) bool { return target == ErrDecode }

func errorf(code diag.Code, sp source.Span, format string, args ...any) error {
	return &Error{Code: code, Span: sp, Msg: fmt.Sprintf(format, args...)}
}

type fileDesc struct {
	Module  string       `toml:"module"`
	Imports []importDesc `toml:"import"`
	Consts  []constDesc  `toml:"const"`
	Structs []structDesc `toml:"struct"`
	Fns     []fnDesc     `toml:"fn"`
	Procs   []procDesc   `toml:"proc"`
}

type importDesc struct {
	Module string `toml:"module"`
	Alias  string `toml:"alias"`
}

type constDesc struct {
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	Value string `toml:"value"`
	Pub   bool   `toml:"pub"`
}

type fieldDesc struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

type structDesc struct {
	Name   string      `toml:"name"`
	Fields []fieldDesc `toml:"fields"`
	Pub    bool        `toml:"pub"`
}

type bindingDesc struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Default string `toml:"default"`
}

type fnDesc struct {
	Name        string        `toml:"name"`
	Parametrics []bindingDesc `toml:"parametrics"`
	Params      []fieldDesc   `toml:"params"`
	Return      string        `toml:"return"`
	Body        string        `toml:"body"`
	Pub         bool          `toml:"pub"`
}

type procDesc struct {
	Name        string        `toml:"name"`
	Parametrics []bindingDesc `toml:"parametrics"`
	Config      fnDesc        `toml:"config"`
	Next        fnDesc        `toml:"next"`
	Pub         bool          `toml:"pub"`
}

// Decode builds the module described by f. Node spans point into f.
func Decode(f *source.File) (*ast.Module, error) {
	var desc fileDesc
	meta, err := toml.Decode(string(f.Content), &desc)
	if err != nil {
		var perr toml.ParseError
		sp := source.Span{File: f.ID}
		if errors.As(err, &perr) {
			if line := perr.Position.Line; line > 1 && line-2 < len(f.LineIdx) {
				sp.Start = f.LineIdx[line-2] + 1
				sp.End = sp.Start
			}
		}
		return nil, errorf(diag.InputDecode, sp, "%s: failed to parse TOML: %v", f.Path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errorf(diag.InputDecode, source.Span{File: f.ID},
			"%s: unknown keys %s", f.Path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("module") {
		return nil, errorf(diag.InputDecode, source.Span{File: f.ID}, "%s: missing module name", f.Path)
	}
	d := newDecoder(f, desc)
	if err := d.run(); err != nil {
		return nil, err
	}
	return d.m, nil
}
