package modfile

import (
	"strconv"
	"unicode"

	"hdlfront/internal/ast"
	"hdlfront/internal/diag"
	"hdlfront/internal/source"
)

// names is one lexical scope of identifier → NameDef.
type names struct {
	defs   map[string]ast.NodeID
	parent *names
}

func (n *names) child() *names {
	return &names{defs: make(map[string]ast.NodeID), parent: n}
}

func (n *names) lookup(ident string) (ast.NodeID, bool) {
	for s := n; s != nil; s = s.parent {
		if id, ok := s.defs[ident]; ok {
			return id, true
		}
	}
	return ast.NoNodeID, false
}

type pendingRef struct {
	ref  ast.NodeID
	span source.Span
}

type decoder struct {
	f    *source.File
	desc fileDesc
	m    *ast.Module
	top  *names

	imports map[string]ast.NodeID // alias → Import
	structs map[string]ast.NodeID // name → StructDef
	typeRef []pendingRef          // TypeRefs waiting for their StructDef
	cursor  uint32
}

func newDecoder(f *source.File, desc fileDesc) *decoder {
	return &decoder{
		f:       f,
		desc:    desc,
		m:       ast.NewModule(nfc(desc.Module), f.ID),
		top:     &names{defs: make(map[string]ast.NodeID)},
		imports: make(map[string]ast.NodeID),
		structs: make(map[string]ast.NodeID),
	}
}

// locate finds needle after the cursor, falling back to an empty span at
// the cursor when the text is written with escapes.
func (d *decoder) locate(needle string) source.Span {
	if sp, ok := d.f.Locate(needle, d.cursor); ok {
		return sp
	}
	if sp, ok := d.f.Locate(needle, 0); ok {
		return sp
	}
	return source.Span{File: d.f.ID, Start: d.cursor, End: d.cursor}
}

// declSpan moves the cursor to the declaration of name.
func (d *decoder) declSpan(name string) source.Span {
	sp := d.locate(strconv.Quote(name))
	d.cursor = sp.Start
	return sp
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func (d *decoder) ident(raw string, sp source.Span) (string, error) {
	s := nfc(raw)
	if !validIdent(s) {
		return "", errorf(diag.InputDecode, sp, "invalid identifier %q", raw)
	}
	return s, nil
}

// declare allocates a NameDef in scope; duplicates within one scope fail.
func (d *decoder) declare(scope *names, raw string, sp source.Span) (ast.NodeID, error) {
	name, err := d.ident(raw, sp)
	if err != nil {
		return ast.NoNodeID, err
	}
	if _, dup := scope.defs[name]; dup {
		return ast.NoNodeID, errorf(diag.InputDuplicateName, sp, "%s is defined twice", name)
	}
	id := d.m.NewNameDef(sp, name)
	scope.defs[name] = id
	return id, nil
}

func (d *decoder) run() error {
	modSpan := d.locate(strconv.Quote(d.desc.Module))
	if _, err := d.ident(d.desc.Module, modSpan); err != nil {
		return err
	}
	if err := d.decodeImports(); err != nil {
		return err
	}

	// Top-level names are visible everywhere, so declare them first.
	constNames := make([]ast.NodeID, len(d.desc.Consts))
	structNames := make([]ast.NodeID, len(d.desc.Structs))
	fnNames := make([]ast.NodeID, len(d.desc.Fns))
	procNames := make([]ast.NodeID, len(d.desc.Procs))
	for _, group := range []struct {
		ids   []ast.NodeID
		names func(int) string
	}{
		{constNames, func(i int) string { return d.desc.Consts[i].Name }},
		{structNames, func(i int) string { return d.desc.Structs[i].Name }},
		{fnNames, func(i int) string { return d.desc.Fns[i].Name }},
		{procNames, func(i int) string { return d.desc.Procs[i].Name }},
	} {
		for i := range group.ids {
			name := group.names(i)
			id, err := d.declare(d.top, name, d.declSpan(name))
			if err != nil {
				return err
			}
			group.ids[i] = id
		}
	}

	for i, sd := range d.desc.Structs {
		if err := d.decodeStruct(structNames[i], sd); err != nil {
			return err
		}
	}
	for i, cd := range d.desc.Consts {
		if err := d.decodeConst(constNames[i], cd); err != nil {
			return err
		}
	}
	for i, fd := range d.desc.Fns {
		id, err := d.decodeFn(d.top, fnNames[i], fd)
		if err != nil {
			return err
		}
		d.m.AddMember(id)
	}
	for i, pd := range d.desc.Procs {
		if err := d.decodeProc(procNames[i], pd); err != nil {
			return err
		}
	}
	return d.resolveTypeRefs()
}

// resolveTypeRefs links struct references once every StructDef exists.
func (d *decoder) resolveTypeRefs() error {
	for _, p := range d.typeRef {
		tr := ast.MustGet[ast.TypeRef](d.m, p.ref)
		def, ok := d.structs[tr.Name]
		if !ok {
			return errorf(diag.InputUnresolvedName, p.span, "unknown struct %s", tr.Name)
		}
		tr.Def = def
	}
	d.typeRef = nil
	return nil
}

func (d *decoder) decodeImports() error {
	for _, imp := range d.desc.Imports {
		sp := d.declSpan(imp.Module)
		module, err := d.ident(imp.Module, sp)
		if err != nil {
			return err
		}
		alias := module
		if imp.Alias != "" {
			if alias, err = d.ident(imp.Alias, sp); err != nil {
				return err
			}
		}
		if _, dup := d.imports[alias]; dup {
			return errorf(diag.InputDuplicateName, sp, "module %s is imported twice", alias)
		}
		a := ""
		if alias != module {
			a = alias
		}
		id := d.m.New(sp, &ast.Import{Module: module, Alias: a})
		d.imports[alias] = id
		d.m.AddMember(id)
	}
	return nil
}

func (d *decoder) decodeStruct(nameDef ast.NodeID, sd structDesc) error {
	sp := d.declSpan(sd.Name)
	var fields []ast.StructField
	for _, f := range sd.Fields {
		name, err := d.ident(f.Name, d.locate(strconv.Quote(f.Name)))
		if err != nil {
			return err
		}
		t, err := d.typeText(d.top, f.Type)
		if err != nil {
			return err
		}
		fields = append(fields, ast.StructField{Name: name, Type: t})
	}
	id := d.m.New(sp, &ast.StructDef{NameDef: nameDef, Fields: fields, Public: sd.Pub})
	d.structs[d.m.Identifier(nameDef)] = id
	d.m.AddMember(id)
	return nil
}

func (d *decoder) decodeConst(nameDef ast.NodeID, cd constDesc) error {
	sp := d.declSpan(cd.Name)
	typ := ast.NoNodeID
	if cd.Type != "" {
		t, err := d.typeText(d.top, cd.Type)
		if err != nil {
			return err
		}
		typ = t
	}
	if cd.Value == "" {
		return errorf(diag.InputDecode, sp, "constant %s has no value", cd.Name)
	}
	val, err := d.exprText(d.top, cd.Value)
	if err != nil {
		return err
	}
	d.m.AddMember(d.m.New(sp, &ast.ConstantDef{NameDef: nameDef, Type: typ, Value: val, Public: cd.Pub}))
	return nil
}

func (d *decoder) decodeBindings(scope *names, bindings []bindingDesc) ([]ast.NodeID, error) {
	var out []ast.NodeID
	for _, b := range bindings {
		sp := d.locate(strconv.Quote(b.Name))
		nd, err := d.declare(scope, b.Name, sp)
		if err != nil {
			return nil, err
		}
		if b.Type == "" {
			return nil, errorf(diag.InputBadType, sp, "parametric %s has no type", b.Name)
		}
		t, err := d.typeText(scope, b.Type)
		if err != nil {
			return nil, err
		}
		dflt := ast.NoNodeID
		if b.Default != "" {
			if dflt, err = d.exprText(scope, b.Default); err != nil {
				return nil, err
			}
		}
		out = append(out, d.m.New(sp, &ast.ParametricBinding{NameDef: nd, Type: t, Default: dflt}))
	}
	return out, nil
}

// decodeFn builds a function whose name is already declared. outer is the
// enclosing scope: the module, or a proc's parametric scope.
func (d *decoder) decodeFn(outer *names, nameDef ast.NodeID, fd fnDesc) (ast.NodeID, error) {
	name := d.m.Identifier(nameDef)
	sp := d.declSpan(name)
	scope := outer.child()
	parametrics, err := d.decodeBindings(scope, fd.Parametrics)
	if err != nil {
		return ast.NoNodeID, err
	}
	var params []ast.NodeID
	for _, p := range fd.Params {
		psp := d.locate(strconv.Quote(p.Name))
		nd, err := d.declare(scope, p.Name, psp)
		if err != nil {
			return ast.NoNodeID, err
		}
		if p.Type == "" {
			return ast.NoNodeID, errorf(diag.InputBadType, psp, "param %s has no type", p.Name)
		}
		t, err := d.typeText(scope, p.Type)
		if err != nil {
			return ast.NoNodeID, err
		}
		params = append(params, d.m.New(psp, &ast.Param{NameDef: nd, Type: t}))
	}
	ret := ast.NoNodeID
	if fd.Return != "" {
		if ret, err = d.typeText(scope, fd.Return); err != nil {
			return ast.NoNodeID, err
		}
	}
	if fd.Body == "" {
		return ast.NoNodeID, errorf(diag.InputDecode, sp, "function %s has no body", name)
	}
	body, err := d.exprText(scope, fd.Body)
	if err != nil {
		return ast.NoNodeID, err
	}
	return d.m.New(sp, &ast.Function{
		NameDef:     nameDef,
		Parametrics: parametrics,
		Params:      params,
		Return:      ret,
		Body:        body,
		Public:      fd.Pub,
	}), nil
}

func (d *decoder) decodeProc(nameDef ast.NodeID, pd procDesc) error {
	sp := d.declSpan(pd.Name)
	scope := d.top.child()
	parametrics, err := d.decodeBindings(scope, pd.Parametrics)
	if err != nil {
		return err
	}
	var fns [2]ast.NodeID
	for i, fd := range []fnDesc{pd.Config, pd.Next} {
		fname := [...]string{"config", "next"}[i]
		if fd.Name != "" && fd.Name != fname {
			return errorf(diag.InputDecode, sp, "proc %s: %s function cannot be renamed to %s", pd.Name, fname, fd.Name)
		}
		if len(fd.Parametrics) > 0 {
			return errorf(diag.InputDecode, sp, "proc %s: parametrics belong on the proc, not on %s", pd.Name, fname)
		}
		nd := d.m.NewNameDef(sp, fname)
		if fns[i], err = d.decodeFn(scope, nd, fd); err != nil {
			return err
		}
	}
	d.m.AddMember(d.m.New(sp, &ast.Proc{
		NameDef:     nameDef,
		Parametrics: parametrics,
		Config:      fns[0],
		Next:        fns[1],
		Public:      pd.Pub,
	}))
	return nil
}
