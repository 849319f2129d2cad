package infer

import (
	"hdlfront/internal/ast"
	"hdlfront/internal/diag"
	"hdlfront/internal/parametric"
	"hdlfront/internal/trace"
	"hdlfront/internal/typeinfo"
	"hdlfront/internal/types"
)

// ImportContext resolves imports to already type-checked modules and hands
// out the Owner every TypeInfo of the run is allocated from.
type ImportContext interface {
	Owner() *typeinfo.Owner
	Import(name string) (*ast.Module, *typeinfo.TypeInfo, error)
}

const defaultMaxInstantiationDepth = 64

// Options tune the resolution phase.
type Options struct {
	Tracer trace.Tracer
	// Parent span id for trace events.
	TraceParent uint64
	// MaxInstantiationDepth bounds nested parametric instantiation; 0 means
	// the default.
	MaxInstantiationDepth int
}

const (
	stateInProgress uint8 = iota + 1
	stateDone
)

type resolver struct {
	module   *ast.Module
	imports  ImportContext
	owner    *typeinfo.Owner
	warnings diag.Reporter
	opts     Options
	tracer   trace.Tracer

	root    *typeinfo.TypeInfo
	top     *scope // module-level declarations
	tables  map[*ast.Module]*moduleTable
	members map[ast.NodeID]uint8
	bodies  map[ast.NodeID]uint8
}

type moduleTable struct {
	table *Table
	auto  AutoSet
}

// scope is the state of one checking context: the module facts of the
// enclosing tree and, for function bodies, the instantiation env.
type scope struct {
	ti      *typeinfo.TypeInfo
	module  *ast.Module
	tab     *moduleTable
	env     parametric.Env
	fn      *ast.Node // enclosing function, nil at top level
	subst   map[VarID]types.Type
	pending map[VarID]*pending
	token   *bool
	depth   int
}

func (r *resolver) newScope(ti *typeinfo.TypeInfo, env parametric.Env, fn *ast.Node, depth int) (*scope, error) {
	tab, err := r.tableFor(ti.Module())
	if err != nil {
		return nil, err
	}
	return &scope{
		ti:      ti,
		module:  ti.Module(),
		tab:     tab,
		env:     env,
		fn:      fn,
		subst:   make(map[VarID]types.Type),
		pending: make(map[VarID]*pending),
		depth:   depth,
	}, nil
}

// tableFor returns the inference table of m, populating imported modules
// on first use so their parametric bodies can be instantiated.
func (r *resolver) tableFor(m *ast.Module) (*moduleTable, error) {
	if t, ok := r.tables[m]; ok {
		return t, nil
	}
	t := NewTable(m)
	auto, err := Populate(m, t)
	if err != nil {
		return nil, err
	}
	mt := &moduleTable{table: t, auto: auto}
	r.tables[m] = mt
	return mt, nil
}

// Resolve turns a populated table into the module's root TypeInfo. On error
// no TypeInfo is returned; nodes already allocated stay in the owner.
func Resolve(table *Table, module *ast.Module, imports ImportContext, warnings diag.Reporter, auto AutoSet, opts Options) (*typeinfo.TypeInfo, error) {
	if warnings == nil {
		warnings = diag.NopReporter{}
	}
	if opts.MaxInstantiationDepth <= 0 {
		opts.MaxInstantiationDepth = defaultMaxInstantiationDepth
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	r := &resolver{
		module:   module,
		imports:  imports,
		owner:    imports.Owner(),
		warnings: warnings,
		opts:     opts,
		tracer:   tracer,
		tables:   map[*ast.Module]*moduleTable{module: {table: table, auto: auto}},
		members:  make(map[ast.NodeID]uint8),
		bodies:   make(map[ast.NodeID]uint8),
	}
	root, err := r.owner.New(module, nil)
	if err != nil {
		return nil, err
	}
	r.root = root
	if err := r.run(); err != nil {
		return nil, err
	}
	return root, nil
}

func (r *resolver) run() error {
	for _, id := range r.module.Members {
		n := r.module.MustNode(id)
		imp, ok := n.Payload.(*ast.Import)
		if !ok {
			continue
		}
		m, ti, err := r.imports.Import(imp.Module)
		if err != nil {
			return invalid(n, "cannot import %q: %v", imp.Module, err)
		}
		r.root.AddImport(n, m, ti)
	}
	top, err := r.newScope(r.root, parametric.Env{}, nil, 0)
	if err != nil {
		return err
	}
	r.top = top
	for _, id := range r.module.Members {
		if err := r.ensureMember(id); err != nil {
			return err
		}
	}
	for _, id := range r.module.Members {
		fn, ok := ast.Get[ast.Function](r.module, id)
		if !ok || fn.IsParametric() {
			continue
		}
		if err := r.ensureBody(id); err != nil {
			return err
		}
	}
	for _, id := range r.module.Members {
		if err := r.settleDefiner(r.module.MustNode(id)); err != nil {
			return err
		}
	}
	return nil
}

// ensureMember type-checks a top-level declaration of the module being
// resolved at most once. Functions only get their signature here.
func (r *resolver) ensureMember(id ast.NodeID) error {
	switch r.members[id] {
	case stateDone:
		return nil
	case stateInProgress:
		n := r.module.MustNode(id)
		return invalid(n, "recursive dependency on %q", r.module.Identifier(id))
	}
	r.members[id] = stateInProgress
	n := r.module.MustNode(id)
	top := r.top
	var err error
	switch x := n.Payload.(type) {
	case *ast.ConstantDef:
		err = r.checkConstant(top, n, x)
	case *ast.StructDef:
		err = r.checkStruct(top, n, x)
	case *ast.Function:
		err = r.checkSignature(top, n, x)
	case *ast.Proc:
		err = r.checkProc(n, x)
	}
	if err != nil {
		return err
	}
	r.members[id] = stateDone
	return nil
}

// ensureDefiner makes sure a top-level definition referenced from s has been
// checked. Definitions of other modules are complete already.
func (r *resolver) ensureDefiner(s *scope, definer ast.NodeID) error {
	if s.module != r.module {
		return nil
	}
	n := r.module.Node(definer)
	if n == nil {
		return nil
	}
	switch x := n.Payload.(type) {
	case *ast.ConstantDef, *ast.StructDef, *ast.Proc:
		return r.ensureMember(definer)
	case *ast.Function:
		if x.Proc.IsValid() {
			return nil
		}
		return r.ensureMember(definer)
	}
	return nil
}

// ensureBody checks a non-parametric top-level function body in the root.
// A body already in progress (recursion) is left alone.
func (r *resolver) ensureBody(id ast.NodeID) error {
	if r.bodies[id] != 0 {
		return nil
	}
	r.bodies[id] = stateInProgress
	fnNode := r.module.MustNode(id)
	s, err := r.newScope(r.root, parametric.Env{}, fnNode, 0)
	if err != nil {
		return err
	}
	if err := r.checkBody(s, fnNode); err != nil {
		return err
	}
	r.bodies[id] = stateDone
	return nil
}

// checkConstant types a top-level constant, or parks it until a reference
// decides the width of its literals.
func (r *resolver) checkConstant(s *scope, n *ast.Node, c *ast.ConstantDef) error {
	if _, ok := r.deferBinding(s, n, c.NameDef, c.Type, c.Value); ok {
		return nil
	}
	var declared types.Type
	if c.Type.IsValid() {
		t, err := r.concreteAnnotation(s, c.Type)
		if err != nil {
			return err
		}
		declared = t
	}
	return r.bindConstant(s, n, c, declared)
}

func (r *resolver) bindConstant(s *scope, n *ast.Node, c *ast.ConstantDef, want types.Type) error {
	nameDef := s.module.MustNode(c.NameDef)
	t, err := r.deduce(s, c.Value, want)
	if err != nil {
		return err
	}
	if err := r.assign(s, nameDef, t, nil); err != nil {
		return err
	}
	if err := r.assign(s, n, t, nil); err != nil {
		return err
	}
	valueNode := s.module.MustNode(c.Value)
	if v, ok := s.ti.GetConstExprOption(valueNode); ok {
		s.ti.NoteConstExpr(nameDef, v)
		s.ti.NoteConstExpr(n, v)
	} else {
		s.ti.NoteNonConstExpr(nameDef)
		s.ti.NoteNonConstExpr(n)
	}
	return nil
}

func (r *resolver) checkStruct(s *scope, n *ast.Node, sd *ast.StructDef) error {
	st := &types.StructType{Name: s.module.Identifier(sd.NameDef)}
	seen := make(map[string]bool, len(sd.Fields))
	for _, f := range sd.Fields {
		if seen[f.Name] {
			return invalid(n, "duplicate field %q in struct %s", f.Name, st.Name)
		}
		seen[f.Name] = true
		ft, err := r.concreteAnnotation(s, f.Type)
		if err != nil {
			return err
		}
		st.Fields = append(st.Fields, types.StructField{Name: f.Name, Type: ft})
	}
	s.ti.SetType(n, st)
	s.ti.SetType(s.module.MustNode(sd.NameDef), st)
	return nil
}

// checkSignature records the function type of fn in s. Parametric functions
// get placeholder types for annotations depending on their bindings; their
// bindings and params are typed per instantiation.
func (r *resolver) checkSignature(s *scope, n *ast.Node, fn *ast.Function) error {
	if fn.IsParametric() {
		r.warnUnusedParametrics(s.module, n, fn)
	}
	ft := &types.FunctionType{}
	for _, pid := range fn.Params {
		p := ast.MustGet[ast.Param](s.module, pid)
		pt, err := r.signatureAnnotation(s, p.Type, fn.IsParametric())
		if err != nil {
			return err
		}
		if !fn.IsParametric() {
			pn := s.module.MustNode(pid)
			nd := s.module.MustNode(p.NameDef)
			if err := r.assign(s, nd, pt, nil); err != nil {
				return err
			}
			if err := r.assign(s, pn, pt, nil); err != nil {
				return err
			}
			s.ti.NoteNonConstExpr(nd)
		}
		ft.Params = append(ft.Params, pt)
	}
	ft.Return = types.Unit()
	if fn.Return.IsValid() {
		rt, err := r.signatureAnnotation(s, fn.Return, fn.IsParametric())
		if err != nil {
			return err
		}
		ft.Return = rt
	}
	s.ti.SetType(n, ft)
	s.ti.SetType(s.module.MustNode(fn.NameDef), ft)
	return nil
}

func (r *resolver) signatureAnnotation(s *scope, id ast.NodeID, symbolic bool) (types.Type, error) {
	if symbolic {
		return r.symbolicAnnotation(s, id)
	}
	return r.concreteAnnotation(s, id)
}

// checkBody deduces the body of fnNode against its recorded signature and
// notes whether it needs an implicit token.
func (r *resolver) checkBody(s *scope, fnNode *ast.Node) error {
	fn := fnNode.Payload.(*ast.Function)
	sig, err := typeinfo.As[*types.FunctionType](s.ti, fnNode)
	if err != nil {
		return err
	}
	needsToken := false
	s.fn = fnNode
	s.token = &needsToken
	if _, err := r.deduce(s, fn.Body, sig.Return); err != nil {
		return err
	}
	prev, _ := s.ti.GetRequiresImplicitToken(fnNode)
	s.ti.NoteRequiresImplicitToken(fnNode, prev || needsToken)
	return nil
}

// checkProc gives a non-parametric proc its entry TypeInfo and checks its
// config and next functions there. Parametric procs are checked per spawn.
func (r *resolver) checkProc(n *ast.Node, p *ast.Proc) error {
	if len(p.Parametrics) > 0 {
		return nil
	}
	entry, err := r.owner.New(r.module, r.root)
	if err != nil {
		return err
	}
	r.root.SetEntryTypeInfo(n, entry)
	return r.checkProcFunctions(entry, parametric.Env{}, p, 0)
}

func (r *resolver) checkProcFunctions(ti *typeinfo.TypeInfo, env parametric.Env, p *ast.Proc, depth int) error {
	m := ti.Module()
	for _, fid := range []ast.NodeID{p.Config, p.Next} {
		fnNode := m.MustNode(fid)
		s, err := r.newScope(ti, env, fnNode, depth)
		if err != nil {
			return err
		}
		if err := r.checkSignature(s, fnNode, fnNode.Payload.(*ast.Function)); err != nil {
			return err
		}
		if err := r.checkBody(s, fnNode); err != nil {
			return err
		}
	}
	return nil
}

// warnUnusedParametrics reports bindings that nothing in the function
// refers to.
func (r *resolver) warnUnusedParametrics(m *ast.Module, n *ast.Node, fn *ast.Function) {
	used := make(map[ast.NodeID]bool)
	m.Walk(n.ID, func(x *ast.Node) bool {
		if ref, ok := x.Payload.(*ast.NameRef); ok {
			used[ref.Def] = true
		}
		return true
	})
	for _, bid := range fn.Parametrics {
		b := ast.MustGet[ast.ParametricBinding](m, bid)
		if !used[b.NameDef] {
			diag.ReportWarning(r.warnings, diag.TypeWarnUnusedParametric, m.MustNode(bid).Span,
				"parametric binding "+m.Identifier(b.NameDef)+" is never used")
		}
	}
}
