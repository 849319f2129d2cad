package driver

import (
	"context"
	"fmt"

	"hdlfront/internal/diag"
	"hdlfront/internal/infer"
	"hdlfront/internal/observ"
	"hdlfront/internal/project"
	"hdlfront/internal/project/dag"
	"hdlfront/internal/trace"
	"hdlfront/internal/typeinfo"
)

// Options configure Check.
type Options struct {
	Tracer                trace.Tracer
	MaxInstantiationDepth int
}

// Result is the outcome of a run. Order lists the modules in the order they
// were checked, imports first.
type Result struct {
	Owner   *typeinfo.Owner
	Modules []*Module
	Order   []*Module
	Timings observ.Report
}

// HasErrors reports whether any module has an error diagnostic.
func (r *Result) HasErrors() bool {
	for _, m := range r.Modules {
		if m.Bag.HasErrors() {
			return true
		}
	}
	return false
}

// Check orders modules by their imports and type-checks them one at a time
// with a shared Owner, imports first. Modules on an import cycle, with
// missing imports, or importing a broken module are not checked. Type errors
// are recorded on the module's Bag; the returned error is only set when ctx
// is cancelled.
func Check(ctx context.Context, modules []*Module, opts Options) (*Result, error) {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	span := trace.Begin(tracer, trace.ScopeDriver, "check", 0)
	defer span.End("")

	timer := observ.NewTimer()
	res := &Result{Owner: typeinfo.NewOwner(), Modules: modules}

	phase := timer.Begin("order")
	order := orderModules(modules)
	timer.End(phase, fmt.Sprintf("%d modules", len(order)))

	imports := NewImportData(res.Owner)
	for _, m := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.Broken {
			continue
		}
		if brokenImport(m, imports) != "" {
			m.Broken = true
			continue
		}
		res.Order = append(res.Order, m)
		phase := timer.Begin("typecheck:" + m.AST.Name)
		modSpan := trace.Begin(tracer, trace.ScopeModule, m.AST.Name, span.ID())
		ti, err := infer.TypecheckModule(m.AST, imports, diag.BagReporter{Bag: m.Bag}, infer.Options{
			Tracer:                tracer,
			TraceParent:           modSpan.ID(),
			MaxInstantiationDepth: opts.MaxInstantiationDepth,
		})
		if err != nil {
			m.Broken = true
			m.Bag.Add(typeDiagnostic(err, m.Meta.Span))
			modSpan.End("error")
			timer.End(phase, "error")
		} else {
			m.TypeInfo = ti
			modSpan.End("")
			timer.End(phase, "")
		}
		imports.add(m)
	}
	reportBroken(modules)
	span.WithExtra("type_infos", fmt.Sprint(res.Owner.Len()))
	res.Timings = timer.Report()
	return res, nil
}

// orderModules sorts the decoded modules so imports come first. Cycles,
// duplicates and missing imports are reported on the affected modules,
// which are marked broken.
func orderModules(modules []*Module) []*Module {
	var metas []project.ModuleMeta
	var nodes []dag.ModuleNode
	byName := make(map[string]*Module, len(modules))
	for _, m := range modules {
		if m.AST == nil {
			continue
		}
		metas = append(metas, m.Meta)
		nodes = append(nodes, dag.ModuleNode{Meta: m.Meta, Reporter: diag.BagReporter{Bag: m.Bag}})
		if _, dup := byName[m.Meta.Name]; dup {
			// BuildGraph reports the duplicate on this module.
			m.Broken = true
			continue
		}
		byName[m.Meta.Name] = m
	}
	idx := dag.BuildIndex(metas)
	graph, slots := dag.BuildGraph(idx, nodes)
	topo := dag.ToposortKahn(graph)
	if topo.Cyclic {
		dag.ReportCycles(idx, slots, topo)
		for _, id := range topo.Cycles {
			if m := byName[idx.IDToName[int(id)]]; m != nil {
				m.Broken = true
			}
		}
	}
	for _, m := range byName {
		if m.Bag.HasErrors() {
			m.Broken = true
		}
	}

	order := make([]*Module, 0, len(topo.Order))
	for _, id := range topo.CheckOrder() {
		if m := byName[idx.IDToName[int(id)]]; m != nil {
			order = append(order, m)
		}
	}
	return order
}

// brokenImport returns the first import of m that did not check.
func brokenImport(m *Module, imports *ImportData) string {
	for _, imp := range m.Meta.Imports {
		if _, _, err := imports.Import(imp.Name); err != nil {
			return imp.Name
		}
	}
	return ""
}

// reportBroken points every module importing a broken module at the first
// error of that dependency.
func reportBroken(modules []*Module) {
	var metas []project.ModuleMeta
	for _, m := range modules {
		if m.AST != nil {
			metas = append(metas, m.Meta)
		}
	}
	idx := dag.BuildIndex(metas)
	slots := make([]dag.ModuleSlot, len(idx.IDToName))
	for _, m := range modules {
		if m.AST == nil {
			continue
		}
		slot := &slots[int(idx.NameToID[m.Meta.Name])]
		if slot.Present {
			continue
		}
		*slot = dag.ModuleSlot{
			Meta:     m.Meta,
			Reporter: diag.BagReporter{Bag: m.Bag},
			Present:  true,
			Broken:   m.Broken,
			FirstErr: m.firstError(),
		}
	}
	dag.ReportBrokenDeps(idx, slots)
}
