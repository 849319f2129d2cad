// Package infer deduces the type of every node of a module: a population pass
// fills an inference table, and resolution turns it into a TypeInfo tree.
package infer

import (
	"fmt"

	"hdlfront/internal/ast"
	"hdlfront/internal/diag"
	"hdlfront/internal/trace"
	"hdlfront/internal/typeinfo"
)

// TypecheckModule type-checks module against already checked imports and
// returns its root TypeInfo. On failure no TypeInfo is returned.
func TypecheckModule(module *ast.Module, imports ImportContext, warnings diag.Reporter, opts Options) (*typeinfo.TypeInfo, error) {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	span := trace.Begin(tracer, trace.ScopePass, "typecheck:"+module.Name, opts.TraceParent)
	defer span.End("")

	table := NewTable(module)
	pop := trace.Begin(tracer, trace.ScopePass, "populate", span.ID())
	auto, err := Populate(module, table)
	pop.WithExtra("vars", fmt.Sprint(len(table.Variables()))).End("")
	if err != nil {
		return nil, err
	}

	res := trace.Begin(tracer, trace.ScopePass, "resolve", span.ID())
	opts.Tracer = tracer
	opts.TraceParent = res.ID()
	root, err := Resolve(table, module, imports, warnings, auto, opts)
	if err != nil {
		res.End("error")
		return nil, err
	}
	res.WithExtra("type_infos", fmt.Sprint(imports.Owner().Len())).End("")
	return root, nil
}
