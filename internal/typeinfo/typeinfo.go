// Package typeinfo stores the deduced type facts of a program: a tree of
// TypeInfo scopes per module, owned by an Owner arena.
package typeinfo

import (
	"fmt"
	"sort"

	"hdlfront/internal/ast"
	"hdlfront/internal/parametric"
	"hdlfront/internal/types"
	"hdlfront/internal/value"
)

// TypeInfo is one scope of type facts. Reads that miss locally fall back to
// the parent chain. Module-wide facts (imports, invocations, slices, implicit
// token requirements, entry type infos) are shared across the tree.
type TypeInfo struct {
	id     int
	owner  *Owner
	module *ast.Module
	parent *TypeInfo
	scope  *ScopeFacts
	facts  *ModuleFacts
}

// ID is the allocation index of ti in its Owner.
func (ti *TypeInfo) ID() int { return ti.id }

func (ti *TypeInfo) Module() *ast.Module { return ti.module }

// Parent returns nil for a root.
func (ti *TypeInfo) Parent() *TypeInfo { return ti.parent }

func (ti *TypeInfo) IsRoot() bool { return ti.parent == nil }

// Root walks to the parent-less ancestor.
func (ti *TypeInfo) Root() *TypeInfo {
	t := ti
	for t.parent != nil {
		t = t.parent
	}
	return t
}

// key enforces node ownership; storing a foreign node is a bug in the caller.
func (ti *TypeInfo) key(n *ast.Node) ast.NodeID {
	if n == nil {
		panic("typeinfo: nil AST node")
	}
	if n.Owner != ti.module {
		owner := "<nil>"
		if n.Owner != nil {
			owner = n.Owner.Name
		}
		panic(fmt.Sprintf("typeinfo: node %s belongs to module %q, type info covers %q", n, owner, ti.module.Name))
	}
	return n.ID
}

// SetType records a clone of t for n, replacing any local entry.
func (ti *TypeInfo) SetType(n *ast.Node, t types.Type) {
	if t == nil {
		panic(fmt.Sprintf("typeinfo: nil type for %s", n))
	}
	ti.scope.types[ti.key(n)] = t.Clone()
}

// GetType looks n up locally, then in ancestors.
func (ti *TypeInfo) GetType(n *ast.Node) (types.Type, bool) {
	id := ti.key(n)
	for t := ti; t != nil; t = t.parent {
		if ty, ok := t.scope.types[id]; ok {
			return ty, true
		}
	}
	return nil, false
}

func (ti *TypeInfo) GetTypeOrError(n *ast.Node) (types.Type, error) {
	if ty, ok := ti.GetType(n); ok {
		return ty, nil
	}
	return nil, notFound(n, "no type found for node")
}

// Contains reports whether a type is visible for n from ti.
func (ti *TypeInfo) Contains(n *ast.Node) bool {
	_, ok := ti.GetType(n)
	return ok
}

// As fetches the type of n as variant T. A missing entry is NotFound; a
// different variant is TypeMismatch.
func As[T types.Type](ti *TypeInfo, n *ast.Node) (T, error) {
	var zero T
	ty, err := ti.GetTypeOrError(n)
	if err != nil {
		return zero, err
	}
	got, ok := types.As[T](ty)
	if !ok {
		return zero, &Error{
			Kind:   TypeMismatch,
			Module: ti.module.Name,
			Node:   n,
			Msg:    fmt.Sprintf("type %s is a %s, not %T", ty, ty.Kind(), zero),
		}
	}
	return got, nil
}

// Types returns a copy of the local node-to-type entries.
func (ti *TypeInfo) Types() map[ast.NodeID]types.Type {
	out := make(map[ast.NodeID]types.Type, len(ti.scope.types))
	for id, ty := range ti.scope.types {
		out[id] = ty
	}
	return out
}

// NoteConstExpr records the constant value of n in this scope only.
func (ti *TypeInfo) NoteConstExpr(n *ast.Node, v value.Value) {
	ti.scope.constExprs[ti.key(n)] = constExpr{known: true, value: v}
}

// NoteNonConstExpr records that n is known not to be constant in this scope.
func (ti *TypeInfo) NoteNonConstExpr(n *ast.Node) {
	ti.scope.constExprs[ti.key(n)] = constExpr{}
}

// constExpr finds the nearest entry for n; an absent entry defers to the
// parent, a non-constant marker does not.
func (ti *TypeInfo) constExpr(n *ast.Node) (constExpr, bool) {
	id := ti.key(n)
	for t := ti; t != nil; t = t.parent {
		if ce, ok := t.scope.constExprs[id]; ok {
			return ce, true
		}
	}
	return constExpr{}, false
}

func (ti *TypeInfo) IsKnownConstExpr(n *ast.Node) bool {
	ce, ok := ti.constExpr(n)
	return ok && ce.known
}

func (ti *TypeInfo) IsKnownNonConstExpr(n *ast.Node) bool {
	ce, ok := ti.constExpr(n)
	return ok && !ce.known
}

func (ti *TypeInfo) GetConstExprOption(n *ast.Node) (value.Value, bool) {
	ce, ok := ti.constExpr(n)
	if !ok || !ce.known {
		return value.Value{}, false
	}
	return ce.value, true
}

func (ti *TypeInfo) GetConstExpr(n *ast.Node) (value.Value, error) {
	ce, ok := ti.constExpr(n)
	switch {
	case !ok:
		return value.Value{}, notFound(n, "no constexpr value recorded")
	case !ce.known:
		return value.Value{}, notFound(n, "node is known to be non-constant")
	}
	return ce.value, nil
}

// AddImport records what an import node resolved to.
func (ti *TypeInfo) AddImport(imp *ast.Node, module *ast.Module, imported *TypeInfo) {
	ti.facts.imports[ti.key(imp)] = &ImportedInfo{Module: module, TypeInfo: imported}
}

func (ti *TypeInfo) GetImported(imp *ast.Node) (*ImportedInfo, bool) {
	info, ok := ti.facts.imports[ti.key(imp)]
	return info, ok
}

func (ti *TypeInfo) GetImportedOrError(imp *ast.Node) (*ImportedInfo, error) {
	if info, ok := ti.GetImported(imp); ok {
		return info, nil
	}
	return nil, notFound(imp, "import not recorded")
}

// GetImportedTypeInfo returns the root for m when m is this module or one of
// its direct imports.
func (ti *TypeInfo) GetImportedTypeInfo(m *ast.Module) (*TypeInfo, bool) {
	if m == ti.module {
		return ti.Root(), true
	}
	for _, info := range ti.facts.imports {
		if info.Module == m {
			return info.TypeInfo, true
		}
	}
	return nil, false
}

// AddSliceStartAndWidth records the concrete range of a slice under env.
func (ti *TypeInfo) AddSliceStartAndWidth(slice *ast.Node, env parametric.Env, sw StartAndWidth) {
	id := ti.key(slice)
	byEnv, ok := ti.facts.slices[id]
	if !ok {
		byEnv = make(map[string]sliceEntry)
		ti.facts.slices[id] = byEnv
	}
	byEnv[env.Key()] = sliceEntry{env: env, sw: sw}
}

func (ti *TypeInfo) GetSliceStartAndWidth(slice *ast.Node, env parametric.Env) (StartAndWidth, bool) {
	e, ok := ti.facts.slices[ti.key(slice)][env.Key()]
	return e.sw, ok
}

// NoteRequiresImplicitToken records whether fn needs an implicit token.
func (ti *TypeInfo) NoteRequiresImplicitToken(fn *ast.Node, required bool) {
	ti.facts.implicitToken[ti.key(fn)] = required
}

func (ti *TypeInfo) GetRequiresImplicitToken(fn *ast.Node) (required, ok bool) {
	required, ok = ti.facts.implicitToken[ti.key(fn)]
	return required, ok
}

// SetEntryTypeInfo records the top-level type info of a proc.
func (ti *TypeInfo) SetEntryTypeInfo(proc *ast.Node, entry *TypeInfo) {
	if entry == nil || entry.owner != ti.owner {
		panic("typeinfo: entry type info must belong to the same owner")
	}
	ti.facts.entry[ti.key(proc)] = entry
}

func (ti *TypeInfo) GetEntryTypeInfo(proc *ast.Node) (*TypeInfo, error) {
	if e, ok := ti.facts.entry[ti.key(proc)]; ok {
		return e, nil
	}
	return nil, notFound(proc, "no entry type info")
}

// sortedIDs returns map keys in ascending order.
func sortedIDs[V any](m map[ast.NodeID]V) []ast.NodeID {
	ids := make([]ast.NodeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
