// Package testkit holds checks shared by tests of several packages.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"hdlfront/internal/ast"
	"hdlfront/internal/source"
	"hdlfront/internal/typeinfo"
	"hdlfront/internal/types"
)

// CheckTypeInfoInvariants runs structural checks over every TypeInfo of owner:
// 1) a derived node covers its parent's module and was created after it
// 2) derived nodes hold concrete types only
// 3) a known constant is typed in scope, and bits constants match that type
// 4) invocation entries of roots point at derived nodes of the same owner,
// exactly when the callee is parametric
// 5) when fs is non-nil, typed nodes carry spans inside their module's file
func CheckTypeInfoInvariants(owner *typeinfo.Owner, fs *source.FileSet) error {
	if owner == nil {
		return fmt.Errorf("nil owner")
	}
	all := owner.All()
	known := make(map[*typeinfo.TypeInfo]bool, len(all))
	for _, ti := range all {
		known[ti] = true
	}
	snap := owner.Snapshot()
	for i, ti := range all {
		if err := checkLineage(ti); err != nil {
			return err
		}
		if err := checkTypes(ti, fs); err != nil {
			return err
		}
		if err := checkConsts(ti, snap.Nodes[i]); err != nil {
			return err
		}
		if ti.IsRoot() {
			if err := checkInvocations(ti, known); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkLineage(ti *typeinfo.TypeInfo) error {
	p := ti.Parent()
	if p == nil {
		return nil
	}
	if p.Module() != ti.Module() {
		return fmt.Errorf("ti#%d covers %q but its parent ti#%d covers %q", ti.ID(), ti.Module().Name, p.ID(), p.Module().Name)
	}
	if p.ID() >= ti.ID() {
		return fmt.Errorf("ti#%d was created before its parent ti#%d", ti.ID(), p.ID())
	}
	return nil
}

func checkTypes(ti *typeinfo.TypeInfo, fs *source.FileSet) error {
	var size uint32
	if fs != nil {
		f := fs.Get(ti.Module().File)
		if f == nil {
			return fmt.Errorf("module %q has no file", ti.Module().Name)
		}
		var err error
		if size, err = safecast.Conv[uint32](len(f.Content)); err != nil {
			return fmt.Errorf("len content overflow: %w", err)
		}
	}
	for _, e := range ti.TypeEntries() {
		if e.Type == nil {
			return fmt.Errorf("ti#%d: nil type for %s", ti.ID(), e.Node)
		}
		if !ti.IsRoot() && types.IsParametric(e.Type) {
			return fmt.Errorf("ti#%d: derived type info holds parametric type %s for %s", ti.ID(), e.Type, e.Node)
		}
		if fs == nil {
			continue
		}
		sp := e.Node.Span
		if sp.File != ti.Module().File || sp.Start > sp.End || sp.End > size {
			return fmt.Errorf("ti#%d: %s has span %v outside its file", ti.ID(), e.Node, sp)
		}
	}
	return nil
}

func checkConsts(ti *typeinfo.TypeInfo, ns typeinfo.NodeSnapshot) error {
	for _, f := range ns.ConstExprs {
		if !f.Known {
			continue
		}
		n := ti.Module().MustNode(ast.NodeID(f.Node))
		t, ok := ti.GetType(n)
		if !ok {
			return fmt.Errorf("ti#%d: constant %s = %s has no type", ti.ID(), n, f.Value)
		}
		v, ok := ti.GetConstExprOption(n)
		if !ok {
			return fmt.Errorf("ti#%d: constant %s lost its value", ti.ID(), n)
		}
		bt, isBits := t.(*types.BitsType)
		if !isBits || !v.IsBits() {
			continue
		}
		if v.Width() != bt.Width || v.IsSigned() != bt.Signed {
			return fmt.Errorf("ti#%d: constant %s = %s does not match its type %s", ti.ID(), n, v, t)
		}
	}
	return nil
}

func checkInvocations(root *typeinfo.TypeInfo, known map[*typeinfo.TypeInfo]bool) error {
	for _, d := range root.GetRootInvocations() {
		if d.Node.Owner != root.Module() {
			return fmt.Errorf("invocation %s recorded on root of %q", d.Node, root.Module().Name)
		}
		for _, c := range d.Entries() {
			if c.Derived == nil {
				if !c.CalleeEnv.Empty() {
					return fmt.Errorf("invocation %s binds %s without a derived type info", d.Node, c.CalleeEnv)
				}
				continue
			}
			if !known[c.Derived] {
				return fmt.Errorf("invocation %s points at a type info of another owner", d.Node)
			}
			if c.Derived.IsRoot() {
				return fmt.Errorf("invocation %s points at root ti#%d", d.Node, c.Derived.ID())
			}
			if c.CalleeEnv.Empty() {
				return fmt.Errorf("invocation %s has a derived type info but no bindings", d.Node)
			}
		}
	}
	return nil
}
