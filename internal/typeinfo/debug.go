package typeinfo

import (
	"fmt"
	"strings"

	"hdlfront/internal/ast"
	"hdlfront/internal/types"
)

// ImportsDebugString lists the module of ti and the modules it imports.
func (ti *TypeInfo) ImportsDebugString() string {
	names := make([]string, 0, len(ti.facts.imports))
	for _, id := range sortedIDs(ti.facts.imports) {
		names = append(names, ti.facts.imports[id].Module.Name)
	}
	return fmt.Sprintf("module %s imports:\n  %s", ti.module.Name, strings.Join(names, "\n  "))
}

// TreeString renders the subtree rooted at ti: every node with its local
// entry counts, and for each invocation the instantiations it produced.
func (ti *TypeInfo) TreeString() string {
	var b strings.Builder
	ti.writeTree(&b, 0)
	if ti.IsRoot() {
		for _, d := range ti.GetRootInvocations() {
			fmt.Fprintf(&b, "%s\n", d)
		}
	}
	return b.String()
}

func (ti *TypeInfo) writeTree(b *strings.Builder, depth int) {
	parent := "none"
	if ti.parent != nil {
		parent = fmt.Sprintf("ti#%d", ti.parent.id)
	}
	fmt.Fprintf(b, "%sti#%d module=%s parent=%s types=%d const_exprs=%d\n",
		strings.Repeat("  ", depth), ti.id, ti.module.Name, parent,
		len(ti.scope.types), len(ti.scope.constExprs))
	for _, c := range ti.owner.Children(ti) {
		c.writeTree(b, depth+1)
	}
}

// TypeEntry is one local node-to-type fact.
type TypeEntry struct {
	Node *ast.Node
	Type types.Type
}

// TypeEntries returns the local entries ordered by node id.
func (ti *TypeInfo) TypeEntries() []TypeEntry {
	ids := sortedIDs(ti.scope.types)
	out := make([]TypeEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, TypeEntry{Node: ti.module.MustNode(id), Type: ti.scope.types[id]})
	}
	return out
}
