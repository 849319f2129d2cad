package typeinfo

import (
	"fmt"

	"hdlfront/internal/ast"
)

// Owner is the arena holding every TypeInfo of a compilation run. Nodes are
// never freed before the Owner itself; parent and derived links are
// non-owning pointers into it.
type Owner struct {
	nodes    []*TypeInfo
	roots    map[*ast.Module]*TypeInfo
	children map[*TypeInfo][]*TypeInfo
}

func NewOwner() *Owner {
	return &Owner{
		roots:    make(map[*ast.Module]*TypeInfo),
		children: make(map[*TypeInfo][]*TypeInfo),
	}
}

// New allocates a TypeInfo for module. With a nil parent it becomes the
// module's root and fails with DuplicateRoot if one exists. A non-nil parent
// must be owned by o and cover the same module.
func (o *Owner) New(module *ast.Module, parent *TypeInfo) (*TypeInfo, error) {
	if module == nil {
		panic("typeinfo: New with nil module")
	}
	if parent == nil {
		if _, ok := o.roots[module]; ok {
			return nil, &Error{
				Kind:   DuplicateRoot,
				Module: module.Name,
				Msg:    fmt.Sprintf("module %q already has a root type info", module.Name),
			}
		}
	} else {
		if parent.owner != o {
			panic("typeinfo: parent belongs to a different owner")
		}
		if parent.module != module {
			panic(fmt.Sprintf("typeinfo: parent covers module %q, not %q", parent.module.Name, module.Name))
		}
	}
	ti := &TypeInfo{
		id:     len(o.nodes),
		owner:  o,
		module: module,
		parent: parent,
		scope:  newScopeFacts(),
	}
	if parent == nil {
		ti.facts = newModuleFacts()
		o.roots[module] = ti
	} else {
		ti.facts = parent.facts
		o.children[parent] = append(o.children[parent], ti)
	}
	o.nodes = append(o.nodes, ti)
	return ti, nil
}

// GetRootTypeInfo returns the root registered for module.
func (o *Owner) GetRootTypeInfo(module *ast.Module) (*TypeInfo, error) {
	if ti, ok := o.roots[module]; ok {
		return ti, nil
	}
	name := "<nil>"
	if module != nil {
		name = module.Name
	}
	return nil, &Error{Kind: NotFound, Module: name, Msg: fmt.Sprintf("no root type info for module %q", name)}
}

// Len returns the number of TypeInfo nodes allocated.
func (o *Owner) Len() int { return len(o.nodes) }

// All returns every node in allocation order.
func (o *Owner) All() []*TypeInfo {
	out := make([]*TypeInfo, len(o.nodes))
	copy(out, o.nodes)
	return out
}

// Children returns the nodes whose parent is ti, in allocation order.
func (o *Owner) Children(ti *TypeInfo) []*TypeInfo {
	kids := o.children[ti]
	out := make([]*TypeInfo, len(kids))
	copy(out, kids)
	return out
}

// Roots returns the root of every module, in allocation order.
func (o *Owner) Roots() []*TypeInfo {
	out := make([]*TypeInfo, 0, len(o.roots))
	for _, ti := range o.nodes {
		if ti.parent == nil {
			out = append(out, ti)
		}
	}
	return out
}
