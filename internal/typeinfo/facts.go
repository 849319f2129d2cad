package typeinfo

import (
	"hdlfront/internal/ast"
	"hdlfront/internal/parametric"
	"hdlfront/internal/types"
	"hdlfront/internal/value"
)

// constExpr distinguishes "known non-constant" (known=false) from absence
// (no map entry).
type constExpr struct {
	known bool
	value value.Value
}

// ScopeFacts are the facts every TypeInfo holds for its own scope.
type ScopeFacts struct {
	types      map[ast.NodeID]types.Type
	constExprs map[ast.NodeID]constExpr
}

func newScopeFacts() *ScopeFacts {
	return &ScopeFacts{
		types:      make(map[ast.NodeID]types.Type),
		constExprs: make(map[ast.NodeID]constExpr),
	}
}

// ImportedInfo is what an import node resolves to.
type ImportedInfo struct {
	Module   *ast.Module
	TypeInfo *TypeInfo
}

// StartAndWidth is the concrete bit range of a slice.
type StartAndWidth struct {
	Start int64
	Width int64
}

type sliceEntry struct {
	env parametric.Env
	sw  StartAndWidth
}

// ModuleFacts are held once per tree and shared by every node of it; they
// live with the root.
type ModuleFacts struct {
	imports       map[ast.NodeID]*ImportedInfo
	invocations   map[ast.NodeID]*InvocationData
	slices        map[ast.NodeID]map[string]sliceEntry
	implicitToken map[ast.NodeID]bool
	entry         map[ast.NodeID]*TypeInfo
}

func newModuleFacts() *ModuleFacts {
	return &ModuleFacts{
		imports:       make(map[ast.NodeID]*ImportedInfo),
		invocations:   make(map[ast.NodeID]*InvocationData),
		slices:        make(map[ast.NodeID]map[string]sliceEntry),
		implicitToken: make(map[ast.NodeID]bool),
		entry:         make(map[ast.NodeID]*TypeInfo),
	}
}
