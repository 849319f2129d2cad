package driver

import (
	"fmt"

	"hdlfront/internal/ast"
	"hdlfront/internal/typeinfo"
)

// ImportData gives the type checker access to modules checked earlier in
// the run and the Owner shared by all of them.
type ImportData struct {
	owner   *typeinfo.Owner
	modules map[string]*Module
}

func NewImportData(owner *typeinfo.Owner) *ImportData {
	return &ImportData{owner: owner, modules: make(map[string]*Module)}
}

func (d *ImportData) Owner() *typeinfo.Owner { return d.owner }

func (d *ImportData) add(m *Module) { d.modules[m.AST.Name] = m }

// Import returns the AST and root TypeInfo of the named module.
func (d *ImportData) Import(name string) (*ast.Module, *typeinfo.TypeInfo, error) {
	m, ok := d.modules[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	if m.TypeInfo == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotChecked, name)
	}
	return m.AST, m.TypeInfo, nil
}
