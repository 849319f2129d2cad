package project

import (
	"unicode"

	"hdlfront/internal/ast"
	"hdlfront/internal/source"
)

// ImportMeta is one import of a module and where it is written.
type ImportMeta struct {
	Name string
	Span source.Span
}

// ModuleMeta is what the driver needs to order modules before checking them.
type ModuleMeta struct {
	Name        string
	Path        string      // module description file
	Span        source.Span // span of the module name
	Imports     []ImportMeta
	ContentHash Digest // hash of the module file (from FileSet)
	ModuleHash  Digest // content hash combined with the hashes of all imports
}

// IsValidModuleIdent reports whether name can be used as a module name.
func IsValidModuleIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// MetaOf collects the metadata of a decoded module.
func MetaOf(m *ast.Module, f *source.File) ModuleMeta {
	meta := ModuleMeta{
		Name: m.Name,
		Span: source.Span{File: m.File},
	}
	if f != nil {
		meta.Path = f.Path
		meta.ContentHash = f.Hash
		if sp, ok := f.Locate(`"`+m.Name+`"`, 0); ok {
			meta.Span = sp
		}
	}
	for _, id := range m.Members {
		if imp, ok := ast.Get[ast.Import](m, id); ok {
			meta.Imports = append(meta.Imports, ImportMeta{Name: imp.Module, Span: m.MustNode(id).Span})
		}
	}
	return meta
}
