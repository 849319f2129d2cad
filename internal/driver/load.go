package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"hdlfront/internal/ast"
	"hdlfront/internal/diag"
	"hdlfront/internal/modfile"
	"hdlfront/internal/project"
	"hdlfront/internal/source"
	"hdlfront/internal/typeinfo"
)

// Module is one module of a run: its description file, decoded AST,
// diagnostics and, once checked, its root TypeInfo.
type Module struct {
	Path     string
	File     source.FileID
	AST      *ast.Module // nil when decoding failed
	Meta     project.ModuleMeta
	Bag      *diag.Bag
	TypeInfo *typeinfo.TypeInfo
	Broken   bool
}

func (m *Module) firstError() *diag.Diagnostic {
	for _, d := range m.Bag.Items() {
		if d.Severity >= diag.SevError {
			return &d
		}
	}
	return nil
}

// LoadModules reads and decodes the module files at paths in parallel.
// Load and decode failures become diagnostics of the affected module; the
// returned error is only set when ctx is cancelled.
func LoadModules(ctx context.Context, fs *source.FileSet, paths []string, jobs, maxDiagnostics int) ([]*Module, error) {
	// FileSet ids are assigned in load order, so load sequentially. A file
	// that fails to load is registered empty so diagnostics can name it.
	fileIDs := make([]source.FileID, len(paths))
	loadErrors := make([]error, len(paths))
	for i, path := range paths {
		fileIDs[i], loadErrors[i] = fs.Load(path)
		if loadErrors[i] != nil {
			fileIDs[i] = fs.AddVirtual(path, nil)
		}
	}

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	modules := make([]*Module, len(paths))
	if len(paths) == 0 {
		return modules, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			mod := &Module{Path: path, File: fileIDs[i], Bag: diag.NewBag(maxDiagnostics)}
			modules[i] = mod
			if err := loadErrors[i]; err != nil {
				mod.Broken = true
				mod.Bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{File: mod.File}, "failed to load file: "+err.Error()))
				return nil
			}
			file := fs.Get(mod.File)
			m, err := modfile.Decode(file)
			if err != nil {
				mod.Broken = true
				mod.Bag.Add(decodeDiagnostic(err, file))
				return nil
			}
			mod.AST = m
			mod.Meta = project.MetaOf(m, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return modules, err
	}
	return modules, nil
}
