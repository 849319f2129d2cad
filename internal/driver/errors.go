package driver

import (
	"errors"

	"hdlfront/internal/diag"
	"hdlfront/internal/infer"
	"hdlfront/internal/modfile"
	"hdlfront/internal/source"
	"hdlfront/internal/typeinfo"
)

var (
	// ErrUnknownModule is returned by ImportData.Import for a module that is
	// not part of the run.
	ErrUnknownModule = errors.New("driver: unknown module")
	// ErrNotChecked is returned when an import has no TypeInfo yet, which
	// happens when it failed to check.
	ErrNotChecked = errors.New("driver: module not type-checked")
)

func decodeDiagnostic(err error, file *source.File) diag.Diagnostic {
	var derr *modfile.Error
	if errors.As(err, &derr) {
		return diag.NewError(derr.Code, derr.Span, derr.Msg)
	}
	return diag.NewError(diag.InputDecode, source.Span{File: file.ID}, err.Error())
}

// typeDiagnostic turns a type-checking failure into a diagnostic anchored at
// the offending node, or at fallback when the error carries none.
func typeDiagnostic(err error, fallback source.Span) diag.Diagnostic {
	var ierr *infer.Error
	if errors.As(err, &ierr) {
		code := diag.TypeInvalid
		if ierr.Kind == infer.Unification {
			code = diag.TypeUnification
		}
		sp := fallback
		if ierr.Node != nil {
			sp = ierr.Node.Span
		}
		return diag.NewError(code, sp, ierr.Msg)
	}
	var terr *typeinfo.Error
	if errors.As(err, &terr) {
		code := diag.TypeCheckInfo
		switch terr.Kind {
		case typeinfo.DuplicateRoot:
			code = diag.TypeDuplicateRoot
		case typeinfo.NotFound:
			code = diag.TypeNotFound
		case typeinfo.TypeMismatch:
			code = diag.TypeMismatch
		case typeinfo.ReferentialIntegrity:
			code = diag.TypeIntegrity
		}
		sp := fallback
		if terr.Node != nil {
			sp = terr.Node.Span
		}
		return diag.NewError(code, sp, terr.Msg)
	}
	return diag.NewError(diag.TypeInvalid, fallback, err.Error())
}
