package typeinfo

import (
	"errors"
	"fmt"

	"hdlfront/internal/ast"
)

// ErrorKind enumerates recoverable type-information failures.
type ErrorKind uint8

const (
	// DuplicateRoot: a second root was requested for a module.
	DuplicateRoot ErrorKind = iota + 1
	// NotFound: no entry recorded for the requested key.
	NotFound
	// TypeMismatch: the stored type has a different variant than requested.
	TypeMismatch
	// ReferentialIntegrity: one invocation recorded under two callers.
	ReferentialIntegrity
)

func (k ErrorKind) String() string {
	switch k {
	case DuplicateRoot:
		return "duplicate root"
	case NotFound:
		return "not found"
	case TypeMismatch:
		return "type mismatch"
	case ReferentialIntegrity:
		return "referential integrity violation"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

var (
	ErrDuplicateRoot        = errors.New("typeinfo: duplicate root")
	ErrNotFound             = errors.New("typeinfo: not found")
	ErrTypeMismatch         = errors.New("typeinfo: type mismatch")
	ErrReferentialIntegrity = errors.New("typeinfo: referential integrity violation")
)

// Error is returned by Owner and TypeInfo operations. It matches the
// package sentinels through errors.Is.
type Error struct {
	Kind   ErrorKind
	Module string
	Node   *ast.Node // may be nil
	Msg    string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	where := e.Module
	if e.Node != nil {
		where = fmt.Sprintf("%s @ %s", e.Node, e.Node.Span)
	}
	if where == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Msg, where)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrDuplicateRoot:
		return e.Kind == DuplicateRoot
	case ErrNotFound:
		return e.Kind == NotFound
	case ErrTypeMismatch:
		return e.Kind == TypeMismatch
	case ErrReferentialIntegrity:
		return e.Kind == ReferentialIntegrity
	}
	return false
}

func notFound(n *ast.Node, format string, args ...any) error {
	return &Error{Kind: NotFound, Node: n, Msg: fmt.Sprintf(format, args...)}
}
