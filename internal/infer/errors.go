package infer

import (
	"errors"
	"fmt"

	"hdlfront/internal/ast"
)

type ErrorKind uint8

const (
	// Unification: no single type satisfies the constraints on a node.
	Unification ErrorKind = iota + 1
	// InvalidProgram: the program is malformed for type checking, e.g. an
	// arity mismatch or a non-constant dimension.
	InvalidProgram
)

func (k ErrorKind) String() string {
	switch k {
	case Unification:
		return "unification failure"
	case InvalidProgram:
		return "invalid program"
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

var (
	ErrUnification    = errors.New("infer: unification failure")
	ErrInvalidProgram = errors.New("infer: invalid program")
)

// Error is a user-facing type error anchored at Node.
type Error struct {
	Kind ErrorKind
	Node *ast.Node
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Node == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s (%s @ %s)", e.Kind, e.Msg, e.Node, e.Node.Span)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnification:
		return e.Kind == Unification
	case ErrInvalidProgram:
		return e.Kind == InvalidProgram
	}
	return false
}

func invalid(n *ast.Node, format string, args ...any) error {
	return &Error{Kind: InvalidProgram, Node: n, Msg: fmt.Sprintf(format, args...)}
}

func mismatch(n *ast.Node, want, got fmt.Stringer, what string) error {
	return &Error{Kind: Unification, Node: n, Msg: fmt.Sprintf("%s: %s vs %s", what, want, got)}
}
