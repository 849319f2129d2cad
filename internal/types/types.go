// Package types defines the concrete types the checker assigns to AST nodes.
//
// Type is a closed sum: the only implementations are the variants in this
// package. Callers switch on Kind() or type-assert to the variant they need.
package types

import (
	"fmt"
	"strings"
)

// Kind enumerates the concrete type variants.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBits
	KindTuple
	KindStruct
	KindFunction
	KindArray
	KindToken
	KindParametric
)

func (k Kind) String() string {
	switch k {
	case KindBits:
		return "bits"
	case KindTuple:
		return "tuple"
	case KindStruct:
		return "struct"
	case KindFunction:
		return "function"
	case KindArray:
		return "array"
	case KindToken:
		return "token"
	case KindParametric:
		return "parametric"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a concrete type. Values are owned by whoever stores them; Clone
// produces an independent deep copy.
type Type interface {
	Kind() Kind
	String() string
	Clone() Type
	Equal(other Type) bool
	isType()
}

// BitsType is uN / sN. bool is u1.
type BitsType struct {
	Signed bool
	Width  int64
}

// U describes an unsigned bits type.
func U(width int64) *BitsType { return &BitsType{Width: width} }

// S describes a signed bits type.
func S(width int64) *BitsType { return &BitsType{Signed: true, Width: width} }

// Bool describes the boolean type (u1).
func Bool() *BitsType { return U(1) }

func (t *BitsType) Kind() Kind   { return KindBits }
func (t *BitsType) IsBool() bool { return !t.Signed && t.Width == 1 }
func (t *BitsType) Clone() Type  { c := *t; return &c }
func (t *BitsType) isType()      {}

func (t *BitsType) String() string {
	if t.Signed {
		return fmt.Sprintf("s%d", t.Width)
	}
	return fmt.Sprintf("u%d", t.Width)
}

func (t *BitsType) Equal(other Type) bool {
	o, ok := other.(*BitsType)
	return ok && *o == *t
}

// TupleType is an ordered product; the empty tuple is unit.
type TupleType struct {
	Members []Type
}

// Tuple describes a tuple of the given members.
func Tuple(members ...Type) *TupleType { return &TupleType{Members: members} }

// Unit is the empty tuple.
func Unit() *TupleType { return &TupleType{} }

func (t *TupleType) Kind() Kind   { return KindTuple }
func (t *TupleType) IsUnit() bool { return len(t.Members) == 0 }
func (t *TupleType) isType()      {}

func (t *TupleType) Clone() Type {
	return &TupleType{Members: cloneAll(t.Members)}
}

func (t *TupleType) String() string {
	return "(" + joinTypes(t.Members) + ")"
}

func (t *TupleType) Equal(other Type) bool {
	o, ok := other.(*TupleType)
	return ok && equalAll(t.Members, o.Members)
}

// StructField is one named member of a struct.
type StructField struct {
	Name string
	Type Type
}

// StructType is a nominal record; two struct types are equal when names and
// field types agree.
type StructType struct {
	Name   string
	Fields []StructField
}

func (t *StructType) Kind() Kind { return KindStruct }
func (t *StructType) isType()    {}

func (t *StructType) Clone() Type {
	fields := make([]StructField, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = StructField{Name: f.Name, Type: f.Type.Clone()}
	}
	return &StructType{Name: t.Name, Fields: fields}
}

func (t *StructType) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return t.Name + " { " + strings.Join(parts, ", ") + " }"
}

func (t *StructType) Equal(other Type) bool {
	o, ok := other.(*StructType)
	if !ok || o.Name != t.Name || len(o.Fields) != len(t.Fields) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i].Name != o.Fields[i].Name || !t.Fields[i].Type.Equal(o.Fields[i].Type) {
			return false
		}
	}
	return true
}

// Field returns the index and type of the named field.
func (t *StructType) Field(name string) (int, Type, bool) {
	for i, f := range t.Fields {
		if f.Name == name {
			return i, f.Type, true
		}
	}
	return -1, nil, false
}

// ArrayType is a fixed-size homogeneous array.
type ArrayType struct {
	Elem Type
	Size int64
}

// Array describes elem[size].
func Array(elem Type, size int64) *ArrayType { return &ArrayType{Elem: elem, Size: size} }

func (t *ArrayType) Kind() Kind     { return KindArray }
func (t *ArrayType) isType()        {}
func (t *ArrayType) Clone() Type    { return &ArrayType{Elem: t.Elem.Clone(), Size: t.Size} }
func (t *ArrayType) String() string { return fmt.Sprintf("%s[%d]", t.Elem, t.Size) }

func (t *ArrayType) Equal(other Type) bool {
	o, ok := other.(*ArrayType)
	return ok && o.Size == t.Size && t.Elem.Equal(o.Elem)
}

// FunctionType is the signature of a function.
type FunctionType struct {
	Params []Type
	Return Type
}

// Function describes (params...) -> ret.
func Function(params []Type, ret Type) *FunctionType {
	return &FunctionType{Params: params, Return: ret}
}

func (t *FunctionType) Kind() Kind { return KindFunction }
func (t *FunctionType) isType()    {}

func (t *FunctionType) Clone() Type {
	return &FunctionType{Params: cloneAll(t.Params), Return: t.Return.Clone()}
}

func (t *FunctionType) String() string {
	return "(" + joinTypes(t.Params) + ") -> " + t.Return.String()
}

func (t *FunctionType) Equal(other Type) bool {
	o, ok := other.(*FunctionType)
	return ok && equalAll(t.Params, o.Params) && t.Return.Equal(o.Return)
}

// TokenType orders side effects between procs and implicit-token functions.
type TokenType struct{}

// Token describes the token type.
func Token() *TokenType { return &TokenType{} }

func (t *TokenType) Kind() Kind     { return KindToken }
func (t *TokenType) isType()        {}
func (t *TokenType) Clone() Type    { return &TokenType{} }
func (t *TokenType) String() string { return "token" }

func (t *TokenType) Equal(other Type) bool {
	_, ok := other.(*TokenType)
	return ok
}

// ParametricType stands in for a type whose shape depends on parametric
// values, e.g. bits[N] in the signature of a parametric function. Expr is the
// annotation as written. It only appears in parametric-independent type
// information; instantiations always carry fully concrete types.
type ParametricType struct {
	Expr string
}

// Parametric describes a placeholder for the given annotation text.
func Parametric(expr string) *ParametricType { return &ParametricType{Expr: expr} }

func (t *ParametricType) Kind() Kind     { return KindParametric }
func (t *ParametricType) isType()        {}
func (t *ParametricType) Clone() Type    { return &ParametricType{Expr: t.Expr} }
func (t *ParametricType) String() string { return t.Expr }

func (t *ParametricType) Equal(other Type) bool {
	o, ok := other.(*ParametricType)
	return ok && o.Expr == t.Expr
}

func cloneAll(ts []Type) []Type {
	if ts == nil {
		return nil
	}
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

func equalAll(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
