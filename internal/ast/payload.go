package ast

// Import brings another module into scope under Alias (or its own name).
type Import struct {
	Module string
	Alias  string
}

type ConstantDef struct {
	NameDef NodeID
	Type    NodeID // optional annotation
	Value   NodeID
	Public  bool
}

// NameDef introduces an identifier. Definer is the declaration that owns it.
type NameDef struct {
	Identifier string
	Definer    NodeID
}

// NameRef refers to a NameDef in the same module.
type NameRef struct {
	Identifier string
	Def        NodeID
}

// ColonRef refers to Member of an imported module.
type ColonRef struct {
	Import NodeID
	Member string
}

type NumberKind uint8

const (
	NumberInt NumberKind = iota
	NumberBool
	NumberChar
)

type Number struct {
	Text string
	Kind NumberKind
	Type NodeID // optional annotation, e.g. u8:3
}

type BinopKind uint8

const (
	BinopAdd BinopKind = iota
	BinopSub
	BinopMul
	BinopAnd
	BinopOr
	BinopXor
	BinopShl
	BinopShr
	BinopEq
	BinopNe
	BinopLt
	BinopLe
	BinopGt
	BinopGe
	BinopLogicalAnd
	BinopLogicalOr
	BinopConcat
)

var binopText = [...]string{
	BinopAdd: "+", BinopSub: "-", BinopMul: "*", BinopAnd: "&", BinopOr: "|",
	BinopXor: "^", BinopShl: "<<", BinopShr: ">>", BinopEq: "==", BinopNe: "!=",
	BinopLt: "<", BinopLe: "<=", BinopGt: ">", BinopGe: ">=",
	BinopLogicalAnd: "&&", BinopLogicalOr: "||", BinopConcat: "++",
}

func (k BinopKind) String() string {
	if int(k) < len(binopText) {
		return binopText[k]
	}
	return "?"
}

// IsComparison reports whether the operator yields bool.
func (k BinopKind) IsComparison() bool {
	return k >= BinopEq && k <= BinopGe
}

// IsShift reports whether the rhs is typed independently of the lhs.
func (k BinopKind) IsShift() bool {
	return k == BinopShl || k == BinopShr
}

// ParseBinop maps operator text to a BinopKind.
func ParseBinop(s string) (BinopKind, bool) {
	for i, t := range binopText {
		if t == s {
			return BinopKind(i), true
		}
	}
	return 0, false
}

type UnopKind uint8

const (
	UnopNeg UnopKind = iota
	UnopInvert
)

func (k UnopKind) String() string {
	if k == UnopNeg {
		return "-"
	}
	return "!"
}

type Binop struct {
	Op       BinopKind
	Lhs, Rhs NodeID
}

type Unop struct {
	Op      UnopKind
	Operand NodeID
}

type Cast struct {
	Expr NodeID
	Type NodeID
}

type Tuple struct {
	Members []NodeID
}

type Array struct {
	Members []NodeID
	Type    NodeID // optional array-type annotation
}

type Index struct {
	Lhs   NodeID
	Index NodeID
}

type TupleIndex struct {
	Lhs   NodeID
	Index int64
}

// Slice is lhs[start:limit]; either bound may be absent.
type Slice struct {
	Lhs   NodeID
	Start NodeID
	Limit NodeID
}

type Conditional struct {
	Test       NodeID
	Consequent NodeID
	Alternate  NodeID
}

// Block evaluates Stmts in order and yields Result, or unit when Result is
// absent.
type Block struct {
	Stmts  []NodeID
	Result NodeID
}

type Let struct {
	NameDef NodeID
	Type    NodeID // optional annotation
	Rhs     NodeID
}

type Invocation struct {
	Callee      NodeID // NameRef or ColonRef
	Parametrics []NodeID
	Args        []NodeID
}

type Spawn struct {
	Proc        NodeID // NameRef or ColonRef
	Parametrics []NodeID
	Args        []NodeID // config arguments
}

type Fail struct {
	Label string
	Value NodeID
}

type Cover struct {
	Label     string
	Condition NodeID
}

type Function struct {
	NameDef     NodeID
	Parametrics []NodeID // ParametricBinding
	Params      []NodeID // Param
	Return      NodeID   // optional, unit when absent
	Body        NodeID
	Public      bool
	Proc        NodeID // owning Proc for config/next functions
}

// IsParametric reports whether the function declares parametric bindings.
func (f *Function) IsParametric() bool { return len(f.Parametrics) > 0 }

type ParametricBinding struct {
	NameDef NodeID
	Type    NodeID
	Default NodeID // optional expression
}

type Param struct {
	NameDef NodeID
	Type    NodeID
}

type Proc struct {
	NameDef     NodeID
	Parametrics []NodeID
	Config      NodeID // Function
	Next        NodeID // Function
	Public      bool
}

type StructField struct {
	Name string
	Type NodeID
}

type StructDef struct {
	NameDef NodeID
	Fields  []StructField
	Public  bool
}

type StructMember struct {
	Name  string
	Value NodeID
}

type StructInstance struct {
	Struct  NodeID // TypeRef
	Members []StructMember
}

type Attr struct {
	Lhs   NodeID
	Field string
}

type BuiltinKind uint8

const (
	BuiltinUN BuiltinKind = iota
	BuiltinSN
	BuiltinBool
	BuiltinToken
)

// BuiltinType is uN/sN with either a fixed Width or a Dim expression, bool or
// token.
type BuiltinType struct {
	Base  BuiltinKind
	Width int64
	Dim   NodeID
}

type ArrayType struct {
	Elem NodeID
	Dim  NodeID
}

type TupleType struct {
	Members []NodeID
}

// TypeRef names a struct, possibly through an import.
type TypeRef struct {
	Name   string
	Def    NodeID // StructDef in this module
	Import NodeID // Import when the struct lives elsewhere
}
