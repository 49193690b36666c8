package ir

// Expr is a sealed interface over compiled expression forms.
// Only the types in this file implement it. The evaluator dispatches on the
// concrete type; an Expr kind it does not know is a compiler/runtime version
// mismatch and fails evaluation loudly rather than degrading.
type Expr interface {
	expr() // Sealed - only these types implement it
}

// BinaryOp names the operator of a Binary expression.
type BinaryOp string

// The closed operator set. An operator outside this set is a compilation
// fault, not a data fault, and evaluation fails loudly on it.
const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "%"
	OpEq  BinaryOp = "=="
	OpNeq BinaryOp = "!="
	OpLt  BinaryOp = "<"
	OpLte BinaryOp = "<="
	OpGt  BinaryOp = ">"
	OpGte BinaryOp = ">="
	OpAnd BinaryOp = "&&"
	OpOr  BinaryOp = "||"
)

// ValidBinaryOps defines the allowed operators for Binary expressions.
var ValidBinaryOps = map[BinaryOp]bool{
	OpAdd: true, OpSub: true, OpMul: true, OpDiv: true, OpMod: true,
	OpEq: true, OpNeq: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true,
	OpAnd: true, OpOr: true,
}

// Lit is a literal constant. Value is one of: string, float64, bool, nil,
// []any, or map[string]any (decoded JSON). Numbers are always float64.
type Lit struct {
	Value any
}

func (*Lit) expr() {}

// StateRef reads a named state field, optionally descending a dotted path
// into its value. A missing field or a missing path step yields no value.
type StateRef struct {
	Name string
	Path []string
}

func (*StateRef) expr() {}

// VarRef reads a local binding (a list item variable, index variable, or
// lambda parameter), optionally descending a dotted path. When no binding
// with that name is in scope the safe global table is consulted instead.
type VarRef struct {
	Name string
	Path []string
}

func (*VarRef) expr() {}

// Binary applies an infix operator to two evaluated operands.
// The logical operators short-circuit: Right is not evaluated when Left
// already decides the result.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*Binary) expr() {}

// Not is logical negation of the operand's truthiness.
type Not struct {
	Operand Expr
}

func (*Not) expr() {}

// Cond is a ternary conditional. Exactly one branch is evaluated.
// Else may be nil; a false condition then yields no value.
type Cond struct {
	If   Expr
	Then Expr
	Else Expr
}

func (*Cond) expr() {}

// PropGet evaluates Base and descends a property path into the result.
// Descent works on maps and on string-keyed struct-like values only;
// anything else yields no value.
type PropGet struct {
	Base Expr
	Path []string
}

func (*PropGet) expr() {}

// ImportRef reads from the document's imported constant tables.
type ImportRef struct {
	Name string
	Path []string
}

func (*ImportRef) expr() {}

// Index evaluates Base and Key and performs indexed access:
// arrays by number, maps by string. Out of range yields no value.
type Index struct {
	Base Expr
	Key  Expr
}

func (*Index) expr() {}

// Concat joins the stringified forms of its parts. A part with no value
// contributes the empty string.
type Concat struct {
	Parts []Expr
}

func (*Concat) expr() {}

// Call invokes a whitelisted method on the evaluated target. The method
// tables are closed per target kind (array, string, number, time); an
// unknown method yields no value, never an error.
type Call struct {
	Target Expr
	Method string
	Args   []Expr
}

func (*Call) expr() {}

// Lambda is an inline function usable only as a Call argument (for the
// array iteration methods). Param binds the element; IndexParam, when
// non-empty, binds the element index.
type Lambda struct {
	Param      string
	IndexParam string
	Body       Expr
}

func (*Lambda) expr() {}

// RouteParamRef reads a named parameter of the active route.
type RouteParamRef struct {
	Name string
}

func (*RouteParamRef) expr() {}

// StyleRef reads a named preset from the document's flattened style table.
type StyleRef struct {
	Name string
}

func (*StyleRef) expr() {}

// ValidityRef queries the host validity state of a ref-named form element.
// Field selects which facet ("valid", "message", ...).
type ValidityRef struct {
	Ref   string
	Field string
}

func (*ValidityRef) expr() {}

// ElemRef resolves a ref-named element to its live host node, for use in
// handler payloads. Before the element exists it yields no value.
type ElemRef struct {
	Name string
}

func (*ElemRef) expr() {}
