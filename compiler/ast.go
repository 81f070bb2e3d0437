package compiler

import "github.com/sable-lang/sable/vm"

// ---------------------------------------------------------------------------
// AST: type-annotated syntax tree consumed by the code generator
// ---------------------------------------------------------------------------
//
// The tree arrives from the upstream parsing and type-inference passes
// with every expression node carrying its resolved static type. The code
// generator trusts those annotations completely.

// Position represents a source location.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// Expr is the interface for expression nodes. Every expression carries
// its statically resolved type.
type Expr interface {
	Node
	Type() Type
	expr() // marker method
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	BinPlus BinaryOp = iota
	BinMinus
	BinStar
	BinSlash
	BinLess
	BinLessEq
	BinGreater
	BinGreaterEq
	BinEqualEq
	BinBangEq
	BinAnd
	BinOr
)

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnaryBang UnaryOp = iota
	UnaryMinus
)

// AssignOp enumerates assignment forms.
type AssignOp uint8

const (
	AssignEqual AssignOp = iota
	AssignPlus
	AssignMinus
	AssignStar
	AssignSlash
)

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// BlockStmt is a braced statement list with its own lexical scope.
type BlockStmt struct {
	SpanVal Span
	Stmts   []Stmt
}

func (n *BlockStmt) Span() Span { return n.SpanVal }
func (n *BlockStmt) node()      {}
func (n *BlockStmt) stmt()      {}

// ExprStmt is an expression evaluated for its effect.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// PrintStmt prints an expression's value.
type PrintStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *PrintStmt) Span() Span { return n.SpanVal }
func (n *PrintStmt) node()      {}
func (n *PrintStmt) stmt()      {}

// ReturnStmt returns an expression's value from the enclosing function.
type ReturnStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ReturnStmt) Span() Span { return n.SpanVal }
func (n *ReturnStmt) node()      {}
func (n *ReturnStmt) stmt()      {}

// IfStmt is a conditional with an optional else branch.
type IfStmt struct {
	SpanVal Span
	Cond    Expr
	Then    Stmt
	Else    Stmt // nil when absent
}

func (n *IfStmt) Span() Span { return n.SpanVal }
func (n *IfStmt) node()      {}
func (n *IfStmt) stmt()      {}

// WhileStmt is a pre-tested loop.
type WhileStmt struct {
	SpanVal Span
	Cond    Expr
	Body    Stmt
}

func (n *WhileStmt) Span() Span { return n.SpanVal }
func (n *WhileStmt) node()      {}
func (n *WhileStmt) stmt()      {}

// BreakStmt exits the innermost loop.
type BreakStmt struct {
	SpanVal Span
}

func (n *BreakStmt) Span() Span { return n.SpanVal }
func (n *BreakStmt) node()      {}
func (n *BreakStmt) stmt()      {}

// ContinueStmt restarts the innermost loop.
type ContinueStmt struct {
	SpanVal Span
}

func (n *ContinueStmt) Span() Span { return n.SpanVal }
func (n *ContinueStmt) node()      {}
func (n *ContinueStmt) stmt()      {}

// LetStmt declares a local variable, optionally initialized.
type LetStmt struct {
	SpanVal Span
	Name    vm.Symbol
	Init    Expr // nil means initialize to nil
}

func (n *LetStmt) Span() Span { return n.SpanVal }
func (n *LetStmt) node()      {}
func (n *LetStmt) stmt()      {}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// IntLit is an integer literal.
type IntLit struct {
	SpanVal Span
	Value   int64
}

func (n *IntLit) Span() Span { return n.SpanVal }
func (n *IntLit) Type() Type { return IntType }
func (n *IntLit) node()      {}
func (n *IntLit) expr()      {}

// FloatLit is a floating-point literal.
type FloatLit struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLit) Span() Span { return n.SpanVal }
func (n *FloatLit) Type() Type { return FloatType }
func (n *FloatLit) node()      {}
func (n *FloatLit) expr()      {}

// StrLit is a string literal.
type StrLit struct {
	SpanVal Span
	Value   string
}

func (n *StrLit) Span() Span { return n.SpanVal }
func (n *StrLit) Type() Type { return StrType }
func (n *StrLit) node()      {}
func (n *StrLit) expr()      {}

// BoolLit is a boolean literal.
type BoolLit struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLit) Span() Span { return n.SpanVal }
func (n *BoolLit) Type() Type { return BoolType }
func (n *BoolLit) node()      {}
func (n *BoolLit) expr()      {}

// NilLit is the nil literal.
type NilLit struct {
	SpanVal Span
}

func (n *NilLit) Span() Span { return n.SpanVal }
func (n *NilLit) Type() Type { return NilType }
func (n *NilLit) node()      {}
func (n *NilLit) expr()      {}

// VarRef reads a variable.
type VarRef struct {
	SpanVal Span
	TypeVal Type
	Name    vm.Symbol
}

func (n *VarRef) Span() Span { return n.SpanVal }
func (n *VarRef) Type() Type { return n.TypeVal }
func (n *VarRef) node()      {}
func (n *VarRef) expr()      {}

// Assign writes a variable, either plainly or compounded with an
// arithmetic operator.
type Assign struct {
	SpanVal Span
	TypeVal Type
	Name    vm.Symbol
	Op      AssignOp
	Value   Expr
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) Type() Type { return n.TypeVal }
func (n *Assign) node()      {}
func (n *Assign) expr()      {}

// Binary is a binary operation, including the short-circuit forms.
type Binary struct {
	SpanVal Span
	TypeVal Type
	Left    Expr
	Op      BinaryOp
	Right   Expr
}

func (n *Binary) Span() Span { return n.SpanVal }
func (n *Binary) Type() Type { return n.TypeVal }
func (n *Binary) node()      {}
func (n *Binary) expr()      {}

// Unary is a unary operation.
type Unary struct {
	SpanVal Span
	TypeVal Type
	Op      UnaryOp
	Operand Expr
}

func (n *Unary) Span() Span { return n.SpanVal }
func (n *Unary) Type() Type { return n.TypeVal }
func (n *Unary) node()      {}
func (n *Unary) expr()      {}

// Grouping is a parenthesized expression.
type Grouping struct {
	SpanVal Span
	Expr    Expr
}

func (n *Grouping) Span() Span { return n.SpanVal }
func (n *Grouping) Type() Type { return n.Expr.Type() }
func (n *Grouping) node()      {}
func (n *Grouping) expr()      {}

// Ternary is cond ? then : else.
type Ternary struct {
	SpanVal Span
	TypeVal Type
	Cond    Expr
	Then    Expr
	Else    Expr
}

func (n *Ternary) Span() Span { return n.SpanVal }
func (n *Ternary) Type() Type { return n.TypeVal }
func (n *Ternary) node()      {}
func (n *Ternary) expr()      {}

// Cast is an explicit conversion over the fixed pair set.
type Cast struct {
	SpanVal Span
	TypeVal Type // destination type
	Value   Expr
}

func (n *Cast) Span() Span { return n.SpanVal }
func (n *Cast) Type() Type { return n.TypeVal }
func (n *Cast) node()      {}
func (n *Cast) expr()      {}

// CallExpr calls a named function; the compiler classifies the callee as
// native or user-defined.
type CallExpr struct {
	SpanVal Span
	TypeVal Type
	Callee  vm.Symbol
	Args    []Expr
}

func (n *CallExpr) Span() Span { return n.SpanVal }
func (n *CallExpr) Type() Type { return n.TypeVal }
func (n *CallExpr) node()      {}
func (n *CallExpr) expr()      {}

// ArrayLit constructs an array.
type ArrayLit struct {
	SpanVal Span
	TypeVal Type
	Items   []Expr
}

func (n *ArrayLit) Span() Span { return n.SpanVal }
func (n *ArrayLit) Type() Type { return n.TypeVal }
func (n *ArrayLit) node()      {}
func (n *ArrayLit) expr()      {}

// Index subscripts an array or string.
type Index struct {
	SpanVal Span
	TypeVal Type
	Target  Expr
	Idx     Expr
}

func (n *Index) Span() Span { return n.SpanVal }
func (n *Index) Type() Type { return n.TypeVal }
func (n *Index) node()      {}
func (n *Index) expr()      {}

// MatchArm is one arm of a match expression. A nil Pattern marks the
// wildcard arm, which matches unconditionally.
type MatchArm struct {
	SpanVal Span
	Pattern Expr // nil for the wildcard arm
	Body    Stmt
}

func (n *MatchArm) Span() Span { return n.SpanVal }
func (n *MatchArm) node()      {}

// Match dispatches over pattern arms by equality with the scrutinee.
type Match struct {
	SpanVal Span
	TypeVal Type
	Cond    Expr
	Arms    []*MatchArm
}

func (n *Match) Span() Span { return n.SpanVal }
func (n *Match) Type() Type { return n.TypeVal }
func (n *Match) node()      {}
func (n *Match) expr()      {}

// Closure is a function literal compiled as an independent nested unit.
// Identifiers from the enclosing function are not captured.
type Closure struct {
	SpanVal Span
	TypeVal Type
	Fn      *FuncDecl
}

func (n *Closure) Span() Span { return n.SpanVal }
func (n *Closure) Type() Type { return n.TypeVal }
func (n *Closure) node()      {}
func (n *Closure) expr()      {}

// PropInit is one property initializer in a class-instance literal.
type PropInit struct {
	Name  vm.Symbol
	Value Expr
}

// ClassLit constructs a class instance from property initializers.
type ClassLit struct {
	SpanVal Span
	TypeVal Type
	Class   vm.Symbol
	Props   []PropInit
}

func (n *ClassLit) Span() Span { return n.SpanVal }
func (n *ClassLit) Type() Type { return n.TypeVal }
func (n *ClassLit) node()      {}
func (n *ClassLit) expr()      {}

// InstanceCall invokes a method on a receiver expression.
type InstanceCall struct {
	SpanVal  Span
	TypeVal  Type
	Method   vm.Symbol
	Receiver Expr
	Args     []Expr
}

func (n *InstanceCall) Span() Span { return n.SpanVal }
func (n *InstanceCall) Type() Type { return n.TypeVal }
func (n *InstanceCall) node()      {}
func (n *InstanceCall) expr()      {}

// StaticCall invokes a method through its class, with no receiver.
type StaticCall struct {
	SpanVal Span
	TypeVal Type
	Class   vm.Symbol
	Method  vm.Symbol
	Args    []Expr
}

func (n *StaticCall) Span() Span { return n.SpanVal }
func (n *StaticCall) Type() Type { return n.TypeVal }
func (n *StaticCall) node()      {}
func (n *StaticCall) expr()      {}

// GetProperty reads a property from an instance.
type GetProperty struct {
	SpanVal Span
	TypeVal Type
	Name    vm.Symbol
	Target  Expr
}

func (n *GetProperty) Span() Span { return n.SpanVal }
func (n *GetProperty) Type() Type { return n.TypeVal }
func (n *GetProperty) node()      {}
func (n *GetProperty) expr()      {}

// SetProperty writes a property on an instance.
type SetProperty struct {
	SpanVal Span
	TypeVal Type
	Name    vm.Symbol
	Target  Expr
	Value   Expr
}

func (n *SetProperty) Span() Span { return n.SpanVal }
func (n *SetProperty) Type() Type { return n.TypeVal }
func (n *SetProperty) node()      {}
func (n *SetProperty) expr()      {}

// GetMethod reads a method reference from an instance.
type GetMethod struct {
	SpanVal Span
	TypeVal Type
	Name    vm.Symbol
	Target  Expr
}

func (n *GetMethod) Span() Span { return n.SpanVal }
func (n *GetMethod) Type() Type { return n.TypeVal }
func (n *GetMethod) node()      {}
func (n *GetMethod) expr()      {}

// EnumVariant constructs an enum variant, optionally with a payload.
type EnumVariant struct {
	SpanVal Span
	TypeVal Type
	Enum    vm.Symbol
	Tag     byte
	Payload Expr // nil for data-less variants
}

func (n *EnumVariant) Span() Span { return n.SpanVal }
func (n *EnumVariant) Type() Type { return n.TypeVal }
func (n *EnumVariant) node()      {}
func (n *EnumVariant) expr()      {}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// FuncDecl is a function declaration: name, ordered parameter names, and
// a body statement (normally a block).
type FuncDecl struct {
	SpanVal Span
	Name    vm.Symbol
	Params  []vm.Symbol
	Body    Stmt
}

func (n *FuncDecl) Span() Span { return n.SpanVal }
func (n *FuncDecl) node()      {}

// ClassDecl is a class declaration with an optional single superclass.
type ClassDecl struct {
	SpanVal    Span
	Name       vm.Symbol
	Superclass *vm.Symbol // nil when the class has no superclass
	Methods    []*FuncDecl
}

func (n *ClassDecl) Span() Span { return n.SpanVal }
func (n *ClassDecl) node()      {}

// Program is the top-level compilation input: functions first, classes
// second. Superclasses must be declared before their subclasses.
type Program struct {
	Functions []*FuncDecl
	Classes   []*ClassDecl
}
