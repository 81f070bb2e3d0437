package compiler

import "github.com/sable-lang/sable/vm"

// ---------------------------------------------------------------------------
// Static types and instruction selection
// ---------------------------------------------------------------------------

// TypeKind enumerates the closed set of static type constructors the
// upstream inference pass produces.
type TypeKind uint8

const (
	TypeNil TypeKind = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeStr
	TypeArray
	TypeClass
	TypeEnum
	TypeFunc
)

// Type is a resolved static type annotation.
type Type struct {
	Kind TypeKind
	Elem *Type     // element type for TypeArray
	Name vm.Symbol // class or enum name for TypeClass / TypeEnum
}

// Predefined primitive types.
var (
	NilType   = Type{Kind: TypeNil}
	BoolType  = Type{Kind: TypeBool}
	IntType   = Type{Kind: TypeInt}
	FloatType = Type{Kind: TypeFloat}
	StrType   = Type{Kind: TypeStr}
)

// ArrayType builds an array type over elem.
func ArrayType(elem Type) Type {
	return Type{Kind: TypeArray, Elem: &elem}
}

// ClassType builds a class type.
func ClassType(name vm.Symbol) Type {
	return Type{Kind: TypeClass, Name: name}
}

// EnumType builds an enum type.
func EnumType(name vm.Symbol) Type {
	return Type{Kind: TypeEnum, Name: name}
}

// ---------------------------------------------------------------------------
// Selection tables
// ---------------------------------------------------------------------------
//
// Instruction selection is a closed lookup from (operand type, operator)
// to the opcode sequence, rather than nested case analysis. The key type
// is the operand representation: for arithmetic the result type, for
// ordered comparisons the left operand's type. <= and >= have no opcode
// of their own; they select the strict comparison with a trailing NOT.

type binKey struct {
	kind TypeKind
	op   BinaryOp
}

type opSelection struct {
	code   vm.Opcode
	negate bool // emit OpNot after the opcode
}

var binarySelect = map[binKey]opSelection{
	{TypeInt, BinPlus}:    {code: vm.OpAdd},
	{TypeFloat, BinPlus}:  {code: vm.OpAddF},
	{TypeStr, BinPlus}:    {code: vm.OpConcat},
	{TypeInt, BinMinus}:   {code: vm.OpSub},
	{TypeFloat, BinMinus}: {code: vm.OpSubF},
	{TypeInt, BinStar}:    {code: vm.OpMul},
	{TypeFloat, BinStar}:  {code: vm.OpMulF},
	{TypeInt, BinSlash}:   {code: vm.OpDiv},
	{TypeFloat, BinSlash}: {code: vm.OpDivF},

	{TypeInt, BinLess}:        {code: vm.OpLess},
	{TypeFloat, BinLess}:      {code: vm.OpLessF},
	{TypeInt, BinLessEq}:      {code: vm.OpGreater, negate: true},
	{TypeFloat, BinLessEq}:    {code: vm.OpGreaterF, negate: true},
	{TypeInt, BinGreater}:     {code: vm.OpGreater},
	{TypeFloat, BinGreater}:   {code: vm.OpGreaterF},
	{TypeInt, BinGreaterEq}:   {code: vm.OpLess, negate: true},
	{TypeFloat, BinGreaterEq}: {code: vm.OpLessF, negate: true},
}

// compoundSelect maps the arithmetic core of a compound assignment,
// keyed by the right-hand side's static type.
var compoundSelect = map[binKey]vm.Opcode{
	{TypeInt, BinPlus}:    vm.OpAdd,
	{TypeFloat, BinPlus}:  vm.OpAddF,
	{TypeInt, BinMinus}:   vm.OpSub,
	{TypeFloat, BinMinus}: vm.OpSubF,
	{TypeInt, BinStar}:    vm.OpMul,
	{TypeFloat, BinStar}:  vm.OpMulF,
	{TypeInt, BinSlash}:   vm.OpDiv,
	{TypeFloat, BinSlash}: vm.OpDivF,
}

// castSelect maps the fixed set of permitted cast pairs.
var castSelect = map[[2]TypeKind]vm.Opcode{
	{TypeInt, TypeFloat}: vm.OpInt2Float,
	{TypeFloat, TypeInt}: vm.OpFloat2Int,
	{TypeBool, TypeInt}:  vm.OpBool2Int,
	{TypeInt, TypeStr}:   vm.OpInt2Str,
	{TypeFloat, TypeStr}: vm.OpFloat2Str,
}

// orderedComparison reports whether op selects by operand type rather
// than result type.
func orderedComparison(op BinaryOp) bool {
	switch op {
	case BinLess, BinLessEq, BinGreater, BinGreaterEq:
		return true
	}
	return false
}

// compoundBinOp maps an assignment operator to its arithmetic core.
func compoundBinOp(op AssignOp) BinaryOp {
	switch op {
	case AssignPlus:
		return BinPlus
	case AssignMinus:
		return BinMinus
	case AssignStar:
		return BinStar
	case AssignSlash:
		return BinSlash
	}
	panic("compiler: not a compound assignment operator")
}
