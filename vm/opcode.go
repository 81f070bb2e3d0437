package vm

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Constants and stack
const (
	OpConstant Opcode = 0x01 // push constant from pool (8-bit index)
	OpNil      Opcode = 0x02 // push nil
	OpTrue     Opcode = 0x03 // push true
	OpFalse    Opcode = 0x04 // push false
	OpPop      Opcode = 0x05 // discard top of stack
)

// Arithmetic. Each operator has an integer and a floating-point variant;
// the compiler selects one from the static type on the expression node.
const (
	OpAdd     Opcode = 0x10 // integer add
	OpAddF    Opcode = 0x11 // float add
	OpSub     Opcode = 0x12 // integer subtract
	OpSubF    Opcode = 0x13 // float subtract
	OpMul     Opcode = 0x14 // integer multiply
	OpMulF    Opcode = 0x15 // float multiply
	OpDiv     Opcode = 0x16 // integer divide
	OpDivF    Opcode = 0x17 // float divide
	OpNegate  Opcode = 0x18 // integer negate
	OpNegateF Opcode = 0x19 // float negate
	OpConcat  Opcode = 0x1A // string concatenation
)

// Comparison and logic. There are no dedicated <= / >= opcodes; those
// forms compile to the strict comparison followed by OpNot. OpEqual is
// representation-agnostic.
const (
	OpLess     Opcode = 0x20 // integer <
	OpLessF    Opcode = 0x21 // float <
	OpGreater  Opcode = 0x22 // integer >
	OpGreaterF Opcode = 0x23 // float >
	OpEqual    Opcode = 0x24 // generic equality
	OpNot      Opcode = 0x25 // logical not
)

// Control flow. Forward jumps carry a 16-bit big-endian distance measured
// from just past the operand bytes; OpLoop is the only backward form.
const (
	OpJump    Opcode = 0x30 // unconditional forward jump
	OpJumpIf  Opcode = 0x31 // jump if truthy (does not pop)
	OpJumpNot Opcode = 0x32 // jump if falsey (does not pop)
	OpLoop    Opcode = 0x33 // unconditional backward jump
)

// Variables
const (
	OpGetLocal Opcode = 0x40 // push local slot (8-bit slot)
	OpSetLocal Opcode = 0x41 // store top of stack into local slot (8-bit slot)
	OpGetParam Opcode = 0x42 // push parameter (8-bit index)
)

// Calls
const (
	OpCall       Opcode = 0x50 // call user function (callee symbol, argc)
	OpCallNative Opcode = 0x51 // call native function (callee symbol)
)

// Casts
const (
	OpInt2Float Opcode = 0x60
	OpFloat2Int Opcode = 0x61
	OpBool2Int  Opcode = 0x62
	OpInt2Str   Opcode = 0x63
	OpFloat2Str Opcode = 0x64
)

// Aggregates
const (
	OpArray       Opcode = 0x70 // build array from stack (8-bit count)
	OpIndexArray  Opcode = 0x71 // index into array
	OpIndexString Opcode = 0x72 // index into string
)

// Object model
const (
	OpClassInstance      Opcode = 0x80 // construct instance (class, count, then count property tags)
	OpCallInstanceMethod Opcode = 0x81 // dispatch on receiver (method, argc)
	OpCallStaticMethod   Opcode = 0x82 // dispatch on class (class, method, argc)
	OpGetProperty        Opcode = 0x83 // read property (name tag)
	OpSetProperty        Opcode = 0x84 // write property (name tag)
	OpGetMethod          Opcode = 0x85 // read bound method (name tag)
	OpEnum               Opcode = 0x86 // construct enum variant (enum tag, variant tag)
)

// Output and returns
const (
	OpPrint  Opcode = 0x90 // print top of stack
	OpReturn Opcode = 0x91 // return top of stack
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// VariableOperands marks opcodes whose operand length depends on an
// embedded count (OpClassInstance carries its property tags inline).
const VariableOperands = -1

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of operand bytes, or VariableOperands
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpConstant: {"CONSTANT", 1},
	OpNil:      {"NIL", 0},
	OpTrue:     {"TRUE", 0},
	OpFalse:    {"FALSE", 0},
	OpPop:      {"POP", 0},

	OpAdd:     {"ADD", 0},
	OpAddF:    {"ADD_F", 0},
	OpSub:     {"SUB", 0},
	OpSubF:    {"SUB_F", 0},
	OpMul:     {"MUL", 0},
	OpMulF:    {"MUL_F", 0},
	OpDiv:     {"DIV", 0},
	OpDivF:    {"DIV_F", 0},
	OpNegate:  {"NEGATE", 0},
	OpNegateF: {"NEGATE_F", 0},
	OpConcat:  {"CONCAT", 0},

	OpLess:     {"LESS", 0},
	OpLessF:    {"LESS_F", 0},
	OpGreater:  {"GREATER", 0},
	OpGreaterF: {"GREATER_F", 0},
	OpEqual:    {"EQUAL", 0},
	OpNot:      {"NOT", 0},

	OpJump:    {"JUMP", 2},
	OpJumpIf:  {"JUMP_IF", 2},
	OpJumpNot: {"JUMP_NOT", 2},
	OpLoop:    {"LOOP", 2},

	OpGetLocal: {"GET_LOCAL", 1},
	OpSetLocal: {"SET_LOCAL", 1},
	OpGetParam: {"GET_PARAM", 1},

	OpCall:       {"CALL", 2},
	OpCallNative: {"CALL_NATIVE", 1},

	OpInt2Float: {"INT2FLOAT", 0},
	OpFloat2Int: {"FLOAT2INT", 0},
	OpBool2Int:  {"BOOL2INT", 0},
	OpInt2Str:   {"INT2STR", 0},
	OpFloat2Str: {"FLOAT2STR", 0},

	OpArray:       {"ARRAY", 1},
	OpIndexArray:  {"INDEX_ARRAY", 0},
	OpIndexString: {"INDEX_STRING", 0},

	OpClassInstance:      {"CLASS_INSTANCE", VariableOperands},
	OpCallInstanceMethod: {"CALL_INSTANCE_METHOD", 2},
	OpCallStaticMethod:   {"CALL_STATIC_METHOD", 3},
	OpGetProperty:        {"GET_PROPERTY", 1},
	OpSetProperty:        {"SET_PROPERTY", 1},
	OpGetMethod:          {"GET_METHOD", 1},
	OpEnum:               {"ENUM", 2},

	OpPrint:  {"PRINT", 0},
	OpReturn: {"RETURN", 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// OperandBytes returns the number of operand bytes for an opcode.
func (op Opcode) OperandBytes() int {
	return op.Info().OperandBytes
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}
