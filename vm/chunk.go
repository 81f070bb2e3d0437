package vm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Chunk: one compiled function's instruction stream
// ---------------------------------------------------------------------------

// Chunk holds the instruction bytes for one function, a parallel line
// table (one entry per byte, for diagnostics only), and the constant pool.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:  make([]byte, 0, 64),
		Lines: make([]int, 0, 64),
	}
}

// Write appends one byte and records the source line that produced it.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConstant appends a value to the constant pool and returns its index.
// The pool is not deduplicated; the one-byte index limit is enforced by
// the compiler, not here.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Line answers which source line produced the byte at offset.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// Disassemble renders the chunk as human-readable assembly.
func (c *Chunk) Disassemble(name string, symbols *SymbolTable) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = c.disassembleInstruction(&sb, offset, symbols)
	}
	return sb.String()
}

func (c *Chunk) disassembleInstruction(sb *strings.Builder, offset int, symbols *SymbolTable) int {
	op := Opcode(c.Code[offset])
	fmt.Fprintf(sb, "%04d %4d %-20s", offset, c.Line(offset), op.Name())

	next := offset + 1
	switch op {
	case OpConstant:
		idx := c.Code[next]
		fmt.Fprintf(sb, " %3d '%s'", idx, c.Constants[idx])
		next++
	case OpJump, OpJumpIf, OpJumpNot:
		dist := binary.BigEndian.Uint16(c.Code[next:])
		fmt.Fprintf(sb, " -> %04d", next+2+int(dist))
		next += 2
	case OpLoop:
		dist := binary.BigEndian.Uint16(c.Code[next:])
		fmt.Fprintf(sb, " -> %04d", next+2-int(dist))
		next += 2
	case OpCall:
		fmt.Fprintf(sb, " %s argc=%d", symName(symbols, Symbol(c.Code[next])), c.Code[next+1])
		next += 2
	case OpCallNative:
		fmt.Fprintf(sb, " %s", symName(symbols, Symbol(c.Code[next])))
		next++
	case OpCallInstanceMethod:
		fmt.Fprintf(sb, " %s argc=%d", symName(symbols, Symbol(c.Code[next])), c.Code[next+1])
		next += 2
	case OpCallStaticMethod:
		fmt.Fprintf(sb, " %s.%s argc=%d",
			symName(symbols, Symbol(c.Code[next])),
			symName(symbols, Symbol(c.Code[next+1])),
			c.Code[next+2])
		next += 3
	case OpGetProperty, OpSetProperty, OpGetMethod:
		fmt.Fprintf(sb, " %s", symName(symbols, Symbol(c.Code[next])))
		next++
	case OpEnum:
		fmt.Fprintf(sb, " %s tag=%d", symName(symbols, Symbol(c.Code[next])), c.Code[next+1])
		next += 2
	case OpClassInstance:
		class := Symbol(c.Code[next])
		count := int(c.Code[next+1])
		next += 2
		names := make([]string, 0, count)
		for i := 0; i < count; i++ {
			names = append(names, symName(symbols, Symbol(c.Code[next])))
			next++
		}
		fmt.Fprintf(sb, " %s {%s}", symName(symbols, class), strings.Join(names, ", "))
	default:
		for i := 0; i < op.OperandBytes(); i++ {
			fmt.Fprintf(sb, " %3d", c.Code[next])
			next++
		}
	}

	sb.WriteByte('\n')
	return next
}

func symName(symbols *SymbolTable, id Symbol) string {
	if symbols == nil {
		return fmt.Sprintf("#%d", id)
	}
	if name := symbols.Name(id); name != "" {
		return name
	}
	return fmt.Sprintf("#%d", id)
}
