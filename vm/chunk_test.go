package vm

import (
	"strings"
	"testing"
)

func TestChunkWriteTracksLines(t *testing.T) {
	c := NewChunk()
	c.Write(byte(OpNil), 1)
	c.Write(byte(OpPop), 3)

	if len(c.Code) != 2 {
		t.Fatalf("code length = %d, want 2", len(c.Code))
	}
	if c.Line(0) != 1 || c.Line(1) != 3 {
		t.Errorf("lines = [%d %d], want [1 3]", c.Line(0), c.Line(1))
	}
	if c.Line(-1) != 0 || c.Line(99) != 0 {
		t.Error("out-of-range offsets should report line 0")
	}
}

func TestAddConstantDoesNotDeduplicate(t *testing.T) {
	c := NewChunk()
	first := c.AddConstant(IntValue(1))
	second := c.AddConstant(IntValue(1))
	if first == second {
		t.Error("identical constants shared a pool slot")
	}
	if second != 1 {
		t.Errorf("second index = %d, want 1", second)
	}
}

func TestOpcodeTable(t *testing.T) {
	if OpJump.Name() != "JUMP" {
		t.Errorf("OpJump name = %q", OpJump.Name())
	}
	if OpJump.OperandBytes() != 2 {
		t.Errorf("OpJump operands = %d, want 2", OpJump.OperandBytes())
	}
	if OpReturn.OperandBytes() != 0 {
		t.Errorf("OpReturn operands = %d, want 0", OpReturn.OperandBytes())
	}
	if OpClassInstance.OperandBytes() != -1 {
		t.Errorf("OpClassInstance operands = %d, want variable (-1)", OpClassInstance.OperandBytes())
	}
	if name := Opcode(0xEE).Name(); !strings.Contains(name, "EE") {
		t.Errorf("unknown opcode name = %q", name)
	}
}

func TestDisassemble(t *testing.T) {
	symbols := NewSymbolTable()
	callee := symbols.Intern("helper")

	c := NewChunk()
	idx := c.AddConstant(IntValue(42))
	c.Write(byte(OpConstant), 1)
	c.Write(byte(idx), 1)
	c.Write(byte(OpJumpNot), 1)
	c.Write(0, 1)
	c.Write(3, 1)
	c.Write(byte(OpCall), 2)
	c.Write(byte(callee), 2)
	c.Write(1, 2)
	c.Write(byte(OpReturn), 2)

	out := c.Disassemble("test", symbols)
	for _, want := range []string{
		"== test ==",
		"CONSTANT",
		"'42'",
		"JUMP_NOT",
		"-> 0008", // operand start 3 + 2 + distance 3
		"helper argc=1",
		"RETURN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleClassInstance(t *testing.T) {
	symbols := NewSymbolTable()
	point := symbols.Intern("Point")
	x := symbols.Intern("x")

	c := NewChunk()
	c.Write(byte(OpClassInstance), 1)
	c.Write(byte(point), 1)
	c.Write(1, 1)
	c.Write(byte(x), 1)

	out := c.Disassemble("ctor", symbols)
	if !strings.Contains(out, "Point {x}") {
		t.Errorf("disassembly missing class header:\n%s", out)
	}
}
