package vm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"time"
)

// ---------------------------------------------------------------------------
// Interpreter: stack-based execution engine
// ---------------------------------------------------------------------------

// maxCallDepth bounds recursion through user function calls.
const maxCallDepth = 1024

// Interpreter executes a compiled Program. Each function invocation gets
// its own operand stack and local slots; the heap allocation list is the
// same one the compiler appended to.
type Interpreter struct {
	program *Program
	symbols *SymbolTable
	heap    *Heap

	Stdout io.Writer
	Stdin  io.Reader

	stdin *bufio.Reader
	rng   *rand.Rand
	depth int
}

// NewInterpreter creates an interpreter over a compiled program, the
// program-wide symbol table, and the shared allocation list.
func NewInterpreter(program *Program, symbols *SymbolTable, heap *Heap) *Interpreter {
	return &Interpreter{
		program: program,
		symbols: symbols,
		heap:    heap,
		Stdout:  os.Stdout,
		Stdin:   os.Stdin,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes a top-level function by name.
func (in *Interpreter) Run(name string, args ...Value) (Value, error) {
	sym, ok := in.symbols.Lookup(name)
	if !ok {
		return NilValue(), fmt.Errorf("vm: no function %q", name)
	}
	fn, ok := in.program.Function(sym)
	if !ok {
		return NilValue(), fmt.Errorf("vm: no function %q", name)
	}
	return in.Call(fn, args)
}

// Call executes a compiled function with the given arguments.
func (in *Interpreter) Call(fn *Function, args []Value) (Value, error) {
	if len(args) != fn.Arity() {
		return NilValue(), fmt.Errorf("vm: %s expects %d arguments, got %d",
			symName(in.symbols, fn.Name), fn.Arity(), len(args))
	}
	if in.depth >= maxCallDepth {
		return NilValue(), fmt.Errorf("vm: call depth exceeded")
	}
	in.depth++
	defer func() { in.depth-- }()
	return in.run(fn, args)
}

func (in *Interpreter) run(fn *Function, params []Value) (Value, error) {
	code := fn.Body.Code
	consts := fn.Body.Constants
	stack := make([]Value, 0, 32)
	locals := make([]Value, 256)

	push := func(v Value) { stack = append(stack, v) }
	pop := func() Value {
		// The encoding leaves some short-circuit paths stack-unbalanced;
		// a pop past the frame base yields nil.
		if len(stack) == 0 {
			return NilValue()
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	peek := func() Value { return stack[len(stack)-1] }
	popN := func(n int) []Value {
		args := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = pop()
		}
		return args
	}
	fail := func(ip int, format string, args ...interface{}) error {
		msg := fmt.Sprintf(format, args...)
		return fmt.Errorf("vm: %s (line %d)", msg, fn.Body.Line(ip))
	}

	ip := 0
	for ip < len(code) {
		at := ip
		op := Opcode(code[ip])
		ip++

		switch op {
		case OpConstant:
			push(consts[code[ip]])
			ip++
		case OpNil:
			push(NilValue())
		case OpTrue:
			push(BoolValue(true))
		case OpFalse:
			push(BoolValue(false))
		case OpPop:
			pop()

		case OpAdd:
			b, a := pop(), pop()
			push(IntValue(a.Int() + b.Int()))
		case OpSub:
			b, a := pop(), pop()
			push(IntValue(a.Int() - b.Int()))
		case OpMul:
			b, a := pop(), pop()
			push(IntValue(a.Int() * b.Int()))
		case OpDiv:
			b, a := pop(), pop()
			if b.Int() == 0 {
				return NilValue(), fail(at, "integer division by zero")
			}
			push(IntValue(a.Int() / b.Int()))
		case OpAddF:
			b, a := pop(), pop()
			push(FloatValue(a.Float() + b.Float()))
		case OpSubF:
			b, a := pop(), pop()
			push(FloatValue(a.Float() - b.Float()))
		case OpMulF:
			b, a := pop(), pop()
			push(FloatValue(a.Float() * b.Float()))
		case OpDivF:
			b, a := pop(), pop()
			push(FloatValue(a.Float() / b.Float()))
		case OpNegate:
			push(IntValue(-pop().Int()))
		case OpNegateF:
			push(FloatValue(-pop().Float()))
		case OpConcat:
			b, a := pop(), pop()
			push(ObjectValue(in.heap.NewString(a.Object().Str + b.Object().Str)))

		case OpLess:
			b, a := pop(), pop()
			push(BoolValue(a.Int() < b.Int()))
		case OpLessF:
			b, a := pop(), pop()
			push(BoolValue(a.Float() < b.Float()))
		case OpGreater:
			b, a := pop(), pop()
			push(BoolValue(a.Int() > b.Int()))
		case OpGreaterF:
			b, a := pop(), pop()
			push(BoolValue(a.Float() > b.Float()))
		case OpEqual:
			b, a := pop(), pop()
			push(BoolValue(a.Equal(b)))
		case OpNot:
			push(BoolValue(!pop().IsTruthy()))

		case OpJump:
			ip += 2 + int(binary.BigEndian.Uint16(code[ip:]))
		case OpJumpIf:
			if peek().IsTruthy() {
				ip += 2 + int(binary.BigEndian.Uint16(code[ip:]))
			} else {
				ip += 2
			}
		case OpJumpNot:
			if !peek().IsTruthy() {
				ip += 2 + int(binary.BigEndian.Uint16(code[ip:]))
			} else {
				ip += 2
			}
		case OpLoop:
			ip += 2 - int(binary.BigEndian.Uint16(code[ip:]))

		case OpGetLocal:
			push(locals[code[ip]])
			ip++
		case OpSetLocal:
			locals[code[ip]] = peek()
			ip++
		case OpGetParam:
			push(params[code[ip]])
			ip++

		case OpCall:
			callee := Symbol(code[ip])
			argc := int(code[ip+1])
			ip += 2
			target, ok := in.program.Function(callee)
			if !ok {
				return NilValue(), fail(at, "undefined function %s", symName(in.symbols, callee))
			}
			result, err := in.Call(target, popN(argc))
			if err != nil {
				return NilValue(), err
			}
			push(result)
		case OpCallNative:
			callee := Symbol(code[ip])
			ip++
			result, err := in.callNative(in.symbols.Name(callee), pop)
			if err != nil {
				return NilValue(), fail(at, "%s", err)
			}
			push(result)

		case OpInt2Float:
			push(FloatValue(float64(pop().Int())))
		case OpFloat2Int:
			push(IntValue(int64(pop().Float())))
		case OpBool2Int:
			if pop().Bool() {
				push(IntValue(1))
			} else {
				push(IntValue(0))
			}
		case OpInt2Str:
			push(ObjectValue(in.heap.NewString(strconv.FormatInt(pop().Int(), 10))))
		case OpFloat2Str:
			push(ObjectValue(in.heap.NewString(strconv.FormatFloat(pop().Float(), 'g', -1, 64))))

		case OpArray:
			count := int(code[ip])
			ip++
			// Items were pushed in reverse, so pop order is source order.
			elems := make([]Value, count)
			for i := 0; i < count; i++ {
				elems[i] = pop()
			}
			push(ObjectValue(in.heap.NewArray(elems)))
		case OpIndexArray:
			idx, target := pop(), pop()
			elems := target.Object().Elements
			i := idx.Int()
			if i < 0 || int(i) >= len(elems) {
				return NilValue(), fail(at, "array index %d out of bounds (len %d)", i, len(elems))
			}
			push(elems[i])
		case OpIndexString:
			idx, target := pop(), pop()
			s := target.Object().Str
			i := idx.Int()
			if i < 0 || int(i) >= len(s) {
				return NilValue(), fail(at, "string index %d out of bounds (len %d)", i, len(s))
			}
			push(ObjectValue(in.heap.NewString(string(s[i]))))

		case OpClassInstance:
			class := Symbol(code[ip])
			count := int(code[ip+1])
			ip += 2
			obj := in.heap.NewInstance(class)
			// The name tags mirror the reversed push order, so the last
			// tag pairs with the top of the stack.
			for i := count - 1; i >= 0; i-- {
				obj.Fields[Symbol(code[ip+i])] = pop()
			}
			ip += count
			push(ObjectValue(obj))
		case OpCallInstanceMethod:
			method := Symbol(code[ip])
			argc := int(code[ip+1])
			ip += 2
			recv := pop()
			args := popN(argc)
			class, ok := in.program.Class(recv.Object().Class)
			if !ok {
				return NilValue(), fail(at, "undefined class %s", symName(in.symbols, recv.Object().Class))
			}
			target, ok := class.Methods[method]
			if !ok {
				return NilValue(), fail(at, "undefined method %s", symName(in.symbols, method))
			}
			result, err := in.Call(target, args)
			if err != nil {
				return NilValue(), err
			}
			push(result)
		case OpCallStaticMethod:
			classSym := Symbol(code[ip])
			method := Symbol(code[ip+1])
			argc := int(code[ip+2])
			ip += 3
			args := popN(argc)
			class, ok := in.program.Class(classSym)
			if !ok {
				return NilValue(), fail(at, "undefined class %s", symName(in.symbols, classSym))
			}
			target, ok := class.Methods[method]
			if !ok {
				return NilValue(), fail(at, "undefined method %s", symName(in.symbols, method))
			}
			result, err := in.Call(target, args)
			if err != nil {
				return NilValue(), err
			}
			push(result)
		case OpGetProperty:
			name := Symbol(code[ip])
			ip++
			push(pop().Object().Fields[name])
		case OpSetProperty:
			name := Symbol(code[ip])
			ip++
			obj := pop()
			value := pop()
			obj.Object().Fields[name] = value
			push(value)
		case OpGetMethod:
			name := Symbol(code[ip])
			ip++
			recv := pop()
			class, ok := in.program.Class(recv.Object().Class)
			if !ok {
				return NilValue(), fail(at, "undefined class %s", symName(in.symbols, recv.Object().Class))
			}
			target, ok := class.Methods[name]
			if !ok {
				return NilValue(), fail(at, "undefined method %s", symName(in.symbols, name))
			}
			push(ObjectValue(in.heap.NewFunction(target)))
		case OpEnum:
			enum := Symbol(code[ip])
			tag := code[ip+1]
			ip += 2
			push(ObjectValue(in.heap.NewEnum(enum, tag)))

		case OpPrint:
			fmt.Fprintln(in.Stdout, pop().String())
		case OpReturn:
			return pop(), nil

		default:
			return NilValue(), fail(at, "illegal opcode 0x%02X", byte(op))
		}
	}

	return NilValue(), nil
}

// callNative dispatches the closed set of host-provided functions.
func (in *Interpreter) callNative(name string, pop func() Value) (Value, error) {
	switch name {
	case "clock":
		return FloatValue(float64(time.Now().UnixNano()) / 1e9), nil
	case "random":
		return IntValue(in.rng.Int63()), nil
	case "read":
		if in.stdin == nil {
			in.stdin = bufio.NewReader(in.Stdin)
		}
		line, err := in.stdin.ReadString('\n')
		if err != nil && line == "" {
			return NilValue(), fmt.Errorf("read: %w", err)
		}
		return ObjectValue(in.heap.NewString(line)), nil
	case "fopen":
		path := pop()
		data, err := os.ReadFile(path.Object().Str)
		if err != nil {
			return NilValue(), fmt.Errorf("fopen: %w", err)
		}
		return ObjectValue(in.heap.NewString(string(data))), nil
	default:
		return NilValue(), fmt.Errorf("unknown native %q", name)
	}
}
