package compiler

import (
	"fmt"

	"github.com/sable-lang/sable/vm"
)

// ---------------------------------------------------------------------------
// Codegen: lower the typed AST to bytecode
// ---------------------------------------------------------------------------

// nativeNames is the closed set of callee names dispatched to the host
// rather than to user bytecode.
var nativeNames = map[string]bool{
	"clock":  true,
	"random": true,
	"read":   true,
	"fopen":  true,
}

// loopScope tracks the innermost active loops. The start offset is the
// backward-jump target for continue; break jumps are collected as patch
// points and resolved once the loop's exit sequence has been emitted.
type loopScope struct {
	start  int
	breaks []int
}

// Builder compiles one function body into a chunk. Every function,
// method, and closure gets its own builder; only the symbol table, the
// reporter, and the heap allocation list are shared between units.
type Builder struct {
	chunk  *vm.Chunk
	locals *ScopeSet

	// Parameters resolve through a flat map populated once per unit;
	// they are not subject to scoping or shadowing.
	params map[vm.Symbol]int

	loops []loopScope

	symbols  *vm.SymbolTable
	reporter *Reporter
	heap     *vm.Heap

	// slots is the monotonic local-slot counter. Slots are never
	// reclaimed when a scope ends; sibling scopes consume distinct
	// slots and the one-byte operand format caps a unit at 256.
	slots int
	line  int
}

// NewBuilder creates a builder for one compilation unit.
func NewBuilder(symbols *vm.SymbolTable, reporter *Reporter, heap *vm.Heap, params map[vm.Symbol]int) *Builder {
	return &Builder{
		chunk:    vm.NewChunk(),
		locals:   NewScopeSet(),
		params:   params,
		symbols:  symbols,
		reporter: reporter,
		heap:     heap,
	}
}

// Chunk returns the chunk under construction.
func (b *Builder) Chunk() *vm.Chunk { return b.chunk }

// errorf records a diagnostic on the reporter and returns the error that
// aborts the current unit.
func (b *Builder) errorf(span Span, format string, args ...interface{}) error {
	err := &CompileError{Message: fmt.Sprintf(format, args...), Span: span}
	b.reporter.Error(err.Message, err.Span)
	return err
}

// setSpan advances the line counter used for the chunk's line table.
func (b *Builder) setSpan(span Span) {
	if span.Start.Line > b.line {
		b.line = span.Start.Line
	}
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

func (b *Builder) emitByte(byte1 byte) {
	b.chunk.Write(byte1, b.line)
}

func (b *Builder) emitBytes(byte1, byte2 byte) {
	b.emitByte(byte1)
	b.emitByte(byte2)
}

func (b *Builder) emitOp(op vm.Opcode) {
	b.emitByte(byte(op))
}

// newSlot hands out the next local slot. The counter is never reset or
// reused within a unit.
func (b *Builder) newSlot() int {
	slot := b.slots
	b.slots++
	return slot
}

// emitJump emits a forward jump with a two-byte placeholder operand and
// returns the placeholder's offset for patching.
func (b *Builder) emitJump(op vm.Opcode) int {
	b.emitOp(op)
	b.emitBytes(0xFF, 0xFF)
	return len(b.chunk.Code) - 2
}

// patchJump resolves a forward jump: the distance from just past the
// placeholder to the current end of the chunk, written big-endian. Each
// patch point must be patched exactly once, after its target region has
// been emitted.
func (b *Builder) patchJump(offset int) {
	jump := len(b.chunk.Code) - offset - 2
	b.chunk.Code[offset] = byte((jump >> 8) & 0xFF)
	b.chunk.Code[offset+1] = byte(jump & 0xFF)
}

// emitLoop emits the backward jump to loopStart. Backward jumps are
// never backpatched; the distance is known at emission time.
func (b *Builder) emitLoop(loopStart int) {
	b.emitOp(vm.OpLoop)
	offset := len(b.chunk.Code) - loopStart + 2
	b.emitBytes(byte((offset>>8)&0xFF), byte(offset&0xFF))
}

// makeConstant inserts a value into the constant pool. The load operand
// is a single byte, so a pool past 255 entries is a hard compile error.
func (b *Builder) makeConstant(value vm.Value, span Span) (byte, error) {
	index := b.chunk.AddConstant(value)
	if index > 255 {
		return 0, b.errorf(span, "too many constants in one chunk")
	}
	return byte(index), nil
}

// emitConstant inserts a value and emits the load instruction for it.
func (b *Builder) emitConstant(value vm.Value, span Span) error {
	index, err := b.makeConstant(value, span)
	if err != nil {
		return err
	}
	b.emitBytes(byte(vm.OpConstant), index)
	return nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// CompileStatement lowers one statement.
func (b *Builder) CompileStatement(stmt Stmt) error {
	b.setSpan(stmt.Span())

	switch s := stmt.(type) {
	case *BlockStmt:
		b.locals.Begin()
		defer b.locals.End()
		for _, child := range s.Stmts {
			if err := b.CompileStatement(child); err != nil {
				return err
			}
		}
		return nil

	case *ExprStmt:
		return b.CompileExpression(s.Expr)

	case *PrintStmt:
		if err := b.CompileExpression(s.Expr); err != nil {
			return err
		}
		b.emitOp(vm.OpPrint)
		return nil

	case *ReturnStmt:
		if err := b.CompileExpression(s.Expr); err != nil {
			return err
		}
		b.emitOp(vm.OpReturn)
		return nil

	case *IfStmt:
		return b.compileIf(s)

	case *WhileStmt:
		return b.compileWhile(s)

	case *BreakStmt:
		if len(b.loops) == 0 {
			panic("compiler: break outside a loop")
		}
		lp := &b.loops[len(b.loops)-1]
		lp.breaks = append(lp.breaks, b.emitJump(vm.OpJump))
		return nil

	case *ContinueStmt:
		if len(b.loops) == 0 {
			panic("compiler: continue outside a loop")
		}
		b.emitLoop(b.loops[len(b.loops)-1].start)
		return nil

	case *LetStmt:
		if s.Init != nil {
			if err := b.CompileExpression(s.Init); err != nil {
				return err
			}
		} else {
			if err := b.emitConstant(vm.NilValue(), s.SpanVal); err != nil {
				return err
			}
		}
		slot := b.newSlot()
		if slot > 255 {
			return b.errorf(s.SpanVal, "too many local slots in one function")
		}
		b.locals.Insert(s.Name, slot)
		b.emitBytes(byte(vm.OpSetLocal), byte(slot))
		return nil

	default:
		panic(fmt.Sprintf("compiler: unknown statement %T", stmt))
	}
}

func (b *Builder) compileIf(s *IfStmt) error {
	if err := b.CompileExpression(s.Cond); err != nil {
		return err
	}

	falseJump := b.emitJump(vm.OpJumpNot)
	b.emitOp(vm.OpPop)

	if err := b.CompileStatement(s.Then); err != nil {
		return err
	}

	if s.Else == nil {
		b.patchJump(falseJump)
		b.emitOp(vm.OpPop)
		return nil
	}

	endJump := b.emitJump(vm.OpJump)
	b.patchJump(falseJump)
	b.emitOp(vm.OpPop)
	if err := b.CompileStatement(s.Else); err != nil {
		return err
	}
	b.patchJump(endJump)
	return nil
}

func (b *Builder) compileWhile(s *WhileStmt) error {
	loopStart := len(b.chunk.Code)

	if err := b.CompileExpression(s.Cond); err != nil {
		return err
	}

	exitJump := b.emitJump(vm.OpJumpNot)

	b.loops = append(b.loops, loopScope{start: loopStart})
	b.emitOp(vm.OpPop)

	if err := b.CompileStatement(s.Body); err != nil {
		return err
	}

	b.emitLoop(loopStart)
	b.patchJump(exitJump)
	b.emitOp(vm.OpPop)

	// Break jumps land here, past the condition pop: the break path
	// already popped the condition on loop entry.
	lp := b.loops[len(b.loops)-1]
	b.loops = b.loops[:len(b.loops)-1]
	for _, patch := range lp.breaks {
		b.patchJump(patch)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// CompileExpression lowers one expression, leaving its value on the
// evaluation stack.
func (b *Builder) CompileExpression(expr Expr) error {
	b.setSpan(expr.Span())

	switch e := expr.(type) {
	case *IntLit:
		return b.emitConstant(vm.IntValue(e.Value), e.SpanVal)

	case *FloatLit:
		return b.emitConstant(vm.FloatValue(e.Value), e.SpanVal)

	case *StrLit:
		return b.emitConstant(vm.ObjectValue(b.heap.NewString(e.Value)), e.SpanVal)

	case *BoolLit:
		if e.Value {
			b.emitOp(vm.OpTrue)
		} else {
			b.emitOp(vm.OpFalse)
		}
		return nil

	case *NilLit:
		b.emitOp(vm.OpNil)
		return nil

	case *VarRef:
		if slot, ok := b.locals.Resolve(e.Name); ok {
			b.emitBytes(byte(vm.OpGetLocal), byte(slot))
			return nil
		}
		if index, ok := b.params[e.Name]; ok {
			b.emitBytes(byte(vm.OpGetParam), byte(index))
			return nil
		}
		return b.errorf(e.SpanVal, "undefined variable %q", b.symbols.Name(e.Name))

	case *Assign:
		return b.compileAssign(e)

	case *Binary:
		return b.compileBinary(e)

	case *Unary:
		if err := b.CompileExpression(e.Operand); err != nil {
			return err
		}
		switch e.Op {
		case UnaryBang:
			b.emitOp(vm.OpNot)
		case UnaryMinus:
			switch e.Operand.Type().Kind {
			case TypeInt:
				b.emitOp(vm.OpNegate)
			case TypeFloat:
				b.emitOp(vm.OpNegateF)
			default:
				panic("compiler: negation of non-numeric operand")
			}
		}
		return nil

	case *Grouping:
		return b.CompileExpression(e.Expr)

	case *Ternary:
		return b.compileTernary(e)

	case *Cast:
		if err := b.CompileExpression(e.Value); err != nil {
			return err
		}
		pair := [2]TypeKind{e.Value.Type().Kind, e.TypeVal.Kind}
		op, ok := castSelect[pair]
		if !ok {
			panic(fmt.Sprintf("compiler: cast %v -> %v outside the permitted set", pair[0], pair[1]))
		}
		b.emitOp(op)
		return nil

	case *CallExpr:
		for _, arg := range e.Args {
			if err := b.CompileExpression(arg); err != nil {
				return err
			}
		}
		if nativeNames[b.symbols.Name(e.Callee)] {
			b.emitBytes(byte(vm.OpCallNative), byte(e.Callee))
		} else {
			b.emitBytes(byte(vm.OpCall), byte(e.Callee))
			b.emitByte(byte(len(e.Args)))
		}
		return nil

	case *ArrayLit:
		// Reverse order, matching how the items come off the stack.
		for i := len(e.Items) - 1; i >= 0; i-- {
			if err := b.CompileExpression(e.Items[i]); err != nil {
				return err
			}
		}
		b.emitBytes(byte(vm.OpArray), byte(len(e.Items)))
		return nil

	case *Index:
		if err := b.CompileExpression(e.Target); err != nil {
			return err
		}
		if err := b.CompileExpression(e.Idx); err != nil {
			return err
		}
		switch e.Target.Type().Kind {
		case TypeStr:
			b.emitOp(vm.OpIndexString)
		case TypeArray:
			b.emitOp(vm.OpIndexArray)
		default:
			panic("compiler: indexing a non-indexable type")
		}
		return nil

	case *Match:
		return b.compileMatch(e)

	case *Closure:
		fn, err := compileFunction(e.Fn, b.symbols, b.reporter, b.heap)
		if err != nil {
			return err
		}
		return b.emitConstant(vm.ObjectValue(b.heap.NewFunction(fn)), e.SpanVal)

	case *ClassLit:
		// Properties push in reverse so construction pops them in
		// declaration order; the trailing name tags mirror that.
		for i := len(e.Props) - 1; i >= 0; i-- {
			if err := b.CompileExpression(e.Props[i].Value); err != nil {
				return err
			}
		}
		b.emitBytes(byte(vm.OpClassInstance), byte(e.Class))
		b.emitByte(byte(len(e.Props)))
		for i := len(e.Props) - 1; i >= 0; i-- {
			b.emitByte(byte(e.Props[i].Name))
		}
		return nil

	case *InstanceCall:
		for _, arg := range e.Args {
			if err := b.CompileExpression(arg); err != nil {
				return err
			}
		}
		if err := b.CompileExpression(e.Receiver); err != nil {
			return err
		}
		b.emitOp(vm.OpCallInstanceMethod)
		b.emitBytes(byte(e.Method), byte(len(e.Args)))
		return nil

	case *StaticCall:
		for _, arg := range e.Args {
			if err := b.CompileExpression(arg); err != nil {
				return err
			}
		}
		b.emitOp(vm.OpCallStaticMethod)
		b.emitBytes(byte(e.Class), byte(e.Method))
		b.emitByte(byte(len(e.Args)))
		return nil

	case *GetProperty:
		if err := b.CompileExpression(e.Target); err != nil {
			return err
		}
		b.emitBytes(byte(vm.OpGetProperty), byte(e.Name))
		return nil

	case *SetProperty:
		if err := b.CompileExpression(e.Value); err != nil {
			return err
		}
		if err := b.CompileExpression(e.Target); err != nil {
			return err
		}
		b.emitBytes(byte(vm.OpSetProperty), byte(e.Name))
		return nil

	case *GetMethod:
		if err := b.CompileExpression(e.Target); err != nil {
			return err
		}
		b.emitBytes(byte(vm.OpGetMethod), byte(e.Name))
		return nil

	case *EnumVariant:
		b.emitOp(vm.OpEnum)
		b.emitBytes(byte(e.Enum), e.Tag)
		if e.Payload != nil {
			return b.CompileExpression(e.Payload)
		}
		return nil

	default:
		panic(fmt.Sprintf("compiler: unknown expression %T", expr))
	}
}

func (b *Builder) compileAssign(e *Assign) error {
	if e.Op == AssignEqual {
		// Plain assignment resolves locals first, then parameters.
		slot, ok := b.locals.Resolve(e.Name)
		if !ok {
			slot, ok = b.params[e.Name]
		}
		if !ok {
			panic(fmt.Sprintf("compiler: assignment to unresolved name %q", b.symbols.Name(e.Name)))
		}
		if err := b.CompileExpression(e.Value); err != nil {
			return err
		}
		b.emitBytes(byte(vm.OpSetLocal), byte(slot))
		return nil
	}

	// Compound assignment resolves through the local scope only; a
	// compound assignment to a parameter cannot be resolved.
	slot, ok := b.locals.Resolve(e.Name)
	if !ok {
		panic(fmt.Sprintf("compiler: compound assignment to unresolved local %q", b.symbols.Name(e.Name)))
	}

	op, ok := compoundSelect[binKey{e.Value.Type().Kind, compoundBinOp(e.Op)}]
	if !ok {
		panic("compiler: compound assignment on non-numeric operand")
	}

	b.emitBytes(byte(vm.OpGetLocal), byte(slot))
	if err := b.CompileExpression(e.Value); err != nil {
		return err
	}
	b.emitOp(op)
	b.emitBytes(byte(vm.OpSetLocal), byte(slot))
	return nil
}

func (b *Builder) compileBinary(e *Binary) error {
	switch e.Op {
	case BinAnd:
		return b.compileAnd(e.Left, e.Right)
	case BinOr:
		return b.compileOr(e.Left, e.Right)
	}

	if err := b.CompileExpression(e.Left); err != nil {
		return err
	}
	if err := b.CompileExpression(e.Right); err != nil {
		return err
	}

	switch e.Op {
	case BinEqualEq:
		b.emitOp(vm.OpEqual)
		return nil
	case BinBangEq:
		b.emitOp(vm.OpEqual)
		b.emitOp(vm.OpNot)
		return nil
	}

	// Arithmetic selects on the result type; ordered comparisons on the
	// operands' type (both sides agree, so the left one decides).
	kind := e.TypeVal.Kind
	if orderedComparison(e.Op) {
		kind = e.Left.Type().Kind
	}
	sel, ok := binarySelect[binKey{kind, e.Op}]
	if !ok {
		panic(fmt.Sprintf("compiler: no instruction for operator %d on type kind %d", e.Op, kind))
	}
	b.emitOp(sel.code)
	if sel.negate {
		b.emitOp(vm.OpNot)
	}
	return nil
}

// compileAnd short-circuits with a jump over the right operand. The
// short-circuit path leaves the deciding left value on the stack with no
// extra pop.
func (b *Builder) compileAnd(lhs, rhs Expr) error {
	if err := b.CompileExpression(lhs); err != nil {
		return err
	}
	falseJump := b.emitJump(vm.OpJumpNot)
	if err := b.CompileExpression(rhs); err != nil {
		return err
	}
	b.patchJump(falseJump)
	return nil
}

// compileOr mirrors compileAnd with a jump-if-true, plus a trailing pop
// that balances stack depth between the two paths. The asymmetry with
// compileAnd is part of the encoding contract.
func (b *Builder) compileOr(lhs, rhs Expr) error {
	if err := b.CompileExpression(lhs); err != nil {
		return err
	}
	trueJump := b.emitJump(vm.OpJumpIf)
	if err := b.CompileExpression(rhs); err != nil {
		return err
	}
	b.patchJump(trueJump)
	b.emitOp(vm.OpPop)
	return nil
}

func (b *Builder) compileTernary(e *Ternary) error {
	if err := b.CompileExpression(e.Cond); err != nil {
		return err
	}
	falseJump := b.emitJump(vm.OpJumpNot)
	if err := b.CompileExpression(e.Then); err != nil {
		return err
	}
	endJump := b.emitJump(vm.OpJump)
	b.patchJump(falseJump)
	if err := b.CompileExpression(e.Else); err != nil {
		return err
	}
	b.patchJump(endJump)
	return nil
}

// compileMatch lowers a match expression. The scrutinee is re-evaluated
// for every non-wildcard arm and compared with the arm's pattern; every
// arm records a jump to the end, patched once all arms are emitted, in
// left-to-right arm order.
func (b *Builder) compileMatch(e *Match) error {
	if err := b.CompileExpression(e.Cond); err != nil {
		return err
	}

	var endJumps []int
	for _, arm := range e.Arms {
		if arm.Pattern == nil {
			if err := b.CompileStatement(arm.Body); err != nil {
				return err
			}
			endJumps = append(endJumps, b.emitJump(vm.OpJump))
			continue
		}

		if err := b.CompileExpression(arm.Pattern); err != nil {
			return err
		}
		if err := b.CompileExpression(e.Cond); err != nil {
			return err
		}
		b.emitOp(vm.OpEqual)

		skipJump := b.emitJump(vm.OpJumpNot)
		if err := b.CompileStatement(arm.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, b.emitJump(vm.OpJump))
		b.patchJump(skipJump)
	}

	for _, patch := range endJumps {
		b.patchJump(patch)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Unit assembly
// ---------------------------------------------------------------------------

// compileFunction compiles one function (or method, or closure) as an
// independent unit with its own chunk, parameter map, and scope set.
func compileFunction(fn *FuncDecl, symbols *vm.SymbolTable, reporter *Reporter, heap *vm.Heap) (*vm.Function, error) {
	params := make(map[vm.Symbol]int, len(fn.Params))
	for i, param := range fn.Params {
		params[param] = i
	}

	b := NewBuilder(symbols, reporter, heap, params)
	if err := b.CompileStatement(fn.Body); err != nil {
		return nil, err
	}

	return &vm.Function{Name: fn.Name, Params: params, Body: b.chunk}, nil
}

// compileClass compiles each method of a class as an independent
// function. Inheritance is resolved by the caller.
func compileClass(class *ClassDecl, symbols *vm.SymbolTable, reporter *Reporter, heap *vm.Heap) (*vm.Class, error) {
	methods := make(map[vm.Symbol]*vm.Function, len(class.Methods))
	for _, method := range class.Methods {
		compiled, err := compileFunction(method, symbols, reporter, heap)
		if err != nil {
			return nil, err
		}
		methods[method.Name] = compiled
	}
	return &vm.Class{Name: class.Name, Methods: methods}, nil
}

// Compile lowers a whole program: every top-level function, then every
// class in source order. A subclass's method table is completed at
// compile time by copying in superclass methods it does not override, so
// the execution engine never walks an inheritance chain. The heap is the
// caller-supplied allocation list every emitted constant object joins.
//
// The first reported error aborts the whole compilation; there is no
// partial success.
func Compile(program *Program, symbols *vm.SymbolTable, reporter *Reporter, heap *vm.Heap) (*vm.Program, error) {
	functions := make(map[vm.Symbol]*vm.Function, len(program.Functions))
	classes := make(map[vm.Symbol]*vm.Class, len(program.Classes))

	for _, fn := range program.Functions {
		compiled, err := compileFunction(fn, symbols, reporter, heap)
		if err != nil {
			return nil, err
		}
		functions[fn.Name] = compiled
	}

	for _, class := range program.Classes {
		compiled, err := compileClass(class, symbols, reporter, heap)
		if err != nil {
			return nil, err
		}

		if class.Superclass != nil {
			superclass, ok := classes[*class.Superclass]
			if !ok {
				panic(fmt.Sprintf("compiler: superclass %q not compiled before %q",
					symbols.Name(*class.Superclass), symbols.Name(class.Name)))
			}
			for name, method := range superclass.Methods {
				if _, overridden := compiled.Methods[name]; !overridden {
					compiled.Methods[name] = method
				}
			}
		}

		classes[class.Name] = compiled
	}

	return &vm.Program{Functions: functions, Classes: classes}, nil
}
