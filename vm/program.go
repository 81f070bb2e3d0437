package vm

// ---------------------------------------------------------------------------
// Compiled artifacts
// ---------------------------------------------------------------------------

// Function is one compiled function: its name, the flat parameter map
// (name symbol to argument index, populated once and not subject to
// scoping), and the compiled chunk.
type Function struct {
	Name   Symbol
	Params map[Symbol]int
	Body   *Chunk
}

// Arity returns the number of declared parameters.
func (f *Function) Arity() int { return len(f.Params) }

// Class is one compiled class. Methods holds the class's own methods
// plus any inherited ones copied in at compile time; the execution engine
// never walks an inheritance chain.
type Class struct {
	Name    Symbol
	Methods map[Symbol]*Function
}

// Program is the finished compilation unit handed to the execution
// engine, paired with the head of the shared allocation list.
type Program struct {
	Functions map[Symbol]*Function
	Classes   map[Symbol]*Class
}

// Function looks up a top-level function by symbol.
func (p *Program) Function(name Symbol) (*Function, bool) {
	f, ok := p.Functions[name]
	return f, ok
}

// Class looks up a class by symbol.
func (p *Program) Class(name Symbol) (*Class, bool) {
	c, ok := p.Classes[name]
	return c, ok
}
