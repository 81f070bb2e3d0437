package vm

import "sync"

// ---------------------------------------------------------------------------
// SymbolTable: interned identifiers
// ---------------------------------------------------------------------------

// Symbol is an interned identifier id. Symbols index the program-wide
// SymbolTable and are what the bytecode carries for names (callees,
// properties, methods, classes).
type Symbol uint32

// SymbolTable interns identifier strings to stable ids. One table is
// shared across an entire compilation and handed to the execution engine
// alongside the program.
type SymbolTable struct {
	mu     sync.RWMutex
	byName map[string]Symbol
	byID   []string
}

// NewSymbolTable creates a new empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[string]Symbol),
		byID:   make([]string, 0, 256),
	}
}

// Intern returns the id for a name, creating a new one if needed.
func (st *SymbolTable) Intern(name string) Symbol {
	st.mu.RLock()
	if id, ok := st.byName[name]; ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.byName[name]; ok {
		return id
	}
	id := Symbol(len(st.byID))
	st.byName[name] = id
	st.byID = append(st.byID, name)
	return id
}

// Lookup returns the id for a name without interning it.
func (st *SymbolTable) Lookup(name string) (Symbol, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byName[name]
	return id, ok
}

// Name returns the name for an id, or "" if the id is unknown.
func (st *SymbolTable) Name(id Symbol) string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if int(id) >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

// Len returns the number of interned symbols.
func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}

// All returns every interned name in id order.
func (st *SymbolTable) All() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]string, len(st.byID))
	copy(out, st.byID)
	return out
}
