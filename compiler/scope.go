package compiler

import "github.com/sable-lang/sable/vm"

// ---------------------------------------------------------------------------
// ScopeSet: stack-discipline symbol table
// ---------------------------------------------------------------------------

// scopeEntry is one record on the scope stack: either a scope boundary
// marker or a declaration made since the last marker.
type scopeEntry struct {
	name     vm.Symbol
	boundary bool
}

// ScopeSet maps identifiers to stacks of local slots. The innermost
// binding of a name shadows outer ones; leaving a scope pops every
// declaration made inside it, restoring the shadowed bindings. Slot
// numbers themselves come from the builder's monotonic counter and are
// never reclaimed here.
type ScopeSet struct {
	table  map[vm.Symbol][]int
	scopes []scopeEntry
}

// NewScopeSet creates an empty scope set.
func NewScopeSet() *ScopeSet {
	return &ScopeSet{table: make(map[vm.Symbol][]int)}
}

// Begin opens a new lexical scope.
func (s *ScopeSet) Begin() {
	s.scopes = append(s.scopes, scopeEntry{boundary: true})
}

// End closes the current scope, dropping every binding declared inside
// it. Callers must pair every Begin with exactly one End, including on
// error paths.
func (s *ScopeSet) End() {
	for len(s.scopes) > 0 {
		entry := s.scopes[len(s.scopes)-1]
		s.scopes = s.scopes[:len(s.scopes)-1]
		if entry.boundary {
			return
		}
		stack := s.table[entry.name]
		s.table[entry.name] = stack[:len(stack)-1]
	}
}

// Insert binds a name to a slot in the current scope, shadowing any
// outer binding of the same name.
func (s *ScopeSet) Insert(name vm.Symbol, slot int) {
	s.table[name] = append(s.table[name], slot)
	s.scopes = append(s.scopes, scopeEntry{name: name})
}

// Resolve returns the innermost slot bound to name.
func (s *ScopeSet) Resolve(name vm.Symbol) (int, bool) {
	stack := s.table[name]
	if len(stack) == 0 {
		return 0, false
	}
	return stack[len(stack)-1], true
}
