package vm

import "testing"

func TestInternIsIdempotent(t *testing.T) {
	st := NewSymbolTable()
	a := st.Intern("foo")
	b := st.Intern("foo")
	if a != b {
		t.Errorf("Intern returned %d then %d for the same name", a, b)
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
}

func TestLookupAndName(t *testing.T) {
	st := NewSymbolTable()
	sym := st.Intern("bar")

	got, ok := st.Lookup("bar")
	if !ok || got != sym {
		t.Errorf("Lookup = (%d, %v), want (%d, true)", got, ok, sym)
	}
	if _, ok := st.Lookup("baz"); ok {
		t.Error("Lookup found an uninterned name")
	}
	if name := st.Name(sym); name != "bar" {
		t.Errorf("Name = %q, want bar", name)
	}
	if name := st.Name(Symbol(999)); name != "" {
		t.Errorf("Name of unknown symbol = %q, want empty", name)
	}
}

func TestDistinctNamesDistinctSymbols(t *testing.T) {
	st := NewSymbolTable()
	if st.Intern("x") == st.Intern("y") {
		t.Error("distinct names shared a symbol")
	}
}
