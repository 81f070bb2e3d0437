package store

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sable-lang/sable/vm"
)

func makeFunction(symbols *vm.SymbolTable, name string, line int) *vm.Function {
	chunk := vm.NewChunk()
	chunk.Constants = append(chunk.Constants, vm.IntValue(42))
	chunk.Write(byte(vm.OpConstant), line)
	chunk.Write(0, line)
	chunk.Write(byte(vm.OpReturn), line)
	return &vm.Function{
		Name:   symbols.Intern(name),
		Params: map[vm.Symbol]int{},
		Body:   chunk,
	}
}

func TestHashFunctionStable(t *testing.T) {
	symbols := vm.NewSymbolTable()
	a := makeFunction(symbols, "f", 1)
	b := makeFunction(symbols, "f", 1)

	if HashFunction(a, symbols) != HashFunction(b, symbols) {
		t.Error("identical functions hashed differently")
	}
}

func TestHashIgnoresLines(t *testing.T) {
	symbols := vm.NewSymbolTable()
	a := makeFunction(symbols, "f", 1)
	b := makeFunction(symbols, "f", 99)

	if HashFunction(a, symbols) != HashFunction(b, symbols) {
		t.Error("hash changed when only the line table differed")
	}
}

func TestHashDistinguishesContent(t *testing.T) {
	symbols := vm.NewSymbolTable()
	a := makeFunction(symbols, "f", 1)
	b := makeFunction(symbols, "g", 1)
	c := makeFunction(symbols, "f", 1)
	c.Body.Constants[0] = vm.IntValue(43)

	ha := HashFunction(a, symbols)
	if ha == HashFunction(b, symbols) {
		t.Error("different names hashed equal")
	}
	if ha == HashFunction(c, symbols) {
		t.Error("different constants hashed equal")
	}
}

func TestIndexAndLookup(t *testing.T) {
	symbols := vm.NewSymbolTable()
	s := New()
	fn := makeFunction(symbols, "f", 1)

	h := s.Index(fn, symbols)
	if got := s.Lookup(h); got != fn {
		t.Error("Lookup did not return the indexed function")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	var missing [32]byte
	if s.Lookup(missing) != nil {
		t.Error("Lookup of absent hash returned a function")
	}
}

func TestImagePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	data := []byte("image bytes")
	key := HashBytes(data)
	if err := s.PutImage(key, "build-1", data); err != nil {
		t.Fatalf("PutImage failed: %v", err)
	}

	got, err := s.GetImage(key)
	if err != nil {
		t.Fatalf("GetImage failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("GetImage = %q, want %q", got, data)
	}

	missing, err := s.GetImage(HashBytes([]byte("other")))
	if err != nil {
		t.Fatalf("GetImage(missing) failed: %v", err)
	}
	if missing != nil {
		t.Error("GetImage of absent key returned data")
	}

	// Replacing under the same key keeps the latest bytes.
	data2 := []byte("newer image bytes")
	if err := s.PutImage(key, "build-2", data2); err != nil {
		t.Fatalf("PutImage replace failed: %v", err)
	}
	got, err = s.GetImage(key)
	if err != nil {
		t.Fatalf("GetImage after replace failed: %v", err)
	}
	if !bytes.Equal(got, data2) {
		t.Errorf("GetImage after replace = %q, want %q", got, data2)
	}
}

func TestInMemoryStoreRejectsImages(t *testing.T) {
	s := New()
	if err := s.PutImage([32]byte{}, "b", nil); err == nil {
		t.Error("PutImage on in-memory store should fail")
	}
	if _, err := s.GetImage([32]byte{}); err == nil {
		t.Error("GetImage on in-memory store should fail")
	}
}
