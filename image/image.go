// Package image serializes compiled programs to a portable binary form.
//
// An image is a CBOR document (canonical encoding, so identical programs
// produce identical bytes) holding the program's functions, classes, and
// the constant pools flattened to a pointer-free wire form. Reading an
// image rebuilds the heap objects on a caller-supplied allocation list
// and re-interns every name into the caller's symbol table.
package image

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/sable-lang/sable/vm"
)

// Version identifies the image format.
const Version = "1"

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Image is the serialized form of a compiled program plus build
// metadata.
type Image struct {
	BuildID   string    `cbor:"build_id"`
	Version   string    `cbor:"version"`
	Entry     string    `cbor:"entry"`
	CreatedAt time.Time `cbor:"created_at"`
	Program   Wire      `cbor:"program"`
}

// Wire is the pointer-free program representation.
type Wire struct {
	Functions []WireFunction `cbor:"functions"`
	Classes   []WireClass    `cbor:"classes"`
}

// WireFunction is one serialized function artifact.
type WireFunction struct {
	Name   string      `cbor:"name"`
	Params []WireParam `cbor:"params"`
	Chunk  WireChunk   `cbor:"chunk"`
}

// WireParam is one parameter-name-to-index binding.
type WireParam struct {
	Name  string `cbor:"name"`
	Index int    `cbor:"index"`
}

// WireChunk is one serialized chunk.
type WireChunk struct {
	Code      []byte      `cbor:"code"`
	Lines     []int       `cbor:"lines"`
	Constants []WireValue `cbor:"constants"`
}

// Constant wire kinds.
const (
	wireNil = iota
	wireBool
	wireInt
	wireFloat
	wireStr
	wireFunc
)

// WireValue is one serialized constant. Only the representations that
// can appear in a constant pool are supported: primitives, strings, and
// nested function objects (closures).
type WireValue struct {
	Kind  uint8         `cbor:"kind"`
	Bool  bool          `cbor:"bool,omitempty"`
	Int   int64         `cbor:"int,omitempty"`
	Float float64       `cbor:"float,omitempty"`
	Str   string        `cbor:"str,omitempty"`
	Fn    *WireFunction `cbor:"fn,omitempty"`
}

// WireClass is one serialized class artifact.
type WireClass struct {
	Name    string         `cbor:"name"`
	Methods []WireFunction `cbor:"methods"`
}

// New assembles an image for a compiled program with a fresh build id.
func New(program *vm.Program, symbols *vm.SymbolTable, entry string) (*Image, error) {
	wire, err := flattenProgram(program, symbols)
	if err != nil {
		return nil, err
	}
	return &Image{
		BuildID:   uuid.New().String(),
		Version:   Version,
		Entry:     entry,
		CreatedAt: time.Now().UTC(),
		Program:   *wire,
	}, nil
}

// Marshal serializes an image to CBOR bytes.
func Marshal(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// Unmarshal deserializes an image from CBOR bytes.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	return &img, nil
}

// WriteFile serializes an image to a file.
func WriteFile(path string, img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile loads an image from a file.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// ---------------------------------------------------------------------------
// Flattening
// ---------------------------------------------------------------------------

func flattenProgram(program *vm.Program, symbols *vm.SymbolTable) (*Wire, error) {
	wire := &Wire{}
	for _, fn := range program.Functions {
		wf, err := flattenFunction(fn, symbols)
		if err != nil {
			return nil, err
		}
		wire.Functions = append(wire.Functions, *wf)
	}
	for _, class := range program.Classes {
		wc := WireClass{Name: symbols.Name(class.Name)}
		for _, method := range class.Methods {
			wm, err := flattenFunction(method, symbols)
			if err != nil {
				return nil, err
			}
			wc.Methods = append(wc.Methods, *wm)
		}
		sort.Slice(wc.Methods, func(i, j int) bool { return wc.Methods[i].Name < wc.Methods[j].Name })
		wire.Classes = append(wire.Classes, wc)
	}
	// Maps iterate in random order; sort so canonical CBOR stays
	// deterministic across runs.
	sort.Slice(wire.Functions, func(i, j int) bool { return wire.Functions[i].Name < wire.Functions[j].Name })
	sort.Slice(wire.Classes, func(i, j int) bool { return wire.Classes[i].Name < wire.Classes[j].Name })
	return wire, nil
}

func flattenFunction(fn *vm.Function, symbols *vm.SymbolTable) (*WireFunction, error) {
	wf := &WireFunction{Name: symbols.Name(fn.Name)}
	for param, index := range fn.Params {
		wf.Params = append(wf.Params, WireParam{Name: symbols.Name(param), Index: index})
	}
	sort.Slice(wf.Params, func(i, j int) bool { return wf.Params[i].Index < wf.Params[j].Index })

	wf.Chunk.Code = fn.Body.Code
	wf.Chunk.Lines = fn.Body.Lines
	for _, constant := range fn.Body.Constants {
		wv, err := flattenValue(constant, symbols)
		if err != nil {
			return nil, fmt.Errorf("image: function %s: %w", wf.Name, err)
		}
		wf.Chunk.Constants = append(wf.Chunk.Constants, *wv)
	}
	return wf, nil
}

func flattenValue(v vm.Value, symbols *vm.SymbolTable) (*WireValue, error) {
	switch v.Kind() {
	case vm.ValNil:
		return &WireValue{Kind: wireNil}, nil
	case vm.ValBool:
		return &WireValue{Kind: wireBool, Bool: v.Bool()}, nil
	case vm.ValInt:
		return &WireValue{Kind: wireInt, Int: v.Int()}, nil
	case vm.ValFloat:
		return &WireValue{Kind: wireFloat, Float: v.Float()}, nil
	case vm.ValObject:
		obj := v.Object()
		switch obj.Kind {
		case vm.ObjString:
			return &WireValue{Kind: wireStr, Str: obj.Str}, nil
		case vm.ObjFunction:
			wf, err := flattenFunction(obj.Fn, symbols)
			if err != nil {
				return nil, err
			}
			return &WireValue{Kind: wireFunc, Fn: wf}, nil
		}
	}
	return nil, fmt.Errorf("unsupported constant kind %d", v.Kind())
}

// ---------------------------------------------------------------------------
// Rebuilding
// ---------------------------------------------------------------------------

// Rebuild reconstitutes a runnable program from the image, interning
// names into symbols and threading rebuilt objects onto heap.
func (img *Image) Rebuild(symbols *vm.SymbolTable, heap *vm.Heap) (*vm.Program, error) {
	program := &vm.Program{
		Functions: make(map[vm.Symbol]*vm.Function, len(img.Program.Functions)),
		Classes:   make(map[vm.Symbol]*vm.Class, len(img.Program.Classes)),
	}
	for i := range img.Program.Functions {
		fn, err := rebuildFunction(&img.Program.Functions[i], symbols, heap)
		if err != nil {
			return nil, err
		}
		program.Functions[fn.Name] = fn
	}
	for i := range img.Program.Classes {
		wc := &img.Program.Classes[i]
		class := &vm.Class{
			Name:    symbols.Intern(wc.Name),
			Methods: make(map[vm.Symbol]*vm.Function, len(wc.Methods)),
		}
		for j := range wc.Methods {
			method, err := rebuildFunction(&wc.Methods[j], symbols, heap)
			if err != nil {
				return nil, err
			}
			class.Methods[method.Name] = method
		}
		program.Classes[class.Name] = class
	}
	return program, nil
}

func rebuildFunction(wf *WireFunction, symbols *vm.SymbolTable, heap *vm.Heap) (*vm.Function, error) {
	fn := &vm.Function{
		Name:   symbols.Intern(wf.Name),
		Params: make(map[vm.Symbol]int, len(wf.Params)),
		Body:   vm.NewChunk(),
	}
	for _, param := range wf.Params {
		fn.Params[symbols.Intern(param.Name)] = param.Index
	}

	fn.Body.Code = wf.Chunk.Code
	fn.Body.Lines = wf.Chunk.Lines
	for i := range wf.Chunk.Constants {
		value, err := rebuildValue(&wf.Chunk.Constants[i], symbols, heap)
		if err != nil {
			return nil, fmt.Errorf("image: function %s: %w", wf.Name, err)
		}
		fn.Body.Constants = append(fn.Body.Constants, value)
	}
	return fn, nil
}

func rebuildValue(wv *WireValue, symbols *vm.SymbolTable, heap *vm.Heap) (vm.Value, error) {
	switch wv.Kind {
	case wireNil:
		return vm.NilValue(), nil
	case wireBool:
		return vm.BoolValue(wv.Bool), nil
	case wireInt:
		return vm.IntValue(wv.Int), nil
	case wireFloat:
		return vm.FloatValue(wv.Float), nil
	case wireStr:
		return vm.ObjectValue(heap.NewString(wv.Str)), nil
	case wireFunc:
		fn, err := rebuildFunction(wv.Fn, symbols, heap)
		if err != nil {
			return vm.NilValue(), err
		}
		return vm.ObjectValue(heap.NewFunction(fn)), nil
	}
	return vm.NilValue(), fmt.Errorf("unsupported constant kind %d", wv.Kind)
}
