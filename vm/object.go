package vm

import "fmt"

// ---------------------------------------------------------------------------
// Heap objects and the shared allocation list
// ---------------------------------------------------------------------------

// ObjectKind discriminates heap object representations.
type ObjectKind uint8

const (
	ObjString ObjectKind = iota
	ObjFunction
	ObjInstance
	ObjEnum
	ObjArray
)

// Object is a heap allocation. Every object constructed through a Heap is
// threaded onto that heap's intrusive allocation list so the execution
// engine can enumerate live allocations for collection.
type Object struct {
	Kind ObjectKind
	next *Object

	Str      string          // ObjString
	Fn       *Function       // ObjFunction
	Class    Symbol          // ObjInstance, ObjEnum
	Fields   map[Symbol]Value // ObjInstance
	Tag      byte            // ObjEnum variant tag
	Elements []Value         // ObjArray
}

// Next returns the following entry on the allocation list.
func (o *Object) Next() *Object { return o.next }

func (o *Object) String() string {
	switch o.Kind {
	case ObjString:
		return o.Str
	case ObjFunction:
		return fmt.Sprintf("<fn %d>", o.Fn.Name)
	case ObjInstance:
		return fmt.Sprintf("<instance %d>", o.Class)
	case ObjEnum:
		return fmt.Sprintf("<enum %d.%d>", o.Class, o.Tag)
	case ObjArray:
		return fmt.Sprintf("<array %d>", len(o.Elements))
	}
	return "<object>"
}

// Heap is the process-wide allocation list handle. It is supplied by the
// caller and handed off to the execution engine together with the compiled
// program; the compiler only ever appends to it.
type Heap struct {
	head  *Object
	count int
}

// NewHeap creates an empty allocation list.
func NewHeap() *Heap {
	return &Heap{}
}

// Head returns the most recent allocation, the entry point for walking
// the whole list.
func (h *Heap) Head() *Object { return h.head }

// Len returns the number of tracked allocations.
func (h *Heap) Len() int { return h.count }

// Attach threads an object onto the allocation list and returns it.
func (h *Heap) Attach(o *Object) *Object {
	o.next = h.head
	h.head = o
	h.count++
	return o
}

// NewString allocates a tracked string object.
func (h *Heap) NewString(s string) *Object {
	return h.Attach(&Object{Kind: ObjString, Str: s})
}

// NewFunction allocates a tracked function object wrapping a compiled
// function artifact.
func (h *Heap) NewFunction(fn *Function) *Object {
	return h.Attach(&Object{Kind: ObjFunction, Fn: fn})
}

// NewInstance allocates a tracked class instance with empty fields.
func (h *Heap) NewInstance(class Symbol) *Object {
	return h.Attach(&Object{Kind: ObjInstance, Class: class, Fields: make(map[Symbol]Value)})
}

// NewEnum allocates a tracked enum variant value.
func (h *Heap) NewEnum(enum Symbol, tag byte) *Object {
	return h.Attach(&Object{Kind: ObjEnum, Class: enum, Tag: tag})
}

// NewArray allocates a tracked array object.
func (h *Heap) NewArray(elements []Value) *Object {
	return h.Attach(&Object{Kind: ObjArray, Elements: elements})
}
