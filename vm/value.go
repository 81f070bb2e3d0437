package vm

import "strconv"

// ---------------------------------------------------------------------------
// Value: tagged union over the runtime representations
// ---------------------------------------------------------------------------

// ValueKind discriminates the representations a Value can hold.
type ValueKind uint8

const (
	ValNil ValueKind = iota
	ValBool
	ValInt
	ValFloat
	ValObject
)

// Value is a tagged union over nil, booleans, integers, floats, and heap
// object references. Values are small and copied freely; only objects
// live on the heap.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	obj  *Object
}

// NilValue returns the nil value.
func NilValue() Value { return Value{kind: ValNil} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: ValBool, b: b} }

// IntValue wraps an integer.
func IntValue(i int64) Value { return Value{kind: ValInt, i: i} }

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{kind: ValFloat, f: f} }

// ObjectValue wraps a heap object reference.
func ObjectValue(o *Object) Value { return Value{kind: ValObject, obj: o} }

// Kind returns the value's representation tag.
func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNil() bool    { return v.kind == ValNil }
func (v Value) IsBool() bool   { return v.kind == ValBool }
func (v Value) IsInt() bool    { return v.kind == ValInt }
func (v Value) IsFloat() bool  { return v.kind == ValFloat }
func (v Value) IsObject() bool { return v.kind == ValObject }

// Bool returns the boolean payload. Only valid when IsBool.
func (v Value) Bool() bool { return v.b }

// Int returns the integer payload. Only valid when IsInt.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload. Only valid when IsFloat.
func (v Value) Float() float64 { return v.f }

// Object returns the heap object. Only valid when IsObject.
func (v Value) Object() *Object { return v.obj }

// IsTruthy reports the value's truthiness: nil and false are falsey,
// everything else is truthy.
func (v Value) IsTruthy() bool {
	switch v.kind {
	case ValNil:
		return false
	case ValBool:
		return v.b
	default:
		return true
	}
}

// Equal reports deep equality for primitives and strings, and identity
// for all other heap objects.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValNil:
		return true
	case ValBool:
		return v.b == other.b
	case ValInt:
		return v.i == other.i
	case ValFloat:
		return v.f == other.f
	case ValObject:
		if v.obj.Kind == ObjString && other.obj.Kind == ObjString {
			return v.obj.Str == other.obj.Str
		}
		return v.obj == other.obj
	}
	return false
}

// String renders the value for PRINT and diagnostics.
func (v Value) String() string {
	switch v.kind {
	case ValNil:
		return "nil"
	case ValBool:
		return strconv.FormatBool(v.b)
	case ValInt:
		return strconv.FormatInt(v.i, 10)
	case ValFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case ValObject:
		return v.obj.String()
	}
	return "<invalid>"
}
