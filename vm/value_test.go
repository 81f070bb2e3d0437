package vm

import "testing"

func TestTruthiness(t *testing.T) {
	heap := NewHeap()
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", NilValue(), false},
		{"false", BoolValue(false), false},
		{"true", BoolValue(true), true},
		{"zero int", IntValue(0), true},
		{"zero float", FloatValue(0), true},
		{"empty string", ObjectValue(heap.NewString("")), true},
	}
	for _, tt := range tests {
		if got := tt.v.IsTruthy(); got != tt.want {
			t.Errorf("%s: IsTruthy = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEqualPrimitives(t *testing.T) {
	if !NilValue().Equal(NilValue()) {
		t.Error("nil != nil")
	}
	if !IntValue(3).Equal(IntValue(3)) {
		t.Error("3 != 3")
	}
	if IntValue(3).Equal(IntValue(4)) {
		t.Error("3 == 4")
	}
	if !FloatValue(1.5).Equal(FloatValue(1.5)) {
		t.Error("1.5 != 1.5")
	}
	if IntValue(1).Equal(FloatValue(1)) {
		t.Error("values of different kinds compared equal")
	}
	if IntValue(0).Equal(NilValue()) {
		t.Error("0 == nil")
	}
}

func TestEqualStringsByContent(t *testing.T) {
	heap := NewHeap()
	a := ObjectValue(heap.NewString("abc"))
	b := ObjectValue(heap.NewString("abc"))
	c := ObjectValue(heap.NewString("abd"))
	if !a.Equal(b) {
		t.Error("distinct string objects with equal content compared unequal")
	}
	if a.Equal(c) {
		t.Error("different contents compared equal")
	}
}

func TestEqualObjectsByIdentity(t *testing.T) {
	heap := NewHeap()
	a := ObjectValue(heap.NewArray([]Value{IntValue(1)}))
	b := ObjectValue(heap.NewArray([]Value{IntValue(1)}))
	if a.Equal(b) {
		t.Error("distinct arrays compared equal")
	}
	if !a.Equal(a) {
		t.Error("array not equal to itself")
	}
}

func TestValueString(t *testing.T) {
	heap := NewHeap()
	tests := []struct {
		v    Value
		want string
	}{
		{NilValue(), "nil"},
		{BoolValue(true), "true"},
		{IntValue(-7), "-7"},
		{FloatValue(2.5), "2.5"},
		{ObjectValue(heap.NewString("hi")), "hi"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestHeapTracksAllocations(t *testing.T) {
	heap := NewHeap()
	first := heap.NewString("a")
	second := heap.NewString("b")

	if heap.Len() != 2 {
		t.Errorf("Len = %d, want 2", heap.Len())
	}
	if heap.Head() != second {
		t.Error("head is not the most recent allocation")
	}
	if second.Next() != first {
		t.Error("allocation list not threaded through Next")
	}
	if first.Next() != nil {
		t.Error("first allocation should terminate the list")
	}
}
