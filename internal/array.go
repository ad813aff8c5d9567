package internal

import "unsafe"

// An Array is a fixed-size sequence of Values allocated contiguously with
// its header: one length word, then the cells.
const arrayLengthWord = headerWords

// ArraySizeBytes is the allocation size of an array of n values.
func ArraySizeBytes(n int) uintptr {
	return uintptr(headerWords+1+n) * wordBytes
}

// NewArray allocates an array holding a copy of values.
func NewArray(token *AllocationToken, actor ActorID, mapRef Value, values []Value) Address {
	a := NewArrayFilled(token, actor, mapRef, len(values), IntegerValue(0))
	copy(ArrayObject{FromAddress(a)}.Values(), values)
	return a
}

// NewArrayFilled allocates an array of n cells, each holding fill.
func NewArrayFilled(token *AllocationToken, actor ActorID, mapRef Value, n int, fill Value) Address {
	a := token.Allocate(ArraySizeBytes(n))
	a.Store(infoWord, Value(MakeObjectInfo(TypeArray, actor, ReachabilityLocal)))
	a.Store(mapWord, mapRef)
	a.Store(arrayLengthWord, IntegerValue(int64(n)))
	for i := 0; i < n; i++ {
		a.Store(headerWords+1+i, fill)
	}
	return a
}

// An ArrayObject is a typed view of an Array variant.
type ArrayObject struct {
	Object
}

// ArrayAt resolves v to an array view, chasing forwards.
func ArrayAt(v Value) (ArrayObject, bool) {
	if !v.IsReference() {
		return ArrayObject{}, false
	}
	o := FromAddress(ChaseForward(v.Address()))
	if o.Type() != TypeArray {
		return ArrayObject{}, false
	}
	return ArrayObject{o}, true
}

// Length returns the number of cells.
func (a ArrayObject) Length() int {
	return int(a.addr.Load(arrayLengthWord).Integer())
}

// Values returns a mutable view of the cells. Invalidated by collection.
func (a ArrayObject) Values() []Value {
	n := a.Length()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*Value)(unsafe.Pointer(a.addr.word(headerWords+1))), n)
}
