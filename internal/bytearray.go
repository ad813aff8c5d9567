package internal

import "unsafe"

// A ByteArray wraps a raw byte payload allocated immediately after its
// header in one contiguous block. Strings are byte arrays; so are slot
// names.
//
// Layout after the header: one length word, then the payload rounded up to
// whole words.
const byteArrayLengthWord = headerWords

// ByteArraySizeBytes is the allocation size of a byte array of n bytes,
// header and length word included.
func ByteArraySizeBytes(n int) uintptr {
	return (headerWords+1)*wordBytes + alignWord(uintptr(n))
}

// NewByteArray allocates a byte array holding a copy of data. The token
// must reserve ByteArraySizeBytes(len(data)); wrapper and payload are carved
// atomically so a collection can never separate them.
func NewByteArray(token *AllocationToken, actor ActorID, mapRef Value, data []byte) Address {
	a := NewByteArrayUninitialized(token, actor, mapRef, len(data))
	copy(ByteArrayObject{FromAddress(a)}.Bytes(), data)
	return a
}

// NewByteArrayUninitialized allocates a byte array of n zero bytes.
func NewByteArrayUninitialized(token *AllocationToken, actor ActorID, mapRef Value, n int) Address {
	a := token.Allocate(ByteArraySizeBytes(n))
	a.Store(infoWord, Value(MakeObjectInfo(TypeByteArray, actor, ReachabilityLocal)))
	a.Store(mapWord, mapRef)
	a.Store(byteArrayLengthWord, IntegerValue(int64(n)))
	for i := 0; i < int(alignWord(uintptr(n))/wordBytes); i++ {
		*a.word(headerWords + 1 + i) = 0
	}
	return a
}

// A ByteArrayObject is a typed view of a ByteArray variant.
type ByteArrayObject struct {
	Object
}

// ByteArrayAt resolves v to a byte array view, chasing forwards. ok is
// false if v is not a reference to a ByteArray.
func ByteArrayAt(v Value) (ByteArrayObject, bool) {
	if !v.IsReference() {
		return ByteArrayObject{}, false
	}
	o := FromAddress(ChaseForward(v.Address()))
	if o.Type() != TypeByteArray {
		return ByteArrayObject{}, false
	}
	return ByteArrayObject{o}, true
}

// Length returns the payload length in bytes.
func (b ByteArrayObject) Length() int {
	return int(b.addr.Load(byteArrayLengthWord).Integer())
}

// Bytes returns a mutable view of the payload. The view is invalidated by
// any collection, like every raw address.
func (b ByteArrayObject) Bytes() []byte {
	n := b.Length()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(b.addr.word(headerWords+1))), n)
}

// String copies the payload out as a Go string.
func (b ByteArrayObject) String() string {
	return string(b.Bytes())
}
