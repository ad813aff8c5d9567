package internal

import (
	"fmt"
	"math"
	"unsafe"
)

// A Value is a 64-bit tagged word. Every datum the runtime manipulates is a
// Value: a 62-bit signed integer, a floating-point number with its low two
// mantissa bits truncated, a reference to an object on the heap, or the
// marker word that begins every object header.
type Value uint64

// ValueTag is the primary tag held in the low two bits of a Value.
type ValueTag uint64

const (
	// TagInteger marks a 62-bit signed integer.
	TagInteger ValueTag = 0
	// TagFloat marks a float64 whose low two mantissa bits are lost to the tag.
	TagFloat ValueTag = 1
	// TagReference marks an 8-aligned address of an object header.
	TagReference ValueTag = 2
	// TagMarker marks the object-information word at the start of a header.
	// A Value with this tag is never a standalone datum.
	TagMarker ValueTag = 3
)

const valueTagMask = 0x3

// Tag returns the primary tag of v.
func (v Value) Tag() ValueTag {
	return ValueTag(v & valueTagMask)
}

// MaxInteger and MinInteger bound the integers representable in a Value.
// Arithmetic that leaves this range wraps; there is no big-integer path.
const (
	MaxInteger int64 = 1<<61 - 1
	MinInteger int64 = -(1 << 61)
)

// IntegerValue encodes a signed integer. Bits beyond the 62 available are
// silently discarded.
func IntegerValue(i int64) Value {
	return Value(uint64(i)<<2) | Value(TagInteger)
}

// Integer decodes an integer Value, using an arithmetic shift to restore the
// sign.
func (v Value) Integer() int64 {
	return int64(v) >> 2
}

// IsInteger reports whether v carries the integer tag.
func (v Value) IsInteger() bool { return v.Tag() == TagInteger }

// FloatValue encodes a float. The low two bits of the mantissa are replaced
// by the tag, costing two ulps of precision.
func FloatValue(f float64) Value {
	return Value(math.Float64bits(f))&^valueTagMask | Value(TagFloat)
}

// Float decodes a float Value.
func (v Value) Float() float64 {
	return math.Float64frombits(uint64(v) &^ valueTagMask)
}

// IsFloat reports whether v carries the float tag.
func (v Value) IsFloat() bool { return v.Tag() == TagFloat }

// An Address is the location of an object header in a heap space. Addresses
// are always 8-aligned, which is what frees the low bits for Value tags.
type Address uintptr

// ReferenceValue encodes a reference to the object at a. Panics if a is not
// 8-aligned, since the tag would corrupt the address.
func ReferenceValue(a Address) Value {
	if a&0x7 != 0 {
		panic(fmt.Sprintf("gself: reference to unaligned address %#x", uintptr(a)))
	}
	return Value(a) | Value(TagReference)
}

// Address decodes a reference Value. The result is meaningless for other
// tags; callers check IsReference first.
func (v Value) Address() Address {
	return Address(v &^ valueTagMask)
}

// IsReference reports whether v carries the reference tag.
func (v Value) IsReference() bool { return v.Tag() == TagReference }

// word returns a pointer to the i'th 64-bit word at a. The heap retains the
// backing arrays of all spaces, so the conversion through uintptr never
// outlives its allocation.
func (a Address) word(i int) *uint64 {
	return (*uint64)(unsafe.Pointer(uintptr(a) + uintptr(i)*wordBytes))
}

// Load reads the i'th word at a as a Value.
func (a Address) Load(i int) Value {
	return Value(*a.word(i))
}

// Store writes the i'th word at a.
func (a Address) Store(i int, v Value) {
	*a.word(i) = uint64(v)
}

// wordBytes is the size of a heap word. Everything the heap hands out is a
// multiple of this.
const wordBytes = 8

// uintptrOf exposes the address of a space's first word so spaces can hand
// out Addresses.
func uintptrOf(p *uint64) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// String formats a Value for diagnostics.
func (v Value) String() string {
	switch v.Tag() {
	case TagInteger:
		return fmt.Sprintf("int(%d)", v.Integer())
	case TagFloat:
		return fmt.Sprintf("float(%g)", v.Float())
	case TagReference:
		return fmt.Sprintf("ref(%#x)", uintptr(v.Address()))
	default:
		return fmt.Sprintf("marker(%#x)", uint64(v))
	}
}
