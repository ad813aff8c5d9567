package internal

import "fmt"

// A SlotsObject is the ordinary open-ended object: a header followed by the
// inline slot values its map prescribes, in descriptor index order.
type SlotsObject struct {
	Object
}

// SlotsSizeBytes is the allocation size of a slots object whose map carries
// inline storage words.
func SlotsSizeBytes(inline int) uintptr {
	return uintptr(headerWords+inline) * wordBytes
}

// NewSlotsObject allocates a slots object from m, filling every inline slot
// with fill (normally the VM's nil).
func NewSlotsObject(token *AllocationToken, actor ActorID, m MapObject, fill Value) Address {
	n := m.InlineCount()
	a := token.Allocate(SlotsSizeBytes(n))
	a.Store(infoWord, Value(MakeObjectInfo(TypeSlots, actor, ReachabilityLocal)))
	a.Store(mapWord, ReferenceValue(m.Address()))
	for i := 0; i < n; i++ {
		a.Store(headerWords+i, fill)
	}
	return a
}

// SlotsAt resolves v to a slots-object view, chasing forwards.
func SlotsAt(v Value) (SlotsObject, bool) {
	if !v.IsReference() {
		return SlotsObject{}, false
	}
	o := FromAddress(ChaseForward(v.Address()))
	if o.Type() != TypeSlots {
		return SlotsObject{}, false
	}
	return SlotsObject{o}, true
}

// SlotValue reads the inline slot at index i.
func (o SlotsObject) SlotValue(i int) Value {
	o.checkIndex(i)
	return o.addr.Load(headerWords + i)
}

// SetSlotValue writes the inline slot at index i.
func (o SlotsObject) SetSlotValue(i int, v Value) {
	o.checkIndex(i)
	o.addr.Store(headerWords+i, v)
}

func (o SlotsObject) checkIndex(i int) {
	if n := MapAt(o.Map()).InlineCount(); i < 0 || i >= n {
		panic(fmt.Sprintf("gself: slot index %d out of range [0,%d)", i, n))
	}
}
