package internal

import (
	"github.com/zephyrtronium/contains"
)

// LookupKind classifies what a lookup found.
type LookupKind int

const (
	// LookupMissing: no slot anywhere on the parent graph.
	LookupMissing LookupKind = iota
	// LookupValue: a data slot; Value holds its contents.
	LookupValue
	// LookupMethod: a slot holding a Method, to be activated by the caller.
	LookupMethod
	// LookupAssignment: an assignment selector matched a mutable data slot;
	// Holder and Index say where to write.
	LookupAssignment
)

// A LookupResult is the answer of the lookup engine for one send.
type LookupResult struct {
	Kind LookupKind
	// Value is the slot value (LookupValue) or the method (LookupMethod).
	Value Value
	// Holder is the object whose map supplied the slot. For assignments it
	// is the object to write into.
	Holder Value
	// Index is the slot storage index in Holder, for assignments.
	Index int
}

// Lookup resolves selector name against receiver: walk the receiver's map's
// slot table, then try the assignment interpretation, then recurse into
// parent slots in declaration order. The visited set breaks parent cycles
// by object identity (address after forward-chasing), so lookup terminates
// on any receiver graph.
func (vm *VM) Lookup(receiver Value, name string) LookupResult {
	sel := vm.Selectors.Intern(name)
	visited := contains.Set{}
	return vm.lookup(receiver, name, sel, &visited)
}

func (vm *VM) lookup(receiver Value, name string, sel SelectorHash, visited *contains.Set) LookupResult {
	receiver = ChaseValue(receiver)
	switch receiver.Tag() {
	case TagInteger:
		return vm.lookup(vm.IntegerTraits, name, sel, visited)
	case TagFloat:
		return vm.lookup(vm.FloatTraits, name, sel, visited)
	case TagMarker:
		panic("gself: lookup on a marker word")
	}
	a := receiver.Address()
	if !visited.Add(uintptr(a)) {
		return LookupResult{Kind: LookupMissing}
	}
	o := FromAddress(a)
	switch o.Type() {
	case TypeByteArray:
		// Byte arrays reach the traits system without per-instance storage:
		// the built-in parent selector answers string traits, everything
		// else delegates into it.
		if name == ParentSelector {
			return LookupResult{Kind: LookupValue, Value: vm.StringTraits, Holder: receiver}
		}
		return vm.lookup(vm.StringTraits, name, sel, visited)
	case TypeArray:
		return vm.lookup(vm.ArrayTraits, name, sel, visited)
	case TypeBlock:
		return vm.lookup(vm.BlockTraits, name, sel, visited)
	case TypeActor, TypeActorProxy:
		return vm.lookup(vm.ActorTraits, name, sel, visited)
	case TypeSlots, TypeActivation:
		// Slot-bearing variants fall through to the map walk below.
	default:
		// Methods, maps, managed handles and address records answer no
		// messages of their own.
		return LookupResult{Kind: LookupMissing}
	}
	m := MapAt(o.Map())
	if d, ok := m.FindSlot(sel.Regular, name); ok {
		v := slotValueOf(o, d.Index)
		if _, isMethod := MethodAt(v); isMethod {
			return LookupResult{Kind: LookupMethod, Value: v, Holder: receiver}
		}
		return LookupResult{Kind: LookupValue, Value: v, Holder: receiver}
	}
	if sel.Assign != 0 {
		base := name[:len(name)-1]
		if d, ok := m.FindSlot(sel.Assign, base); ok && d.Kind == DataMutable {
			return LookupResult{Kind: LookupAssignment, Holder: receiver, Index: d.Index}
		}
	}
	result := LookupResult{Kind: LookupMissing}
	m.ForEachParent(func(d SlotDescriptor) bool {
		r := vm.lookup(slotValueOf(o, d.Index), name, sel, visited)
		if r.Kind != LookupMissing {
			result = r
			return false
		}
		return true
	})
	return result
}

// slotValueOf reads descriptor-indexed storage from the variants that carry
// an inline slot area.
func slotValueOf(o Object, index int) Value {
	switch o.Type() {
	case TypeSlots:
		return o.addr.Load(headerWords + index)
	case TypeActivation:
		return o.addr.Load(headerWords + activationFixedWords + index)
	default:
		panic("gself: slot storage on variant without a slot area: " + o.Type().String())
	}
}

// setSlotValueOf writes descriptor-indexed storage, the assignment half of
// slotValueOf.
func setSlotValueOf(o Object, index int, v Value) {
	switch o.Type() {
	case TypeSlots:
		o.addr.Store(headerWords+index, v)
	case TypeActivation:
		o.addr.Store(headerWords+activationFixedWords+index, v)
	default:
		panic("gself: slot storage on variant without a slot area: " + o.Type().String())
	}
}
