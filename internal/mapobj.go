package internal

import "fmt"

// A Map describes the layout and slot descriptors shared by the objects
// created from it: which selectors they answer, which slots are parents, and
// where each slot's value lives in the host object's inline area. Maps are
// heap objects themselves; the root of the map graph is the map of maps,
// which is its own map.
//
// Map layout after the header:
//
//	word 2: slotCount:16 | parentCount:16 | inlineCount:16
//	then slotCount descriptors of two words each:
//	  name       Value (ByteArray reference)
//	  packed     hash:32 | kind:3 (bits 32..34) | index:16 (bits 40..55)
const (
	mapCountsWord          = headerWords
	mapFixedWords          = 1
	mapFirstDescriptorWord = headerWords + mapFixedWords
	descriptorWords        = 2
)

// SlotKind distinguishes the five kinds of slot a map can describe.
type SlotKind uint8

const (
	DataMutable SlotKind = iota
	DataConstant
	ParentMutable
	ParentConstant
	Argument
)

var slotKindNames = [...]string{"data", "data-constant", "parent", "parent-constant", "argument"}

func (k SlotKind) String() string { return slotKindNames[k] }

// IsParent reports whether the slot contributes to the lookup chain.
func (k SlotKind) IsParent() bool { return k == ParentMutable || k == ParentConstant }

// IsAssignable reports whether the slot's value may be replaced after
// creation.
func (k SlotKind) IsAssignable() bool {
	return k == DataMutable || k == ParentMutable || k == Argument
}

// A SlotDescriptor is one decoded entry of a map's descriptor table.
type SlotDescriptor struct {
	// Name is a ByteArray reference holding the slot's canonical name.
	Name Value
	// Hash is the selector hash of the name.
	Hash uint32
	// Kind is the slot's kind.
	Kind SlotKind
	// Index is the slot's position in the host object's inline slot area.
	Index int
}

func packDescriptor(d SlotDescriptor) Value {
	return Value(uint64(d.Hash) | uint64(d.Kind)<<32 | uint64(uint16(d.Index))<<40)
}

func unpackDescriptor(name, packed Value) SlotDescriptor {
	return SlotDescriptor{
		Name:  name,
		Hash:  uint32(packed),
		Kind:  SlotKind(uint64(packed) >> 32 & 0x7),
		Index: int(uint16(uint64(packed) >> 40)),
	}
}

// mapSlotCountAt reads the descriptor count directly from a map object's
// counts word. Used by size and edge dispatch, which hold the map's own
// address.
func mapSlotCountAt(a Address) int {
	return int(uint64(a.Load(mapCountsWord)) & 0xffff)
}

// mapInlineCount resolves a host object's map reference and returns how many
// inline slot words the host carries. Forwarding is chased: the collector
// reads layouts through maps that may already have moved.
func mapInlineCount(mapRef Value) int {
	m := MapAt(mapRef)
	return m.InlineCount()
}

// A MapObject is a typed view of a Map variant.
type MapObject struct {
	Object
}

// MapAt resolves a map reference, chasing forwards, and checks the variant.
func MapAt(v Value) MapObject {
	if !v.IsReference() {
		panic(fmt.Sprintf("gself: map reference is %s", v))
	}
	o := FromAddress(ChaseForward(v.Address()))
	if o.Type() != TypeMap {
		panic(fmt.Sprintf("gself: %s where a map was expected", o.Type()))
	}
	return MapObject{o}
}

// SlotCount returns the number of descriptors in the table.
func (m MapObject) SlotCount() int {
	return mapSlotCountAt(m.addr)
}

// ParentCount returns how many descriptors are parent slots.
func (m MapObject) ParentCount() int {
	return int(uint64(m.addr.Load(mapCountsWord)) >> 16 & 0xffff)
}

// InlineCount returns the number of inline slot words in host objects.
func (m MapObject) InlineCount() int {
	return int(uint64(m.addr.Load(mapCountsWord)) >> 32 & 0xffff)
}

// Descriptor decodes the i'th slot descriptor.
func (m MapObject) Descriptor(i int) SlotDescriptor {
	w := mapFirstDescriptorWord + i*descriptorWords
	return unpackDescriptor(m.addr.Load(w), m.addr.Load(w+1))
}

// FindSlot searches the table for a slot whose hash matches and whose name
// bytes equal name. The table is small, so the search is linear; hashes are
// only a fast reject, the name re-check is what decides.
func (m MapObject) FindSlot(hash uint32, name string) (SlotDescriptor, bool) {
	n := m.SlotCount()
	for i := 0; i < n; i++ {
		d := m.Descriptor(i)
		if d.Hash != hash {
			continue
		}
		if b, ok := ByteArrayAt(d.Name); ok && string(b.Bytes()) == name {
			return d, true
		}
	}
	return SlotDescriptor{}, false
}

// ForEachParent yields the parent slots in declaration order, which is the
// order lookup searches them. The walk stops early if f returns false.
func (m MapObject) ForEachParent(f func(d SlotDescriptor) bool) {
	n := m.SlotCount()
	for i := 0; i < n; i++ {
		d := m.Descriptor(i)
		if d.Kind.IsParent() && !f(d) {
			return
		}
	}
}

// A MapBuilder accumulates slot declarations and then allocates the Map and
// its name byte arrays in one token. Every build yields a fresh Map: shapes
// are not interned, so structurally equal maps remain distinct objects.
type MapBuilder struct {
	names []string
	kinds []SlotKind
}

// Add declares a slot. Declaration order fixes both storage indices and
// parent search order.
func (b *MapBuilder) Add(name string, kind SlotKind) {
	b.names = append(b.names, name)
	b.kinds = append(b.kinds, kind)
}

// AddFrom copies every descriptor of an existing map, implementing the
// copy-and-extend half of a shape transition.
func (b *MapBuilder) AddFrom(m MapObject) {
	n := m.SlotCount()
	for i := 0; i < n; i++ {
		d := m.Descriptor(i)
		ba, _ := ByteArrayAt(d.Name)
		b.Add(string(ba.Bytes()), d.Kind)
	}
}

// Len returns the number of declared slots.
func (b *MapBuilder) Len() int { return len(b.names) }

// SizeBytes is the reservation a Build needs: the map object plus one
// ByteArray per slot name.
func (b *MapBuilder) SizeBytes() uintptr {
	size := uintptr(headerWords+mapFixedWords+descriptorWords*len(b.names)) * wordBytes
	for _, name := range b.names {
		size += ByteArraySizeBytes(len(name))
	}
	return size
}

// Build allocates the map. The byte-array map reference for slot names is
// taken from the VM so names participate in string lookup like any other
// byte array.
func (b *MapBuilder) Build(token *AllocationToken, actor ActorID, mapOfMaps, byteArrayMap Value) MapObject {
	nameRefs := make([]Value, len(b.names))
	for i, name := range b.names {
		a := NewByteArray(token, actor, byteArrayMap, []byte(name))
		nameRefs[i] = ReferenceValue(a)
	}
	a := token.Allocate(uintptr(headerWords+mapFixedWords+descriptorWords*len(b.names)) * wordBytes)
	a.Store(infoWord, Value(MakeObjectInfo(TypeMap, actor, ReachabilityLocal)))
	if mapOfMaps == Value(0) {
		// The root of the map graph: the map of maps is its own map.
		mapOfMaps = ReferenceValue(a)
	}
	a.Store(mapWord, mapOfMaps)
	parents, inline := 0, 0
	for i := range b.names {
		d := SlotDescriptor{
			Name:  nameRefs[i],
			Hash:  HashName(b.names[i]),
			Kind:  b.kinds[i],
			Index: inline,
		}
		inline++
		if d.Kind.IsParent() {
			parents++
		}
		w := mapFirstDescriptorWord + i*descriptorWords
		a.Store(w, d.Name)
		a.Store(w+1, packDescriptor(d))
	}
	counts := uint64(len(b.names)) | uint64(parents)<<16 | uint64(inline)<<32
	a.Store(mapCountsWord, Value(counts))
	return MapObject{Object{addr: a}}
}
