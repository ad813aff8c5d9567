package internal

import "fmt"

// Header layout, in words from the object's address. Every variant begins
// with these two; variant fields follow.
const (
	infoWord = 0
	mapWord  = 1
	// headerWords is the length of the common prefix.
	headerWords = 2
)

// infoAt reads the object-information word at a without any checking. The
// copy phase uses it on condemned objects.
func infoAt(a Address) ObjectInfo {
	return ObjectInfo(a.Load(infoWord))
}

// An Object is a typed view of a header at a known address. It is a plain
// address wrapper; holding one across an allocation is exactly as unsafe as
// holding the address, which is what Tracked handles are for.
type Object struct {
	addr Address
}

// FromAddress casts a raw address to an object view. The header marker is
// checked on every call; a mismatch means the address does not point at an
// object and is fatal.
func FromAddress(a Address) Object {
	if !infoAt(a).HasMarker() {
		panic(fmt.Sprintf("gself: no object marker at %#x (word %#x)", uintptr(a), uint64(a.Load(infoWord))))
	}
	return Object{addr: a}
}

// Address returns the object's location.
func (o Object) Address() Address { return o.addr }

// Info returns the object-information word.
func (o Object) Info() ObjectInfo { return infoAt(o.addr) }

// Type returns the variant registry index.
func (o Object) Type() ObjectType { return o.Info().Type() }

// Actor returns the owning actor recorded at creation.
func (o Object) Actor() ActorID { return o.Info().Actor() }

// Map returns the map reference word. For a forwarded object this is the
// forwarding link, not a map.
func (o Object) Map() Value { return o.addr.Load(mapWord) }

// SetMap replaces the map reference, as a shape transition does.
func (o Object) SetMap(m Value) { o.addr.Store(mapWord, m) }

// IsForwarded reports whether the object is a tombstone left by collection.
func (o Object) IsForwarded() bool { return o.Type() == TypeForwarded }

// IsForwarded reports whether the header at a is a forwarding tombstone.
func IsForwarded(a Address) bool { return infoAt(a).Type() == TypeForwarded }

// ForwardAddress returns the new location recorded in a tombstone.
func ForwardAddress(a Address) Address {
	if !IsForwarded(a) {
		panic(fmt.Sprintf("gself: forward address of non-forwarded %s at %#x", infoAt(a).Type(), uintptr(a)))
	}
	return a.Load(mapWord).Address()
}

// forwardObjectTo overwrites the header at a with a tombstone pointing at
// dst. Forwarding is one-shot; forwarding a tombstone is fatal.
func forwardObjectTo(a, dst Address) {
	info := infoAt(a)
	if info.Type() == TypeForwarded {
		panic(fmt.Sprintf("gself: double forward at %#x", uintptr(a)))
	}
	a.Store(infoWord, Value(info.withType(TypeForwarded)))
	a.Store(mapWord, ReferenceValue(dst))
}

// ChaseForward follows forwarding tombstones until it reaches a live header.
// Dereferences during and after collection go through here so that partial
// traversals see moved objects transparently.
func ChaseForward(a Address) Address {
	for IsForwarded(a) {
		a = ForwardAddress(a)
	}
	return a
}

// ChaseValue is ChaseForward lifted to reference Values. Non-references pass
// through unchanged.
func ChaseValue(v Value) Value {
	if !v.IsReference() {
		return v
	}
	a := v.Address()
	c := ChaseForward(a)
	if c == a {
		return v
	}
	return ReferenceValue(c)
}

// objectSizeBytes computes the total size of the object at a, header
// included. Meeting a tombstone here is a programmer error: the caller
// should have chased the forward.
func objectSizeBytes(a Address) uintptr {
	switch t := infoAt(a).Type(); t {
	case TypeSlots:
		return uintptr(headerWords+mapInlineCount(a.Load(mapWord))) * wordBytes
	case TypeMethod:
		return (headerWords + methodFieldWords) * wordBytes
	case TypeBlock:
		return (headerWords + blockFieldWords) * wordBytes
	case TypeActivation:
		return uintptr(headerWords+activationFixedWords+int(a.Load(activationLocalCountWord).Integer())) * wordBytes
	case TypeArray:
		return uintptr(headerWords+1+int(a.Load(arrayLengthWord).Integer())) * wordBytes
	case TypeByteArray:
		n := uintptr(a.Load(byteArrayLengthWord).Integer())
		return (headerWords+1)*wordBytes + alignWord(n)
	case TypeManaged:
		return (headerWords + managedFieldWords) * wordBytes
	case TypeActor:
		return (headerWords + actorFieldWords) * wordBytes
	case TypeActorProxy:
		return (headerWords + actorProxyFieldWords) * wordBytes
	case TypeMap:
		return uintptr(headerWords+mapFixedWords+descriptorWords*mapSlotCountAt(a)) * wordBytes
	case TypeAddrInfo:
		return (headerWords + addrInfoFieldWords) * wordBytes
	default:
		panic(fmt.Sprintf("gself: size of %s at %#x", t, uintptr(a)))
	}
}

// forEachEdge applies f to every word of the object at a that holds a Value
// the collector must trace, the map reference included. f may rewrite the
// word through the pointer it receives.
func forEachEdge(a Address, f func(*Value)) {
	// Layout is read from the map before f may move it; the map's from-space
	// body stays intact during a collection either way.
	switch t := infoAt(a).Type(); t {
	case TypeSlots:
		n := mapInlineCount(a.Load(mapWord))
		edge(a, mapWord, f)
		for i := 0; i < n; i++ {
			edge(a, headerWords+i, f)
		}
	case TypeMethod:
		edge(a, mapWord, f)
		edge(a, methodLocalsMapWord, f)
		edge(a, methodNameWord, f)
	case TypeBlock:
		edge(a, mapWord, f)
		edge(a, blockLocalsMapWord, f)
		edge(a, blockHomeWord, f)
	case TypeActivation:
		edge(a, mapWord, f)
		edge(a, activationReceiverWord, f)
		edge(a, activationSenderWord, f)
		edge(a, activationCodeWord, f)
		n := int(a.Load(activationLocalCountWord).Integer())
		for i := 0; i < n; i++ {
			edge(a, headerWords+activationFixedWords+i, f)
		}
	case TypeArray:
		edge(a, mapWord, f)
		n := int(a.Load(arrayLengthWord).Integer())
		for i := 0; i < n; i++ {
			edge(a, headerWords+1+i, f)
		}
	case TypeByteArray, TypeManaged, TypeActor, TypeAddrInfo:
		edge(a, mapWord, f)
	case TypeActorProxy:
		edge(a, mapWord, f)
		edge(a, actorProxyTargetWord, f)
	case TypeMap:
		n := mapSlotCountAt(a)
		edge(a, mapWord, f)
		for i := 0; i < n; i++ {
			edge(a, mapFirstDescriptorWord+i*descriptorWords, f)
		}
	default:
		panic(fmt.Sprintf("gself: edges of %s at %#x", t, uintptr(a)))
	}
}

func edge(a Address, i int, f func(*Value)) {
	v := a.Load(i)
	f(&v)
	a.Store(i, v)
}

// CanFinalize reports whether the variant at a runs a finalizer when it
// dies. Only Managed does.
func CanFinalize(a Address) bool {
	return infoAt(a).Type() == TypeManaged
}

// CloneObject copies the object at a into space carved from token,
// recording actor as the owner of the copy. The map is preserved; payloads
// (array cells, byte-array bytes) are copied with their wrappers. Variants
// that are not clonable (actors, proxies, activations, maps) return ok =
// false.
//
// The token must already reserve CloneSizeBytes(a).
func CloneObject(token *AllocationToken, a Address, actor ActorID) (Address, bool) {
	a = ChaseForward(a)
	switch t := infoAt(a).Type(); t {
	case TypeSlots, TypeMethod, TypeBlock, TypeArray, TypeByteArray, TypeManaged, TypeAddrInfo:
		size := objectSizeBytes(a)
		dst := token.Allocate(size)
		copyWords(dst, a, size)
		dst.Store(infoWord, Value(MakeObjectInfo(t, actor, infoAt(a).Reachability())))
		if t == TypeManaged {
			token.h.RegisterFinalizable(dst)
		}
		return dst, true
	default:
		return 0, false
	}
}

// CloneSizeBytes is the reservation needed to clone the object at a.
func CloneSizeBytes(a Address) uintptr {
	return objectSizeBytes(ChaseForward(a))
}
