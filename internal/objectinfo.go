package internal

import "fmt"

// ObjectType indexes the closed registry of object variants. Adding a
// variant requires updating every exhaustive switch over ObjectType; the
// compiler does not enforce this, so each dispatch site ends with a panic on
// unknown types.
type ObjectType uint8

const (
	TypeSlots ObjectType = iota
	TypeMethod
	TypeBlock
	TypeActivation
	TypeArray
	TypeByteArray
	TypeManaged
	TypeActor
	TypeActorProxy
	TypeMap
	TypeAddrInfo
	// TypeForwarded is the tombstone a collection leaves at an object's old
	// location. It never appears in variant dispatch; callers chase the
	// forward first.
	TypeForwarded

	numObjectTypes
)

var objectTypeNames = [numObjectTypes]string{
	"Slots", "Method", "Block", "Activation", "Array", "ByteArray",
	"Managed", "Actor", "ActorProxy", "Map", "AddrInfo", "ForwardedObject",
}

func (t ObjectType) String() string {
	if t < numObjectTypes {
		return objectTypeNames[t]
	}
	return fmt.Sprintf("ObjectType(%d)", uint8(t))
}

// ActorID identifies the actor that owns an object. The field is 31 bits
// wide in the header; id 0 is the genesis actor.
type ActorID uint32

const maxActorID = 1<<31 - 1

// Reachability governs whether objects of other actors may obtain proxies to
// an object.
type Reachability uint8

const (
	// ReachabilityLocal objects are visible only to their owning actor.
	ReachabilityLocal Reachability = 0
	// ReachabilityGlobal objects (traits, the lobby) may be referenced from
	// any actor without a proxy. They are immutable after VM boot.
	ReachabilityGlobal Reachability = 1
)

// ObjectInfo is the first word of every object header. Layout, low to high:
//
//	marker:2  object-type:6  extra:8  actor-id:31  reachability:1  reserved:16
//
// The marker bits always hold TagMarker, which is how the collector
// recognises a header word when scanning and how FromAddress rejects
// addresses that do not point at objects.
type ObjectInfo uint64

const (
	infoTypeShift  = 2
	infoExtraShift = 8
	infoActorShift = 16
	infoReachShift = 47
)

// MakeObjectInfo builds the information word for a fresh object.
func MakeObjectInfo(t ObjectType, actor ActorID, reach Reachability) ObjectInfo {
	if actor > maxActorID {
		panic(fmt.Sprintf("gself: actor id %d exceeds 31 bits", actor))
	}
	return ObjectInfo(TagMarker) |
		ObjectInfo(t)<<infoTypeShift |
		ObjectInfo(actor)<<infoActorShift |
		ObjectInfo(reach)<<infoReachShift
}

// HasMarker reports whether the word carries the header marker tag. Every
// valid object information word does.
func (oi ObjectInfo) HasMarker() bool {
	return ValueTag(oi&valueTagMask) == TagMarker
}

// Type returns the variant registry index.
func (oi ObjectInfo) Type() ObjectType {
	return ObjectType(oi >> infoTypeShift & 0x3f)
}

// withType returns oi with the object-type field replaced. Used only to
// write forwarding tombstones.
func (oi ObjectInfo) withType(t ObjectType) ObjectInfo {
	return oi&^(0x3f<<infoTypeShift) | ObjectInfo(t)<<infoTypeShift
}

// Extra returns the per-variant scratch byte. The heap uses it as the
// survivor age of young objects.
func (oi ObjectInfo) Extra() uint8 {
	return uint8(oi >> infoExtraShift)
}

// WithExtra returns oi with the scratch byte replaced.
func (oi ObjectInfo) WithExtra(x uint8) ObjectInfo {
	return oi&^(0xff<<infoExtraShift) | ObjectInfo(x)<<infoExtraShift
}

// Actor returns the owning actor. Immutable for the life of the object;
// forwarding copies it unchanged to the new location.
func (oi ObjectInfo) Actor() ActorID {
	return ActorID(oi >> infoActorShift & maxActorID)
}

// Reachability returns the cross-actor visibility of the object.
func (oi ObjectInfo) Reachability() Reachability {
	return Reachability(oi >> infoReachShift & 1)
}
