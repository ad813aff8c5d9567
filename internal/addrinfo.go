package internal

import "net"

// An AddrInfo object wraps one host address record produced by the
// resolver. Like Managed, the heap object is a handle; the record itself
// lives in the VM's resource table, outside collected memory.
const (
	addrInfoHandleWord = headerWords
	addrInfoFieldWords = 1
)

// AddrInfoRecord is the host side of an AddrInfo object.
type AddrInfoRecord struct {
	// Host is the name the lookup was for.
	Host string
	// Addr is one resolved address.
	Addr net.IP
}

// AddrInfoSizeBytes is the allocation size of an AddrInfo object.
func AddrInfoSizeBytes() uintptr { return (headerWords + addrInfoFieldWords) * wordBytes }

// NewAddrInfo allocates an AddrInfo wrapper around resource-table handle.
func NewAddrInfo(token *AllocationToken, actor ActorID, mapRef Value, handle int64) Address {
	a := token.Allocate(AddrInfoSizeBytes())
	a.Store(infoWord, Value(MakeObjectInfo(TypeAddrInfo, actor, ReachabilityLocal)))
	a.Store(mapWord, mapRef)
	a.Store(addrInfoHandleWord, IntegerValue(handle))
	return a
}

// An AddrInfoObject is a typed view of an AddrInfo variant.
type AddrInfoObject struct {
	Object
}

// AddrInfoAt resolves v to an AddrInfo view, chasing forwards.
func AddrInfoAt(v Value) (AddrInfoObject, bool) {
	if !v.IsReference() {
		return AddrInfoObject{}, false
	}
	o := FromAddress(ChaseForward(v.Address()))
	if o.Type() != TypeAddrInfo {
		return AddrInfoObject{}, false
	}
	return AddrInfoObject{o}, true
}

// Handle returns the resource-table handle of the record.
func (a AddrInfoObject) Handle() int64 { return a.addr.Load(addrInfoHandleWord).Integer() }
