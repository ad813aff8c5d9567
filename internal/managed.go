package internal

// A Managed object wraps an opaque host resource: a handle into the VM's
// resource table plus nothing else the collector needs to trace. Managed is
// the only variant that finalizes; when the collector fails to trace one,
// the resource's release hook runs after the collection.
const (
	managedHandleWord = headerWords
	managedKindWord   = headerWords + 1
	managedFieldWords = 2
)

// ManagedSizeBytes is the allocation size of a Managed object.
func ManagedSizeBytes() uintptr { return (headerWords + managedFieldWords) * wordBytes }

// NewManaged allocates a Managed object wrapping handle. kind is an
// uninterpreted discriminator for primitives (file descriptor, address
// list, ...). The object is registered with the heap's finalizable queue.
func NewManaged(token *AllocationToken, heap *Heap, actor ActorID, mapRef Value, handle, kind int64) Address {
	a := token.Allocate(ManagedSizeBytes())
	a.Store(infoWord, Value(MakeObjectInfo(TypeManaged, actor, ReachabilityLocal)))
	a.Store(mapWord, mapRef)
	a.Store(managedHandleWord, IntegerValue(handle))
	a.Store(managedKindWord, IntegerValue(kind))
	heap.RegisterFinalizable(a)
	return a
}

// A ManagedObject is a typed view of a Managed variant.
type ManagedObject struct {
	Object
}

// ManagedAt resolves v to a managed view, chasing forwards.
func ManagedAt(v Value) (ManagedObject, bool) {
	if !v.IsReference() {
		return ManagedObject{}, false
	}
	o := FromAddress(ChaseForward(v.Address()))
	if o.Type() != TypeManaged {
		return ManagedObject{}, false
	}
	return ManagedObject{o}, true
}

// Handle returns the resource-table handle.
func (m ManagedObject) Handle() int64 { return m.addr.Load(managedHandleWord).Integer() }

// Kind returns the resource discriminator.
func (m ManagedObject) Kind() int64 { return m.addr.Load(managedKindWord).Integer() }

// managedHandleAt reads the handle from a possibly dead Managed body. The
// finalization sweep calls this on from-space addresses after a collection.
func managedHandleAt(a Address) int64 {
	return a.Load(managedHandleWord).Integer()
}
