package internal

// Heap layouts of the Actor and ActorProxy variants. The scheduling side
// (mailboxes, goroutines) lives in actor.go; the heap side is only the
// identity an object graph can hold.
const (
	actorIDWord     = headerWords
	actorFieldWords = 1

	actorProxyActorWord  = headerWords
	actorProxyTargetWord = headerWords + 1
	actorProxyFieldWords = 2
)

// ActorSizeBytes is the allocation size of an Actor object.
func ActorSizeBytes() uintptr { return (headerWords + actorFieldWords) * wordBytes }

// ActorProxySizeBytes is the allocation size of an ActorProxy object.
func ActorProxySizeBytes() uintptr { return (headerWords + actorProxyFieldWords) * wordBytes }

// NewActorObject allocates the heap half of an actor with isolation domain
// id. The object is owned by the actor it denotes.
func NewActorObject(token *AllocationToken, mapRef Value, id ActorID) Address {
	a := token.Allocate(ActorSizeBytes())
	a.Store(infoWord, Value(MakeObjectInfo(TypeActor, id, ReachabilityLocal)))
	a.Store(mapWord, mapRef)
	a.Store(actorIDWord, IntegerValue(int64(id)))
	return a
}

// NewActorProxy allocates a proxy owned by owner referring to target, an
// object of actor remote. Proxies are the only values that cross actor
// domains; the only operation they admit is enqueueing a message for the
// remote actor.
func NewActorProxy(token *AllocationToken, owner ActorID, mapRef Value, remote ActorID, target Value) Address {
	a := token.Allocate(ActorProxySizeBytes())
	a.Store(infoWord, Value(MakeObjectInfo(TypeActorProxy, owner, ReachabilityLocal)))
	a.Store(mapWord, mapRef)
	a.Store(actorProxyActorWord, IntegerValue(int64(remote)))
	a.Store(actorProxyTargetWord, target)
	return a
}

// An ActorObject is a typed view of an Actor variant.
type ActorObject struct {
	Object
}

// ActorAt resolves v to an actor view, chasing forwards.
func ActorAt(v Value) (ActorObject, bool) {
	if !v.IsReference() {
		return ActorObject{}, false
	}
	o := FromAddress(ChaseForward(v.Address()))
	if o.Type() != TypeActor {
		return ActorObject{}, false
	}
	return ActorObject{o}, true
}

// ID returns the actor's isolation domain id.
func (a ActorObject) ID() ActorID { return ActorID(a.addr.Load(actorIDWord).Integer()) }

// An ActorProxyObject is a typed view of an ActorProxy variant.
type ActorProxyObject struct {
	Object
}

// ActorProxyAt resolves v to a proxy view, chasing forwards.
func ActorProxyAt(v Value) (ActorProxyObject, bool) {
	if !v.IsReference() {
		return ActorProxyObject{}, false
	}
	o := FromAddress(ChaseForward(v.Address()))
	if o.Type() != TypeActorProxy {
		return ActorProxyObject{}, false
	}
	return ActorProxyObject{o}, true
}

// RemoteActor returns the actor that owns the proxied object.
func (p ActorProxyObject) RemoteActor() ActorID {
	return ActorID(p.addr.Load(actorProxyActorWord).Integer())
}

// Target returns the proxied object reference. Only the owning actor's
// evaluator may dereference it.
func (p ActorProxyObject) Target() Value { return p.addr.Load(actorProxyTargetWord) }
