package internal

// An Activation is a running frame: the receiver the code executes against,
// the sender frame to return to, the method or block being run, a statement
// counter, and the inline locals area its locals map indexes (arguments
// first, then locals).
//
// Activations are ordinary heap objects and move in collections like any
// other; the evaluator therefore holds them through Tracked handles.
const (
	activationReceiverWord   = headerWords
	activationSenderWord     = headerWords + 1
	activationCodeWord       = headerWords + 2
	activationPCWord         = headerWords + 3
	activationLocalCountWord = headerWords + 4
	activationFixedWords     = 5
)

// ActivationSizeBytes is the allocation size of a frame with n locals.
func ActivationSizeBytes(n int) uintptr {
	return uintptr(headerWords+activationFixedWords+n) * wordBytes
}

// NewActivation allocates a frame. code is the Method or Block reference
// being activated; locals is the total locals area size (arguments plus
// declared locals), initially filled with fill.
func NewActivation(token *AllocationToken, actor ActorID, mapRef, receiver, sender, code Value, locals int, fill Value) Address {
	a := token.Allocate(ActivationSizeBytes(locals))
	a.Store(infoWord, Value(MakeObjectInfo(TypeActivation, actor, ReachabilityLocal)))
	a.Store(mapWord, mapRef)
	a.Store(activationReceiverWord, receiver)
	a.Store(activationSenderWord, sender)
	a.Store(activationCodeWord, code)
	a.Store(activationPCWord, IntegerValue(0))
	a.Store(activationLocalCountWord, IntegerValue(int64(locals)))
	for i := 0; i < locals; i++ {
		a.Store(headerWords+activationFixedWords+i, fill)
	}
	return a
}

// An ActivationObject is a typed view of an Activation variant.
type ActivationObject struct {
	Object
}

// ActivationAt resolves v to an activation view, chasing forwards.
func ActivationAt(v Value) (ActivationObject, bool) {
	if !v.IsReference() {
		return ActivationObject{}, false
	}
	o := FromAddress(ChaseForward(v.Address()))
	if o.Type() != TypeActivation {
		return ActivationObject{}, false
	}
	return ActivationObject{o}, true
}

// Receiver returns the frame's receiver.
func (f ActivationObject) Receiver() Value { return f.addr.Load(activationReceiverWord) }

// Sender returns the calling frame, or the VM nil for an entrypoint frame.
func (f ActivationObject) Sender() Value { return f.addr.Load(activationSenderWord) }

// CodeObject returns the Method or Block reference being run.
func (f ActivationObject) CodeObject() Value { return f.addr.Load(activationCodeWord) }

// PC returns the statement counter.
func (f ActivationObject) PC() int { return int(f.addr.Load(activationPCWord).Integer()) }

// SetPC stores the statement counter.
func (f ActivationObject) SetPC(pc int) { f.addr.Store(activationPCWord, IntegerValue(int64(pc))) }

// LocalCount returns the size of the locals area.
func (f ActivationObject) LocalCount() int {
	return int(f.addr.Load(activationLocalCountWord).Integer())
}

// Local reads locals-area word i.
func (f ActivationObject) Local(i int) Value {
	return f.addr.Load(headerWords + activationFixedWords + i)
}

// SetLocal writes locals-area word i.
func (f ActivationObject) SetLocal(i int, v Value) {
	f.addr.Store(headerWords+activationFixedWords+i, v)
}
