package internal

// Method and Block share a shape: a handle to compiled code, the argument
// and local counts, and the map describing the activation's locals area.
// A Method additionally records its selector name; a Block instead captures
// the activation it closed over, which non-local return unwinds to.
//
// Code itself is not a heap datum. Compiled bodies live in the VM's
// append-only code table and objects refer to them by index, which keeps
// the heap free of host pointers.
const (
	methodCodeWord      = headerWords
	methodCountsWord    = headerWords + 1
	methodLocalsMapWord = headerWords + 2
	methodNameWord      = headerWords + 3
	methodFieldWords    = 4

	blockCodeWord      = headerWords
	blockCountsWord    = headerWords + 1
	blockLocalsMapWord = headerWords + 2
	blockHomeWord      = headerWords + 3
	blockFieldWords    = 4
)

// MethodSizeBytes is the allocation size of a Method object.
func MethodSizeBytes() uintptr { return (headerWords + methodFieldWords) * wordBytes }

// BlockSizeBytes is the allocation size of a Block object.
func BlockSizeBytes() uintptr { return (headerWords + blockFieldWords) * wordBytes }

func packCounts(args, locals int) Value {
	return IntegerValue(int64(args) | int64(locals)<<16)
}

// NewMethod allocates a Method object. name is a ByteArray reference;
// localsMap describes the activation locals (arguments first).
func NewMethod(token *AllocationToken, actor ActorID, mapRef Value, code int, args, locals int, localsMap, name Value) Address {
	a := token.Allocate(MethodSizeBytes())
	a.Store(infoWord, Value(MakeObjectInfo(TypeMethod, actor, ReachabilityLocal)))
	a.Store(mapWord, mapRef)
	a.Store(methodCodeWord, IntegerValue(int64(code)))
	a.Store(methodCountsWord, packCounts(args, locals))
	a.Store(methodLocalsMapWord, localsMap)
	a.Store(methodNameWord, name)
	return a
}

// NewBlock allocates a Block closure capturing home, the activation whose
// method scope the block belongs to.
func NewBlock(token *AllocationToken, actor ActorID, mapRef Value, code int, args, locals int, localsMap, home Value) Address {
	a := token.Allocate(BlockSizeBytes())
	a.Store(infoWord, Value(MakeObjectInfo(TypeBlock, actor, ReachabilityLocal)))
	a.Store(mapWord, mapRef)
	a.Store(blockCodeWord, IntegerValue(int64(code)))
	a.Store(blockCountsWord, packCounts(args, locals))
	a.Store(blockLocalsMapWord, localsMap)
	a.Store(blockHomeWord, home)
	return a
}

// A MethodObject is a typed view of a Method variant.
type MethodObject struct {
	Object
}

// MethodAt resolves v to a method view, chasing forwards.
func MethodAt(v Value) (MethodObject, bool) {
	if !v.IsReference() {
		return MethodObject{}, false
	}
	o := FromAddress(ChaseForward(v.Address()))
	if o.Type() != TypeMethod {
		return MethodObject{}, false
	}
	return MethodObject{o}, true
}

// Code returns the index of the compiled body in the VM code table.
func (m MethodObject) Code() int { return int(m.addr.Load(methodCodeWord).Integer()) }

// ArgumentCount returns the number of declared arguments.
func (m MethodObject) ArgumentCount() int {
	return int(m.addr.Load(methodCountsWord).Integer()) & 0xffff
}

// LocalCount returns the number of non-argument locals.
func (m MethodObject) LocalCount() int {
	return int(m.addr.Load(methodCountsWord).Integer()) >> 16 & 0xffff
}

// LocalsMap returns the map describing the activation locals.
func (m MethodObject) LocalsMap() Value { return m.addr.Load(methodLocalsMapWord) }

// Name returns the selector name ByteArray reference.
func (m MethodObject) Name() Value { return m.addr.Load(methodNameWord) }

// A BlockObject is a typed view of a Block variant.
type BlockObject struct {
	Object
}

// BlockAt resolves v to a block view, chasing forwards.
func BlockAt(v Value) (BlockObject, bool) {
	if !v.IsReference() {
		return BlockObject{}, false
	}
	o := FromAddress(ChaseForward(v.Address()))
	if o.Type() != TypeBlock {
		return BlockObject{}, false
	}
	return BlockObject{o}, true
}

// Code returns the index of the compiled body in the VM code table.
func (b BlockObject) Code() int { return int(b.addr.Load(blockCodeWord).Integer()) }

// ArgumentCount returns the number of declared block arguments.
func (b BlockObject) ArgumentCount() int {
	return int(b.addr.Load(blockCountsWord).Integer()) & 0xffff
}

// LocalCount returns the number of non-argument locals.
func (b BlockObject) LocalCount() int {
	return int(b.addr.Load(blockCountsWord).Integer()) >> 16 & 0xffff
}

// LocalsMap returns the map describing the activation locals.
func (b BlockObject) LocalsMap() Value { return b.addr.Load(blockLocalsMapWord) }

// Home returns the captured activation reference.
func (b BlockObject) Home() Value { return b.addr.Load(blockHomeWord) }
