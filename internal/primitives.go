package internal

import (
	"fmt"
	"strconv"
)

// A primitiveFn implements one _-prefixed selector. The receiver and the
// already-evaluated arguments arrive tracked; the primitive may allocate
// and collect freely as long as it re-reads values through the handles
// afterwards.
type primitiveFn func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion

func newPrimitives() map[string]primitiveFn {
	p := make(map[string]primitiveFn, 64)
	addIntegerPrimitives(p)
	addFloatPrimitives(p)
	addObjectPrimitives(p)
	addArrayPrimitives(p)
	addBlockPrimitives(p)
	addActorPrimitives(p)
	addStringPrimitives(p)
	addByteVectorPrimitives(p)
	addFilePrimitives(p)
	addNetPrimitives(p)
	return p
}

func intPair(rng SourceRange, a, b Value) (int64, int64, Completion) {
	if !a.IsInteger() || !b.IsInteger() {
		return 0, 0, Failf(rng, "integer operation on %s and %s", a, b)
	}
	return a.Integer(), b.Integer(), Completion{}
}

func intOp(op func(a, b int64) int64) primitiveFn {
	return func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		a, b, c := intPair(rng, recv.Get(), args[0].Get())
		if c.IsError() {
			return c
		}
		return Normal(IntegerValue(op(a, b)))
	}
}

func intCmp(op func(a, b int64) bool) primitiveFn {
	return func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		a, b, c := intPair(rng, recv.Get(), args[0].Get())
		if c.IsError() {
			return c
		}
		return Normal(in.vm.boolValue(op(a, b)))
	}
}

func addIntegerPrimitives(p map[string]primitiveFn) {
	p["_IntAdd:"] = intOp(func(a, b int64) int64 { return a + b })
	p["_IntSub:"] = intOp(func(a, b int64) int64 { return a - b })
	p["_IntMul:"] = intOp(func(a, b int64) int64 { return a * b })
	p["_IntDiv:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		a, b, c := intPair(rng, recv.Get(), args[0].Get())
		if c.IsError() {
			return c
		}
		if b == 0 {
			return Failf(rng, "division by zero")
		}
		return Normal(IntegerValue(a / b))
	}
	p["_IntMod:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		a, b, c := intPair(rng, recv.Get(), args[0].Get())
		if c.IsError() {
			return c
		}
		if b == 0 {
			return Failf(rng, "modulo by zero")
		}
		return Normal(IntegerValue(a % b))
	}
	p["_IntLt:"] = intCmp(func(a, b int64) bool { return a < b })
	p["_IntGt:"] = intCmp(func(a, b int64) bool { return a > b })
	p["_IntLe:"] = intCmp(func(a, b int64) bool { return a <= b })
	p["_IntGe:"] = intCmp(func(a, b int64) bool { return a >= b })
	p["_IntEq:"] = intCmp(func(a, b int64) bool { return a == b })
	p["_IntPrintString"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		v := recv.Get()
		if !v.IsInteger() {
			return Failf(rng, "integer expected, got %s", v)
		}
		return in.stringResult(rng, strconv.FormatInt(v.Integer(), 10))
	}
	p["_IntAsFloat"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		v := recv.Get()
		if !v.IsInteger() {
			return Failf(rng, "integer expected, got %s", v)
		}
		return Normal(FloatValue(float64(v.Integer())))
	}
}

// floatOperand widens integer arguments so mixed arithmetic works on the
// float side.
func floatOperand(v Value) (float64, bool) {
	switch v.Tag() {
	case TagFloat:
		return v.Float(), true
	case TagInteger:
		return float64(v.Integer()), true
	}
	return 0, false
}

func floatOp(op func(a, b float64) float64) primitiveFn {
	return func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		a, ok1 := floatOperand(recv.Get())
		b, ok2 := floatOperand(args[0].Get())
		if !ok1 || !ok2 {
			return Failf(rng, "float operation on %s and %s", recv.Get(), args[0].Get())
		}
		return Normal(FloatValue(op(a, b)))
	}
}

func floatCmp(op func(a, b float64) bool) primitiveFn {
	return func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		a, ok1 := floatOperand(recv.Get())
		b, ok2 := floatOperand(args[0].Get())
		if !ok1 || !ok2 {
			return Failf(rng, "float comparison on %s and %s", recv.Get(), args[0].Get())
		}
		return Normal(in.vm.boolValue(op(a, b)))
	}
}

func addFloatPrimitives(p map[string]primitiveFn) {
	p["_FloatAdd:"] = floatOp(func(a, b float64) float64 { return a + b })
	p["_FloatSub:"] = floatOp(func(a, b float64) float64 { return a - b })
	p["_FloatMul:"] = floatOp(func(a, b float64) float64 { return a * b })
	p["_FloatDiv:"] = floatOp(func(a, b float64) float64 { return a / b })
	p["_FloatLt:"] = floatCmp(func(a, b float64) bool { return a < b })
	p["_FloatGt:"] = floatCmp(func(a, b float64) bool { return a > b })
	p["_FloatLe:"] = floatCmp(func(a, b float64) bool { return a <= b })
	p["_FloatGe:"] = floatCmp(func(a, b float64) bool { return a >= b })
	p["_FloatEq:"] = floatCmp(func(a, b float64) bool { return a == b })
	p["_FloatPrintString"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		v := recv.Get()
		if !v.IsFloat() {
			return Failf(rng, "float expected, got %s", v)
		}
		return in.stringResult(rng, strconv.FormatFloat(v.Float(), 'g', -1, 64))
	}
	p["_FloatTruncated"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		v := recv.Get()
		if !v.IsFloat() {
			return Failf(rng, "float expected, got %s", v)
		}
		return Normal(IntegerValue(int64(v.Float())))
	}
}

// stringResult allocates a byte array for s and wraps it in a completion.
func (in *Interp) stringResult(rng SourceRange, s string) Completion {
	v, err := in.newStringValue(s)
	if err != nil {
		return Failf(rng, "%v", err)
	}
	return Normal(v)
}

func addObjectPrimitives(p map[string]primitiveFn) {
	p["_Clone:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		v := args[0].Get()
		if !v.IsReference() {
			// Immediates are their own clones.
			return Normal(v)
		}
		size := CloneSizeBytes(v.Address())
		tok, err := in.vm.reserve(size)
		if err != nil {
			return Failf(rng, "%v", err)
		}
		a, ok := CloneObject(tok, args[0].Get().Address(), in.actor)
		tok.Deactivate()
		if !ok {
			return Failf(rng, "%s cannot be cloned", in.vm.FormatValue(args[0].Get()))
		}
		return Normal(ReferenceValue(a))
	}
	p["_Is:Identical:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		return Normal(in.vm.boolValue(sameReference(args[0].Get(), args[1].Get())))
	}
	p["_Error:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		if b, ok := ByteArrayAt(args[0].Get()); ok {
			return Failf(rng, "%s", b.String())
		}
		return Failf(rng, "error: %s", in.vm.FormatValue(args[0].Get()))
	}
	p["_PrintLine:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		fmt.Fprintln(in.vm.Out, in.vm.FormatValue(args[0].Get()))
		return Normal(in.vm.NilObject)
	}
	p["_Collect"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		in.vm.Heap.Collect(OldGeneration)
		return Normal(in.vm.NilObject)
	}
	p["_HeapStats"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		st := in.vm.Heap.Stats()
		s := fmt.Sprintf("scavenges=%d full=%d copied=%d promoted=%d finalized=%d reservations=%d",
			st.Scavenges, st.FullCollections, st.BytesCopied, st.ObjectsPromoted, st.FinalizersRun, st.Reservations)
		return in.stringResult(rng, s)
	}
}

func addArrayPrimitives(p map[string]primitiveFn) {
	p["_ArrayNew:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		nv := args[0].Get()
		if !nv.IsInteger() || nv.Integer() < 0 {
			return Failf(rng, "array size must be a nonnegative integer, got %s", nv)
		}
		n := int(nv.Integer())
		tok, err := in.vm.reserve(ArraySizeBytes(n))
		if err != nil {
			return Failf(rng, "%v", err)
		}
		a := NewArrayFilled(tok, in.actor, in.vm.arrayMap, n, in.vm.NilObject)
		tok.Deactivate()
		return Normal(ReferenceValue(a))
	}
	p["_ArrayAt:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		a, ok := ArrayAt(recv.Get())
		if !ok {
			return Failf(rng, "array expected, got %s", in.vm.FormatValue(recv.Get()))
		}
		iv := args[0].Get()
		if !iv.IsInteger() || iv.Integer() < 0 || iv.Integer() >= int64(a.Length()) {
			return Failf(rng, "array index %s out of range [0,%d)", iv, a.Length())
		}
		return Normal(a.Values()[iv.Integer()])
	}
	p["_ArrayAt:Put:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		a, ok := ArrayAt(recv.Get())
		if !ok {
			return Failf(rng, "array expected, got %s", in.vm.FormatValue(recv.Get()))
		}
		iv := args[0].Get()
		if !iv.IsInteger() || iv.Integer() < 0 || iv.Integer() >= int64(a.Length()) {
			return Failf(rng, "array index %s out of range [0,%d)", iv, a.Length())
		}
		a.Values()[iv.Integer()] = args[1].Get()
		return Normal(recv.Get())
	}
	p["_ArraySize"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		a, ok := ArrayAt(recv.Get())
		if !ok {
			return Failf(rng, "array expected, got %s", in.vm.FormatValue(recv.Get()))
		}
		return Normal(IntegerValue(int64(a.Length())))
	}
}

func addBlockPrimitives(p map[string]primitiveFn) {
	value := func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		return in.activateBlock(rng, recv, args)
	}
	p["_BlockValue"] = value
	p["_BlockValue:"] = value
	p["_BlockValue:With:"] = value
	p["_BlockWhile:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		for {
			c := in.activateBlock(rng, recv, nil)
			if c.Kind != NormalCompletion {
				return c
			}
			t, ok := in.vm.truth(c.Value)
			if !ok {
				return Failf(rng, "loop condition must be a boolean, got %s", in.vm.FormatValue(c.Value))
			}
			if !t {
				return Normal(in.vm.NilObject)
			}
			if c := in.activateBlock(rng, args[0], nil); c.Kind != NormalCompletion {
				return c
			}
		}
	}
	p["_BlockExpectFail:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		c := in.activateBlock(rng, recv, nil)
		if c.IsError() {
			return Normal(in.vm.NilObject)
		}
		if c.Kind != NormalCompletion {
			return c
		}
		return Failf(rng, "expected failure: %s", in.vm.FormatValue(args[0].Get()))
	}
	p["_BlockExpectNoFail:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		c := in.activateBlock(rng, recv, nil)
		if c.IsError() {
			return Failf(rng, "%s: %s", in.vm.FormatValue(args[0].Get()), c.Message)
		}
		return c
	}
}

func addActorPrimitives(p map[string]primitiveFn) {
	p["_ActorSpawn:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		return in.vm.Actors.Spawn(in, rng, args[0])
	}
	p["_ActorSend:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		sel, ok := ByteArrayAt(args[0].Get())
		if !ok {
			return Failf(rng, "selector must be a string, got %s", in.vm.FormatValue(args[0].Get()))
		}
		name := sel.String()
		var id ActorID
		var target Value
		v := recv.Get()
		if px, ok := ActorProxyAt(v); ok {
			id, target = px.RemoteActor(), px.Target()
		} else if av, ok := ActorAt(v); ok {
			id, target = av.ID(), ChaseValue(v)
		} else {
			return Failf(rng, "send: needs an actor or a proxy, got %s", in.vm.FormatValue(v))
		}
		if !in.vm.Actors.Enqueue(id, target, name) {
			return Failf(rng, "actor %d is gone", id)
		}
		return Normal(in.vm.NilObject)
	}
	p["_ActorID"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		if px, ok := ActorProxyAt(recv.Get()); ok {
			return Normal(IntegerValue(int64(px.RemoteActor())))
		}
		if av, ok := ActorAt(recv.Get()); ok {
			return Normal(IntegerValue(int64(av.ID())))
		}
		return Failf(rng, "id needs an actor or a proxy")
	}
	p["_ActorCurrent"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		return Normal(IntegerValue(int64(in.actor)))
	}
	p["_ActorYield"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		in.vm.Actors.Yield()
		return Normal(in.vm.NilObject)
	}
	p["_ActorFinish"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		if in.actor != 0 {
			return Failf(rng, "only the genesis actor may finish the system")
		}
		in.vm.Actors.Drain()
		return Normal(in.vm.NilObject)
	}
}

func addByteVectorPrimitives(p map[string]primitiveFn) {
	p["_ByteVectorSize"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		b, ok := ByteArrayAt(recv.Get())
		if !ok {
			return Failf(rng, "byte vector expected, got %s", in.vm.FormatValue(recv.Get()))
		}
		return Normal(IntegerValue(int64(b.Length())))
	}
	p["_ByteAt:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		b, ok := ByteArrayAt(recv.Get())
		if !ok {
			return Failf(rng, "byte vector expected, got %s", in.vm.FormatValue(recv.Get()))
		}
		iv := args[0].Get()
		if !iv.IsInteger() || iv.Integer() < 0 || iv.Integer() >= int64(b.Length()) {
			return Failf(rng, "byte index %s out of range [0,%d)", iv, b.Length())
		}
		return Normal(IntegerValue(int64(b.Bytes()[iv.Integer()])))
	}
	p["_ByteAt:Put:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		b, ok := ByteArrayAt(recv.Get())
		if !ok {
			return Failf(rng, "byte vector expected, got %s", in.vm.FormatValue(recv.Get()))
		}
		iv, vv := args[0].Get(), args[1].Get()
		if !iv.IsInteger() || iv.Integer() < 0 || iv.Integer() >= int64(b.Length()) {
			return Failf(rng, "byte index %s out of range [0,%d)", iv, b.Length())
		}
		if !vv.IsInteger() || vv.Integer() < 0 || vv.Integer() > 255 {
			return Failf(rng, "byte value %s out of range [0,255]", vv)
		}
		b.Bytes()[iv.Integer()] = byte(vv.Integer())
		return Normal(recv.Get())
	}
	p["_ByteVectorCopySize:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		b, ok := ByteArrayAt(recv.Get())
		if !ok {
			return Failf(rng, "byte vector expected, got %s", in.vm.FormatValue(recv.Get()))
		}
		nv := args[0].Get()
		if !nv.IsInteger() || nv.Integer() < 0 || nv.Integer() >= int64(b.Length()) {
			return Failf(rng, "copy size %s out of range [0,%d)", nv, b.Length())
		}
		n := int(nv.Integer())
		// The source bytes are copied out before reserving, which may move
		// the source.
		src := append([]byte(nil), b.Bytes()...)
		tok, err := in.vm.reserve(ByteArraySizeBytes(n))
		if err != nil {
			return Failf(rng, "%v", err)
		}
		a := NewByteArrayUninitialized(tok, in.actor, in.vm.byteArrayMap, n)
		tok.Deactivate()
		copy(ByteArrayObject{FromAddress(a)}.Bytes(), src)
		return Normal(ReferenceValue(a))
	}
}
