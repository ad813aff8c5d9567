package internal

// An Interp is one evaluation context: the VM, the actor the evaluation runs
// for, and the current activation. frame is nil at script level, where the
// lobby stands in as the implicit receiver.
//
// The evaluator is a plain tree walker. Any Value held across a potential
// allocation is held through a Tracked handle, because allocation may collect
// and move the referent.
type Interp struct {
	vm    *VM
	actor ActorID
	frame *Tracked
}

// sameReference reports whether two values denote the same object, or are
// the same immediate.
func sameReference(a, b Value) bool {
	a, b = ChaseValue(a), ChaseValue(b)
	return a == b
}

// implicitReceiver is the receiver of a send written without one: the
// current activation, whose parent chain reaches the method's self, or the
// lobby at script level.
func (in *Interp) implicitReceiver() Value {
	if in.frame != nil {
		return in.frame.Get()
	}
	return in.vm.Lobby
}

func (in *Interp) selfValue(rng SourceRange) Completion {
	if in.frame == nil {
		return Normal(in.vm.Lobby)
	}
	r := in.vm.Lookup(in.frame.Get(), "self")
	if r.Kind != LookupValue {
		return Failf(rng, "self is not bound here")
	}
	return Normal(r.Value)
}

func (in *Interp) evalExpr(e Expr) Completion {
	switch e := e.(type) {
	case *IntegerLit:
		return Normal(IntegerValue(e.Value))
	case *FloatLit:
		return Normal(FloatValue(e.Value))
	case *StringLit:
		v, err := in.newStringValue(e.Value)
		if err != nil {
			return Failf(e.Rng, "%v", err)
		}
		return Normal(v)
	case *SelfLit:
		return in.selfValue(e.Rng)
	case *UnaryMessage:
		recv, c := in.evalReceiver(e.Receiver)
		if recv == nil {
			return c
		}
		defer recv.Release()
		return in.send(e.Rng, recv, e.Selector, nil)
	case *BinaryMessage:
		recv, c := in.evalReceiver(e.Receiver)
		if recv == nil {
			return c
		}
		defer recv.Release()
		c = in.evalExpr(e.Arg)
		if c.Kind != NormalCompletion {
			return c
		}
		arg := in.vm.Heap.Track(c.Value)
		defer arg.Release()
		return in.send(e.Rng, recv, e.Selector, []*Tracked{arg})
	case *KeywordMessage:
		recv, c := in.evalReceiver(e.Receiver)
		if recv == nil {
			return c
		}
		defer recv.Release()
		args := make([]*Tracked, 0, len(e.Args))
		defer func() {
			for _, a := range args {
				a.Release()
			}
		}()
		for _, ae := range e.Args {
			c := in.evalExpr(ae)
			if c.Kind != NormalCompletion {
				return c
			}
			args = append(args, in.vm.Heap.Track(c.Value))
		}
		return in.send(e.Rng, recv, e.Selector, args)
	case *ObjectLit:
		return in.evalObjectLit(e)
	case *BlockLit:
		return in.evalBlockLit(e)
	}
	panic("gself: unknown expression node")
}

// evalReceiver evaluates a send's receiver expression, nil meaning the
// implicit receiver, and returns it tracked. A nil Tracked signals that the
// returned completion is abnormal.
func (in *Interp) evalReceiver(e Expr) (*Tracked, Completion) {
	if e == nil {
		return in.vm.Heap.Track(in.implicitReceiver()), Completion{}
	}
	c := in.evalExpr(e)
	if c.Kind != NormalCompletion {
		return nil, c
	}
	return in.vm.Heap.Track(c.Value), Completion{}
}

// send dispatches one message: primitives by name, then the lookup engine.
func (in *Interp) send(rng SourceRange, recv *Tracked, selector string, args []*Tracked) Completion {
	if len(selector) > 0 && selector[0] == '_' {
		p, ok := in.vm.primitives[selector]
		if !ok {
			return Failf(rng, "unknown primitive %q", selector)
		}
		return p(in, rng, recv, args)
	}
	r := in.vm.Lookup(recv.Get(), selector)
	switch r.Kind {
	case LookupMissing:
		return Failf(rng, "%s does not understand %q", in.vm.FormatValue(recv.Get()), selector)
	case LookupValue:
		if len(args) > 0 {
			return Failf(rng, "%q names a data slot; it takes no arguments", selector)
		}
		return Normal(r.Value)
	case LookupAssignment:
		if len(args) != 1 {
			return Failf(rng, "assignment %q takes one argument", selector)
		}
		h := ChaseValue(r.Holder)
		setSlotValueOf(FromAddress(h.Address()), r.Index, args[0].Get())
		return Normal(recv.Get())
	case LookupMethod:
		mv := in.vm.Heap.Track(r.Value)
		defer mv.Release()
		return in.activateMethod(rng, mv, recv, selector, args)
	}
	panic("gself: unknown lookup kind")
}

// activateMethod builds a frame for a found method and runs its body. The
// frame's locals area is argument values, then nil-initialized locals, then
// the self slot holding the receiver and the lobby parent that gives method
// bodies access to globals the receiver does not shadow.
func (in *Interp) activateMethod(rng SourceRange, mv, recv *Tracked, selector string, args []*Tracked) Completion {
	m, ok := MethodAt(mv.Get())
	if !ok {
		return Failf(rng, "activating a non-method for %q", selector)
	}
	if m.ArgumentCount() != len(args) {
		return Failf(rng, "%q takes %d arguments, got %d", selector, m.ArgumentCount(), len(args))
	}
	code := in.vm.code[m.Code()]
	n := MapAt(m.LocalsMap()).InlineCount()
	tok, err := in.vm.reserve(ActivationSizeBytes(n))
	if err != nil {
		return Failf(rng, "%v", err)
	}
	m, _ = MethodAt(mv.Get())
	sender := in.vm.NilObject
	if in.frame != nil {
		sender = in.frame.Get()
	}
	a := NewActivation(tok, in.actor, ChaseValue(m.LocalsMap()), recv.Get(), sender, mv.Get(), n, in.vm.NilObject)
	tok.Deactivate()
	f := ActivationObject{FromAddress(a)}
	for i, t := range args {
		f.SetLocal(i, t.Get())
	}
	f.SetLocal(n-2, recv.Get())
	f.SetLocal(n-1, in.vm.Lobby)
	frame := in.vm.Heap.Track(ReferenceValue(a))
	defer frame.Release()
	return in.runFrame(frame, code, len(args), true)
}

// activateBlock builds a frame for a block and runs its body. The last
// locals slot is the lexicalParent link to the block's home, which is how
// outer names and self resolve. Blocks do not catch non-local returns.
func (in *Interp) activateBlock(rng SourceRange, bv *Tracked, args []*Tracked) Completion {
	b, ok := BlockAt(bv.Get())
	if !ok {
		return Failf(rng, "value sent to a non-block")
	}
	if b.ArgumentCount() != len(args) {
		return Failf(rng, "block takes %d arguments, got %d", b.ArgumentCount(), len(args))
	}
	code := in.vm.code[b.Code()]
	n := MapAt(b.LocalsMap()).InlineCount()
	tok, err := in.vm.reserve(ActivationSizeBytes(n))
	if err != nil {
		return Failf(rng, "%v", err)
	}
	b, _ = BlockAt(bv.Get())
	sender := in.vm.NilObject
	if in.frame != nil {
		sender = in.frame.Get()
	}
	a := NewActivation(tok, in.actor, ChaseValue(b.LocalsMap()), in.vm.NilObject, sender, bv.Get(), n, in.vm.NilObject)
	tok.Deactivate()
	f := ActivationObject{FromAddress(a)}
	for i, t := range args {
		f.SetLocal(i, t.Get())
	}
	f.SetLocal(n-1, b.Home())
	frame := in.vm.Heap.Track(ReferenceValue(a))
	defer frame.Release()
	return in.runFrame(frame, code, len(args), false)
}

// runFrame evaluates local initializers and then the body inside frame.
// When catches is set, a non-local return targeting frame completes here
// with its value; methods and object-literal bodies catch, blocks pass
// returns through to their home.
func (in *Interp) runFrame(frame *Tracked, code *compiledCode, argCount int, catches bool) Completion {
	inner := &Interp{vm: in.vm, actor: in.actor, frame: frame}
	for i, init := range code.localInits {
		v := in.vm.NilObject
		if init != nil {
			c := inner.evalExpr(init)
			if c.Kind != NormalCompletion {
				return in.maybeCatch(c, frame, catches)
			}
			v = c.Value
		}
		f, _ := ActivationAt(frame.Get())
		f.SetLocal(argCount+i, v)
	}
	return in.maybeCatch(inner.evalStmts(code.stmts), frame, catches)
}

func (in *Interp) maybeCatch(c Completion, frame *Tracked, catches bool) Completion {
	if catches && c.Kind == NonlocalCompletion && sameReference(c.Target, frame.Get()) {
		return Normal(c.Value)
	}
	return c
}

// evalStmts runs a body in order. The result is the value of the last
// statement; a ^-statement turns into a non-local return aimed at the
// nearest enclosing method frame.
func (in *Interp) evalStmts(stmts []Stmt) Completion {
	last := Normal(in.vm.NilObject)
	for _, st := range stmts {
		c := in.evalExpr(st.Expr)
		if c.Kind != NormalCompletion {
			return c
		}
		if st.Return {
			target, ok := in.returnTarget()
			if !ok {
				// Script level: the zero target completes the script.
				return NonlocalReturn(IntegerValue(0), c.Value)
			}
			return NonlocalReturn(target, c.Value)
		}
		last = c
	}
	return last
}

// returnTarget finds the frame a ^-return unwinds to: the current frame's
// chain of block homes, ending at the first frame whose code object is a
// method (or a pseudo-frame such as an object literal's).
func (in *Interp) returnTarget() (Value, bool) {
	if in.frame == nil {
		return Value(0), false
	}
	a := in.frame.Get()
	for {
		f, ok := ActivationAt(a)
		if !ok {
			return Value(0), false
		}
		code := f.CodeObject()
		if _, isBlock := BlockAt(code); !isBlock {
			return ReferenceValue(f.Address()), true
		}
		b, _ := BlockAt(code)
		a = b.Home()
	}
}

// newStringValue allocates a byte array holding s.
func (in *Interp) newStringValue(s string) (Value, error) {
	tok, err := in.vm.reserve(ByteArraySizeBytes(len(s)))
	if err != nil {
		return 0, err
	}
	a := NewByteArray(tok, in.actor, in.vm.byteArrayMap, []byte(s))
	tok.Deactivate()
	return ReferenceValue(a), nil
}

func slotKindOfDecl(k SlotDeclKind) SlotKind {
	switch k {
	case DeclMutable:
		return DataMutable
	case DeclConstant:
		return DataConstant
	case DeclParentMutable:
		return ParentMutable
	default:
		return ParentConstant
	}
}

// evalObjectLit creates a fresh slots object from a literal: methods and
// initializer values first, then the map and the object in one reservation,
// then the literal's trailing code run with the new object as self.
func (in *Interp) evalObjectLit(e *ObjectLit) Completion {
	type pending struct {
		name string
		kind SlotKind
		val  *Tracked
	}
	var slots []pending
	defer func() {
		for _, s := range slots {
			s.val.Release()
		}
	}()
	for _, d := range e.Decls {
		if d.Kind == DeclArgument {
			return Failf(d.Rng, "argument slot %q outside a block", d.Name)
		}
		isMethod := len(d.ArgNames) > 0
		if !isMethod && d.Kind == DeclConstant {
			if lit, ok := d.Init.(*ObjectLit); ok && len(lit.Code) > 0 {
				isMethod = true
			}
		}
		if isMethod {
			lit, ok := d.Init.(*ObjectLit)
			if !ok {
				return Failf(d.Rng, "method body of %q must be an object literal", d.Name)
			}
			mv, c := in.newMethod(d.Name, d.ArgNames, lit)
			if mv == nil {
				return c
			}
			slots = append(slots, pending{d.Name, DataConstant, mv})
			continue
		}
		v := in.vm.NilObject
		if d.Init != nil {
			c := in.evalExpr(d.Init)
			if c.Kind != NormalCompletion {
				return c
			}
			v = c.Value
		}
		slots = append(slots, pending{d.Name, slotKindOfDecl(d.Kind), in.vm.Heap.Track(v)})
	}
	var b MapBuilder
	for _, s := range slots {
		b.Add(s.name, s.kind)
	}
	tok, err := in.vm.reserve(b.SizeBytes() + SlotsSizeBytes(b.Len()))
	if err != nil {
		return Failf(e.Rng, "%v", err)
	}
	m := b.Build(tok, in.actor, in.vm.mapOfMaps, in.vm.byteArrayMap)
	a := NewSlotsObject(tok, in.actor, m, in.vm.NilObject)
	tok.Deactivate()
	obj := SlotsObject{FromAddress(a)}
	for i, s := range slots {
		obj.SetSlotValue(i, s.val.Get())
	}
	ot := in.vm.Heap.Track(ReferenceValue(a))
	defer ot.Release()
	if len(e.Code) > 0 {
		if c := in.runLiteralCode(e, ot); c.Kind != NormalCompletion {
			return c
		}
	}
	return Normal(ot.Get())
}

// runLiteralCode runs an object literal's trailing statements against the
// fresh object through a pseudo-frame whose parents are the object and the
// lobby.
func (in *Interp) runLiteralCode(e *ObjectLit, obj *Tracked) Completion {
	code := in.vm.codeFor(e, e.Code, nil, e.Rng)
	tok, err := in.vm.reserve(ActivationSizeBytes(2))
	if err != nil {
		return Failf(e.Rng, "%v", err)
	}
	sender := in.vm.NilObject
	if in.frame != nil {
		sender = in.frame.Get()
	}
	a := NewActivation(tok, in.actor, in.vm.literalFrameMap, obj.Get(), sender, in.vm.NilObject, 2, in.vm.NilObject)
	tok.Deactivate()
	f := ActivationObject{FromAddress(a)}
	f.SetLocal(0, obj.Get())
	f.SetLocal(1, in.vm.Lobby)
	frame := in.vm.Heap.Track(ReferenceValue(a))
	defer frame.Release()
	return in.runFrame(frame, in.vm.code[code], 0, true)
}

// newMethod compiles a method declaration: the body object's mutable slots
// become the method's locals, with their initializers evaluated per
// activation. The locals map is arguments, then locals, then the self and
// lobby parents.
func (in *Interp) newMethod(name string, argNames []string, lit *ObjectLit) (*Tracked, Completion) {
	var localNames []string
	var localInits []Expr
	for _, d := range lit.Decls {
		switch d.Kind {
		case DeclMutable:
			if len(d.ArgNames) > 0 {
				return nil, Failf(d.Rng, "method %q declares a mutable method slot", name)
			}
			localNames = append(localNames, d.Name)
			localInits = append(localInits, d.Init)
		case DeclArgument:
			return nil, Failf(d.Rng, "argument slots belong to blocks, not method %q", name)
		default:
			return nil, Failf(d.Rng, "method %q may declare only mutable locals", name)
		}
	}
	code := in.vm.codeFor(lit, lit.Code, localInits, lit.Rng)
	var b MapBuilder
	for _, a := range argNames {
		b.Add(a, Argument)
	}
	for _, l := range localNames {
		b.Add(l, DataMutable)
	}
	b.Add("self", ParentConstant)
	b.Add("lobby", ParentConstant)
	tok, err := in.vm.reserve(b.SizeBytes() + MethodSizeBytes() + ByteArraySizeBytes(len(name)))
	if err != nil {
		return nil, Failf(lit.Rng, "%v", err)
	}
	lm := b.Build(tok, in.actor, in.vm.mapOfMaps, in.vm.byteArrayMap)
	nm := NewByteArray(tok, in.actor, in.vm.byteArrayMap, []byte(name))
	a := NewMethod(tok, in.actor, in.vm.methodMap, code, len(argNames), len(localNames), ReferenceValue(lm.Address()), ReferenceValue(nm))
	tok.Deactivate()
	return in.vm.Heap.Track(ReferenceValue(a)), Completion{}
}

// evalBlockLit creates a closure: a locals map of arguments, locals, and
// the lexicalParent link, plus the block object capturing the current frame
// as its home.
func (in *Interp) evalBlockLit(e *BlockLit) Completion {
	var argNames, localNames []string
	var localInits []Expr
	for _, d := range e.Decls {
		switch d.Kind {
		case DeclArgument:
			if len(localNames) > 0 {
				return Failf(d.Rng, "block arguments must precede locals")
			}
			argNames = append(argNames, d.Name)
		case DeclMutable:
			localNames = append(localNames, d.Name)
			localInits = append(localInits, d.Init)
		default:
			return Failf(d.Rng, "block %q slot must be an argument or a mutable local", d.Name)
		}
	}
	code := in.vm.codeFor(e, e.Code, localInits, e.Rng)
	var b MapBuilder
	for _, a := range argNames {
		b.Add(a, Argument)
	}
	for _, l := range localNames {
		b.Add(l, DataMutable)
	}
	b.Add("lexicalParent", ParentConstant)
	home := in.vm.Lobby
	if in.frame != nil {
		home = in.frame.Get()
	}
	ht := in.vm.Heap.Track(home)
	defer ht.Release()
	tok, err := in.vm.reserve(b.SizeBytes() + BlockSizeBytes())
	if err != nil {
		return Failf(e.Rng, "%v", err)
	}
	lm := b.Build(tok, in.actor, in.vm.mapOfMaps, in.vm.byteArrayMap)
	a := NewBlock(tok, in.actor, in.vm.blockMap, code, len(argNames), len(localNames), ReferenceValue(lm.Address()), ht.Get())
	tok.Deactivate()
	return Normal(ReferenceValue(a))
}
