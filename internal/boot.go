package internal

// Boot builds the well-known objects: the shared per-variant maps, nil, the
// lobby, the booleans, and the traits objects whose methods wrap primitives.
// Everything here is allocated in the old generation and marked globally
// reachable at the end.

// Synthetic AST constructors. The wrapper methods the traits carry are
// ordinary methods whose bodies were never parsed; building them as AST
// reuses the whole method-creation path.

func bootStmt(e Expr) Stmt { return Stmt{Expr: e} }

func bootName(name string) Expr { return &UnaryMessage{Selector: name} }

func bootUnary(recv Expr, sel string) Expr {
	return &UnaryMessage{Receiver: recv, Selector: sel}
}

// bootPrimBody builds the one-statement body "self _Prim: a1 With: a2 ...",
// where the keyword parts of prim line up with the argument names.
func bootPrimBody(prim string, argNames ...string) []Stmt {
	if len(argNames) == 0 {
		return []Stmt{bootStmt(bootUnary(&SelfLit{}, prim))}
	}
	args := make([]Expr, len(argNames))
	for i, n := range argNames {
		args[i] = bootName(n)
	}
	return []Stmt{bootStmt(&KeywordMessage{Receiver: &SelfLit{}, Selector: prim, Args: args})}
}

func bootMethodDecl(name string, argNames []string, body []Stmt) SlotDecl {
	return SlotDecl{
		Name:     name,
		Kind:     DeclConstant,
		ArgNames: argNames,
		Init:     &ObjectLit{Code: body},
	}
}

// bootPrimDecl declares a method named name that forwards to primitive prim.
func bootPrimDecl(name string, prim string, argNames ...string) SlotDecl {
	return bootMethodDecl(name, argNames, bootPrimBody(prim, argNames...))
}

func bootMutableDecl(name string) SlotDecl {
	return SlotDecl{Name: name, Kind: DeclMutable}
}

func (vm *VM) bootstrap() error {
	if err := vm.bootMaps(); err != nil {
		return err
	}
	if err := vm.bootNil(); err != nil {
		return err
	}
	in := vm.interp(0)
	if err := vm.bootLobby(in); err != nil {
		return err
	}
	if err := vm.bootBooleans(in); err != nil {
		return err
	}
	if err := vm.bootTraits(in); err != nil {
		return err
	}
	if err := vm.bootNamespaces(in); err != nil {
		return err
	}
	for _, v := range []Value{
		vm.Lobby, vm.NilObject, vm.TrueObject, vm.FalseObject,
		vm.IntegerTraits, vm.FloatTraits, vm.StringTraits,
		vm.ArrayTraits, vm.BlockTraits, vm.ActorTraits,
	} {
		vm.markGlobal(v)
	}
	vm.Actors.actors[0].root = vm.Lobby
	vm.log.Info("bootstrap complete")
	return nil
}

// bootMaps builds the self-describing map of maps and the shared empty maps
// every mapless variant points at.
func (vm *VM) bootMaps() error {
	mk := func(build func(*MapBuilder)) (Value, error) {
		var b MapBuilder
		if build != nil {
			build(&b)
		}
		tok, err := vm.reserve(b.SizeBytes())
		if err != nil {
			return vm.mapOfMaps, err
		}
		m := b.Build(tok, 0, vm.mapOfMaps, vm.byteArrayMap)
		tok.Deactivate()
		return ReferenceValue(m.Address()), nil
	}
	var err error
	// The first build sees mapOfMaps == 0 and self-maps.
	if vm.mapOfMaps, err = mk(nil); err != nil {
		return err
	}
	for _, dst := range []*Value{
		&vm.byteArrayMap, &vm.emptySlotsMap, &vm.arrayMap, &vm.methodMap,
		&vm.blockMap, &vm.managedMap, &vm.actorMap, &vm.actorProxyMap,
		&vm.addrInfoMap,
	} {
		if *dst, err = mk(nil); err != nil {
			return err
		}
	}
	vm.literalFrameMap, err = mk(func(b *MapBuilder) {
		b.Add("self", ParentConstant)
		b.Add("lobby", ParentConstant)
	})
	return err
}

func (vm *VM) bootNil() error {
	tok, err := vm.reserve(SlotsSizeBytes(0))
	if err != nil {
		return err
	}
	a := NewSlotsObject(tok, 0, MapAt(vm.emptySlotsMap), IntegerValue(0))
	tok.Deactivate()
	vm.NilObject = ReferenceValue(a)
	return nil
}

// bootObject evaluates a synthetic object literal and returns the object.
func (vm *VM) bootObject(in *Interp, decls ...SlotDecl) (Value, error) {
	c := in.evalObjectLit(&ObjectLit{Decls: decls, Rng: SourceRange{Label: "<boot>"}})
	if c.Kind != NormalCompletion {
		return vm.NilObject, &RuntimeError{Message: c.Message, Range: c.Range}
	}
	return c.Value, nil
}

func (vm *VM) bootLobby(in *Interp) error {
	lobby, err := vm.bootObject(in,
		bootMutableDecl("lobby"),
		bootMutableDecl("nil"),
		bootMutableDecl("true"),
		bootMutableDecl("false"),
		bootMutableDecl("traits"),
		bootMutableDecl("system"),
		bootMutableDecl("actors"),
	)
	if err != nil {
		return err
	}
	vm.Lobby = lobby
	vm.setSlot(vm.Lobby, "lobby", vm.Lobby)
	vm.setSlot(vm.Lobby, "nil", vm.NilObject)
	return nil
}

func (vm *VM) bootBooleans(in *Interp) error {
	parent := SlotDecl{Name: "parent", Kind: DeclParentConstant, Init: bootName("lobby")}
	t, err := vm.bootObject(in,
		parent,
		bootMethodDecl("ifTrue:", []string{"t"}, []Stmt{bootStmt(bootUnary(bootName("t"), "value"))}),
		bootMethodDecl("ifFalse:", []string{"f"}, []Stmt{bootStmt(bootName("nil"))}),
		bootMethodDecl("ifTrue:False:", []string{"t", "f"}, []Stmt{bootStmt(bootUnary(bootName("t"), "value"))}),
		bootMethodDecl("not", nil, []Stmt{bootStmt(bootName("false"))}),
		bootMethodDecl("and:", []string{"o"}, []Stmt{bootStmt(bootUnary(bootName("o"), "value"))}),
		bootMethodDecl("or:", []string{"o"}, []Stmt{bootStmt(&SelfLit{})}),
		bootMethodDecl("printString", nil, []Stmt{bootStmt(&StringLit{Value: "true"})}),
	)
	if err != nil {
		return err
	}
	f, err := vm.bootObject(in,
		parent,
		bootMethodDecl("ifTrue:", []string{"t"}, []Stmt{bootStmt(bootName("nil"))}),
		bootMethodDecl("ifFalse:", []string{"f"}, []Stmt{bootStmt(bootUnary(bootName("f"), "value"))}),
		bootMethodDecl("ifTrue:False:", []string{"t", "f"}, []Stmt{bootStmt(bootUnary(bootName("f"), "value"))}),
		bootMethodDecl("not", nil, []Stmt{bootStmt(bootName("true"))}),
		bootMethodDecl("and:", []string{"o"}, []Stmt{bootStmt(&SelfLit{})}),
		bootMethodDecl("or:", []string{"o"}, []Stmt{bootStmt(bootUnary(bootName("o"), "value"))}),
		bootMethodDecl("printString", nil, []Stmt{bootStmt(&StringLit{Value: "false"})}),
	)
	if err != nil {
		return err
	}
	vm.TrueObject, vm.FalseObject = t, f
	vm.setSlot(vm.Lobby, "true", t)
	vm.setSlot(vm.Lobby, "false", f)
	return nil
}

func (vm *VM) bootTraits(in *Interp) error {
	var err error
	vm.IntegerTraits, err = vm.bootObject(in,
		bootPrimDecl("+", "_IntAdd:", "x"),
		bootPrimDecl("-", "_IntSub:", "x"),
		bootPrimDecl("*", "_IntMul:", "x"),
		bootPrimDecl("/", "_IntDiv:", "x"),
		bootPrimDecl("%", "_IntMod:", "x"),
		bootPrimDecl("<", "_IntLt:", "x"),
		bootPrimDecl(">", "_IntGt:", "x"),
		bootPrimDecl("<=", "_IntLe:", "x"),
		bootPrimDecl(">=", "_IntGe:", "x"),
		bootPrimDecl("=", "_IntEq:", "x"),
		bootPrimDecl("printString", "_IntPrintString"),
		bootPrimDecl("asFloat", "_IntAsFloat"),
	)
	if err != nil {
		return err
	}
	vm.FloatTraits, err = vm.bootObject(in,
		bootPrimDecl("+", "_FloatAdd:", "x"),
		bootPrimDecl("-", "_FloatSub:", "x"),
		bootPrimDecl("*", "_FloatMul:", "x"),
		bootPrimDecl("/", "_FloatDiv:", "x"),
		bootPrimDecl("<", "_FloatLt:", "x"),
		bootPrimDecl(">", "_FloatGt:", "x"),
		bootPrimDecl("<=", "_FloatLe:", "x"),
		bootPrimDecl(">=", "_FloatGe:", "x"),
		bootPrimDecl("=", "_FloatEq:", "x"),
		bootPrimDecl("printString", "_FloatPrintString"),
		bootPrimDecl("truncated", "_FloatTruncated"),
	)
	if err != nil {
		return err
	}
	vm.StringTraits, err = vm.bootObject(in,
		bootPrimDecl("print", "_StringPrint"),
		bootPrimDecl("printString", "_StringPrintString"),
		bootPrimDecl(",", "_StringConcat:", "x"),
		bootPrimDecl("=", "_StringEq:", "x"),
		bootPrimDecl("size", "_ByteVectorSize"),
		bootPrimDecl("byteAt:", "_ByteAt:", "i"),
		bootPrimDecl("byteAt:Put:", "_ByteAt:Put:", "i", "v"),
		bootPrimDecl("copySize:", "_ByteVectorCopySize:", "n"),
		bootPrimDecl("asUppercase", "_StringUpper"),
		bootPrimDecl("asLowercase", "_StringLower"),
		bootPrimDecl("asTitlecase", "_StringTitle"),
	)
	if err != nil {
		return err
	}
	vm.ArrayTraits, err = vm.bootObject(in,
		bootPrimDecl("new:", "_ArrayNew:", "n"),
		bootPrimDecl("at:", "_ArrayAt:", "i"),
		bootPrimDecl("at:Put:", "_ArrayAt:Put:", "i", "v"),
		bootPrimDecl("size", "_ArraySize"),
	)
	if err != nil {
		return err
	}
	vm.BlockTraits, err = vm.bootObject(in,
		bootPrimDecl("value", "_BlockValue"),
		bootPrimDecl("value:", "_BlockValue:", "a"),
		bootPrimDecl("value:With:", "_BlockValue:With:", "a", "b"),
		bootPrimDecl("whileTrue:", "_BlockWhile:", "body"),
		bootPrimDecl("expectToFail:", "_BlockExpectFail:", "msg"),
		bootPrimDecl("expectToNotFail:", "_BlockExpectNoFail:", "msg"),
	)
	if err != nil {
		return err
	}
	vm.ActorTraits, err = vm.bootObject(in,
		bootPrimDecl("id", "_ActorID"),
		bootPrimDecl("send:", "_ActorSend:", "sel"),
	)
	return err
}

// bootNamespaces builds the traits, system and actors namespace objects and
// hangs them off the lobby.
func (vm *VM) bootNamespaces(in *Interp) error {
	traits, err := vm.bootObject(in,
		bootMutableDecl("integer"),
		bootMutableDecl("float"),
		bootMutableDecl("string"),
		bootMutableDecl("array"),
		bootMutableDecl("block"),
		bootMutableDecl("actor"),
	)
	if err != nil {
		return err
	}
	vm.setSlot(traits, "integer", vm.IntegerTraits)
	vm.setSlot(traits, "float", vm.FloatTraits)
	vm.setSlot(traits, "string", vm.StringTraits)
	vm.setSlot(traits, "array", vm.ArrayTraits)
	vm.setSlot(traits, "block", vm.BlockTraits)
	vm.setSlot(traits, "actor", vm.ActorTraits)

	system, err := vm.bootObject(in,
		bootPrimDecl("printLine:", "_PrintLine:", "x"),
		bootPrimDecl("clone:", "_Clone:", "x"),
		bootPrimDecl("is:Identical:", "_Is:Identical:", "a", "b"),
		bootPrimDecl("error:", "_Error:", "msg"),
		bootPrimDecl("collectGarbage", "_Collect"),
		bootPrimDecl("heapStats", "_HeapStats"),
		bootPrimDecl("resolve:", "_Resolve:", "host"),
		bootPrimDecl("addrHostOf:", "_AddrHost:", "a"),
		bootPrimDecl("addrIpOf:", "_AddrIP:", "a"),
		bootPrimDecl("openFile:Mode:", "_FileOpen:Mode:", "path", "mode"),
		bootPrimDecl("write:To:", "_FileWrite:To:", "data", "file"),
		bootPrimDecl("readFrom:Max:", "_FileReadFrom:Max:", "file", "n"),
		bootPrimDecl("closeFile:", "_FileClose:", "file"),
	)
	if err != nil {
		return err
	}
	actors, err := vm.bootObject(in,
		bootPrimDecl("spawn:", "_ActorSpawn:", "block"),
		bootPrimDecl("current", "_ActorCurrent"),
		bootPrimDecl("yield", "_ActorYield"),
		bootPrimDecl("finish", "_ActorFinish"),
	)
	if err != nil {
		return err
	}
	vm.setSlot(vm.Lobby, "traits", traits)
	vm.setSlot(vm.Lobby, "system", system)
	vm.setSlot(vm.Lobby, "actors", actors)
	vm.markGlobal(traits)
	vm.markGlobal(system)
	vm.markGlobal(actors)
	return nil
}
