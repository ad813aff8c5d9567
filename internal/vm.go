package internal

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tliron/commonlog"
)

// A VM is one complete interpreter instance: a heap, a selector table, the
// compiled-code table, the resource table for host handles, the actor
// scheduler, and the well-known objects the evaluator needs. Every Value
// field of a VM is a collection root.
type VM struct {
	Heap      *Heap
	Selectors *SelectorTable

	// Well-known objects, built once at boot and immutable afterwards.
	Lobby       Value
	NilObject   Value
	TrueObject  Value
	FalseObject Value

	IntegerTraits Value
	FloatTraits   Value
	StringTraits  Value
	ArrayTraits   Value
	BlockTraits   Value
	ActorTraits   Value

	// Shared empty maps, one per variant that needs a map reference but
	// carries no slots of its own. mapOfMaps is the self-describing root of
	// the map graph.
	mapOfMaps     Value
	emptySlotsMap Value
	byteArrayMap  Value
	arrayMap      Value
	methodMap     Value
	blockMap      Value
	managedMap    Value
	actorMap      Value
	actorProxyMap Value
	addrInfoMap   Value
	// literalFrameMap describes the locals area of the pseudo-frame an
	// object literal's body runs in: the fresh object as self, then the
	// lobby.
	literalFrameMap Value

	// code is the append-only table of compiled bodies. Heap objects refer
	// to entries by index, which keeps host pointers out of the heap.
	code      []*compiledCode
	codeIndex map[Expr]int

	primitives map[string]primitiveFn
	resources  *resourceTable
	Actors     *ActorSystem

	// Out receives everything the print primitives write.
	Out io.Writer

	// booting routes allocations to the old generation while the well-known
	// objects are built; they are long-lived by construction.
	booting bool
	log     commonlog.Logger
}

// compiledCode is one entry of the code table: the body statements plus the
// initializer expressions of the declared locals, in slot order.
type compiledCode struct {
	stmts      []Stmt
	localInits []Expr
	rng        SourceRange
}

// NewVM builds and bootstraps an interpreter.
func NewVM(cfg Config) (*VM, error) {
	vm := &VM{
		Selectors: NewSelectorTable(),
		codeIndex: make(map[Expr]int),
		resources: newResourceTable(),
		Out:       os.Stdout,
		log:       commonlog.GetLogger("gself.vm"),
	}
	vm.Heap = NewHeap(cfg)
	vm.Heap.SetRootVisitor(vm.visitRoots)
	vm.Heap.SetFinalizeFunc(vm.finalizeManaged)
	vm.primitives = newPrimitives()
	vm.Actors = newActorSystem(vm)
	vm.booting = true
	if err := vm.bootstrap(); err != nil {
		return nil, err
	}
	vm.booting = false
	return vm, nil
}

// visitRoots presents every Value the VM holds outside the heap to the
// collector.
func (vm *VM) visitRoots(f func(*Value)) {
	roots := []*Value{
		&vm.Lobby, &vm.NilObject, &vm.TrueObject, &vm.FalseObject,
		&vm.IntegerTraits, &vm.FloatTraits, &vm.StringTraits,
		&vm.ArrayTraits, &vm.BlockTraits, &vm.ActorTraits,
		&vm.mapOfMaps, &vm.emptySlotsMap, &vm.byteArrayMap, &vm.arrayMap,
		&vm.methodMap, &vm.blockMap, &vm.managedMap, &vm.actorMap,
		&vm.actorProxyMap, &vm.addrInfoMap, &vm.literalFrameMap,
	}
	for _, r := range roots {
		f(r)
	}
	vm.Actors.visitRoots(f)
}

// reserve obtains an allocation token in the generation appropriate to the
// VM's phase: the old generation during boot, the nursery afterwards.
func (vm *VM) reserve(bytes uintptr) (*AllocationToken, error) {
	gen := NewGeneration
	if vm.booting {
		gen = OldGeneration
	}
	return vm.Heap.Reserve(gen, bytes)
}

// interp makes an evaluation context for actor at top level (no frame).
func (vm *VM) interp(actor ActorID) *Interp {
	return &Interp{vm: vm, actor: actor}
}

// codeFor interns a compiled body, keyed by its AST node so that repeated
// evaluation of the same literal reuses one entry.
func (vm *VM) codeFor(key Expr, stmts []Stmt, localInits []Expr, rng SourceRange) int {
	if i, ok := vm.codeIndex[key]; ok {
		return i
	}
	vm.code = append(vm.code, &compiledCode{stmts: stmts, localInits: localInits, rng: rng})
	i := len(vm.code) - 1
	vm.codeIndex[key] = i
	return i
}

// setSlot writes a named slot of a slots object directly. Boot uses it to
// tie the knots (lobby's lobby, the booleans) that literal evaluation order
// cannot express.
func (vm *VM) setSlot(objV Value, name string, v Value) {
	o, ok := SlotsAt(objV)
	if !ok {
		panic(fmt.Sprintf("gself: setSlot on %s", objV))
	}
	d, ok := MapAt(o.Map()).FindSlot(HashName(name), name)
	if !ok {
		panic(fmt.Sprintf("gself: setSlot: no slot %q", name))
	}
	o.SetSlotValue(d.Index, v)
}

// markGlobal raises an object's reachability so any actor may reference it
// without a proxy. Applied to the well-known objects at the end of boot.
func (vm *VM) markGlobal(v Value) {
	if !v.IsReference() {
		return
	}
	a := ChaseForward(v.Address())
	info := infoAt(a)
	a.Store(infoWord, Value(info|ObjectInfo(ReachabilityGlobal)<<infoReachShift))
}

// truth decodes a boolean object. ok is false if v is neither of the two.
func (vm *VM) truth(v Value) (val, ok bool) {
	if sameReference(v, vm.TrueObject) {
		return true, true
	}
	if sameReference(v, vm.FalseObject) {
		return false, true
	}
	return false, false
}

// boolValue returns the boolean object for b.
func (vm *VM) boolValue(b bool) Value {
	if b {
		return vm.TrueObject
	}
	return vm.FalseObject
}

// FormatValue renders a value for diagnostics and the REPL.
func (vm *VM) FormatValue(v Value) string {
	v = ChaseValue(v)
	switch v.Tag() {
	case TagInteger:
		return fmt.Sprintf("%d", v.Integer())
	case TagFloat:
		return fmt.Sprintf("%g", v.Float())
	case TagMarker:
		return v.String()
	}
	switch {
	case sameReference(v, vm.NilObject):
		return "nil"
	case sameReference(v, vm.TrueObject):
		return "true"
	case sameReference(v, vm.FalseObject):
		return "false"
	}
	o := FromAddress(v.Address())
	switch o.Type() {
	case TypeByteArray:
		b, _ := ByteArrayAt(v)
		return fmt.Sprintf("'%s'", b.String())
	case TypeArray:
		a, _ := ArrayAt(v)
		return fmt.Sprintf("array(%d)", a.Length())
	case TypeSlots:
		return "an object"
	case TypeMethod:
		return "a method"
	case TypeBlock:
		return "a block"
	case TypeActivation:
		return "an activation"
	case TypeActor:
		a, _ := ActorAt(v)
		return fmt.Sprintf("actor %d", a.ID())
	case TypeActorProxy:
		p, _ := ActorProxyAt(v)
		return fmt.Sprintf("proxy for actor %d", p.RemoteActor())
	case TypeManaged:
		return "a resource"
	case TypeAddrInfo:
		return "an address record"
	case TypeMap:
		return "a map"
	default:
		return o.Type().String()
	}
}

// A RuntimeError is an error completion surfaced to the host.
type RuntimeError struct {
	Message string
	Range   SourceRange
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Range, e.Message)
}

// RunScript evaluates a parsed script statement by statement against the
// lobby on the genesis actor and returns the value of the last statement.
// A ^-statement ends the script early with its value.
func (vm *VM) RunScript(s *Script) (Value, error) {
	vm.Actors.runMu.Lock()
	defer vm.Actors.runMu.Unlock()
	in := vm.interp(0)
	last := vm.NilObject
	for _, st := range s.Stmts {
		c := in.evalExpr(st.Expr)
		switch c.Kind {
		case ErrorCompletion:
			return vm.NilObject, &RuntimeError{Message: c.Message, Range: c.Range}
		case NonlocalCompletion:
			if c.Target.IsReference() {
				return vm.NilObject, &RuntimeError{Message: "non-local return from a block whose method already returned", Range: s.Range}
			}
			return c.Value, nil
		}
		if st.Return {
			return c.Value, nil
		}
		last = c.Value
	}
	return last, nil
}

// Shutdown drains and joins every actor. The VM is unusable afterwards.
func (vm *VM) Shutdown() {
	vm.Actors.shutdown()
}

// Resource discriminators stored in a Managed object's kind word.
const (
	resourceKindFile = 1
)

// A resourceTable maps Managed handles to host-side resources. Entries
// outlive collections; a Managed object's finalizer retires its entry.
type resourceTable struct {
	mu      sync.Mutex
	entries map[int64]interface{}
	next    int64
}

func newResourceTable() *resourceTable {
	return &resourceTable{entries: make(map[int64]interface{}), next: 1}
}

func (rt *resourceTable) add(v interface{}) int64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	h := rt.next
	rt.next++
	rt.entries[h] = v
	return h
}

func (rt *resourceTable) get(h int64) (interface{}, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	v, ok := rt.entries[h]
	return v, ok
}

// take removes and returns the entry, if present.
func (rt *resourceTable) take(h int64) (interface{}, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	v, ok := rt.entries[h]
	if ok {
		delete(rt.entries, h)
	}
	return v, ok
}

// finalizeManaged releases the host resource behind a dead Managed object.
// Called by the collector with the from-space body; it must not allocate.
func (vm *VM) finalizeManaged(a Address) {
	handle := managedHandleAt(a)
	kind := a.Load(managedKindWord).Integer()
	switch kind {
	case resourceKindFile:
		if fd, ok := vm.resources.take(handle); ok {
			closeHostFile(fd.(int))
		}
	default:
		vm.resources.take(handle)
	}
}
