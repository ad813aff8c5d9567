package internal

import (
	"runtime"
	"sync"

	"github.com/tliron/commonlog"
)

// The actor scheduler. Each actor runs on its own goroutine, but evaluation
// is serialized by the run lock: exactly one actor executes interpreter code
// at a time, and every heap access happens under the lock. An actor waiting
// for mail releases the lock, so waiting never blocks the others.
//
// Messages between actors carry only a target reference and a selector name.
// Delivery order per receiving actor is enqueue order, which makes delivery
// FIFO per sender-receiver pair.

// A message is one queued asynchronous send.
type message struct {
	target   Value
	selector string
}

type actorState struct {
	id    ActorID
	obj   Value // the Actor heap object
	root  Value // receiver of delivered messages
	queue []message
	ready *sync.Cond
	done  bool
}

// ActorSystem owns the run lock, the actor table and the scheduler
// goroutines. The genesis actor (id 0) is the one the host drives through
// RunScript; it has no goroutine of its own.
type ActorSystem struct {
	vm    *VM
	runMu sync.Mutex

	// actors and every mailbox are guarded by runMu.
	actors  map[ActorID]*actorState
	nextID  ActorID
	closing bool
	wg      sync.WaitGroup
	log     commonlog.Logger
}

func newActorSystem(vm *VM) *ActorSystem {
	s := &ActorSystem{
		vm:     vm,
		actors: make(map[ActorID]*actorState),
		nextID: 1,
		log:    commonlog.GetLogger("gself.actor"),
	}
	genesis := &actorState{id: 0}
	genesis.ready = sync.NewCond(&s.runMu)
	s.actors[0] = genesis
	return s
}

// visitRoots presents every Value the scheduler holds to the collector:
// actor objects, roots, and all queued message targets. Collection happens
// under runMu, so the table is stable while this runs.
func (s *ActorSystem) visitRoots(f func(*Value)) {
	for _, st := range s.actors {
		f(&st.obj)
		f(&st.root)
		for i := range st.queue {
			f(&st.queue[i].target)
		}
	}
}

// Spawn creates a new actor whose root object is the result of running
// block in the new actor's context, and returns a proxy for it owned by the
// caller. Called with runMu held.
func (s *ActorSystem) Spawn(in *Interp, rng SourceRange, block *Tracked) Completion {
	if s.closing {
		return Failf(rng, "actor system is shutting down")
	}
	if _, ok := BlockAt(block.Get()); !ok {
		return Failf(rng, "spawn needs a block")
	}
	if s.nextID > maxActorID {
		return Failf(rng, "actor ids exhausted")
	}
	id := s.nextID
	s.nextID++
	st := &actorState{id: id, root: s.vm.NilObject}
	st.ready = sync.NewCond(&s.runMu)
	tok, err := s.vm.reserve(ActorSizeBytes() + ActorProxySizeBytes())
	if err != nil {
		return Failf(rng, "%v", err)
	}
	ao := NewActorObject(tok, s.vm.actorMap, id)
	st.obj = ReferenceValue(ao)
	px := NewActorProxy(tok, in.actor, s.vm.actorProxyMap, id, st.obj)
	tok.Deactivate()
	s.actors[id] = st
	bt := s.vm.Heap.Track(block.Get())
	s.wg.Add(1)
	go s.run(st, bt)
	return Normal(ReferenceValue(px))
}

// run is an actor goroutine: evaluate the spawn block to obtain the root
// object, then deliver mail until the system closes and the queue drains.
func (s *ActorSystem) run(st *actorState, block *Tracked) {
	defer s.wg.Done()
	s.runMu.Lock()
	defer s.runMu.Unlock()
	defer func() { st.done = true }()
	rng := SourceRange{Label: "<actor>"}
	in := s.vm.interp(st.id)
	c := in.activateBlock(rng, block, nil)
	block.Release()
	if c.Kind == ErrorCompletion {
		s.log.Errorf("actor %d failed to start: %s", st.id, c.Message)
		return
	}
	st.root = c.Value
	for {
		for len(st.queue) == 0 && !s.closing {
			st.ready.Wait()
		}
		if len(st.queue) == 0 {
			return
		}
		m := st.queue[0]
		st.queue = st.queue[1:]
		target := m.target
		if av, ok := ActorAt(target); ok && av.ID() == st.id {
			// A send addressed to the actor itself lands on its root.
			target = st.root
		}
		t := s.vm.Heap.Track(target)
		c := in.send(rng, t, m.selector, nil)
		t.Release()
		if c.Kind == ErrorCompletion {
			s.log.Errorf("actor %d: %q failed: %s", st.id, m.selector, c.Message)
		}
	}
}

// Enqueue appends an asynchronous unary send for actor id. Called with
// runMu held. Reports whether the actor exists and is still running.
func (s *ActorSystem) Enqueue(id ActorID, target Value, selector string) bool {
	st, ok := s.actors[id]
	if !ok || st.done {
		return false
	}
	st.queue = append(st.queue, message{target: target, selector: selector})
	st.ready.Signal()
	return true
}

// Yield briefly releases the run lock so other actors can make progress.
func (s *ActorSystem) Yield() {
	s.runMu.Unlock()
	runtime.Gosched()
	s.runMu.Lock()
}

// Drain closes every mailbox, waits for the spawned actors to deliver their
// remaining mail and exit, then reopens the system. Called from the genesis
// actor with runMu held.
func (s *ActorSystem) Drain() {
	s.closing = true
	for _, st := range s.actors {
		st.ready.Broadcast()
	}
	s.runMu.Unlock()
	s.wg.Wait()
	s.runMu.Lock()
	s.closing = false
	for id, st := range s.actors {
		if id != 0 && st.done {
			delete(s.actors, id)
		}
	}
}

// shutdown drains and joins every actor for good. Called without runMu.
func (s *ActorSystem) shutdown() {
	s.runMu.Lock()
	s.closing = true
	for _, st := range s.actors {
		st.ready.Broadcast()
	}
	s.runMu.Unlock()
	s.wg.Wait()
}
