package internal

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

// ErrOutOfMemory is returned by Reserve when a reservation cannot be
// satisfied even after collecting the target generation.
var ErrOutOfMemory = errors.New("gself: heap out of memory")

// Generation selects one of the heap's two generations.
type Generation uint8

const (
	// NewGeneration is the nursery. Objects are born here and are scavenged
	// frequently.
	NewGeneration Generation = 0
	// OldGeneration holds objects that survived enough scavenges to tenure.
	OldGeneration Generation = 1
)

func (g Generation) String() string {
	if g == NewGeneration {
		return "new"
	}
	return "old"
}

// HeapStats is a snapshot of collector counters.
type HeapStats struct {
	Scavenges       uint64
	FullCollections uint64
	BytesCopied     uint64
	ObjectsPromoted uint64
	FinalizersRun   uint64
	Reservations    uint64
}

// space is one half of a generation's semispace pair. The backing slice is
// held for the life of the heap so that Addresses into it stay valid.
type space struct {
	words []uint64
	base  Address
}

func newSpace(bytes uintptr) space {
	w := make([]uint64, bytes/wordBytes)
	return space{words: w, base: Address(uintptrOf(&w[0]))}
}

// contains reports whether a falls within the first used bytes of s.
func (s space) contains(a Address, used uintptr) bool {
	return a >= s.base && a < s.base+Address(used)
}

type generation struct {
	from, to space
	cursor   uintptr // bytes allocated in from
	limit    uintptr // capacity in bytes
	reserved uintptr // bytes promised to live tokens but not yet carved
	tokens   int     // live tokens; collection of this generation is illegal while > 0
}

func (g *generation) free() uintptr {
	return g.limit - g.cursor - g.reserved
}

// Heap is the generational copying allocator. All object memory comes from
// here; all object lifetimes end at the collection that fails to trace them.
//
// A Heap is confined to one actor scheduler at a time; the VM's run lock
// serializes access from actor goroutines.
type Heap struct {
	gens [2]*generation

	// tracked is the registry of root handles. Collection rewrites entries
	// in place, so a Tracked resolves to the same object before and after.
	tracked     []Value
	freeTracked []int

	// visitRoots is the VM's hook for presenting its own roots (traits,
	// lobby, actor activations) to the collector.
	visitRoots func(func(*Value))

	// finalizable records addresses of objects whose variant can finalize.
	// Entries are rewritten on forwarding and retired when the object dies.
	finalizable []Address
	// finalize runs an object's finalizer. Set by the VM; called after
	// collection with the dead object's last (from-space) address. It must
	// not allocate.
	finalize func(Address)

	promotionAge uint8
	stats        HeapStats
	log          commonlog.Logger
}

// NewHeap builds a heap from cfg, substituting defaults for zero fields.
func NewHeap(cfg Config) *Heap {
	cfg = cfg.withDefaults()
	h := &Heap{
		promotionAge: cfg.PromotionAge,
		log:          commonlog.GetLogger("gself.heap"),
	}
	h.gens[NewGeneration] = &generation{
		from:  newSpace(cfg.EdenBytes),
		to:    newSpace(cfg.EdenBytes),
		limit: cfg.EdenBytes,
	}
	h.gens[OldGeneration] = &generation{
		from:  newSpace(cfg.OldBytes),
		to:    newSpace(cfg.OldBytes),
		limit: cfg.OldBytes,
	}
	return h
}

// SetRootVisitor registers the callback through which the VM exposes its
// roots. The callback receives a visit function and must apply it to every
// Value the VM holds outside the heap.
func (h *Heap) SetRootVisitor(f func(func(*Value))) { h.visitRoots = f }

// SetFinalizeFunc registers the callback that runs variant finalizers.
func (h *Heap) SetFinalizeFunc(f func(Address)) { h.finalize = f }

// Stats returns a snapshot of the collector counters.
func (h *Heap) Stats() HeapStats { return h.stats }

// An AllocationToken is a scoped reservation of bytes in one generation.
// While a token is live, no collection runs on its generation, so a sequence
// of Allocate calls within one token never invalidates raw addresses.
// Deactivate must always be called, on success or failure; a leaked token
// inhibits collection forever.
type AllocationToken struct {
	h         *Heap
	gen       Generation
	remaining uintptr
}

// Reserve obtains a token for bytes in gen, collecting gen at most once to
// make room. Fails with ErrOutOfMemory if space still cannot be found.
func (h *Heap) Reserve(gen Generation, bytes uintptr) (*AllocationToken, error) {
	bytes = alignWord(bytes)
	g := h.gens[gen]
	if g.free() < bytes {
		if g.tokens > 0 {
			// A live token pins this generation. The caller reserved too
			// little up front; we cannot collect under it.
			h.log.Warningf("reservation of %d bytes blocked by %d live tokens in %s generation", bytes, g.tokens, gen)
			return nil, ErrOutOfMemory
		}
		h.Collect(gen)
		if g.free() < bytes {
			return nil, ErrOutOfMemory
		}
	}
	g.reserved += bytes
	g.tokens++
	h.stats.Reservations++
	return &AllocationToken{h: h, gen: gen, remaining: bytes}, nil
}

// Allocate carves bytes from the token's budget and returns the address of
// the carved block. Overspending the budget is a programmer error and
// panics.
func (t *AllocationToken) Allocate(bytes uintptr) Address {
	bytes = alignWord(bytes)
	if t.h == nil {
		panic("gself: allocate on deactivated token")
	}
	if bytes > t.remaining {
		panic(fmt.Sprintf("gself: token overspend: %d bytes requested, %d remaining", bytes, t.remaining))
	}
	g := t.h.gens[t.gen]
	t.remaining -= bytes
	g.reserved -= bytes
	a := g.from.base + Address(g.cursor)
	g.cursor += bytes
	return a
}

// Generation returns the generation the token reserves in.
func (t *AllocationToken) Generation() Generation { return t.gen }

// Deactivate releases the token and any unconsumed budget. Idempotent.
func (t *AllocationToken) Deactivate() {
	if t.h == nil {
		return
	}
	g := t.h.gens[t.gen]
	g.reserved -= t.remaining
	g.tokens--
	t.remaining = 0
	t.h = nil
}

// A Tracked handle registers a Value as a collection root. The evaluator
// wraps any Value it holds across a potential allocation, because allocation
// may collect and move the referent.
type Tracked struct {
	h   *Heap
	idx int
}

// Track registers v as a root.
func (h *Heap) Track(v Value) *Tracked {
	if n := len(h.freeTracked); n > 0 {
		idx := h.freeTracked[n-1]
		h.freeTracked = h.freeTracked[:n-1]
		h.tracked[idx] = v
		return &Tracked{h: h, idx: idx}
	}
	h.tracked = append(h.tracked, v)
	return &Tracked{h: h, idx: len(h.tracked) - 1}
}

// Get resolves the handle. After a collection this yields the moved object.
func (t *Tracked) Get() Value { return t.h.tracked[t.idx] }

// Set replaces the tracked Value.
func (t *Tracked) Set(v Value) { t.h.tracked[t.idx] = v }

// Release unregisters the root. The handle must not be used afterwards.
func (t *Tracked) Release() {
	t.h.tracked[t.idx] = IntegerValue(0)
	t.h.freeTracked = append(t.h.freeTracked, t.idx)
	t.h = nil
}

// RegisterFinalizable records that the object at a wants its finalizer run
// when it dies. Only the Managed variant registers today.
func (h *Heap) RegisterFinalizable(a Address) {
	h.finalizable = append(h.finalizable, a)
}

// Collect runs a forced collection of gen. Collecting the old generation
// collects both, as does a new-generation request when the old generation
// cannot absorb every possible survivor. Panics if a live token pins any
// generation the collection would move.
func (h *Heap) Collect(gen Generation) {
	young := h.gens[NewGeneration]
	old := h.gens[OldGeneration]
	if young.tokens > 0 {
		panic("gself: collection requested while allocation token is live")
	}
	if gen == NewGeneration && old.free() >= young.cursor {
		h.scavenge()
		return
	}
	if old.tokens > 0 {
		panic("gself: collection requested while allocation token is live")
	}
	h.collectFull()
}

// gcState carries the per-collection bookkeeping of the copy phase.
type gcState struct {
	h    *Heap
	full bool
	// Condemned extents of the from-spaces at the start of collection.
	youngFrom space
	youngUsed uintptr
	oldFrom   space
	oldUsed   uintptr
	// Destination spaces and cursors, in bytes from the destination base.
	youngDst *space
	youngCur uintptr
	oldDst   *space
	oldCur   uintptr
	// oldScanStart is where newly copied objects begin in the old
	// destination. For scavenges the destination is the old generation's
	// live space, which already holds objects that must not be rescanned
	// as copies (they are scanned as roots instead).
	oldScanStart uintptr
}

// scavenge collects only the new generation, promoting survivors of age >=
// promotionAge into the old generation's live space.
func (h *Heap) scavenge() {
	young := h.gens[NewGeneration]
	old := h.gens[OldGeneration]
	h.log.Debugf("scavenge: %d bytes live in new generation", young.cursor)
	st := gcState{
		h:            h,
		youngFrom:    young.from,
		youngUsed:    young.cursor,
		youngDst:     &young.to,
		oldDst:       &old.from,
		oldCur:       old.cursor,
		oldScanStart: old.cursor,
	}
	h.copyPhase(&st)
	old.cursor = st.oldCur
	young.from, young.to = young.to, young.from
	young.cursor = st.youngCur
	h.stats.Scavenges++
}

// collectFull collects both generations into their to-spaces.
func (h *Heap) collectFull() {
	young := h.gens[NewGeneration]
	old := h.gens[OldGeneration]
	h.log.Debugf("full collection: %d new + %d old bytes live", young.cursor, old.cursor)
	st := gcState{
		h:         h,
		full:      true,
		youngFrom: young.from,
		youngUsed: young.cursor,
		oldFrom:   old.from,
		oldUsed:   old.cursor,
		youngDst:  &young.to,
		oldDst:    &old.to,
	}
	h.copyPhase(&st)
	young.from, young.to = young.to, young.from
	young.cursor = st.youngCur
	old.from, old.to = old.to, old.from
	old.cursor = st.oldCur
	h.stats.FullCollections++
}

// copyPhase copies everything reachable from the roots, Cheney-scans the
// copies, then sweeps the finalizable registry.
func (h *Heap) copyPhase(st *gcState) {
	visit := func(p *Value) { *p = st.forward(*p) }
	for i := range h.tracked {
		visit(&h.tracked[i])
	}
	if h.visitRoots != nil {
		h.visitRoots(visit)
	}
	if !st.full {
		// Without a write barrier there is no remembered set, so the whole
		// live old space doubles as a root set for the nursery.
		st.scanRange(h.gens[OldGeneration].from.base, st.oldScanStart)
	}
	// Cheney scan: the destination regions are the work queues. Promotion
	// during a scan can grow the old queue, so loop until both settle.
	youngScan, oldScan := uintptr(0), st.oldScanStart
	for youngScan < st.youngCur || oldScan < st.oldCur {
		youngScan = st.scanRangeFrom(st.youngDst.base, youngScan, func() uintptr { return st.youngCur })
		oldScan = st.scanRangeFrom(st.oldDst.base, oldScan, func() uintptr { return st.oldCur })
	}
	h.sweepFinalizable(st)
}

// forward returns the post-collection Value for v, copying the referent if
// it lives in a condemned space and has not moved yet.
func (st *gcState) forward(v Value) Value {
	if !v.IsReference() {
		return v
	}
	a := v.Address()
	inYoung := st.youngFrom.contains(a, st.youngUsed)
	condemned := inYoung
	if !condemned && st.full {
		condemned = st.oldFrom.contains(a, st.oldUsed)
	}
	if !condemned {
		return v
	}
	if IsForwarded(a) {
		return ReferenceValue(ForwardAddress(a))
	}
	info := infoAt(a)
	size := objectSizeBytes(a)
	var dst Address
	switch {
	case inYoung && info.Extra() < st.h.promotionAge:
		dst = st.youngDst.base + Address(st.youngCur)
		st.youngCur += size
	case inYoung:
		dst = st.oldDst.base + Address(st.oldCur)
		st.oldCur += size
		st.h.stats.ObjectsPromoted++
	default:
		dst = st.oldDst.base + Address(st.oldCur)
		st.oldCur += size
	}
	copyWords(dst, a, size)
	if inYoung && info.Extra() < 0xff {
		// Survivor age lives in the header scratch byte.
		dst.Store(infoWord, Value(info.WithExtra(info.Extra()+1)))
	}
	forwardObjectTo(a, dst)
	st.h.stats.BytesCopied += uint64(size)
	return ReferenceValue(dst)
}

// scanRange fixes every edge of every object in [base, base+limit).
func (st *gcState) scanRange(base Address, limit uintptr) {
	st.scanRangeFrom(base, 0, func() uintptr { return limit })
}

// scanRangeFrom scans objects beginning at byte offset start, rereading the
// limit after each object so that copies appended during the scan are
// included. Returns the offset at which scanning stopped.
func (st *gcState) scanRangeFrom(base Address, start uintptr, limit func() uintptr) uintptr {
	for start < limit() {
		a := base + Address(start)
		info := infoAt(a)
		if !info.HasMarker() {
			panic(fmt.Sprintf("gself: scan found non-header word %#x at %#x", uint64(a.Load(infoWord)), uintptr(a)))
		}
		forEachEdge(a, func(p *Value) { *p = st.forward(*p) })
		start += objectSizeBytes(a)
	}
	return start
}

// sweepFinalizable retires or rewrites finalizable registrations after the
// copy phase. Dead objects get their finalizers run from their intact
// from-space bodies; finalizers must not allocate.
func (h *Heap) sweepFinalizable(st *gcState) {
	live := h.finalizable[:0]
	for _, a := range h.finalizable {
		inYoung := st.youngFrom.contains(a, st.youngUsed)
		inOld := st.full && st.oldFrom.contains(a, st.oldUsed)
		if !inYoung && !inOld {
			live = append(live, a)
			continue
		}
		if IsForwarded(a) {
			live = append(live, ForwardAddress(a))
			continue
		}
		if h.finalize != nil {
			h.finalize(a)
		}
		h.stats.FinalizersRun++
	}
	h.finalizable = live
}

func alignWord(n uintptr) uintptr {
	return (n + wordBytes - 1) &^ uintptr(wordBytes-1)
}

func copyWords(dst, src Address, bytes uintptr) {
	for i := 0; i < int(bytes/wordBytes); i++ {
		*dst.word(i) = *src.word(i)
	}
}
