package internal

import (
	"bytes"
	"errors"
	"testing"
)

// newTestHeap builds a heap with a self-mapped empty map in the old
// generation, tracked so tests can use it as the map for other objects.
func newTestHeap(t *testing.T, cfg Config) (*Heap, *Tracked) {
	t.Helper()
	h := NewHeap(cfg)
	var b MapBuilder
	tok, err := h.Reserve(OldGeneration, b.SizeBytes())
	if err != nil {
		t.Fatalf("could not reserve map: %v", err)
	}
	m := b.Build(tok, 0, Value(0), Value(0))
	tok.Deactivate()
	return h, h.Track(ReferenceValue(m.Address()))
}

func allocByteArray(t *testing.T, h *Heap, mapRoot *Tracked, gen Generation, data []byte) *Tracked {
	t.Helper()
	tok, err := h.Reserve(gen, ByteArraySizeBytes(len(data)))
	if err != nil {
		t.Fatalf("could not reserve byte array: %v", err)
	}
	a := NewByteArray(tok, 0, mapRoot.Get(), data)
	tok.Deactivate()
	return h.Track(ReferenceValue(a))
}

// allocGarbage allocates an untracked byte array that the next collection
// should reclaim.
func allocGarbage(t *testing.T, h *Heap, mapRoot *Tracked, n int) {
	t.Helper()
	tok, err := h.Reserve(NewGeneration, ByteArraySizeBytes(n))
	if err != nil {
		t.Fatalf("could not reserve garbage: %v", err)
	}
	NewByteArrayUninitialized(tok, 0, mapRoot.Get(), n)
	tok.Deactivate()
}

func TestScavengeMovesTrackedSurvivors(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{})
	s := allocByteArray(t, h, mapRoot, NewGeneration, []byte("hello"))
	for i := 0; i < 8; i++ {
		allocGarbage(t, h, mapRoot, 64)
	}
	before := s.Get().Address()
	h.Collect(NewGeneration)
	if got := h.Stats().Scavenges; got != 1 {
		t.Errorf("after one collection Scavenges = %d", got)
	}
	if s.Get().Address() == before {
		t.Error("survivor did not move during scavenge")
	}
	b, ok := ByteArrayAt(s.Get())
	if !ok {
		t.Fatalf("tracked value no longer resolves to a byte array: %s", s.Get())
	}
	if b.String() != "hello" {
		t.Errorf("survivor payload = %q", b.String())
	}
}

func TestForwardingFromOldBody(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{})
	s := allocByteArray(t, h, mapRoot, NewGeneration, []byte("fwd"))
	stale := s.Get().Address()
	h.Collect(NewGeneration)
	if !IsForwarded(stale) {
		t.Fatal("old body is not a forwarder after collection")
	}
	if got := ChaseForward(stale); got != s.Get().Address() {
		t.Errorf("ChaseForward = %#x, tracked address = %#x", uintptr(got), uintptr(s.Get().Address()))
	}
}

func TestPromotionAfterEnoughScavenges(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{PromotionAge: 2})
	s := allocByteArray(t, h, mapRoot, NewGeneration, []byte("tenured"))
	// Ages 0 and 1 survive in the nursery; the third scavenge promotes.
	for i := 0; i < 3; i++ {
		h.Collect(NewGeneration)
	}
	if got := h.Stats().ObjectsPromoted; got == 0 {
		t.Fatal("no objects promoted after three scavenges")
	}
	old := h.gens[OldGeneration]
	if !old.from.contains(s.Get().Address(), old.cursor) {
		t.Error("survivor is not in the old generation after promotion")
	}
	b, ok := ByteArrayAt(s.Get())
	if !ok || b.String() != "tenured" {
		t.Errorf("promoted payload damaged: %s", s.Get())
	}
}

func TestFullCollectionMovesOldObjects(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{})
	before := mapRoot.Get().Address()
	h.Collect(OldGeneration)
	if got := h.Stats().FullCollections; got != 1 {
		t.Errorf("FullCollections = %d", got)
	}
	if mapRoot.Get().Address() == before {
		t.Error("old-generation map did not move during a full collection")
	}
	m := MapAt(mapRoot.Get())
	if m.SlotCount() != 0 {
		t.Errorf("map slot count = %d after full collection", m.SlotCount())
	}
}

func TestFinalizerRunsForDeadManaged(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{})
	var finalized []int64
	h.SetFinalizeFunc(func(a Address) {
		finalized = append(finalized, managedHandleAt(a))
	})
	live := func() *Tracked {
		tok, err := h.Reserve(NewGeneration, 2*ManagedSizeBytes())
		if err != nil {
			t.Fatalf("could not reserve managed pair: %v", err)
		}
		a := NewManaged(tok, h, 0, mapRoot.Get(), 1, 7)
		NewManaged(tok, h, 0, mapRoot.Get(), 2, 7)
		tok.Deactivate()
		return h.Track(ReferenceValue(a))
	}()
	h.Collect(NewGeneration)
	if len(finalized) != 1 || finalized[0] != 2 {
		t.Fatalf("finalized handles = %v, want only the dead one", finalized)
	}
	if got := h.Stats().FinalizersRun; got != 1 {
		t.Errorf("FinalizersRun = %d", got)
	}
	m, ok := ManagedAt(live.Get())
	if !ok || m.Handle() != 1 {
		t.Error("live managed object did not survive intact")
	}
	// The survivor dies once untracked.
	live.Release()
	h.Collect(NewGeneration)
	if len(finalized) != 2 || finalized[1] != 1 {
		t.Errorf("finalized handles after release = %v", finalized)
	}
}

func TestReserveCollectsToMakeRoom(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{EdenBytes: 1 << 12, OldBytes: 1 << 16})
	for h.gens[NewGeneration].free() >= ByteArraySizeBytes(64) {
		allocGarbage(t, h, mapRoot, 64)
	}
	// The survivor's reservation is larger than anything the fill loop can
	// have left free, so the reserve must collect first.
	payload := bytes.Repeat([]byte("room"), 64)
	s := allocByteArray(t, h, mapRoot, NewGeneration, payload)
	if h.Stats().Scavenges+h.Stats().FullCollections == 0 {
		t.Error("reservation beyond free space did not collect")
	}
	if b, ok := ByteArrayAt(s.Get()); !ok || b.String() != string(payload) {
		t.Error("allocation after forced collection is damaged")
	}
}

func TestReserveOutOfMemory(t *testing.T) {
	h := NewHeap(Config{EdenBytes: 1 << 12, OldBytes: 1 << 12})
	_, err := h.Reserve(NewGeneration, 1<<13)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("oversized reservation returned %v", err)
	}
}

func TestReserveBlockedByLiveToken(t *testing.T) {
	h, _ := newTestHeap(t, Config{EdenBytes: 1 << 12, OldBytes: 1 << 16})
	tok, err := h.Reserve(NewGeneration, 1<<11)
	if err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}
	defer tok.Deactivate()
	if _, err := h.Reserve(NewGeneration, 1<<12); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("reservation under a live token returned %v", err)
	}
}

func TestTokenOverspendPanics(t *testing.T) {
	h, _ := newTestHeap(t, Config{})
	tok, err := h.Reserve(NewGeneration, 16)
	if err != nil {
		t.Fatalf("reservation failed: %v", err)
	}
	defer tok.Deactivate()
	defer func() {
		if recover() == nil {
			t.Error("overspending a token did not panic")
		}
	}()
	tok.Allocate(64)
}

func TestCollectUnderLiveTokenPanics(t *testing.T) {
	h, _ := newTestHeap(t, Config{})
	tok, err := h.Reserve(NewGeneration, 16)
	if err != nil {
		t.Fatalf("reservation failed: %v", err)
	}
	defer tok.Deactivate()
	defer func() {
		if recover() == nil {
			t.Error("collection under a live token did not panic")
		}
	}()
	h.Collect(NewGeneration)
}

func TestCollectEscalationUnderOldTokenPanics(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{EdenBytes: 1 << 12, OldBytes: 1 << 12})
	tok, err := h.Reserve(OldGeneration, 3<<10)
	if err != nil {
		t.Fatalf("old-generation reservation failed: %v", err)
	}
	defer tok.Deactivate()
	// Fill the nursery past the old generation's free space, so a
	// new-generation collection has to fall back to a full one.
	for h.gens[NewGeneration].cursor <= h.gens[OldGeneration].free() {
		allocGarbage(t, h, mapRoot, 64)
	}
	defer func() {
		if recover() == nil {
			t.Error("escalated collection under an old-generation token did not panic")
		}
	}()
	h.Collect(NewGeneration)
}

func TestTrackedSetAndRelease(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{})
	s := allocByteArray(t, h, mapRoot, NewGeneration, []byte("a"))
	s.Set(IntegerValue(9))
	if got := s.Get(); got.Integer() != 9 {
		t.Errorf("Set then Get gave %s", got)
	}
	s.Release()
	// Released handles recycle through the free list.
	s2 := h.Track(IntegerValue(10))
	if got := s2.Get(); got.Integer() != 10 {
		t.Errorf("recycled handle gave %s", got)
	}
	s2.Release()
}
