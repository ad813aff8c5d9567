package internal

import "testing"

// buildMap constructs a map on h whose slot names live alongside it, mapped
// by the test heap's root map.
func buildMap(t *testing.T, h *Heap, mapRoot *Tracked, b *MapBuilder) MapObject {
	t.Helper()
	tok, err := h.Reserve(OldGeneration, b.SizeBytes())
	if err != nil {
		t.Fatalf("could not reserve map: %v", err)
	}
	m := b.Build(tok, 0, mapRoot.Get(), mapRoot.Get())
	tok.Deactivate()
	return m
}

func TestMapBuilderLayout(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{})
	var b MapBuilder
	b.Add("x", DataMutable)
	b.Add("p", ParentConstant)
	b.Add("k", DataConstant)
	m := buildMap(t, h, mapRoot, &b)
	if m.SlotCount() != 3 || m.ParentCount() != 1 || m.InlineCount() != 3 {
		t.Fatalf("counts = %d slots, %d parents, %d inline", m.SlotCount(), m.ParentCount(), m.InlineCount())
	}
	wantKinds := []SlotKind{DataMutable, ParentConstant, DataConstant}
	for i, kind := range wantKinds {
		d := m.Descriptor(i)
		if d.Kind != kind || d.Index != i {
			t.Errorf("descriptor %d: kind %s index %d", i, d.Kind, d.Index)
		}
	}
}

func TestMapFindSlot(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{})
	var b MapBuilder
	b.Add("x", DataMutable)
	b.Add("at:Put:", DataConstant)
	m := buildMap(t, h, mapRoot, &b)
	d, ok := m.FindSlot(HashName("at:Put:"), "at:Put:")
	if !ok || d.Index != 1 || d.Kind != DataConstant {
		t.Errorf("FindSlot(at:Put:) = %+v, %v", d, ok)
	}
	if _, ok := m.FindSlot(HashName("y"), "y"); ok {
		t.Error("FindSlot found an undeclared slot")
	}
	// A matching hash with mismatched name bytes must not match.
	if _, ok := m.FindSlot(HashName("x"), "q"); ok {
		t.Error("FindSlot matched on hash alone")
	}
}

func TestMapAddFromExtends(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{})
	var b MapBuilder
	b.Add("x", DataMutable)
	b.Add("p", ParentMutable)
	base := buildMap(t, h, mapRoot, &b)
	var b2 MapBuilder
	b2.AddFrom(base)
	b2.Add("y", DataMutable)
	ext := buildMap(t, h, mapRoot, &b2)
	if ext.SlotCount() != 3 || ext.InlineCount() != 3 {
		t.Fatalf("extended map counts = %d slots, %d inline", ext.SlotCount(), ext.InlineCount())
	}
	if base.Address() == ext.Address() {
		t.Error("shape transition reused the base map")
	}
	d, ok := ext.FindSlot(HashName("y"), "y")
	if !ok || d.Index != 2 {
		t.Errorf("added slot lands at index %d", d.Index)
	}
	if d, ok := ext.FindSlot(HashName("p"), "p"); !ok || d.Kind != ParentMutable || d.Index != 1 {
		t.Errorf("copied parent slot = %+v, %v", d, ok)
	}
}

func TestMapParentOrder(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{})
	var b MapBuilder
	b.Add("a", ParentConstant)
	b.Add("x", DataMutable)
	b.Add("b", ParentMutable)
	m := buildMap(t, h, mapRoot, &b)
	var order []string
	m.ForEachParent(func(d SlotDescriptor) bool {
		ba, _ := ByteArrayAt(d.Name)
		order = append(order, ba.String())
		return true
	})
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("parent order = %v", order)
	}
	var first []string
	m.ForEachParent(func(d SlotDescriptor) bool {
		ba, _ := ByteArrayAt(d.Name)
		first = append(first, ba.String())
		return false
	})
	if len(first) != 1 {
		t.Errorf("early stop visited %v", first)
	}
}

func TestSlotsObjectStorage(t *testing.T) {
	h, mapRoot := newTestHeap(t, Config{})
	var b MapBuilder
	b.Add("x", DataMutable)
	b.Add("y", DataMutable)
	m := buildMap(t, h, mapRoot, &b)
	tok, err := h.Reserve(NewGeneration, SlotsSizeBytes(m.InlineCount()))
	if err != nil {
		t.Fatalf("could not reserve slots object: %v", err)
	}
	a := NewSlotsObject(tok, 0, m, IntegerValue(0))
	tok.Deactivate()
	o, ok := SlotsAt(ReferenceValue(a))
	if !ok {
		t.Fatal("slots object does not resolve")
	}
	o.SetSlotValue(1, IntegerValue(7))
	if got := o.SlotValue(1); got.Integer() != 7 {
		t.Errorf("slot 1 = %s", got)
	}
	if got := o.SlotValue(0); got.Integer() != 0 {
		t.Errorf("slot 0 = %s, want fill value", got)
	}
	defer func() {
		if recover() == nil {
			t.Error("out-of-range slot access did not panic")
		}
	}()
	o.SlotValue(5)
}
