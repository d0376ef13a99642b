package webgpu

import "testing"

func TestArenaInsertGet(t *testing.T) {
	var a arena[string]
	h1 := a.insert("a")
	h2 := a.insert("b")

	if h1 == h2 {
		t.Fatal("distinct inserts must yield distinct handles")
	}
	if h1.IsZero() || h2.IsZero() {
		t.Fatal("issued handles must not be zero")
	}
	if v, ok := a.get(h2); !ok || v != "b" {
		t.Errorf("get(h2) = %q, %v", v, ok)
	}
	if a.len() != 2 {
		t.Errorf("len() = %d, want 2", a.len())
	}
}

func TestArenaStaleHandle(t *testing.T) {
	var a arena[int]
	h := a.insert(1)
	if _, ok := a.remove(h); !ok {
		t.Fatal("remove of live handle failed")
	}
	if _, ok := a.get(h); ok {
		t.Error("freed handle must not resolve")
	}
	if _, ok := a.remove(h); ok {
		t.Error("double remove must fail")
	}

	reused := a.insert(2)
	if reused.index != h.index {
		t.Fatalf("slot not reused: %v vs %v", reused, h)
	}
	if reused.generation == h.generation {
		t.Fatal("reused slot must bump generation")
	}
	if _, ok := a.get(h); ok {
		t.Error("stale handle resolved to the newer value")
	}
	if v, _ := a.get(reused); v != 2 {
		t.Errorf("get(reused) = %d, want 2", v)
	}
}

func TestArenaZeroAndForeignHandles(t *testing.T) {
	var a arena[int]
	if _, ok := a.get(Handle{}); ok {
		t.Error("zero handle must not resolve")
	}
	a.insert(7)
	if _, ok := a.get(Handle{index: 5, generation: 1}); ok {
		t.Error("out of range handle must not resolve")
	}
}

func TestArenaDrain(t *testing.T) {
	var a arena[int]
	for i := 0; i < 4; i++ {
		a.insert(i)
	}
	h := a.insert(99)
	a.remove(h)

	got := a.drain()
	if len(got) != 4 {
		t.Errorf("drain() returned %d values, want 4", len(got))
	}
	if a.len() != 0 {
		t.Errorf("len() after drain = %d", a.len())
	}
}
