package scheduler

import (
	"testing"
	"time"
)

func TestHeapPushPopOrdering(t *testing.T) {
	h := &wakeupHeap{}
	base := time.Now()

	heapPush(h, wakeup{at: base.Add(3 * time.Hour), seq: 1, owner: 3})
	heapPush(h, wakeup{at: base.Add(1 * time.Hour), seq: 2, owner: 1})
	heapPush(h, wakeup{at: base.Add(2 * time.Hour), seq: 3, owner: 2})

	// Pop should return in ascending deadline order (min-heap)
	for i, want := range []ID{1, 2, 3} {
		got := heapPop(h)
		if got.owner != want {
			t.Errorf("pop %d: expected owner %d, got %d", i, want, got.owner)
		}
	}
}

func TestHeapEmpty(t *testing.T) {
	h := &wakeupHeap{}
	if h.Len() != 0 {
		t.Errorf("expected empty heap, got len %d", h.Len())
	}
}

func TestHeapEqualDeadlinesKeepRegistrationOrder(t *testing.T) {
	h := &wakeupHeap{}
	same := time.Now().Add(time.Hour)

	for seq := uint64(1); seq <= 5; seq++ {
		heapPush(h, wakeup{at: same, seq: 6 - seq})
	}

	var last uint64
	for h.Len() > 0 {
		w := heapPop(h)
		if w.seq < last {
			t.Fatalf("seq %d popped after %d", w.seq, last)
		}
		last = w.seq
	}
}

func TestHeapRemoveByOwner(t *testing.T) {
	h := &wakeupHeap{}
	base := time.Now()

	heapPush(h, wakeup{at: base.Add(1 * time.Hour), seq: 1, owner: 1})
	heapPush(h, wakeup{at: base.Add(2 * time.Hour), seq: 2, owner: 7})
	heapPush(h, wakeup{at: base.Add(3 * time.Hour), seq: 3, owner: 2})
	heapPush(h, wakeup{at: base.Add(4 * time.Hour), seq: 4, owner: 7})

	removed := heapRemoveByOwner(h, 7)
	if removed != 2 {
		t.Errorf("expected 2 removals, got %d", removed)
	}
	if h.Len() != 2 {
		t.Fatalf("expected 2 items after removal, got %d", h.Len())
	}

	first := heapPop(h)
	if first.owner != 1 {
		t.Errorf("expected owner 1, got %d", first.owner)
	}
	second := heapPop(h)
	if second.owner != 2 {
		t.Errorf("expected owner 2, got %d", second.owner)
	}
}

func TestHeapRemoveByOwnerNotFound(t *testing.T) {
	h := &wakeupHeap{}
	heapPush(h, wakeup{at: time.Now(), seq: 1, owner: 1})

	if removed := heapRemoveByOwner(h, 99); removed != 0 {
		t.Errorf("expected no removal, got %d", removed)
	}
	if h.Len() != 1 {
		t.Errorf("expected 1 item to remain, got %d", h.Len())
	}
}

func TestHeapRemoveByOwnerKeepsHeapValid(t *testing.T) {
	h := &wakeupHeap{}
	base := time.Now()
	// Interleave two owners so removal leaves holes all over the array.
	for i := 0; i < 20; i++ {
		owner := ID(1 + i%2)
		heapPush(h, wakeup{at: base.Add(time.Duration(20-i) * time.Minute), seq: uint64(i), owner: owner})
	}

	heapRemoveByOwner(h, 2)

	var prev time.Time
	n := 0
	for h.Len() > 0 {
		w := heapPop(h)
		if w.owner != 1 {
			t.Fatalf("owner 2 wakeup survived removal")
		}
		if w.at.Before(prev) {
			t.Fatalf("heap order broken after removal")
		}
		prev = w.at
		n++
	}
	if n != 10 {
		t.Errorf("expected 10 remaining wakeups, got %d", n)
	}
}
