package scheduler

import (
	"container/heap"
	"time"
)

// wakeup is a pending resumption registered through Delay or by an
// interval waiting for its next tick.
type wakeup struct {
	at    time.Time
	seq   uint64
	owner ID // interval id, 0 for plain delays
	fn    func()
}

// wakeupHeap implements container/heap.Interface for wakeup,
// sorted by at (earliest first, min-heap), ties broken by registration order.
type wakeupHeap []wakeup

func (h wakeupHeap) Len() int { return len(h) }
func (h wakeupHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h wakeupHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *wakeupHeap) Push(x any) {
	*h = append(*h, x.(wakeup))
}

func (h *wakeupHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = wakeup{}
	*h = old[:n-1]
	return x
}

// heapPush adds a wakeup to the heap, maintaining heap invariant.
func heapPush(h *wakeupHeap, w wakeup) {
	heap.Push(h, w)
}

// heapPop removes and returns the wakeup with the earliest deadline.
// Panics if the heap is empty.
func heapPop(h *wakeupHeap) wakeup {
	return heap.Pop(h).(wakeup)
}

// heapRemoveByOwner removes every wakeup registered by owner.
// Returns the number of wakeups removed.
func heapRemoveByOwner(h *wakeupHeap, owner ID) int {
	old := *h
	kept := old[:0]
	for _, w := range old {
		if w.owner != owner {
			kept = append(kept, w)
		}
	}
	removed := len(old) - len(kept)
	if removed == 0 {
		return 0
	}
	for i := len(kept); i < len(old); i++ {
		old[i] = wakeup{}
	}
	*h = kept
	heap.Init(h)
	return removed
}
