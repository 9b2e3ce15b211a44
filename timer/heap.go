// Package timer implements the idle-connection timeout heap: an indexed
// binary min-heap of per-fd deadlines with a side map from fd to heap
// index, so a timeout can be adjusted or removed in O(log n) without a
// linear scan. Modeled on a heap of pending operations kept sorted by
// deadline and drained via container/heap each time its *time.Timer
// fires.
package timer

import "container/heap"

// node is one pending timeout. fd doubles as its identity: the core
// never arms two simultaneous timeouts for the same connection.
type node struct {
	fd     int
	expiry int64 // UnixNano
	cb     func()
	index  int // position in the heap slice; -1 once removed
}

type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool { return h[i].expiry < h[j].expiry }

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*node)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	last := len(old) - 1
	n := old[last]
	old[last] = nil
	n.index = -1
	*h = old[:last]
	return n
}

// nowFn is overridable in tests that need deterministic expiry ordering.
var nowFn = defaultNow

// Heap is an indexed min-heap of timeout nodes keyed by expiry, with a
// fd -> index side map kept consistent across every heap mutation.
// Heap is not safe for concurrent use; the core's concurrency model
// restricts all access to the reactor goroutine.
type Heap struct {
	h    nodeHeap
	byFd map[int]*node
}

// New returns an empty timer heap.
func New() *Heap {
	return &Heap{byFd: make(map[int]*node)}
}

// Add arms (or re-arms) a timeout for fd, expiring timeoutMS from now.
// If fd already has a pending timeout, it is relocated rather than
// duplicated — the core invariant is one heap entry per fd.
func (t *Heap) Add(fd int, timeoutMS int, cb func()) {
	if n, ok := t.byFd[fd]; ok {
		n.expiry = nowFn() + int64(timeoutMS)*int64(1e6)
		n.cb = cb
		heap.Fix(&t.h, n.index)
		return
	}
	n := &node{fd: fd, expiry: nowFn() + int64(timeoutMS)*int64(1e6), cb: cb}
	heap.Push(&t.h, n)
	t.byFd[fd] = n
}

// Adjust extends fd's deadline to now+timeoutMS. It is a no-op if fd has
// no pending timeout. heap.Fix re-sifts in both directions because,
// while in practice adjustments only extend a deadline, an
// implementation must not assume that to stay correct.
func (t *Heap) Adjust(fd int, timeoutMS int) {
	n, ok := t.byFd[fd]
	if !ok {
		return
	}
	n.expiry = nowFn() + int64(timeoutMS)*int64(1e6)
	heap.Fix(&t.h, n.index)
}

// Remove cancels fd's pending timeout without invoking its callback.
// It is a no-op if fd has no pending timeout.
func (t *Heap) Remove(fd int) {
	n, ok := t.byFd[fd]
	if !ok {
		return
	}
	heap.Remove(&t.h, n.index)
	delete(t.byFd, fd)
}

// Tick invokes and removes every node whose deadline has passed.
func (t *Heap) Tick() {
	now := nowFn()
	for t.h.Len() > 0 {
		n := t.h[0]
		if n.expiry > now {
			break
		}
		heap.Pop(&t.h)
		delete(t.byFd, n.fd)
		if n.cb != nil {
			n.cb()
		}
	}
}

// NextTickMS ticks the heap first, then reports the root's remaining
// lifetime in milliseconds, or -1 if the heap is empty (meaning "wait
// indefinitely" to the poller).
func (t *Heap) NextTickMS() int {
	t.Tick()
	if t.h.Len() == 0 {
		return -1
	}
	remaining := (t.h[0].expiry - nowFn()) / int64(1e6)
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining)
}

// Len reports how many timeouts are currently pending, for tests and
// diagnostics.
func (t *Heap) Len() int { return t.h.Len() }
