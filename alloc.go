package chaintable

// nodeAllocator hands out chain nodes for a single table.
//
// It enforces the optional node limit and keeps an optional free list of
// reclaimed nodes. Not safe for concurrent use; parallel compaction
// gathers released nodes per worker and returns them afterwards.
type nodeAllocator[V any] struct {
	free      *node[V] // free list linked through next
	freeLen   int
	live      int
	limit     int // 0 = unlimited
	cacheSize int

	totalAllocs  uint64
	totalReuses  uint64
	totalRelease uint64
}

func newNodeAllocator[V any](limit, cacheSize int) nodeAllocator[V] {
	return nodeAllocator[V]{limit: limit, cacheSize: cacheSize}
}

// alloc returns a zeroed node or ErrOutOfMemory when the limit is reached.
func (a *nodeAllocator[V]) alloc() (*node[V], error) {
	if a.limit > 0 && a.live >= a.limit {
		return nil, ErrOutOfMemory
	}
	a.live++
	if n := a.free; n != nil {
		a.free = n.next
		a.freeLen--
		n.next = nil
		a.totalReuses++
		return n, nil
	}
	a.totalAllocs++
	return &node[V]{}, nil
}

// release clears n and either caches it or drops it for the GC.
// n must already be unlinked from its chain.
func (a *nodeAllocator[V]) release(n *node[V]) {
	n.clear()
	n.next = nil
	a.live--
	a.totalRelease++
	if a.freeLen < a.cacheSize {
		n.next = a.free
		a.free = n
		a.freeLen++
	}
}

// releaseList releases a list of nodes linked through next.
func (a *nodeAllocator[V]) releaseList(head *node[V]) {
	for n := head; n != nil; {
		next := n.next
		a.release(n)
		n = next
	}
}

// reset drops every cached node and zeroes the live count.
func (a *nodeAllocator[V]) reset() {
	a.free = nil
	a.freeLen = 0
	a.live = 0
}
