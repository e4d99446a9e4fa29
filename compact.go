package chaintable

import (
	"context"
	"runtime"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// minBucketsPerWorker defines the minimum number of buckets handed to one
// compaction worker. Smaller tables are compacted on the calling goroutine.
const minBucketsPerWorker = 256

// Compact reclaims the memory held by tombstones and returns the number
// of chain nodes freed.
//
// Each bucket is processed in two phases, in this order:
//  1. If the embedded entry is tombstoned, the first live chain node is
//     moved into it and the node is tombstoned in its place. Without a
//     live node the embedded entry just becomes empty.
//  2. Every chain node that is not live is unlinked and freed. Live nodes
//     keep their relative order.
//
// Compact never allocates, never moves entries between buckets and never
// changes what Get returns for any key. It is a no-op on an empty, nil or
// destroyed table.
func (t *Table[V]) Compact() int {
	if !t.valid() {
		return 0
	}
	reclaimed := 0
	for i := range t.buckets {
		reclaimed += compactBucket(&t.buckets[i], t.nodes.release)
	}
	return reclaimed
}

// CompactContext is Compact split across up to workers goroutines, each
// owning a contiguous range of buckets. workers <= 0 uses GOMAXPROCS.
//
// Cancellation is checked between buckets; a bucket is always compacted
// entirely or not at all, so a cancelled pass leaves a consistent table
// that a later Compact can finish. The call returns once every worker has
// stopped, with the number of nodes freed and ctx.Err() if cancelled.
func (t *Table[V]) CompactContext(ctx context.Context, workers int) (int, error) {
	if !t.valid() {
		return 0, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	tableLen := len(t.buckets)
	chunkSize, chunks := calcParallelism(tableLen, minBucketsPerWorker, workers)
	if chunks > 1 {
		chunkSize = alignToCacheLine[V](chunkSize)
		chunks = (tableLen + chunkSize - 1) / chunkSize
	}

	if chunks <= 1 {
		reclaimed := 0
		for i := range t.buckets {
			if err := ctx.Err(); err != nil {
				return reclaimed, err
			}
			reclaimed += compactBucket(&t.buckets[i], t.nodes.release)
		}
		return reclaimed, nil
	}

	// Workers must not touch the allocator; freed nodes are kept on
	// per-worker lists and released after Wait.
	type chunkResult struct {
		reclaimed int
		freed     *node[V]
	}
	results := make([]chunkResult, chunks)
	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < chunks; c++ {
		g.Go(func() error {
			r := &results[c]
			collect := func(n *node[V]) {
				n.next = r.freed
				r.freed = n
			}
			start := c * chunkSize
			end := min(start+chunkSize, tableLen)
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				r.reclaimed += compactBucket(&t.buckets[i], collect)
			}
			return nil
		})
	}
	err := g.Wait()

	reclaimed := 0
	for i := range results {
		reclaimed += results[i].reclaimed
		t.nodes.releaseList(results[i].freed)
	}
	return reclaimed, err
}

// compactBucket runs both compaction phases on one bucket and hands every
// unlinked node to reclaim. It returns the number of nodes unlinked.
func compactBucket[V any](s *slot[V], reclaim func(*node[V])) int {
	// Phase 1 must capture a live successor before anything is unlinked.
	if s.tombstoned {
		s.tombstoned = false
		for n := s.next; n != nil; n = n.next {
			if n.live() {
				s.key, s.value = n.key, n.value
				n.bury()
				break
			}
		}
	}

	reclaimed := 0
	link := &s.next
	for n := *link; n != nil; n = *link {
		if n.live() {
			link = &n.next
			continue
		}
		*link = n.next
		reclaim(n)
		reclaimed++
	}
	return reclaimed
}

// calcParallelism calculates the number of goroutines for parallel processing.
//
// Parameters:
//   - items: Number of items to process.
//   - threshold: Minimum threshold to enable parallel processing.
//   - number of available CPU cores
//
// Returns:
//   - chunkSize: Number of items processed per goroutine
//   - chunks: Suggested degree of parallelism (number of goroutines).
func calcParallelism(items, threshold, cpus int) (chunkSize, chunks int) {
	if items <= threshold {
		return items, 1
	}
	chunks = max(min(items/threshold, cpus), 1)
	chunkSize = (items + chunks - 1) / chunks
	return chunkSize, chunks
}

// alignToCacheLine rounds a bucket count up to whole cache lines of slots.
func alignToCacheLine[V any](buckets int) int {
	slotsPerLine := max(int(CacheLineSize/sizeofSlot[V]()), 1)
	return (buckets + slotsPerLine - 1) / slotsPerLine * slotsPerLine
}

func sizeofSlot[V any]() uintptr {
	return unsafe.Sizeof(slot[V]{})
}
