package chaintable

import (
	"fmt"
	"math"
	"strings"
)

// Stats returns statistics for the Table. It's an O(N) operation,
// so it should be used only for diagnostics or debugging purposes.
func (t *Table[V]) Stats() *TableStats {
	stats := &TableStats{
		MinEntries: math.MaxInt,
	}
	if !t.valid() {
		stats.MinEntries = 0
		return stats
	}
	stats.Buckets = len(t.buckets)
	stats.Counter = t.size
	stats.LiveNodes = t.nodes.live
	stats.CachedNodes = t.nodes.freeLen
	stats.NodeLimit = t.nodes.limit
	stats.TotalAllocs = t.nodes.totalAllocs
	stats.TotalReuses = t.nodes.totalReuses
	stats.TotalReleases = t.nodes.totalRelease

	for i := range t.buckets {
		s := &t.buckets[i]
		nentries := 0
		if s.live() {
			nentries++
		} else if s.tombstoned {
			stats.Tombstones++
		}
		chain := 0
		for n := s.next; n != nil; n = n.next {
			chain++
			if n.live() {
				nentries++
			} else if n.tombstoned {
				stats.Tombstones++
			}
		}
		stats.Size += nentries
		stats.ChainNodes += chain
		if nentries == 0 {
			stats.EmptyBuckets++
		}
		if nentries < stats.MinEntries {
			stats.MinEntries = nentries
		}
		if nentries > stats.MaxEntries {
			stats.MaxEntries = nentries
		}
		if chain > stats.LongestChain {
			stats.LongestChain = chain
		}
	}
	return stats
}

// TableStats is Table statistics.
//
// Warning: table statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type TableStats struct {
	// Buckets is the fixed number of buckets.
	Buckets int
	// EmptyBuckets is the number of buckets without live entries.
	EmptyBuckets int
	// Size is the exact number of live entries found by walking every
	// bucket.
	Size int
	// Counter is the number of live entries according to the table's
	// counter. It always equals Size.
	Counter int
	// Tombstones is the number of deleted entries not yet reclaimed by
	// Compact.
	Tombstones int
	// ChainNodes is the number of overflow nodes linked into buckets,
	// live or tombstoned.
	ChainNodes int
	// LongestChain is the largest number of overflow nodes in one bucket.
	LongestChain int
	// MinEntries is the minimum number of live entries in a bucket.
	MinEntries int
	// MaxEntries is the maximum number of live entries in a bucket.
	MaxEntries int
	// LiveNodes is the number of nodes handed out by the allocator.
	LiveNodes int
	// CachedNodes is the number of reclaimed nodes kept for reuse.
	CachedNodes int
	// NodeLimit is the configured node limit, 0 if unlimited.
	NodeLimit int
	// TotalAllocs is the number of nodes allocated from the heap.
	TotalAllocs uint64
	// TotalReuses is the number of nodes served from the free list.
	TotalReuses uint64
	// TotalReleases is the number of nodes reclaimed by Compact.
	TotalReleases uint64
}

// ToString returns string representation of table stats.
func (s *TableStats) ToString() string {
	var sb strings.Builder
	sb.WriteString("TableStats{\n")
	sb.WriteString(fmt.Sprintf("Buckets:       %d\n", s.Buckets))
	sb.WriteString(fmt.Sprintf("EmptyBuckets:  %d\n", s.EmptyBuckets))
	sb.WriteString(fmt.Sprintf("Size:          %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("Counter:       %d\n", s.Counter))
	sb.WriteString(fmt.Sprintf("Tombstones:    %d\n", s.Tombstones))
	sb.WriteString(fmt.Sprintf("ChainNodes:    %d\n", s.ChainNodes))
	sb.WriteString(fmt.Sprintf("LongestChain:  %d\n", s.LongestChain))
	sb.WriteString(fmt.Sprintf("MinEntries:    %d\n", s.MinEntries))
	sb.WriteString(fmt.Sprintf("MaxEntries:    %d\n", s.MaxEntries))
	sb.WriteString(fmt.Sprintf("LiveNodes:     %d\n", s.LiveNodes))
	sb.WriteString(fmt.Sprintf("CachedNodes:   %d\n", s.CachedNodes))
	sb.WriteString(fmt.Sprintf("NodeLimit:     %d\n", s.NodeLimit))
	sb.WriteString(fmt.Sprintf("TotalAllocs:   %d\n", s.TotalAllocs))
	sb.WriteString(fmt.Sprintf("TotalReuses:   %d\n", s.TotalReuses))
	sb.WriteString(fmt.Sprintf("TotalReleases: %d\n", s.TotalReleases))
	sb.WriteString("}\n")
	return sb.String()
}

// String implements fmt.Stringer.
func (s *TableStats) String() string {
	return s.ToString()
}
