package chaintable

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
)

// snapshot collects every live pair visible through Range and checks that
// Get agrees with it.
func snapshot[V comparable](t *testing.T, tbl *Table[V]) map[string]V {
	t.Helper()
	m := make(map[string]V)
	tbl.Range(func(k []byte, v V) bool {
		if _, dup := m[string(k)]; dup {
			t.Fatalf("duplicate live entry for %q", k)
		}
		m[string(k)] = v
		return true
	})
	for k, v := range m {
		if got, ok := tbl.Get([]byte(k)); !ok || got != v {
			t.Fatalf("Get(%q) = %v %v, Range saw %v", k, got, ok, v)
		}
	}
	if len(m) != tbl.Len() {
		t.Fatalf("Range saw %d entries, Len() = %d", len(m), tbl.Len())
	}
	return m
}

func sameContents[V comparable](a, b map[string]V) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func TestCompact_EmptyTable(t *testing.T) {
	tbl := mustNew[int](t, 16)
	if n := tbl.Compact(); n != 0 {
		t.Fatalf("Compact() = %d on empty table", n)
	}
	if n, err := tbl.CompactContext(context.Background(), 4); n != 0 || err != nil {
		t.Fatalf("CompactContext() = %d, %v on empty table", n, err)
	}
}

func TestCompact_PromotesIntoEmbedded(t *testing.T) {
	tbl := mustNew[int](t, 1)
	for i, k := range []string{"first", "second", "third"} {
		if err := tbl.Put([]byte(k), i); err != nil {
			t.Fatal(err)
		}
	}
	if err := tbl.Delete([]byte("first"), nil); err != nil {
		t.Fatal(err)
	}
	if n := tbl.Compact(); n != 1 {
		t.Fatalf("Compact() = %d, want 1", n)
	}
	s := &tbl.buckets[0]
	if string(s.key) != "second" || s.value != 1 || s.tombstoned {
		t.Fatalf("embedded = %q/%d tomb=%v, want promoted second", s.key, s.value, s.tombstoned)
	}
	if s.next == nil || string(s.next.key) != "third" || s.next.next != nil {
		t.Fatalf("chain after promotion is wrong")
	}
	if tbl.BucketLen(0) != 2 {
		t.Fatalf("bucket len = %d, want 2", tbl.BucketLen(0))
	}
}

func TestCompact_PromotesPastTombstonedNodes(t *testing.T) {
	tbl := mustNew[int](t, 1)
	for i := 0; i < 5; i++ {
		if err := tbl.Put([]byte(fmt.Sprint(i)), i); err != nil {
			t.Fatal(err)
		}
	}
	for _, i := range []int{0, 1, 2} {
		if err := tbl.Delete([]byte(fmt.Sprint(i)), nil); err != nil {
			t.Fatal(err)
		}
	}
	if n := tbl.Compact(); n != 3 {
		t.Fatalf("Compact() = %d, want 3", n)
	}
	if string(tbl.buckets[0].key) != "3" {
		t.Fatalf("embedded = %q, want 3", tbl.buckets[0].key)
	}
	if got := snapshot(t, tbl); !sameContents(got, map[string]int{"3": 3, "4": 4}) {
		t.Fatalf("contents = %v", got)
	}
}

func TestCompact_EmbeddedBecomesEmpty(t *testing.T) {
	tbl := mustNew[int](t, 1)
	for i := 0; i < 3; i++ {
		if err := tbl.Put([]byte(fmt.Sprint(i)), i); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := tbl.Delete([]byte(fmt.Sprint(i)), nil); err != nil {
			t.Fatal(err)
		}
	}
	tbl.Compact()
	s := &tbl.buckets[0]
	if s.key != nil || s.tombstoned || s.next != nil {
		t.Fatalf("bucket not empty after compact")
	}
	if tbl.BucketLen(0) != 0 {
		t.Fatalf("bucket len = %d", tbl.BucketLen(0))
	}
	st := tbl.Stats()
	if st.Tombstones != 0 || st.LiveNodes != 0 || st.ChainNodes != 0 {
		t.Fatalf("stats after compact:\n%s", st)
	}
}

func TestCompact_Idempotent(t *testing.T) {
	tbl := mustNew[int](t, 4)
	for i := 0; i < 64; i++ {
		if err := tbl.Put([]byte(fmt.Sprint(i)), i); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 64; i += 3 {
		if err := tbl.Delete([]byte(fmt.Sprint(i)), nil); err != nil {
			t.Fatal(err)
		}
	}
	tbl.Compact()
	want := snapshot(t, tbl)
	if n := tbl.Compact(); n != 0 {
		t.Fatalf("second Compact() = %d, want 0", n)
	}
	if got := snapshot(t, tbl); !sameContents(got, want) {
		t.Fatalf("second compact changed contents")
	}
}

// TestCompact_PreservesLiveData runs random put/delete sequences against a
// reference map and compacts at random points.
func TestCompact_PreservesLiveData(t *testing.T) {
	for _, capacity := range []int{1, 2, 8, 64} {
		t.Run(fmt.Sprintf("capacity=%d", capacity), func(t *testing.T) {
			r := rand.New(rand.NewPCG(uint64(capacity), 42))
			tbl := mustNew[int](t, capacity)
			ref := make(map[string]int)
			for op := 0; op < 5000; op++ {
				k := fmt.Sprintf("k%d", r.IntN(200))
				switch r.IntN(10) {
				case 0, 1, 2, 3, 4:
					if err := tbl.Put([]byte(k), op); err != nil {
						t.Fatal(err)
					}
					ref[k] = op
				case 5, 6, 7, 8:
					err := tbl.Delete([]byte(k), nil)
					if _, ok := ref[k]; ok {
						if err != nil {
							t.Fatalf("delete %s: %v", k, err)
						}
						delete(ref, k)
					} else if !errors.Is(err, ErrNotFound) {
						t.Fatalf("delete missing %s: %v", k, err)
					}
				case 9:
					before := snapshot(t, tbl)
					tbl.Compact()
					after := snapshot(t, tbl)
					if !sameContents(before, after) {
						t.Fatalf("compact changed contents at op %d", op)
					}
					if st := tbl.Stats(); st.Tombstones != 0 {
						t.Fatalf("%d tombstones left after compact", st.Tombstones)
					}
				}
			}
			if got := snapshot(t, tbl); !sameContents(got, ref) {
				t.Fatalf("table diverged from reference map")
			}
		})
	}
}

func TestCompactContext_Parallel(t *testing.T) {
	const capacity = 1 << 12
	serial := mustNew[int](t, capacity)
	parallel := mustNew[int](t, capacity)
	for i := 0; i < capacity*3; i++ {
		k := []byte(fmt.Sprintf("key-%d", i))
		if err := serial.Put(k, i); err != nil {
			t.Fatal(err)
		}
		if err := parallel.Put(k, i); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < capacity*3; i += 2 {
		k := []byte(fmt.Sprintf("key-%d", i))
		if err := serial.Delete(k, nil); err != nil {
			t.Fatal(err)
		}
		if err := parallel.Delete(k, nil); err != nil {
			t.Fatal(err)
		}
	}
	want := serial.Compact()
	got, err := parallel.CompactContext(context.Background(), 8)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("parallel reclaimed %d, serial %d", got, want)
	}
	if !sameContents(snapshot(t, serial), snapshot(t, parallel)) {
		t.Fatalf("parallel compaction diverged")
	}
	st := parallel.Stats()
	if st.Tombstones != 0 || st.TotalReleases != uint64(want) {
		t.Fatalf("stats after parallel compact:\n%s", st)
	}
}

func TestCompactContext_Cancelled(t *testing.T) {
	tbl := mustNew[int](t, 1<<10)
	for i := 0; i < 4096; i++ {
		if err := tbl.Put([]byte(fmt.Sprint(i)), i); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 4096; i += 2 {
		if err := tbl.Delete([]byte(fmt.Sprint(i)), nil); err != nil {
			t.Fatal(err)
		}
	}
	want := snapshot(t, tbl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, workers := range []int{1, 4} {
		if _, err := tbl.CompactContext(ctx, workers); !errors.Is(err, context.Canceled) {
			t.Fatalf("workers=%d: got %v, want context.Canceled", workers, err)
		}
		if got := snapshot(t, tbl); !sameContents(got, want) {
			t.Fatalf("cancelled compaction changed contents")
		}
	}
	tbl.Compact()
	if got := snapshot(t, tbl); !sameContents(got, want) {
		t.Fatalf("compaction after cancel changed contents")
	}
	if st := tbl.Stats(); st.Tombstones != 0 {
		t.Fatalf("%d tombstones left", st.Tombstones)
	}
}

func TestCalcParallelism(t *testing.T) {
	tests := []struct {
		items, threshold, cpus int
		chunkSize, chunks      int
	}{
		{items: 10, threshold: 256, cpus: 8, chunkSize: 10, chunks: 1},
		{items: 256, threshold: 256, cpus: 8, chunkSize: 256, chunks: 1},
		{items: 1024, threshold: 256, cpus: 8, chunkSize: 256, chunks: 4},
		{items: 1 << 16, threshold: 256, cpus: 8, chunkSize: 8192, chunks: 8},
		{items: 1000, threshold: 256, cpus: 2, chunkSize: 500, chunks: 2},
	}
	for _, tt := range tests {
		chunkSize, chunks := calcParallelism(tt.items, tt.threshold, tt.cpus)
		if chunkSize != tt.chunkSize || chunks != tt.chunks {
			t.Fatalf("calcParallelism(%d, %d, %d) = (%d, %d), want (%d, %d)",
				tt.items, tt.threshold, tt.cpus, chunkSize, chunks, tt.chunkSize, tt.chunks)
		}
	}
}

func TestAlignToCacheLine(t *testing.T) {
	for _, n := range []int{1, 7, 100, 513} {
		a := alignToCacheLine[int](n)
		if a < n {
			t.Fatalf("aligned %d down to %d", n, a)
		}
		perLine := max(int(CacheLineSize)/int(sizeofSlot[int]()), 1)
		if a%perLine != 0 {
			t.Fatalf("aligned %d to %d, not a multiple of %d", n, a, perLine)
		}
	}
}
