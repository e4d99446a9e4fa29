package chaintable

import (
	"fmt"
	"math/bits"
	"strings"
)

// Table is a hash table with a fixed number of buckets, keyed by byte
// strings.
//
// Each bucket holds one embedded entry in the bucket array and an optional
// chain of overflow nodes. Delete only leaves a tombstone; tombstoned
// capacity is reclaimed by Compact. The bucket count never changes.
//
// Keys are copied on Put and owned by the table. Values are stored as
// given; the table never inspects them and only hands them to the
// finalizers passed to Delete and Destroy.
//
// A Table is not safe for concurrent use. See SyncTable.
//
// A Table must not be copied after first use.
type Table[V any] struct {
	_         noCopy
	buckets   []slot[V]
	mask      uint64
	hash      HashFunc
	nodes     nodeAllocator[V]
	size      int
	destroyed bool
}

// New creates a table with capacity buckets.
//
// Parameters:
//   - capacity: bucket count, must be a positive power of two
//   - WithHasher option to replace the default FNV1a hash
//   - WithNodeLimit option to bound chain node allocation
//   - WithNodeCache option to recycle reclaimed chain nodes
func New[V any](capacity int, options ...func(*TableConfig)) (*Table[V], error) {
	if !isPow2(capacity) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	cfg := defaultTableConfig()
	for _, opt := range options {
		opt(cfg)
	}
	return &Table[V]{
		buckets: make([]slot[V], capacity),
		mask:    uint64(capacity - 1),
		hash:    cfg.hasher,
		nodes:   newNodeAllocator[V](cfg.nodeLimit, cfg.nodeCache),
	}, nil
}

//go:nosplit
func isPow2(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}

//go:nosplit
func (t *Table[V]) valid() bool {
	return t != nil && !t.destroyed
}

func (t *Table[V]) bucketIndex(key []byte) int {
	return int(t.hash(key) & t.mask)
}

func (t *Table[V]) bucket(key []byte) *slot[V] {
	return &t.buckets[t.bucketIndex(key)]
}

func invalidTable() error {
	return fmt.Errorf("%w: nil or destroyed table", ErrInvalidArgument)
}

// find returns the live entry holding key, or nil.
func (t *Table[V]) find(key []byte) *entry[V] {
	root := t.bucket(key)
	if root.matches(key) {
		return &root.entry
	}
	for n := root.next; n != nil; n = n.next {
		if n.matches(key) {
			return &n.entry
		}
	}
	return nil
}

// Put stores value under key.
//
// An existing live entry for key is overwritten in place; the previous
// value is not finalized. Otherwise the first empty or tombstoned entry in
// the bucket is reused, and failing that a new chain node is appended.
//
// Returns ErrInvalidArgument for an empty key, an absent value or an
// unusable table, and ErrOutOfMemory if a chain node is needed but cannot
// be allocated. A failed Put leaves the table unchanged.
func (t *Table[V]) Put(key []byte, value V) error {
	if !t.valid() {
		return invalidTable()
	}
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	if isAbsent(value) {
		return fmt.Errorf("%w: absent value", ErrInvalidArgument)
	}

	root := t.bucket(key)
	if root.matches(key) {
		root.value = value
		return nil
	}

	// The whole chain is scanned before reusing a slot: a reusable entry
	// may precede the live entry for key.
	var reuse *entry[V]
	if !root.live() {
		reuse = &root.entry
	}
	var tail *node[V]
	for n := root.next; n != nil; n = n.next {
		if n.matches(key) {
			n.value = value
			return nil
		}
		if reuse == nil && !n.live() {
			reuse = &n.entry
		}
		tail = n
	}

	if reuse != nil {
		reuse.store(key, value)
		t.size++
		return nil
	}

	n, err := t.nodes.alloc()
	if err != nil {
		return fmt.Errorf("%w: chain node limit %d reached", err, t.nodes.limit)
	}
	n.store(key, value)
	if tail == nil {
		root.next = n
	} else {
		tail.next = n
	}
	t.size++
	return nil
}

// Get returns the value stored under key. Tombstoned and empty entries
// are never returned.
func (t *Table[V]) Get(key []byte) (value V, ok bool) {
	if !t.valid() || len(key) == 0 {
		return
	}
	if e := t.find(key); e != nil {
		return e.value, true
	}
	return
}

// Has reports whether a live entry exists for key.
func (t *Table[V]) Has(key []byte) bool {
	_, ok := t.Get(key)
	return ok
}

// Delete removes the live entry for key.
//
// If finalize is non-nil it is called exactly once with the current value
// before the entry is tombstoned. The entry keeps its chain position until
// the next Compact.
//
// Returns ErrNotFound if no live entry holds key.
func (t *Table[V]) Delete(key []byte, finalize func(V)) error {
	if !t.valid() {
		return invalidTable()
	}
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	e := t.find(key)
	if e == nil {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if finalize != nil {
		finalize(e.value)
	}
	e.bury()
	t.size--
	return nil
}

// Destroy calls finalize (if non-nil) on every live value, bucket by
// bucket with the embedded entry first, then releases all keys, chain
// nodes and the bucket array. Tombstoned entries are not finalized.
//
// After Destroy the table is unusable: mutating operations return
// ErrInvalidArgument and lookups miss. Destroy on a nil or already
// destroyed table does nothing.
func (t *Table[V]) Destroy(finalize func(V)) {
	if !t.valid() {
		return
	}
	for i := range t.buckets {
		s := &t.buckets[i]
		if finalize != nil && s.live() {
			finalize(s.value)
		}
		for n := s.next; n != nil; {
			next := n.next
			if finalize != nil && n.live() {
				finalize(n.value)
			}
			n.clear()
			n.next = nil
			n = next
		}
		s.clear()
		s.next = nil
	}
	t.buckets = nil
	t.nodes.reset()
	t.size = 0
	t.destroyed = true
}

// Len returns the number of live entries. This is an O(1) operation.
func (t *Table[V]) Len() int {
	if !t.valid() {
		return 0
	}
	return t.size
}

// IsZero reports whether the table holds no live entries.
func (t *Table[V]) IsZero() bool {
	return t.Len() == 0
}

// Capacity returns the fixed number of buckets.
func (t *Table[V]) Capacity() int {
	if !t.valid() {
		return 0
	}
	return len(t.buckets)
}

// BucketIndex returns the bucket key maps to, or -1 for an unusable table.
func (t *Table[V]) BucketIndex(key []byte) int {
	if !t.valid() {
		return -1
	}
	return t.bucketIndex(key)
}

// BucketLen returns the number of entries held by a bucket: the embedded
// entry, if it holds data or a tombstone, plus every chain node. Out of
// range buckets report 0.
func (t *Table[V]) BucketLen(bucket int) int {
	if !t.valid() || bucket < 0 || bucket >= len(t.buckets) {
		return 0
	}
	s := &t.buckets[bucket]
	n := 0
	if s.used() {
		n++
	}
	for c := s.next; c != nil; c = c.next {
		n++
	}
	return n
}

// Range calls yield for every live entry, bucket by bucket and in chain
// order within a bucket, until yield returns false.
//
// The key passed to yield is the table's own copy; it must not be
// modified or retained. The table must not be mutated during Range.
func (t *Table[V]) Range(yield func(key []byte, value V) bool) {
	if !t.valid() {
		return
	}
	for i := range t.buckets {
		s := &t.buckets[i]
		if s.live() && !yield(s.key, s.value) {
			return
		}
		for n := s.next; n != nil; n = n.next {
			if n.live() && !yield(n.key, n.value) {
				return
			}
		}
	}
}

// All returns an iterator over live entries for use with range-over-func.
func (t *Table[V]) All() func(yield func([]byte, V) bool) { return t.Range }

// Keys is the iterator version for iterating over all live keys.
func (t *Table[V]) Keys() func(yield func([]byte) bool) {
	return func(yield func([]byte) bool) {
		t.Range(func(key []byte, _ V) bool { return yield(key) })
	}
}

// Values is the iterator version for iterating over all live values.
func (t *Table[V]) Values() func(yield func(V) bool) {
	return func(yield func(V) bool) {
		t.Range(func(_ []byte, value V) bool { return yield(value) })
	}
}

// String implement the formatting output interface fmt.Stringer
func (t *Table[V]) String() string {
	const limit = 1024
	var sb strings.Builder
	sb.WriteString("Table[")
	i := 0
	t.Range(func(key []byte, value V) bool {
		if i >= limit {
			sb.WriteString(" ...")
			return false
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprintf("%q:%v", key, value))
		i++
		return true
	})
	sb.WriteByte(']')
	return sb.String()
}

// noCopy may be embedded into structs which must not be copied
// after the first use. See https://golang.org/issues/8005#issuecomment-190753527
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
