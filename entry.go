package chaintable

import (
	"bytes"
	"reflect"
)

// entry is the key/value state shared by embedded slots and chain nodes.
//
// A nil key means the entry holds no data: either it never did, or the
// data was deleted, in which case tombstoned is set.
type entry[V any] struct {
	key        []byte // owned copy
	value      V
	tombstoned bool
}

//go:nosplit
func (e *entry[V]) live() bool {
	return e.key != nil && !e.tombstoned
}

//go:nosplit
func (e *entry[V]) matches(key []byte) bool {
	return e.live() && bytes.Equal(e.key, key)
}

// store takes an owned copy of key and clears the tombstone.
func (e *entry[V]) store(key []byte, value V) {
	e.key = bytes.Clone(key)
	e.value = value
	e.tombstoned = false
}

// bury releases the key and value and leaves a tombstone behind.
func (e *entry[V]) bury() {
	e.key = nil
	e.value = *new(V)
	e.tombstoned = true
}

func (e *entry[V]) clear() {
	*e = entry[V]{}
}

// slot is the embedded entry of a bucket. It lives in the bucket array,
// roots the overflow chain, and is never freed.
type slot[V any] struct {
	entry[V]
	next *node[V]
}

// used reports whether the slot holds data or a tombstone.
//
//go:nosplit
func (s *slot[V]) used() bool {
	return s.key != nil || s.tombstoned
}

// node is an overflow entry, exclusively owned by its predecessor's next
// link.
type node[V any] struct {
	entry[V]
	next *node[V]
}

// isAbsent reports whether v is the absent value: a nil interface or a
// nil pointer, map, slice, func or chan.
func isAbsent[V any](v V) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
		reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
