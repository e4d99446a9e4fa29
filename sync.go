package chaintable

import (
	"context"
	"sync"
)

// SyncTable wraps a Table with a read-write mutex so it can be shared
// between goroutines. Lookups take the read lock; Put, Delete, Compact
// and Destroy take the write lock for the duration of the call.
//
// Finalizers passed to Delete and Destroy run with the write lock held
// and must not call back into the SyncTable.
type SyncTable[V any] struct {
	mu    sync.RWMutex
	table *Table[V]
}

// NewSyncTable creates a locked table, see New.
func NewSyncTable[V any](capacity int, options ...func(*TableConfig)) (*SyncTable[V], error) {
	t, err := New[V](capacity, options...)
	if err != nil {
		return nil, err
	}
	return &SyncTable[V]{table: t}, nil
}

// Put stores value under key, see Table.Put.
func (s *SyncTable[V]) Put(key []byte, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Put(key, value)
}

// Get returns the value stored under key, see Table.Get.
func (s *SyncTable[V]) Get(key []byte) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Get(key)
}

// Has reports whether a live entry exists for key.
func (s *SyncTable[V]) Has(key []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Has(key)
}

// Delete removes the live entry for key, see Table.Delete.
func (s *SyncTable[V]) Delete(key []byte, finalize func(V)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Delete(key, finalize)
}

// Compact reclaims tombstones, see Table.Compact.
func (s *SyncTable[V]) Compact() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Compact()
}

// CompactContext reclaims tombstones in parallel, see Table.CompactContext.
func (s *SyncTable[V]) CompactContext(ctx context.Context, workers int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.CompactContext(ctx, workers)
}

// Destroy finalizes every live value and releases the table.
func (s *SyncTable[V]) Destroy(finalize func(V)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Destroy(finalize)
}

// Len returns the number of live entries.
func (s *SyncTable[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Len()
}

// Range iterates live entries under the read lock, see Table.Range.
// yield must not call mutating methods of s.
func (s *SyncTable[V]) Range(yield func(key []byte, value V) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.table.Range(yield)
}

// Stats returns table statistics, see Table.Stats.
func (s *SyncTable[V]) Stats() *TableStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Stats()
}
