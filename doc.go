// Package chaintable implements a fixed-size hash table keyed by byte
// strings, with embedded bucket entries, overflow chains and deferred
// (tombstoned) deletion.
//
// Every bucket stores its first entry inline in the bucket array. Further
// keys that land in the same bucket are kept in a singly linked chain of
// individually allocated nodes. Delete never relinks the chain: it only
// marks the entry as a tombstone, which keeps deletion cheap. Memory held
// by tombstones is reclaimed by an explicit Compact pass, which also
// promotes the first live chain entry into a tombstoned embedded slot.
//
// # Basic Usage
//
//	t, err := chaintable.New[*Session](1024)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Destroy(func(s *Session) { s.Close() })
//
//	if err := t.Put([]byte("alice"), sess); err != nil {
//	    log.Fatal(err)
//	}
//	if s, ok := t.Get([]byte("alice")); ok {
//	    s.Touch()
//	}
//	_ = t.Delete([]byte("alice"), func(s *Session) { s.Close() })
//	t.Compact()
//
// # Concurrency
//
// Table has no internal synchronization. Callers that share a table
// between goroutines must serialize access themselves, or use SyncTable,
// which wraps a Table behind a read-write mutex.
//
// # Package Structure
//
//   - Table and operations: table.go, entry.go
//   - Compaction: compact.go (Compact, CompactContext)
//   - Hash functions: hash.go (FNV1a, XXHash, XXH3, Murmur3)
//   - Chain node allocation: alloc.go
//   - Configuration: config.go (With* options)
//   - Diagnostics: stats.go
//   - Locked wrapper: sync.go
package chaintable
