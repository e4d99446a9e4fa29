package chaintable

// TableConfig defines configurable Table options.
type TableConfig struct {
	hasher    HashFunc
	nodeLimit int
	nodeCache int
}

// WithHasher configures the hash function used to place keys in buckets.
// The same function is applied by Put, Get and Delete. A nil hasher is
// ignored and the default FNV1a is kept.
func WithHasher(hasher HashFunc) func(*TableConfig) {
	return func(c *TableConfig) {
		if hasher != nil {
			c.hasher = hasher
		}
	}
}

// WithNodeLimit caps the number of chain nodes that can be allocated at
// the same time. Once the limit is reached, Put returns ErrOutOfMemory
// for keys that would need a new node; reusing embedded or tombstoned
// entries is still possible. Zero or negative means unlimited.
func WithNodeLimit(limit int) func(*TableConfig) {
	return func(c *TableConfig) {
		c.nodeLimit = max(limit, 0)
	}
}

// WithNodeCache keeps up to n reclaimed chain nodes on a free list so that
// later inserts can reuse them instead of allocating. Zero disables the
// free list.
func WithNodeCache(n int) func(*TableConfig) {
	return func(c *TableConfig) {
		c.nodeCache = max(n, 0)
	}
}

func defaultTableConfig() *TableConfig {
	return &TableConfig{
		hasher: FNV1a,
	}
}
