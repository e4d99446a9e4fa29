package chaintable

import "errors"

// Errors returned by Table operations. Call sites may wrap them with
// additional context; use errors.Is to test for them.
var (
	// ErrInvalidCapacity is returned by New when the bucket count is not
	// a positive power of two.
	ErrInvalidCapacity = errors.New("chaintable: capacity must be a positive power of two")
	// ErrInvalidArgument reports an empty key, an absent value, or a nil
	// or destroyed table.
	ErrInvalidArgument = errors.New("chaintable: invalid argument")
	// ErrNotFound is returned by Delete when no live entry holds the key.
	ErrNotFound = errors.New("chaintable: key not found")
	// ErrOutOfMemory is returned by Put when a new chain node cannot be
	// allocated. The table is left unchanged.
	ErrOutOfMemory = errors.New("chaintable: out of memory")
)
