package chaintable

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize is the CPU cache line size in bytes, used to keep
// compaction workers on disjoint cache lines of the bucket array.
// It's automatically calculated using the `golang.org/x/sys` package.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})
