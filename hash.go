package chaintable

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// HashFunc maps a key to a 64-bit hash. It must be deterministic; the
// bucket index is the hash masked by capacity-1, so the low bits should be
// well distributed.
type HashFunc func(key []byte) uint64

const (
	fnvOffsetBasis uint64 = 0xcbf29ce484222325
	fnvPrime       uint64 = 0x100000001b3
)

// FNV1a is the default hash function: 64-bit FNV-1a over the key bytes
// followed by a single zero byte, so the hashed length is len(key)+1.
func FNV1a(key []byte) uint64 {
	h := fnvOffsetBasis
	for _, c := range key {
		h ^= uint64(c)
		h *= fnvPrime
	}
	// trailing sentinel: h ^= 0 is a no-op
	return h * fnvPrime
}

// XXHash hashes the key with xxHash64.
func XXHash(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// XXH3 hashes the key with the 64-bit variant of xxHash3.
func XXH3(key []byte) uint64 {
	return xxh3.Hash(key)
}

// XXH3WithSeed returns an xxHash3 hash function using the given seed.
func XXH3WithSeed(seed uint64) HashFunc {
	return func(key []byte) uint64 {
		return xxh3.HashSeed(key, seed)
	}
}

// Murmur3 hashes the key with the 64-bit half of MurmurHash3 x64_128.
func Murmur3(key []byte) uint64 {
	return murmur3.Sum64(key)
}

// Murmur3WithSeed returns a MurmurHash3 hash function using the given seed.
func Murmur3WithSeed(seed uint32) HashFunc {
	return func(key []byte) uint64 {
		return murmur3.Sum64WithSeed(key, seed)
	}
}

// HashFuncByName resolves one of the built-in hash functions by name:
// "fnv1a", "xxhash", "xxh3" or "murmur3". Names are case-insensitive.
func HashFuncByName(name string) (HashFunc, error) {
	switch strings.ToLower(name) {
	case "fnv1a", "fnv":
		return FNV1a, nil
	case "xxhash", "xxh64":
		return XXHash, nil
	case "xxh3":
		return XXH3, nil
	case "murmur3", "murmur":
		return Murmur3, nil
	default:
		return nil, fmt.Errorf("%w: unknown hash function %q", ErrInvalidArgument, name)
	}
}
