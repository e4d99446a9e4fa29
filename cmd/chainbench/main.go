// Chainbench measures chaintable insert, lookup, delete and compaction
// throughput for the built-in hash functions.
//
// Usage:
//
//	go run ./cmd/chainbench -keys 1000000 -capacity 262144 -hash xxh3
//
// Flags:
//
//	-keys        Number of keys to insert (default: 1,000,000)
//	-capacity    Bucket count, must be a power of two (default: 262,144)
//	-keylen      Key length in bytes (default: 16)
//	-hash        Hash function: fnv1a, xxhash, xxh3 or murmur3 (default: fnv1a)
//	-delete      Fraction of keys deleted before compaction (default: 0.5)
//	-workers     Compaction workers, 1 for single-threaded (default: 1)
//	-cpuprofile  Write a CPU profile to file
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/llxisdsh/chaintable"
)

func main() {
	keysFlag := flag.Int("keys", 1_000_000, "number of keys")
	capacityFlag := flag.Int("capacity", 1<<18, "bucket count (power of two)")
	keyLenFlag := flag.Int("keylen", 16, "key length in bytes")
	hashFlag := flag.String("hash", "fnv1a", "hash function: fnv1a, xxhash, xxh3 or murmur3")
	deleteFlag := flag.Float64("delete", 0.5, "fraction of keys deleted before compaction")
	workersFlag := flag.Int("workers", 1, "number of compaction workers")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")
	flag.Parse()

	if err := run(*keysFlag, *capacityFlag, *keyLenFlag, *hashFlag, *deleteFlag, *workersFlag, *cpuprofile); err != nil {
		fmt.Fprintf(os.Stderr, "chainbench: %v\n", err)
		os.Exit(1)
	}
}

func run(numKeys, capacity, keyLen int, hashName string, deleteFrac float64, workers int, cpuprofile string) error {
	if numKeys <= 0 || keyLen <= 0 {
		return fmt.Errorf("keys and keylen must be positive")
	}
	if deleteFrac < 0 || deleteFrac > 1 {
		return fmt.Errorf("delete fraction must be in [0, 1], got %v", deleteFrac)
	}
	hasher, err := chaintable.HashFuncByName(hashName)
	if err != nil {
		return err
	}
	t, err := chaintable.New[uint64](capacity, chaintable.WithHasher(hasher))
	if err != nil {
		return err
	}
	defer t.Destroy(nil)

	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	fmt.Println("Generating keys...")
	keys := make([][]byte, numKeys)
	buf := make([]byte, numKeys*keyLen)
	_, _ = rand.Read(buf) // crypto/rand.Read error is fatal system issue; ignore for benchmark
	for i := range keys {
		keys[i] = buf[i*keyLen : (i+1)*keyLen]
	}

	fmt.Println("Inserting...")
	start := time.Now()
	for i, k := range keys {
		if err := t.Put(k, uint64(i)); err != nil {
			return fmt.Errorf("put %d: %w", i, err)
		}
	}
	putDuration := time.Since(start)

	fmt.Println("Looking up...")
	start = time.Now()
	for i, k := range keys {
		if v, ok := t.Get(k); !ok || v != uint64(i) {
			return fmt.Errorf("get %d: got (%d, %v)", i, v, ok)
		}
	}
	getDuration := time.Since(start)

	numDelete := int(float64(numKeys) * deleteFrac)
	fmt.Printf("Deleting %d keys...\n", numDelete)
	start = time.Now()
	for _, k := range keys[:numDelete] {
		// random keys may collide; a repeated key is already deleted
		if err := t.Delete(k, nil); err != nil && t.Has(k) {
			return err
		}
	}
	deleteDuration := time.Since(start)
	before := t.Stats()

	fmt.Println("Compacting...")
	start = time.Now()
	var reclaimed int
	if workers > 1 {
		reclaimed, err = t.CompactContext(context.Background(), workers)
		if err != nil {
			return err
		}
	} else {
		reclaimed = t.Compact()
	}
	compactDuration := time.Since(start)

	for _, k := range keys[numDelete:] {
		if !t.Has(k) {
			return fmt.Errorf("key %x lost by compaction", k)
		}
	}

	perOp := func(d time.Duration, n int) float64 {
		if n == 0 {
			return 0
		}
		return float64(d.Nanoseconds()) / float64(n)
	}
	fmt.Printf("\n=== Results (%s, %d buckets) ===\n", hashName, capacity)
	fmt.Printf("Put:      %v (%.1f ns/op)\n", putDuration, perOp(putDuration, numKeys))
	fmt.Printf("Get:      %v (%.1f ns/op)\n", getDuration, perOp(getDuration, numKeys))
	fmt.Printf("Delete:   %v (%.1f ns/op)\n", deleteDuration, perOp(deleteDuration, numDelete))
	fmt.Printf("Compact:  %v (%d nodes reclaimed, %d tombstones before)\n",
		compactDuration, reclaimed, before.Tombstones)
	fmt.Printf("\n%s", t.Stats().ToString())
	return nil
}
