// Package bloom provides a probabilistic duplicate pre-check used by the
// merge stage when unioning a new blocklist stream with a large prior
// output file. It is a performance accelerator only: the authoritative
// dedup decision always comes from the exact, case-folded map in the
// merge package, never from this filter's probabilistic answer.
package bloom

import (
	"sync"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"
)

// Filter is the minimal interface the merge package needs.
type Filter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// filter wraps bits-and-blooms BloomFilter with a mutex for writes.
// Reads (MightContain) are safe concurrently; Add is serialized.
type filter struct {
	mu sync.RWMutex
	bf *bitsbloom.BloomFilter
}

// NewFilter constructs a thread-safe Filter given m and k.
func NewFilter(m uint64, k uint8) Filter {
	return &filter{bf: bitsbloom.New(uint(m), uint(k))}
}

func (f *filter) Add(key []byte) {
	f.mu.Lock()
	f.bf.Add(key)
	f.mu.Unlock()
}

func (f *filter) MightContain(key []byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bf.Test(key)
}
