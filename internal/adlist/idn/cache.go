// Package idn converts internationalized domain names to their ASCII
// (punycode) form, memoizing results in an LRU cache. The conversion itself
// is a pure function of its input; the cache only avoids repeating the same
// idna.ToASCII work when the same raw name appears many times across a
// large blocklist stream.
package idn

import (
	"sync/atomic"

	"golang.org/x/net/idna"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Converter turns a raw (possibly Unicode) domain name into its ASCII
// punycode form. It never mutates input and never performs I/O.
type Converter interface {
	ToASCII(raw string) (string, error)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}

// cache is an LRU-backed Converter. It tracks hits, misses, and evictions.
type cache struct {
	lru       *lru.Cache[string, result]
	hits      uint64
	misses    uint64
	evictions uint64
}

type result struct {
	ascii string
	err   error
}

// disabledCache is a no-op Converter used when size <= 0. It always
// recomputes and tracks no metrics.
type disabledCache struct{}

// New creates a new Converter with the given LRU capacity. If size <= 0, a
// disabled cache is returned that converts every call directly with no
// memoization.
func New(size int) (Converter, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var c cache
	cc, err := lru.NewWithEvict(size, func(_ string, _ result) {
		atomic.AddUint64(&c.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	c.lru = cc
	return &c, nil
}

// ToASCII returns the punycode form of raw, converting and caching on miss.
func (c *cache) ToASCII(raw string) (string, error) {
	if val, ok := c.lru.Get(raw); ok {
		atomic.AddUint64(&c.hits, 1)
		return val.ascii, val.err
	}
	atomic.AddUint64(&c.misses, 1)

	ascii, err := idna.Lookup.ToASCII(raw)
	c.lru.Add(raw, result{ascii: ascii, err: err})
	return ascii, err
}

// Len returns the number of entries currently cached.
func (c *cache) Len() int { return c.lru.Len() }

// Purge clears all entries. Evictions are counted via the eviction callback.
func (c *cache) Purge() { c.lru.Purge() }

// Stats returns cumulative hit/miss/eviction counters.
func (c *cache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (d *disabledCache) ToASCII(raw string) (string, error) {
	return idna.Lookup.ToASCII(raw)
}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ Converter = (*cache)(nil)
var _ Converter = (*disabledCache)(nil)
