package engine

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/dgraph-io/ristretto"
)

// Cache memoizes ranking and attention computations. Keys carry the
// engine's generation counter, so any mutation rotates every key and
// stale values are simply never addressed again; ristretto evicts them
// under its cost bound.
type Cache struct {
	inner *ristretto.Cache
}

// NewCache creates a cache bounded to roughly maxEntries values.
func NewCache(maxEntries int64) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	inner, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("new ristretto cache: %w", err)
	}
	return &Cache{inner: inner}, nil
}

// GetOrCompute returns the cached value for key, or computes, stores, and
// returns it. The second return reports whether it was a cache hit.
func (c *Cache) GetOrCompute(key string, fn func() (any, error)) (any, bool, error) {
	if v, ok := c.inner.Get(key); ok {
		return v, true, nil
	}
	v, err := fn()
	if err != nil {
		return nil, false, err
	}
	c.inner.Set(key, v, 1)
	// Set is async; wait so an immediate re-read hits.
	c.inner.Wait()
	return v, false, nil
}

// Hits returns the cumulative cache-hit count.
func (c *Cache) Hits() uint64 {
	return c.inner.Metrics.Hits()
}

// Misses returns the cumulative cache-miss count.
func (c *Cache) Misses() uint64 {
	return c.inner.Metrics.Misses()
}

// Clear drops all cached values. Metrics counters survive.
func (c *Cache) Clear() {
	c.inner.Clear()
}

// Close releases the cache's background resources.
func (c *Cache) Close() {
	c.inner.Close()
}

// CacheKey builds a generation-stamped key from request parameters.
func CacheKey(generation uint64, parts ...string) string {
	return fmt.Sprintf("%s:g%d", strings.Join(parts, "|"), generation)
}

// VectorDigest condenses a query vector into a short key component.
func VectorDigest(vec []float32) string {
	h := fnv.New64a()
	var buf [4]byte
	for _, v := range vec {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
