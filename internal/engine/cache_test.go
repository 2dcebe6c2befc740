package engine

import (
	"errors"
	"testing"
)

var errTest = errors.New("test error")

func TestCacheHitOnRepeat(t *testing.T) {
	c, err := NewCache(64)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	calls := 0
	compute := func() (any, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	key := CacheKey(1, "rank", "q1")
	v1, hit, err := c.GetOrCompute(key, compute)
	if err != nil {
		t.Fatalf("first GetOrCompute: %v", err)
	}
	if hit {
		t.Error("first call reported a hit")
	}

	v2, hit, err := c.GetOrCompute(key, compute)
	if err != nil {
		t.Fatalf("second GetOrCompute: %v", err)
	}
	if !hit {
		t.Error("second call missed")
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
	if len(v1.([]string)) != len(v2.([]string)) {
		t.Error("cached value differs from computed value")
	}
	if c.Hits() < 1 {
		t.Errorf("Hits = %d, want >= 1", c.Hits())
	}
}

func TestCacheGenerationRotatesKeys(t *testing.T) {
	c, err := NewCache(64)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}

	if _, _, err := c.GetOrCompute(CacheKey(1, "rank", "q1"), compute); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	// Same parameters, bumped generation: must recompute.
	_, hit, err := c.GetOrCompute(CacheKey(2, "rank", "q1"), compute)
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if hit {
		t.Error("got a hit across generations")
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2", calls)
	}
}

func TestCacheComputeError(t *testing.T) {
	c, err := NewCache(64)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	wantErr := errTest
	_, _, err = c.GetOrCompute("k", func() (any, error) { return nil, wantErr })
	if err != wantErr {
		t.Errorf("err = %v, want %v", err, wantErr)
	}

	// Errors are not cached
	v, hit, err := c.GetOrCompute("k", func() (any, error) { return 42, nil })
	if err != nil || hit {
		t.Fatalf("GetOrCompute after error: v=%v hit=%v err=%v", v, hit, err)
	}
	if v.(int) != 42 {
		t.Errorf("v = %v, want 42", v)
	}
}

func TestVectorDigestDeterministic(t *testing.T) {
	a := VectorDigest([]float32{0.1, 0.2, 0.3})
	b := VectorDigest([]float32{0.1, 0.2, 0.3})
	if a != b {
		t.Errorf("digests differ: %s vs %s", a, b)
	}
	if a == VectorDigest([]float32{0.1, 0.2, 0.4}) {
		t.Error("different vectors produced the same digest")
	}
}
