package index

import (
	"context"
	"errors"
	"testing"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ix
}

func TestUpsertAndQuery(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()

	// Orthogonal-ish unit vectors
	if err := ix.Upsert(ctx, "a", []float32{1, 0, 0}, 1000); err != nil {
		t.Fatalf("Upsert a: %v", err)
	}
	if err := ix.Upsert(ctx, "b", []float32{0, 1, 0}, 2000); err != nil {
		t.Fatalf("Upsert b: %v", err)
	}
	if err := ix.Upsert(ctx, "c", []float32{0.9, 0.1, 0}, 3000); err != nil {
		t.Fatalf("Upsert c: %v", err)
	}

	hits, err := ix.Query(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != "a" {
		t.Errorf("top hit = %s, want a", hits[0].ID)
	}
	if hits[1].ID != "c" {
		t.Errorf("second hit = %s, want c", hits[1].ID)
	}
	if hits[0].Similarity < hits[1].Similarity {
		t.Error("hits not in descending similarity order")
	}
}

func TestQueryKLargerThanSize(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()

	if err := ix.Upsert(ctx, "a", []float32{1, 0}, 1000); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := ix.Upsert(ctx, "b", []float32{0, 1}, 2000); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := ix.Query(ctx, []float32{1, 0}, 100)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("got %d hits, want all 2", len(hits))
	}
}

func TestQueryEmptyIndex(t *testing.T) {
	ix := testIndex(t)

	hits, err := ix.Query(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits from empty index", len(hits))
	}
}

func TestTieBreakNewerFirst(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()

	// Identical vectors: identical similarity to any query
	if err := ix.Upsert(ctx, "old", []float32{1, 0}, 1000); err != nil {
		t.Fatalf("Upsert old: %v", err)
	}
	if err := ix.Upsert(ctx, "new", []float32{1, 0}, 2000); err != nil {
		t.Fatalf("Upsert new: %v", err)
	}

	hits, err := ix.Query(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if hits[0].ID != "new" {
		t.Errorf("top hit = %s, want new (more recent wins ties)", hits[0].ID)
	}
}

func TestTieBreakByID(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()

	// Same vector, same timestamp: smaller id first
	if err := ix.Upsert(ctx, "b", []float32{1, 0}, 1000); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := ix.Upsert(ctx, "a", []float32{1, 0}, 1000); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := ix.Query(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if hits[0].ID != "a" {
		t.Errorf("top hit = %s, want a", hits[0].ID)
	}
}

func TestDimensionMismatch(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()

	if err := ix.Upsert(ctx, "a", []float32{1, 0, 0}, 1000); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	err := ix.Upsert(ctx, "b", []float32{1, 0}, 2000)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Upsert err = %v, want ErrDimensionMismatch", err)
	}

	_, err = ix.Query(ctx, []float32{1, 0}, 1)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Query err = %v, want ErrDimensionMismatch", err)
	}

	if ix.Dimensions() != 3 {
		t.Errorf("Dimensions = %d, want 3", ix.Dimensions())
	}
}

func TestRemove(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()

	if err := ix.Upsert(ctx, "a", []float32{1, 0}, 1000); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := ix.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ix.Size() != 0 {
		t.Errorf("Size = %d after remove, want 0", ix.Size())
	}

	// Unknown id is a no-op
	if err := ix.Remove(ctx, "nope"); err != nil {
		t.Errorf("Remove unknown id: %v", err)
	}

	hits, err := ix.Query(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, h := range hits {
		if h.ID == "a" {
			t.Error("removed id still returned by Query")
		}
	}
}

func TestUpsertReplaces(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()

	if err := ix.Upsert(ctx, "a", []float32{1, 0}, 1000); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := ix.Upsert(ctx, "a", []float32{0, 1}, 1000); err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}
	if ix.Size() != 1 {
		t.Errorf("Size = %d, want 1", ix.Size())
	}

	vec, ok := ix.Embedding("a")
	if !ok {
		t.Fatal("Embedding not found")
	}
	if vec[0] != 0 || vec[1] != 1 {
		t.Errorf("Embedding = %v, want [0 1]", vec)
	}
}
