// Package index maintains the in-memory vector index over log embeddings.
// It is a runtime structure rebuilt from the durable store on startup;
// chromem-go does the similarity search.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ErrDimensionMismatch is returned when an inserted vector's dimensionality
// differs from the one established by the first insert.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Hit is one similarity result.
type Hit struct {
	ID         string
	Similarity float64
	CreatedAt  int64
}

type entry struct {
	embedding []float32
	createdAt int64
}

// Index wraps a chromem-go collection plus per-id bookkeeping used for
// dimension checks and deterministic tie-breaking.
type Index struct {
	mu      sync.RWMutex
	col     *chromem.Collection
	entries map[string]entry
	dims    int
}

// New creates an empty index.
func New() (*Index, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection("logs", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Index{
		col:     col,
		entries: make(map[string]entry),
	}, nil
}

// Upsert adds or replaces the embedding for an id. The first insert fixes
// the index dimensionality.
func (ix *Index) Upsert(ctx context.Context, id string, vec []float32, createdAt int64) error {
	if len(vec) == 0 {
		return fmt.Errorf("upsert %s: empty embedding", id)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dims == 0 {
		ix.dims = len(vec)
	} else if len(vec) != ix.dims {
		return fmt.Errorf("upsert %s: got %d dims, index has %d: %w",
			id, len(vec), ix.dims, ErrDimensionMismatch)
	}

	doc := chromem.Document{
		ID:        id,
		Content:   id,
		Embedding: vec,
	}
	if err := ix.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document %s: %w", id, err)
	}
	ix.entries[id] = entry{embedding: vec, createdAt: createdAt}
	return nil
}

// Remove deletes an id from the index. Unknown ids are a no-op.
func (ix *Index) Remove(ctx context.Context, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.entries[id]; !ok {
		return nil
	}
	if err := ix.col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	delete(ix.entries, id)
	return nil
}

// Query returns up to k hits ordered by cosine similarity descending.
// Ties go to the more recently created entry, then to the smaller id.
// k larger than the index size returns everything, fully ordered.
func (ix *Index) Query(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	size := len(ix.entries)
	if size == 0 || k <= 0 {
		return nil, nil
	}
	if len(vec) != ix.dims {
		return nil, fmt.Errorf("query: got %d dims, index has %d: %w",
			len(vec), ix.dims, ErrDimensionMismatch)
	}
	if k > size {
		k = size
	}

	results, err := ix.col.QueryEmbedding(ctx, vec, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		e := ix.entries[r.ID]
		hits = append(hits, Hit{
			ID:         r.ID,
			Similarity: float64(r.Similarity),
			CreatedAt:  e.createdAt,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if hits[i].CreatedAt != hits[j].CreatedAt {
			return hits[i].CreatedAt > hits[j].CreatedAt
		}
		return hits[i].ID < hits[j].ID
	})
	return hits, nil
}

// Embedding returns the stored vector for an id.
func (ix *Index) Embedding(id string) ([]float32, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[id]
	if !ok {
		return nil, false
	}
	return e.embedding, true
}

// CreatedAt returns the creation timestamp recorded for an id.
func (ix *Index) CreatedAt(id string) (int64, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[id]
	if !ok {
		return 0, false
	}
	return e.createdAt, true
}

// Size returns the number of indexed entries.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dimensions returns the established dimensionality, 0 if nothing inserted.
func (ix *Index) Dimensions() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dims
}

// IDs returns all indexed ids in unspecified order.
func (ix *Index) IDs() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ids := make([]string, 0, len(ix.entries))
	for id := range ix.entries {
		ids = append(ids, id)
	}
	return ids
}
