package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
)

// RankedResult is one scored entry in a retrieval response.
type RankedResult struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
	Attention  float64 `json:"attention"`
	Combined   float64 `json:"combined"`
	Rank       int     `json:"rank"`
	CreatedAt  int64   `json:"created_at"`
}

// Rank scores candidates against a query embedding. Similarities come
// from one vector-index search over the whole collection; attention
// scores from scaled dot-product softmax over the candidate set; the
// combined score blends them with ledger weights by alpha. Candidate ids
// absent from the index (stale references, pending entries) are logged
// and skipped, never fatal.
func (e *Engine) Rank(ctx context.Context, queryVec []float32, candidateIDs []string, topK int) ([]RankedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sims := make(map[string]float64)
	if size := e.idx.Size(); size > 0 {
		hits, err := e.idx.Query(ctx, queryVec, size)
		if err != nil {
			return nil, fmt.Errorf("rank: %w", err)
		}
		for _, h := range hits {
			sims[h.ID] = h.Similarity
		}
	}

	var (
		ids  []string
		embs [][]float32
	)
	for _, id := range candidateIDs {
		emb, ok := e.idx.Embedding(id)
		if !ok {
			log.Printf("rank: skipping unknown id %s", id)
			continue
		}
		ids = append(ids, id)
		embs = append(embs, emb)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	scores := AttentionScores(queryVec, embs)

	results := make([]RankedResult, len(ids))
	for i, id := range ids {
		createdAt, _ := e.idx.CreatedAt(id)
		attention := e.ledger.Get(id)
		results[i] = RankedResult{
			ID:         id,
			Similarity: sims[id],
			Attention:  attention,
			Combined:   e.opts.Alpha*scores[i] + (1-e.opts.Alpha)*attention,
			CreatedAt:  createdAt,
		}
	}

	sortRanked(results)
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// Search embeds the query, ranks entries created within the day window,
// and memoizes the result under the current generation counter.
func (e *Engine) Search(ctx context.Context, query string, days, topK int) ([]RankedResult, error) {
	if days <= 0 {
		days = e.opts.CandidateDays
	}
	if topK <= 0 {
		topK = e.opts.TopK
	}

	queryVec, err := embedWithRetry(ctx, e.embedder, query, e.opts.EmbedRetries)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Best effort: without a query embedding, fall back to recency.
		log.Printf("search: %v, falling back to recency", err)
		return e.ByRecency(days, topK)
	}

	key := CacheKey(e.gen.Load(), "search", VectorDigest(queryVec),
		fmt.Sprintf("d%d", days), fmt.Sprintf("k%d", topK))
	v, _, err := e.cache.GetOrCompute(key, func() (any, error) {
		entries, err := e.db.ListLogs(days)
		if err != nil {
			return nil, err
		}
		candidates := make([]string, len(entries))
		for i, entry := range entries {
			candidates[i] = entry.ID
		}
		return e.Rank(ctx, queryVec, candidates, topK)
	})
	if err != nil {
		return nil, err
	}
	results, ok := v.([]RankedResult)
	if !ok {
		return nil, fmt.Errorf("search: cached value has wrong type: %w", ErrInvariant)
	}
	return results, nil
}

// ByImportance ranks tracked entries purely by ledger weight.
func (e *Engine) ByImportance(topK int) ([]RankedResult, error) {
	weights := e.ledger.Weights()
	results := make([]RankedResult, 0, len(weights))
	for id, w := range weights {
		createdAt, _ := e.idx.CreatedAt(id)
		if createdAt == 0 {
			if entry, err := e.db.GetLog(id); err == nil && entry != nil {
				createdAt = entry.CreatedAt
			}
		}
		results = append(results, RankedResult{
			ID:        id,
			Attention: w,
			Combined:  w,
			CreatedAt: createdAt,
		})
	}

	sortRanked(results)
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// ByRecency ranks entries within the day window by creation time.
func (e *Engine) ByRecency(days, topK int) ([]RankedResult, error) {
	entries, err := e.db.ListLogs(days)
	if err != nil {
		return nil, err
	}
	if topK > 0 && len(entries) > topK {
		entries = entries[:topK]
	}

	results := make([]RankedResult, len(entries))
	for i, entry := range entries {
		results[i] = RankedResult{
			ID:        entry.ID,
			Attention: e.ledger.Get(entry.ID),
			CreatedAt: entry.CreatedAt,
			Rank:      i + 1,
		}
	}
	return results, nil
}

// sortRanked orders by combined score descending, then newer entries
// first, then id for determinism.
func sortRanked(results []RankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Combined != results[j].Combined {
			return results[i].Combined > results[j].Combined
		}
		if results[i].CreatedAt != results[j].CreatedAt {
			return results[i].CreatedAt > results[j].CreatedAt
		}
		return results[i].ID < results[j].ID
	})
}
