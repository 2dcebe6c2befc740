package engine

import (
	"context"
	"log"

	"github.com/hyChia88/Text2Cal/internal/llm"
	"github.com/hyChia88/Text2Cal/internal/store"
)

// Suggestion is the outcome of a generation-backed retrieval. When the
// generation service is down, Degraded is set and Text is empty; the
// ranked results are still returned.
type Suggestion struct {
	Query    string         `json:"query"`
	Results  []RankedResult `json:"results"`
	Text     string         `json:"text"`
	Spans    []Span         `json:"spans,omitempty"`
	Degraded bool           `json:"degraded"`
}

// Suggest ranks memories for the query, assembles a budgeted context,
// asks the generation service for a continuation, and merges the output
// back with provenance tags. Generation failure degrades to an empty
// suggestion rather than an error.
func (e *Engine) Suggest(ctx context.Context, query string, days, topK int) (*Suggestion, error) {
	results, err := e.Search(ctx, query, days, topK)
	if err != nil {
		return nil, err
	}

	s := &Suggestion{Query: query, Results: results}
	if len(results) == 0 {
		s.Degraded = true
		return s, nil
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	entries, err := e.db.GetLogsByIDs(ids)
	if err != nil {
		return nil, err
	}
	// Restore rank order; the store returns newest first.
	byID := make(map[string]store.LogEntry, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
	}
	ordered := make([]store.LogEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := byID[id]; ok {
			ordered = append(ordered, entry)
		}
	}

	bundle, err := e.asm.BuildContext(ordered, e.opts.ContextBudget)
	if err != nil {
		return nil, err
	}
	if len(bundle.Entries) == 0 {
		s.Degraded = true
		return s, nil
	}

	prompt := llm.SuggestionPrompt(query, bundle.Text())
	resp, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("suggest: generation failed: %v", err)
		s.Degraded = true
		return s, nil
	}

	s.Text = resp.Content
	s.Spans = MergeCompletion(bundle, resp.Content)

	record := &store.Suggestion{
		Query:  query,
		LogIDs: bundle.IDs(),
		Output: resp.Content,
	}
	if err := e.db.SaveSuggestion(record); err != nil {
		log.Printf("suggest: save history: %v", err)
	}
	return s, nil
}

// History returns recent generation records, newest first.
func (e *Engine) History(limit int) ([]store.Suggestion, error) {
	return e.db.ListSuggestions(limit)
}

// Insights summarizes the memory set over a day window: per-category
// counts plus pairwise affinity statistics over the embedded entries.
type Insights struct {
	Days          int            `json:"days"`
	TotalEntries  int            `json:"total_entries"`
	PendingCount  int            `json:"pending_count"`
	Categories    map[string]int `json:"categories"`
	MeanAffinity  float64        `json:"mean_affinity"`
	StrongestPair []string       `json:"strongest_pair,omitempty"`
	StrongestSim  float64        `json:"strongest_similarity"`
	CacheHits     uint64         `json:"cache_hits"`
	CacheMisses   uint64         `json:"cache_misses"`
}

// Pairwise affinity is O(n^2), so the insight computation caps the
// candidate set at the most recent entries.
const insightsAffinityCap = 64

// Insights computes memory statistics for the day window.
func (e *Engine) Insights(days int) (*Insights, error) {
	if days <= 0 {
		days = e.opts.CandidateDays
	}

	entries, err := e.db.ListLogs(days)
	if err != nil {
		return nil, err
	}
	categories, err := e.db.CountByCategory(days)
	if err != nil {
		return nil, err
	}

	ins := &Insights{
		Days:         days,
		TotalEntries: len(entries),
		Categories:   categories,
	}
	ins.CacheHits, ins.CacheMisses = e.CacheStats()

	var (
		ids  []string
		embs [][]float32
	)
	for _, entry := range entries {
		if entry.EmbedState == store.EmbedPending {
			ins.PendingCount++
			continue
		}
		if len(ids) >= insightsAffinityCap {
			continue
		}
		if emb, ok := e.idx.Embedding(entry.ID); ok {
			ids = append(ids, entry.ID)
			embs = append(embs, emb)
		}
	}

	if len(embs) < 2 {
		return ins, nil
	}

	affinity := Affinity(embs)
	var sum float64
	pairs := 0
	for i := range affinity {
		for j := i + 1; j < len(affinity); j++ {
			sum += affinity[i][j]
			pairs++
			if affinity[i][j] > ins.StrongestSim || ins.StrongestPair == nil {
				ins.StrongestSim = affinity[i][j]
				ins.StrongestPair = []string{ids[i], ids[j]}
			}
		}
	}
	ins.MeanAffinity = sum / float64(pairs)
	return ins, nil
}
