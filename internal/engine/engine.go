// Package engine implements the memory attention and retrieval core:
// the attention ledger, self-attention scoring, ranking, context
// assembly, and the mutation protocol that keeps the durable store,
// vector index, ledger, and cache consistent.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/hyChia88/Text2Cal/internal/index"
	"github.com/hyChia88/Text2Cal/internal/llm"
	"github.com/hyChia88/Text2Cal/internal/store"
)

// Options tune the engine. Zero values fall back to defaults.
type Options struct {
	Alpha         float64 // blend between attention scores and ledger weights
	EmbedRetries  int
	ContextBudget Budget
	CandidateDays int
	TopK          int
	CacheEntries  int64
}

// DefaultOptions returns the standard engine tuning.
func DefaultOptions() Options {
	return Options{
		Alpha:         0.5,
		EmbedRetries:  3,
		ContextBudget: Budget{Limit: 2000, Unit: UnitChars},
		CandidateDays: 30,
		TopK:          10,
		CacheEntries:  1024,
	}
}

// vectorIndex is the similarity-index surface the engine depends on,
// satisfied by index.Index.
type vectorIndex interface {
	Upsert(ctx context.Context, id string, vec []float32, createdAt int64) error
	Remove(ctx context.Context, id string) error
	Query(ctx context.Context, vec []float32, k int) ([]index.Hit, error)
	Embedding(id string) ([]float32, bool)
	CreatedAt(id string) (int64, bool)
	Size() int
}

// Engine owns one workspace's memory state. Mutations are serialized
// through a single writer mutex and applied in a fixed order: durable
// store, then vector index, then ledger, then the generation counter.
// Reads run against the live structures without taking the writer lock.
type Engine struct {
	mu       sync.Mutex
	db       *store.DB
	idx      vectorIndex
	ledger   *Ledger
	cache    *Cache
	asm      *Assembler
	embedder Embedder
	llm      llm.Client
	gen      atomic.Uint64
	opts     Options
}

// New creates an engine over the given store. Call Rebuild to load
// existing entries before serving.
func New(db *store.DB, embedder Embedder, client llm.Client, opts Options) (*Engine, error) {
	if opts.Alpha <= 0 || opts.Alpha > 1 {
		opts.Alpha = 0.5
	}
	if opts.EmbedRetries <= 0 {
		opts.EmbedRetries = 3
	}
	if opts.ContextBudget.Limit <= 0 {
		opts.ContextBudget = Budget{Limit: 2000, Unit: UnitChars}
	}
	if opts.CandidateDays <= 0 {
		opts.CandidateDays = 30
	}
	if opts.TopK <= 0 {
		opts.TopK = 10
	}

	idx, err := index.New()
	if err != nil {
		return nil, fmt.Errorf("new index: %w", err)
	}
	cache, err := NewCache(opts.CacheEntries)
	if err != nil {
		return nil, fmt.Errorf("new cache: %w", err)
	}

	return &Engine{
		db:       db,
		idx:      idx,
		ledger:   NewLedger(),
		cache:    cache,
		asm:      NewAssembler(),
		embedder: embedder,
		llm:      client,
		opts:     opts,
	}, nil
}

// Close releases the engine's cache resources.
func (e *Engine) Close() {
	e.cache.Close()
}

// Generation returns the current mutation counter.
func (e *Engine) Generation() uint64 {
	return e.gen.Load()
}

// CacheStats returns cumulative cache hit and miss counts.
func (e *Engine) CacheStats() (hits, misses uint64) {
	return e.cache.Hits(), e.cache.Misses()
}

// Rebuild reconstructs the index and ledger from the durable store.
// Entries whose stored vector is missing are re-queued as pending.
func (e *Engine) Rebuild(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries, err := e.db.ListLogs(0)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	records, err := e.db.AllVectors()
	if err != nil {
		return fmt.Errorf("rebuild vectors: %w", err)
	}
	vectors := make(map[string][]float32, len(records))
	for _, rec := range records {
		vectors[rec.LogID] = rec.Embedding
	}

	indexed, pending := 0, 0
	for _, entry := range entries {
		e.ledger.Track(entry.ID, entry.CreatedAt)

		vec, ok := vectors[entry.ID]
		if !ok {
			if entry.EmbedState != store.EmbedPending {
				if err := e.db.SetEmbedState(entry.ID, store.EmbedPending); err != nil {
					return fmt.Errorf("rebuild requeue %s: %w", entry.ID, err)
				}
			}
			pending++
			continue
		}
		if err := e.idx.Upsert(ctx, entry.ID, vec, entry.CreatedAt); err != nil {
			log.Printf("engine: rebuild skipping %s: %v", entry.ID, err)
			continue
		}
		indexed++
	}

	overrides, err := e.db.AllOverrides()
	if err != nil {
		return fmt.Errorf("rebuild overrides: %w", err)
	}
	for id, weight := range overrides {
		e.ledger.SetManual(id, weight)
	}

	e.gen.Add(1)
	log.Printf("engine: rebuilt %d indexed, %d pending, %d overrides",
		indexed, pending, len(overrides))
	return nil
}

// AddRequest carries the fields for a new entry. Category, tags, and
// importance are derived from the content when absent.
type AddRequest struct {
	Content    string
	Category   string
	Tags       []string
	Importance *float64
}

// Add ingests a new memory entry. The embedding call runs outside the
// writer lock; if it fails after retries the entry is stored in the
// pending state and excluded from semantic ranking until EmbedMissing
// succeeds.
func (e *Engine) Add(ctx context.Context, req AddRequest) (*store.LogEntry, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("add: empty content")
	}

	category := req.Category
	if category == "" {
		category = CategorizeContent(req.Content)
	}
	tags := mergeTags(req.Tags, ExtractTags(req.Content))
	importance := ScoreImportance(req.Content)
	if req.Importance != nil {
		importance = clampImportance(*req.Importance)
	}

	vec, embErr := embedWithRetry(ctx, e.embedder, req.Content, e.opts.EmbedRetries)
	if embErr != nil {
		if ctx.Err() != nil {
			// Cancelled: leave the memory set unchanged.
			return nil, ctx.Err()
		}
		log.Printf("engine: embedding failed, entry pending: %v", embErr)
	}

	entry := &store.LogEntry{
		ID:         uuid.NewString(),
		Content:    req.Content,
		Category:   category,
		Tags:       tags,
		Importance: importance,
		EmbedState: store.EmbedReady,
	}
	if vec == nil {
		entry.EmbedState = store.EmbedPending
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.db.CreateLog(entry); err != nil {
		return nil, err
	}
	if vec != nil {
		if err := e.db.SaveVector(entry.ID, vec, e.embedder.Model()); err != nil {
			return nil, err
		}
		if err := e.idx.Upsert(ctx, entry.ID, vec, entry.CreatedAt); err != nil {
			// Keep the entry, but out of semantic ranking.
			log.Printf("engine: index insert failed for %s: %v", entry.ID, err)
			if serr := e.db.SetEmbedState(entry.ID, store.EmbedPending); serr != nil {
				return nil, serr
			}
			entry.EmbedState = store.EmbedPending
		}
	}
	e.ledger.Track(entry.ID, entry.CreatedAt)

	// High content-derived or caller-supplied importance pins the
	// attention weight so it survives recency decay.
	if importance > 0.5 {
		if err := e.db.SetOverride(entry.ID, importance); err != nil {
			return nil, err
		}
		e.ledger.SetManual(entry.ID, importance)
	}

	e.gen.Add(1)
	return entry, nil
}

// UpdateRequest carries optional changes to an existing entry.
type UpdateRequest struct {
	Content    *string
	Category   *string
	Tags       []string
	Importance *float64
}

// Update edits an entry. A content change regenerates the embedding.
func (e *Engine) Update(ctx context.Context, id string, req UpdateRequest) (*store.LogEntry, error) {
	entry, err := e.db.GetLog(id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("update %s: %w", id, ErrUnknownID)
	}

	var vec []float32
	contentChanged := req.Content != nil && *req.Content != entry.Content
	if contentChanged {
		var embErr error
		vec, embErr = embedWithRetry(ctx, e.embedder, *req.Content, e.opts.EmbedRetries)
		if embErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("engine: re-embedding failed, entry pending: %v", embErr)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Re-read under the writer lock; the entry may have moved since the
	// embedding call.
	entry, err = e.db.GetLog(id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("update %s: %w", id, ErrUnknownID)
	}

	if req.Content != nil {
		entry.Content = *req.Content
	}
	if req.Category != nil {
		entry.Category = *req.Category
	}
	if req.Tags != nil {
		entry.Tags = req.Tags
	}
	if req.Importance != nil {
		entry.Importance = clampImportance(*req.Importance)
	}
	if contentChanged {
		entry.EmbedState = store.EmbedReady
		if vec == nil {
			entry.EmbedState = store.EmbedPending
		}
	}

	if err := e.db.UpdateLog(entry); err != nil {
		return nil, err
	}
	if contentChanged {
		if vec != nil {
			if err := e.db.SaveVector(id, vec, e.embedder.Model()); err != nil {
				return nil, err
			}
			if err := e.idx.Upsert(ctx, id, vec, entry.CreatedAt); err != nil {
				log.Printf("engine: index update failed for %s: %v", id, err)
				if serr := e.db.SetEmbedState(id, store.EmbedPending); serr != nil {
					return nil, serr
				}
				entry.EmbedState = store.EmbedPending
			}
		} else {
			// Stale vector must not linger in the index.
			if err := e.idx.Remove(ctx, id); err != nil {
				return nil, err
			}
			if err := e.db.DeleteVector(id); err != nil {
				return nil, err
			}
		}
	}

	e.gen.Add(1)
	return entry, nil
}

// Delete removes an entry from the store, index, and ledger as one unit.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.db.GetLog(id)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("delete %s: %w", id, ErrUnknownID)
	}

	if err := e.db.DeleteLog(id); err != nil {
		return err
	}
	if err := e.idx.Remove(ctx, id); err != nil {
		// The store row is already gone; still drop the ledger entry and
		// rotate cache keys so stale rankings cannot be served.
		e.ledger.Forget(id)
		e.gen.Add(1)
		return err
	}
	e.ledger.Forget(id)

	e.gen.Add(1)
	return nil
}

// SetWeight pins an entry's attention weight, clamped to [0.1, 1.0].
func (e *Engine) SetWeight(id string, weight float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.db.GetLog(id)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, fmt.Errorf("set weight %s: %w", id, ErrUnknownID)
	}

	clamped := clampWeight(weight)
	if err := e.db.SetOverride(id, clamped); err != nil {
		return 0, err
	}
	e.ledger.SetManual(id, clamped)

	e.gen.Add(1)
	return clamped, nil
}

// ClearWeight reverts an entry to automatic decay.
func (e *Engine) ClearWeight(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.db.GetLog(id)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("clear weight %s: %w", id, ErrUnknownID)
	}

	if err := e.db.DeleteOverride(id); err != nil {
		return err
	}
	e.ledger.ClearManual(id)

	e.gen.Add(1)
	return nil
}

// ResetWeights clears every manual override.
func (e *Engine) ResetWeights() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.db.ClearOverrides(); err != nil {
		return err
	}
	e.ledger.ResetAll()

	e.gen.Add(1)
	return nil
}

// Weight returns the effective attention weight for an entry.
func (e *Engine) Weight(id string) float64 {
	return e.ledger.Get(id)
}

// EmbedMissing retries embedding for entries stuck in the pending state.
// An entry whose vector is already stored (only the index insert failed)
// is reused without an embedding call; a stored vector with stale
// dimensionality is dropped so the next pass re-embeds. Returns the
// number of entries brought into the index.
func (e *Engine) EmbedMissing(ctx context.Context) (int, error) {
	pending, err := e.db.ListPending()
	if err != nil {
		return 0, err
	}

	done := 0
	for _, entry := range pending {
		var vec []float32
		rec, err := e.db.GetVector(entry.ID)
		if err != nil {
			return done, err
		}
		if rec != nil {
			vec = rec.Embedding
		}

		fresh := false
		if vec == nil {
			var embErr error
			vec, embErr = embedWithRetry(ctx, e.embedder, entry.Content, e.opts.EmbedRetries)
			if embErr != nil {
				if ctx.Err() != nil {
					return done, ctx.Err()
				}
				log.Printf("engine: embed missing %s: %v", entry.ID, embErr)
				continue
			}
			fresh = true
		}

		e.mu.Lock()
		err = func() error {
			if fresh {
				if err := e.db.SaveVector(entry.ID, vec, e.embedder.Model()); err != nil {
					return err
				}
			}
			if err := e.idx.Upsert(ctx, entry.ID, vec, entry.CreatedAt); err != nil {
				if !fresh && errors.Is(err, ErrDimensionMismatch) {
					if derr := e.db.DeleteVector(entry.ID); derr != nil {
						return derr
					}
				}
				return err
			}
			return e.db.SetEmbedState(entry.ID, store.EmbedReady)
		}()
		if err == nil {
			e.gen.Add(1)
			done++
		} else {
			log.Printf("engine: embed missing %s: %v", entry.ID, err)
		}
		e.mu.Unlock()
	}

	if done > 0 {
		log.Printf("engine: embedded %d pending entries", done)
	}
	return done, nil
}

// List returns entries within the day window, newest first.
func (e *Engine) List(days int) ([]store.LogEntry, error) {
	return e.db.ListLogs(days)
}

// Get returns one entry, or ErrUnknownID.
func (e *Engine) Get(id string) (*store.LogEntry, error) {
	entry, err := e.db.GetLog(id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("get %s: %w", id, ErrUnknownID)
	}
	return entry, nil
}

func mergeTags(a, b []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range [][]string{a, b} {
		for _, tag := range set {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

func clampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
