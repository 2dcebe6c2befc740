package engine

import (
	"sort"
	"sync"
)

// Decay parameters: each step down the recency ranking costs 0.15 weight,
// with a floor of 0.1 so old entries never vanish entirely.
const (
	decayStep   = 0.15
	weightFloor = 0.1
	weightCeil  = 1.0
)

// Ledger tracks one attention weight per entry. Weights come from recency
// decay recomputed on every read, unless a manual override is set. Manual
// overrides persist until cleared; the engine mirrors them to the durable
// store so the ledger can be rebuilt after a restart.
type Ledger struct {
	mu      sync.Mutex
	created map[string]int64
	manual  map[string]float64
	ranks   map[string]int
	stale   bool
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		created: make(map[string]int64),
		manual:  make(map[string]float64),
		ranks:   make(map[string]int),
	}
}

// Track registers an entry with its creation timestamp.
func (l *Ledger) Track(id string, createdAt int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.created[id] = createdAt
	l.stale = true
}

// Forget drops an entry and any manual override it had.
func (l *Ledger) Forget(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.created, id)
	delete(l.manual, id)
	l.stale = true
}

// Get returns the effective weight for an entry. Manual overrides win;
// otherwise the weight decays with the entry's recency rank. Unknown ids
// return the initial weight 1.0.
func (l *Ledger) Get(id string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getLocked(id)
}

func (l *Ledger) getLocked(id string) float64 {
	if w, ok := l.manual[id]; ok {
		return clampWeight(w)
	}
	if _, ok := l.created[id]; !ok {
		return weightCeil
	}
	l.refreshRanks()
	return decayForRank(l.ranks[id])
}

// SetManual pins an entry's weight, clamped to [0.1, 1.0].
func (l *Ledger) SetManual(id string, weight float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.manual[id] = clampWeight(weight)
}

// ClearManual reverts an entry to automatic decay. No-op if no override.
func (l *Ledger) ClearManual(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.manual, id)
}

// ResetAll clears every manual override.
func (l *Ledger) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.manual = make(map[string]float64)
}

// HasManual reports whether an entry has a manual override.
func (l *Ledger) HasManual(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.manual[id]
	return ok
}

// Weights returns a snapshot of effective weights for all tracked entries.
func (l *Ledger) Weights() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshRanks()
	out := make(map[string]float64, len(l.created))
	for id := range l.created {
		out[id] = l.getLocked(id)
	}
	return out
}

// Size returns the number of tracked entries.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.created)
}

// refreshRanks recomputes recency ranks (0 = most recent) if any entry was
// tracked or forgotten since the last read. Caller holds the lock.
func (l *Ledger) refreshRanks() {
	if !l.stale {
		return
	}
	type rec struct {
		id        string
		createdAt int64
	}
	recs := make([]rec, 0, len(l.created))
	for id, at := range l.created {
		recs = append(recs, rec{id, at})
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].createdAt != recs[j].createdAt {
			return recs[i].createdAt > recs[j].createdAt
		}
		return recs[i].id < recs[j].id
	})
	l.ranks = make(map[string]int, len(recs))
	for rank, r := range recs {
		l.ranks[r.id] = rank
	}
	l.stale = false
}

func decayForRank(rank int) float64 {
	w := 1 - decayStep*float64(rank)
	if w < weightFloor {
		return weightFloor
	}
	return w
}

func clampWeight(w float64) float64 {
	if w < weightFloor {
		return weightFloor
	}
	if w > weightCeil {
		return weightCeil
	}
	return w
}
