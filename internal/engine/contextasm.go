package engine

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/hyChia88/Text2Cal/internal/store"
)

// BudgetUnit selects how context size is measured.
type BudgetUnit int

const (
	UnitChars BudgetUnit = iota
	UnitTokens
)

// Budget bounds the size of an assembled context.
type Budget struct {
	Limit int
	Unit  BudgetUnit
}

// BundleEntry is one memory snapshot inside a context bundle.
type BundleEntry struct {
	ID         string
	Content    string
	CreatedAt  int64
	IsOriginal bool
}

// ContextBundle is the ordered, budget-constrained set of memories handed
// to the generation service.
type ContextBundle struct {
	Entries []BundleEntry
	Size    int
	Unit    BudgetUnit
}

// IDs returns the bundle's entry ids in order.
func (b *ContextBundle) IDs() []string {
	ids := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		ids[i] = e.ID
	}
	return ids
}

// Text joins the bundle's contents, one paragraph per entry.
func (b *ContextBundle) Text() string {
	parts := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		parts[i] = e.Content
	}
	return strings.Join(parts, "\n\n")
}

// Span is one paragraph of a merged completion, tagged by provenance.
type Span struct {
	Text       string `json:"text"`
	IsOriginal bool   `json:"is_original"`
}

// Assembler builds context bundles and merges generation output back in.
// The token encoder loads lazily on first token-budget use.
type Assembler struct {
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
}

// NewAssembler returns an assembler. Token counting uses the cl100k_base
// encoding.
func NewAssembler() *Assembler {
	return &Assembler{}
}

func (a *Assembler) encoder() (*tiktoken.Tiktoken, error) {
	a.encOnce.Do(func() {
		a.enc, a.encErr = tiktoken.GetEncoding("cl100k_base")
	})
	if a.encErr != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", a.encErr)
	}
	return a.enc, nil
}

// Measure returns the size of a text in the budget's unit.
func (a *Assembler) Measure(text string, unit BudgetUnit) (int, error) {
	switch unit {
	case UnitTokens:
		enc, err := a.encoder()
		if err != nil {
			return 0, err
		}
		return len(enc.Encode(text, nil, nil)), nil
	default:
		return utf8.RuneCountInString(text), nil
	}
}

// BuildContext greedily packs entries in the given order until the budget
// is exhausted. An entry that does not fit whole is skipped, never
// truncated mid-entry.
func (a *Assembler) BuildContext(entries []store.LogEntry, budget Budget) (*ContextBundle, error) {
	bundle := &ContextBundle{Unit: budget.Unit}
	if budget.Limit <= 0 {
		return bundle, nil
	}

	remaining := budget.Limit
	for _, e := range entries {
		size, err := a.Measure(e.Content, budget.Unit)
		if err != nil {
			return nil, err
		}
		if size > remaining {
			continue
		}
		bundle.Entries = append(bundle.Entries, BundleEntry{
			ID:         e.ID,
			Content:    e.Content,
			CreatedAt:  e.CreatedAt,
			IsOriginal: true,
		})
		bundle.Size += size
		remaining -= size
	}
	return bundle, nil
}

var paragraphRe = regexp.MustCompile(`\n\s*\n`)

// MergeCompletion splits generated text into paragraphs and tags each one
// by provenance: a paragraph whose normalized text exactly matches one of
// the bundle's entries is original, anything else is synthesized. The
// generator is not obligated to echo inputs verbatim, so matching
// tolerates whitespace and punctuation differences.
func MergeCompletion(bundle *ContextBundle, generated string) []Span {
	originals := make(map[string]bool, len(bundle.Entries))
	for _, e := range bundle.Entries {
		originals[normalizeText(e.Content)] = true
	}

	var spans []Span
	for _, para := range paragraphRe.Split(generated, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		spans = append(spans, Span{
			Text:       para,
			IsOriginal: originals[normalizeText(para)],
		})
	}
	return spans
}

// normalizeText lowercases, strips punctuation, and collapses whitespace.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
