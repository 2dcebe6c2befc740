package engine

import (
	"errors"

	"github.com/hyChia88/Text2Cal/internal/index"
)

// ErrDimensionMismatch mirrors the index sentinel so callers can check it
// without importing the index package.
var ErrDimensionMismatch = index.ErrDimensionMismatch

var (
	// ErrUnknownID marks a reference to an entry the engine does not know.
	// Batch operations skip these rather than fail.
	ErrUnknownID = errors.New("unknown entry id")

	// ErrEmbeddingUnavailable means the embedding service failed after all
	// retries. The entry stays in the pending state.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrInvariant indicates internal state that should be impossible under
	// the mutation protocol. Operations abort and leave prior state intact.
	ErrInvariant = errors.New("invariant violation")
)
