package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimensions() int
}

// OpenAIEmbedder embeds text through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
	dims   int
}

// NewOpenAIEmbedder creates an embedder for the given model.
// text-embedding-3-small produces 1536 dimensions.
func NewOpenAIEmbedder(apiKey, model string, dims int) *OpenAIEmbedder {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	if dims <= 0 {
		dims = 1536
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		dims:   dims,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", ErrEmbeddingUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: openai returned no data", ErrEmbeddingUnavailable)
	}
	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (e *OpenAIEmbedder) Model() string   { return e.model }
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// HashEmbedder produces deterministic pseudo-embeddings from a hash of the
// text. Same text always maps to the same unit vector. Useful offline and
// in tests; carries no real semantics.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder. Defaults to 384 dimensions.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, e.dims)
	var norm float64
	for i := range vec {
		// Linear congruential step per dimension
		state = state*6364136223846793005 + 1442695040888963407
		v := float64(int64(state>>11))/float64(1<<52) - 1 // roughly [-1, 1)
		vec[i] = float32(v)
		norm += v * v
	}

	// L2 normalize
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

func (e *HashEmbedder) Model() string   { return "hash" }
func (e *HashEmbedder) Dimensions() int { return e.dims }

var retryBaseDelay = 500 * time.Millisecond

// embedWithRetry calls the embedder with exponential backoff. It honors
// context cancellation between attempts and wraps the final failure in
// ErrEmbeddingUnavailable.
func embedWithRetry(ctx context.Context, e Embedder, text string, attempts int) ([]float32, error) {
	if attempts <= 0 {
		attempts = 1
	}
	backoff := retryBaseDelay
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		vec, err := e.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: after %d attempts: %v", ErrEmbeddingUnavailable, attempts, lastErr)
}
