package engine

import (
	"math"
)

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 0 for zero-length or mismatched vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Affinity computes the pairwise cosine similarity matrix over a memory
// set. The matrix is symmetric with ones on the diagonal.
func Affinity(embeddings [][]float32) [][]float64 {
	n := len(embeddings)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := CosineSimilarity(embeddings[i], embeddings[j])
			m[i][j] = sim
			m[j][i] = sim
		}
	}
	return m
}

// AttentionScores computes scaled dot-product attention of a query over a
// candidate set: softmax(dot(q, e_i) / sqrt(d)). The result is a
// probability distribution summing to 1. An empty candidate set yields an
// empty slice; a single candidate trivially gets weight 1.
func AttentionScores(query []float32, embeddings [][]float32) []float64 {
	n := len(embeddings)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []float64{1}
	}

	d := float64(len(query))
	if d == 0 {
		d = 1
	}
	scale := math.Sqrt(d)

	logits := make([]float64, n)
	for i, e := range embeddings {
		var dot float64
		for j := range query {
			if j < len(e) {
				dot += float64(query[j]) * float64(e[j])
			}
		}
		logits[i] = dot / scale
	}

	// Subtract the max logit before exponentiating for numeric stability.
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	scores := make([]float64, n)
	var sum float64
	for i, l := range logits {
		scores[i] = math.Exp(l - maxLogit)
		sum += scores[i]
	}
	for i := range scores {
		scores[i] /= sum
	}
	return scores
}

// ContextVector blends embeddings by their attention scores:
// c = sum_i s_i * e_i. An empty set yields a nil (zero) vector.
func ContextVector(scores []float64, embeddings [][]float32) []float32 {
	if len(embeddings) == 0 {
		return nil
	}
	dims := len(embeddings[0])
	acc := make([]float64, dims)
	for i, e := range embeddings {
		if i >= len(scores) {
			break
		}
		for j := 0; j < dims && j < len(e); j++ {
			acc[j] += scores[i] * float64(e[j])
		}
	}
	out := make([]float32, dims)
	for j, v := range acc {
		out[j] = float32(v)
	}
	return out
}
