package domain

import (
	"context"
	"fmt"
	"math"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// BatchFallback calls Embed once per text. Safety net for providers without
// native batch support.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// Composite sub-embedding weights. The indexed vector for every posting is
// built with exactly these weights, so the query side must use them too or
// KNN distances stop being comparable.
const (
	CompositeTitleWeight    = 0.2
	CompositeLocationWeight = 0.7
	CompositeSkillsWeight   = 0.1
)

// CompositeEmbedding combines title, location, and skills sub-embeddings into
// the single vector stored in (and queried against) the index.
func CompositeEmbedding(title, location, skills []float32) ([]float32, error) {
	if len(title) != len(location) || len(title) != len(skills) {
		return nil, fmt.Errorf("%w: title=%d location=%d skills=%d",
			ErrVectorDimMismatch, len(title), len(location), len(skills))
	}

	out := make([]float32, len(title))
	for i := range out {
		out[i] = CompositeTitleWeight*title[i] +
			CompositeLocationWeight*location[i] +
			CompositeSkillsWeight*skills[i]
	}
	return out, nil
}

// Cosine returns the cosine similarity of two vectors in [-1, 1].
// Mismatched or zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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
