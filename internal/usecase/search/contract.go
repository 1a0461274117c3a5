package search

import (
	"context"

	"github.com/talent-cloud/jobdex/internal/domain"
	"github.com/talent-cloud/jobdex/internal/domain/search/result"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	// SearchPool retrieves the k nearest postings with semantic scores.
	SearchPool(ctx context.Context, vector []float32, k int) ([]result.Candidate, error)
	// Get returns one posting by job id, or domain.ErrJobNotFound.
	Get(ctx context.Context, jobID string) (domain.JobPosting, error)
}

// Embedder vectorizes text into embeddings. The search path embeds
// per-candidate titles and locations, so this should be the cached decorator.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
