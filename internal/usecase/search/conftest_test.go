package search

import (
	"context"
	"testing"

	"github.com/talent-cloud/jobdex/internal/config"
	"github.com/talent-cloud/jobdex/internal/domain"
	"github.com/talent-cloud/jobdex/internal/domain/search/result"
	"github.com/talent-cloud/jobdex/internal/normalize"
)

// mockRepo implements Repository for tests.
type mockRepo struct {
	searchPoolFn func(ctx context.Context, vector []float32, k int) ([]result.Candidate, error)
	getFn        func(ctx context.Context, jobID string) (domain.JobPosting, error)
	poolCalls    int
}

func (m *mockRepo) SearchPool(ctx context.Context, vector []float32, k int) ([]result.Candidate, error) {
	m.poolCalls++
	if m.searchPoolFn != nil {
		return m.searchPoolFn(ctx, vector, k)
	}
	return nil, nil
}

func (m *mockRepo) Get(ctx context.Context, jobID string) (domain.JobPosting, error) {
	if m.getFn != nil {
		return m.getFn(ctx, jobID)
	}
	return domain.JobPosting{}, domain.ErrJobNotFound
}

// fakeEmbedder returns a fixed vector per known text and a default for the
// rest, so cosine similarities in tests are predictable.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0, 0}}, nil
}

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		PoolSize:       100,
		DefaultResults: 5,
		MaxResults:     50,
		ScoreThreshold: 0.3,
		MaxPerTitle:    2,
		MaxPerCompany:  2,
		Weights:        config.DefaultWeights(),
	}
}

func newTestService(t *testing.T) (*Service, *mockRepo, *fakeEmbedder) {
	t.Helper()
	repo := &mockRepo{}
	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	svc := New(
		repo,
		emb,
		normalize.NewTitle(),
		normalize.NewSkills(),
		normalize.NewLocation(nil),
		testSearchConfig(),
		false,
	)
	return svc, repo, emb
}

func testJob(id, company, titleNorm, locNorm, skills string, remote bool) domain.JobPosting {
	return domain.JobPosting{
		JobID:              id,
		CompanyName:        company,
		TitleClean:         titleNorm,
		TitleNormalized:    titleNorm,
		Location:           locNorm,
		LocationNormalized: locNorm,
		RemoteAllowed:      remote,
		CombinedSkills:     skills,
		Document:           "Title: " + titleNorm,
	}
}
