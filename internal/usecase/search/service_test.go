package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/talent-cloud/jobdex/internal/domain"
	"github.com/talent-cloud/jobdex/internal/domain/search/query"
	"github.com/talent-cloud/jobdex/internal/domain/search/result"
)

func mustQuery(t *testing.T, text string, filters query.Filters, limit int) query.Query {
	t.Helper()
	q, err := query.New(text, filters, limit, query.Weights{})
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}

func TestSearch_HappyPath(t *testing.T) {
	svc, repo, emb := newTestService(t)

	queryTitle := svc.titles.Normalize("Python developer")
	// orthogonal to the default vector: zero cosine for the weak candidate
	emb.vectors["mid-level accountant"] = []float32{0, 1, 0, 0}

	repo.searchPoolFn = func(_ context.Context, vector []float32, k int) ([]result.Candidate, error) {
		if k != 100 {
			t.Errorf("pool size = %d, want 100", k)
		}
		if len(vector) != 4 {
			t.Errorf("vector dim = %d, want 4", len(vector))
		}
		return []result.Candidate{
			{Job: testJob("1", "acme", queryTitle, "austin, texas", "python", true), Semantic: 0.9},
			{Job: testJob("2", "globex", "mid-level accountant", "austin, texas", "excel", false), Semantic: 0.5},
		}, nil
	}

	matches, _ := svc.Search(context.Background(), mustQuery(t, "Python developer", query.Filters{}, 5))

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Job().JobID != "1" {
		t.Errorf("unexpected job: %s", m.Job().JobID)
	}
	if m.Rank() != 1 {
		t.Errorf("rank = %d, want 1", m.Rank())
	}
	if m.Scores().Title != 1.0 {
		t.Errorf("title score = %v, want 1.0 for exact normalized match", m.Scores().Title)
	}
	// remote job: fixed location score
	if m.Scores().Location != 0.8 {
		t.Errorf("location score = %v, want 0.8", m.Scores().Location)
	}
	// weights {0.1, 0.3, 0.2, 0.4}: 0.09 + 0.3 + 0 + 0.32
	if diff := m.Final() - 0.71; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("final = %v, want 0.71", m.Final())
	}
}

func TestSearch_SortedByFinalScore(t *testing.T) {
	svc, repo, emb := newTestService(t)

	queryTitle := svc.titles.Normalize("Go developer")
	emb.vectors["mid-level clerk"] = []float32{0, 1, 0, 0}

	repo.searchPoolFn = func(_ context.Context, _ []float32, _ int) ([]result.Candidate, error) {
		// lower semantic score but exact title: must still outrank
		return []result.Candidate{
			{Job: testJob("weak", "acme", "mid-level clerk", "austin, texas", "", true), Semantic: 0.99},
			{Job: testJob("strong", "globex", queryTitle, "austin, texas", "", true), Semantic: 0.5},
		}, nil
	}

	matches, _ := svc.Search(context.Background(), mustQuery(t, "Go developer", query.Filters{}, 5))

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Job().JobID != "strong" {
		t.Errorf("expected exact-title job first, got %s", matches[0].Job().JobID)
	}
	if matches[0].Rank() != 1 || matches[1].Rank() != 2 {
		t.Errorf("ranks = %d, %d", matches[0].Rank(), matches[1].Rank())
	}
	if matches[0].Final() <= matches[1].Final() {
		t.Errorf("not sorted: %v <= %v", matches[0].Final(), matches[1].Final())
	}
}

func TestSearch_RemoteHardFilter(t *testing.T) {
	svc, repo, _ := newTestService(t)

	queryTitle := svc.titles.Normalize("Go developer")

	repo.searchPoolFn = func(_ context.Context, _ []float32, _ int) ([]result.Candidate, error) {
		return []result.Candidate{
			{Job: testJob("onsite", "acme", queryTitle, "austin, texas", "", false), Semantic: 0.95},
			{Job: testJob("remote", "globex", queryTitle, "austin, texas", "", true), Semantic: 0.9},
		}, nil
	}

	matches, _ := svc.Search(context.Background(),
		mustQuery(t, "Go developer", query.Filters{Remote: true}, 5))

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Job().JobID != "remote" {
		t.Errorf("expected only the remote job, got %s", matches[0].Job().JobID)
	}
}

func TestSearch_ThresholdDiscardsWeakMatches(t *testing.T) {
	svc, repo, emb := newTestService(t)

	emb.vectors["mid-level florist"] = []float32{0, 1, 0, 0}

	repo.searchPoolFn = func(_ context.Context, _ []float32, _ int) ([]result.Candidate, error) {
		// title 0, skills 0, location 0, semantic 0.5 → final 0.05 ≤ 0.3
		return []result.Candidate{
			{Job: testJob("1", "acme", "mid-level florist", "austin, texas", "", false), Semantic: 0.5},
		}, nil
	}

	matches, _ := svc.Search(context.Background(), mustQuery(t, "Go developer", query.Filters{}, 5))
	if len(matches) != 0 {
		t.Fatalf("expected no matches above threshold, got %d", len(matches))
	}
}

func TestSearch_RetrievalFailureYieldsEmpty(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.searchPoolFn = func(_ context.Context, _ []float32, _ int) ([]result.Candidate, error) {
		return nil, errors.New("index down")
	}

	matches, err := svc.Search(context.Background(), mustQuery(t, "Go developer", query.Filters{}, 5))
	if err != nil {
		t.Fatalf("transient retrieval failures must not surface, got %v", err)
	}
	if matches != nil {
		t.Fatalf("expected nil matches on failure, got %v", matches)
	}
}

func TestSearch_MissingIndexSurfaces(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.searchPoolFn = func(_ context.Context, _ []float32, _ int) ([]result.Candidate, error) {
		return nil, fmt.Errorf("search pool: %w", domain.ErrIndexNotBuilt)
	}

	matches, err := svc.Search(context.Background(), mustQuery(t, "Go developer", query.Filters{}, 5))
	if !errors.Is(err, domain.ErrIndexNotBuilt) {
		t.Fatalf("expected domain.ErrIndexNotBuilt, got %v", err)
	}
	if matches != nil {
		t.Fatalf("expected nil matches, got %v", matches)
	}
}

func TestSearch_EmbeddingFailureYieldsEmpty(t *testing.T) {
	svc, repo, emb := newTestService(t)
	emb.err = errors.New("provider down")

	matches, _ := svc.Search(context.Background(), mustQuery(t, "Go developer", query.Filters{}, 5))
	if matches != nil {
		t.Fatalf("expected nil matches on embedding failure, got %v", matches)
	}
	if repo.poolCalls != 0 {
		t.Errorf("expected no retrieval after embedding failure")
	}
}

func TestSearch_EmptyQueryReturnsEmptyWithoutRetrieval(t *testing.T) {
	svc, repo, _ := newTestService(t)

	matches, _ := svc.Search(context.Background(), mustQuery(t, "", query.Filters{}, 5))
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(matches))
	}
	if repo.poolCalls != 0 {
		t.Errorf("expected no pool retrieval for an empty query")
	}
}

func TestSearch_MinSkillOverlapHardFilter(t *testing.T) {
	svc, repo, _ := newTestService(t)
	svc.cfg.MinSkillOverlap = 0.5

	queryTitle := svc.titles.Normalize("developer")

	repo.searchPoolFn = func(_ context.Context, _ []float32, _ int) ([]result.Candidate, error) {
		return []result.Candidate{
			{Job: testJob("half", "acme", queryTitle, "austin, texas", "python,docker", true), Semantic: 0.9},
			{Job: testJob("none", "globex", queryTitle, "austin, texas", "excel", true), Semantic: 0.9},
		}, nil
	}

	matches, _ := svc.Search(context.Background(),
		mustQuery(t, "developer", query.Filters{Skills: "python, aws"}, 5))

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Job().JobID != "half" {
		t.Errorf("expected the 50%%-overlap job, got %s", matches[0].Job().JobID)
	}
}

func TestJob_Lookup(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.getFn = func(_ context.Context, jobID string) (domain.JobPosting, error) {
		if jobID != "42" {
			t.Errorf("unexpected id: %s", jobID)
		}
		return testJob("42", "acme", "mid-level software engineer", "austin, texas", "go", false), nil
	}

	job, err := svc.Job(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.JobID != "42" {
		t.Errorf("unexpected job: %+v", job)
	}
}

func TestJob_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Job(context.Background(), "missing")
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
