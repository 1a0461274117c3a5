package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/talent-cloud/jobdex/internal/db"
	"github.com/talent-cloud/jobdex/internal/domain"
)

func TestKey(t *testing.T) {
	if got := Key("123"); got != "jobdex:jobs:123" {
		t.Errorf("Key = %q", got)
	}
	if got := IndexName(); got != "jobdex:jobs:idx" {
		t.Errorf("IndexName = %q", got)
	}
}

func TestGet_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hGetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "jobdex:jobs:42" {
			t.Errorf("unexpected key: %s", key)
		}
		return testJobFields("42"), nil
	}

	job, err := repo.Get(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.JobID != "42" || job.CompanyName != "acme" {
		t.Errorf("unexpected job: %+v", job)
	}
	if job.RemoteAllowed {
		t.Error("expected remote_allowed=false")
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hGetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestGet_MissingMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hGetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		fields := testJobFields("42")
		delete(fields, domain.FieldCombinedSkills)
		return fields, nil
	}

	_, err := repo.Get(context.Background(), "42")
	if !errors.Is(err, domain.ErrMissingMetadata) {
		t.Fatalf("expected ErrMissingMetadata, got %v", err)
	}
}

func TestUpsert_WritesVectorBytes(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got []db.HashSetItem
	ms.hSetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		got = items
		return nil
	}

	job, err := domain.JobFromFields("test", testJobFields("7"))
	if err != nil {
		t.Fatalf("JobFromFields: %v", err)
	}

	err = repo.Upsert(context.Background(), []IndexedJob{
		{Job: job, Vector: []float32{0.1, 0.2}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].Key != "jobdex:jobs:7" {
		t.Errorf("unexpected key: %s", got[0].Key)
	}
	if len(got[0].Fields[domain.FieldVector]) != 8 {
		t.Errorf("vector bytes len = %d, want 8", len(got[0].Fields[domain.FieldVector]))
	}
}

func TestUpsert_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hSetMultiFn = func(_ context.Context, _ []db.HashSetItem) error {
		t.Fatal("should not be called")
		return nil
	}
	if err := repo.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_SkipsExisting(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, name string) (bool, error) {
		if name != "jobdex:jobs:idx" {
			t.Errorf("unexpected index name: %s", name)
		}
		return true, nil
	}
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		t.Fatal("should not create when index exists")
		return nil
	}

	if err := repo.EnsureIndex(context.Background(), 1536); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_CreatesWithVectorField(t *testing.T) {
	repo, ms := newTestRepo(t)

	var def *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, d *db.IndexDefinition) error {
		def = d
		return nil
	}

	if err := repo.EnsureIndex(context.Background(), 1536); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def == nil {
		t.Fatal("expected CreateIndex call")
	}

	var vec *db.IndexField
	for i := range def.Fields {
		if def.Fields[i].Type == db.IndexFieldVector {
			vec = &def.Fields[i]
		}
	}
	if vec == nil {
		t.Fatal("expected a vector field")
	}
	if vec.VectorDim != 1536 || vec.VectorDistance != db.DistanceCosine {
		t.Errorf("unexpected vector field: %+v", vec)
	}
}

func TestSearchPool_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "jobdex:jobs:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.K != 100 {
			t.Errorf("unexpected K: %d", q.K)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: "jobdex:jobs:1", Score: 0.9, Fields: testJobFields("1")},
				{Key: "jobdex:jobs:2", Score: 0.4, Fields: testJobFields("2")},
			},
		}, nil
	}

	candidates, err := repo.SearchPool(context.Background(), []float32{0.1}, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Job.JobID != "1" || candidates[0].Semantic != 0.9 {
		t.Errorf("unexpected candidate: %+v", candidates[0])
	}
}

func TestSearchPool_RejectsBrokenPosting(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		broken := testJobFields("1")
		delete(broken, domain.FieldTitleNormalized)
		return &db.SearchResult{
			Total:   1,
			Entries: []db.SearchEntry{{Key: "jobdex:jobs:1", Score: 0.9, Fields: broken}},
		}, nil
	}

	_, err := repo.SearchPool(context.Background(), []float32{0.1}, 10)
	if !errors.Is(err, domain.ErrMissingMetadata) {
		t.Fatalf("expected ErrMissingMetadata, got %v", err)
	}
}

func TestSearchPool_MissingIndex(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}

	_, err := repo.SearchPool(context.Background(), []float32{0.1}, 10)
	if !errors.Is(err, domain.ErrIndexNotBuilt) {
		t.Fatalf("expected ErrIndexNotBuilt, got %v", err)
	}
}

func TestCount(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchCountFn = func(_ context.Context, index, query string) (int, error) {
		if index != "jobdex:jobs:idx" || query != "*" {
			t.Errorf("unexpected args: %s %s", index, query)
		}
		return 1234, nil
	}

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1234 {
		t.Errorf("count = %d", n)
	}
}
