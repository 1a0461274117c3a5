package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/talent-cloud/jobdex/internal/config"
	"github.com/talent-cloud/jobdex/internal/domain"
	"github.com/talent-cloud/jobdex/internal/domain/search/result"
	"github.com/talent-cloud/jobdex/internal/normalize"
	explainuc "github.com/talent-cloud/jobdex/internal/usecase/explain"
	healthuc "github.com/talent-cloud/jobdex/internal/usecase/health"
	searchuc "github.com/talent-cloud/jobdex/internal/usecase/search"
)

// --- Stubs ---

type stubRepo struct {
	candidates []result.Candidate
	poolErr    error
	jobs       map[string]domain.JobPosting
}

func (s *stubRepo) SearchPool(context.Context, []float32, int) ([]result.Candidate, error) {
	if s.poolErr != nil {
		return nil, s.poolErr
	}
	return s.candidates, nil
}

func (s *stubRepo) Get(_ context.Context, jobID string) (domain.JobPosting, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.JobPosting{}, domain.ErrJobNotFound
	}
	return job, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0, 0}}, nil
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(context.Context) error { return s.err }

type stubExplainer struct{}

func (stubExplainer) Explain(context.Context, string, string) (string, error) {
	return "Strong title and skills match.", nil
}

// --- Helpers ---

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

func testSearchService(repo *stubRepo) *searchuc.Service {
	cfg := testSearchConfig()
	return searchuc.New(
		repo,
		stubEmbedder{},
		normalize.NewTitle(),
		normalize.NewSkills(),
		normalize.NewLocation(nil),
		cfg,
		false,
	)
}

func newTestHandler(t *testing.T, repo *stubRepo, explain *explainuc.Service, dbErr error) http.Handler {
	t.Helper()
	srv := NewServer(
		testSearchService(repo),
		explain,
		healthuc.New(&stubPinger{err: dbErr}, nil, nil),
		testSearchConfig(),
		zap.NewNop(),
	)
	r := chirouter.NewRouter()
	srv.Register(r)
	return r
}

// remoteCandidate is scored Title 1.0 for a "developer" query and Location
// 0.8 for being remote, which clears the acceptance threshold.
func remoteCandidate(id string) result.Candidate {
	titleNorm := normalize.NewTitle().Normalize("developer")
	return result.Candidate{
		Job: domain.JobPosting{
			JobID:              id,
			CompanyName:        "acme",
			TitleClean:         "Developer",
			TitleNormalized:    titleNorm,
			Location:           "Remote",
			LocationNormalized: "remote",
			RemoteAllowed:      true,
			CombinedSkills:     "go,redis",
			Document:           "Title: Developer",
		},
		Semantic: 0.9,
	}
}

func doSearch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// --- Tests ---

func TestSearch_ReturnsRankedResults(t *testing.T) {
	repo := &stubRepo{candidates: []result.Candidate{remoteCandidate("101")}}
	h := newTestHandler(t, repo, nil, nil)

	w := doSearch(t, h, `{"query": "developer", "location": "", "remote": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decodeJSON[SearchResponse](t, w)
	if resp.Count != 1 || len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %+v", resp)
	}

	item := resp.Results[0]
	if item.JobID != "101" || item.Rank != 1 {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.URL != "https://www.linkedin.com/jobs/view/101" {
		t.Errorf("url = %q", item.URL)
	}
	if item.Scores.Title != 1.0 {
		t.Errorf("title score = %v", item.Scores.Title)
	}
	if item.Score <= 0.3 {
		t.Errorf("final score = %v", item.Score)
	}
	if item.Explanation != "" {
		t.Errorf("unexpected explanation without explain flag: %q", item.Explanation)
	}
}

func TestSearch_ExplainFlagAnnotatesResults(t *testing.T) {
	repo := &stubRepo{candidates: []result.Candidate{remoteCandidate("101")}}
	explain, err := explainuc.New(stubExplainer{}, 2, 0)
	if err != nil {
		t.Fatalf("explain service: %v", err)
	}
	t.Cleanup(explain.Close)
	h := newTestHandler(t, repo, explain, nil)

	w := doSearch(t, h, `{"query": "developer", "explain": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	resp := decodeJSON[SearchResponse](t, w)
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].Explanation != "Strong title and skills match." {
		t.Errorf("explanation = %q", resp.Results[0].Explanation)
	}
}

func TestSearch_InvalidBody(t *testing.T) {
	h := newTestHandler(t, &stubRepo{}, nil, nil)

	w := doSearch(t, h, `{"query": `)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeJSON[ErrorResponse](t, w); resp.Code != CodeBadRequest {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestSearch_InvalidWeightsRejected(t *testing.T) {
	h := newTestHandler(t, &stubRepo{}, nil, nil)

	w := doSearch(t, h, `{"query": "developer", "weights": {"semantic": 0.9, "title": 0.9, "skills": 0, "location": 0}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if resp := decodeJSON[ErrorResponse](t, w); resp.Code != CodeValidationFailed {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestSearch_NumResultsOutOfRange(t *testing.T) {
	h := newTestHandler(t, &stubRepo{}, nil, nil)

	w := doSearch(t, h, `{"query": "developer", "num_results": 500}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSearch_MissingIndexIsServiceUnavailable(t *testing.T) {
	repo := &stubRepo{poolErr: domain.ErrIndexNotBuilt}
	h := newTestHandler(t, repo, nil, nil)

	w := doSearch(t, h, `{"query": "developer"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if resp := decodeJSON[ErrorResponse](t, w); resp.Code != CodeIndexNotBuilt {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestGetJob(t *testing.T) {
	repo := &stubRepo{jobs: map[string]domain.JobPosting{
		"42": {
			JobID:          "42",
			CompanyName:    "Globex",
			TitleClean:     "Data Analyst",
			Location:       "New York, NY",
			CombinedSkills: "sql,excel",
		},
	}}
	h := newTestHandler(t, repo, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/42", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeJSON[JobResponse](t, w)
	if resp.JobID != "42" || resp.CompanyName != "Globex" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.URL != "https://www.linkedin.com/jobs/view/42" {
		t.Errorf("url = %q", resp.URL)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	h := newTestHandler(t, &stubRepo{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/999", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeJSON[ErrorResponse](t, w); resp.Code != CodeJobNotFound {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, &stubRepo{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeJSON[HealthResponse](t, w); resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestHealthz_DBDown(t *testing.T) {
	h := newTestHandler(t, &stubRepo{}, nil, context.DeadlineExceeded)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeJSON[HealthResponse](t, w); resp.Status != "error" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, &stubRepo{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
