// Package chi implements the HTTP API on the chi router.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/talent-cloud/jobdex/internal/config"
	"github.com/talent-cloud/jobdex/internal/domain"
	"github.com/talent-cloud/jobdex/internal/domain/search/query"
	"github.com/talent-cloud/jobdex/internal/domain/search/result"
	explainuc "github.com/talent-cloud/jobdex/internal/usecase/explain"
	healthuc "github.com/talent-cloud/jobdex/internal/usecase/health"
	searchuc "github.com/talent-cloud/jobdex/internal/usecase/search"
)

// Error codes returned in API error responses.
const (
	CodeBadRequest             = "bad_request"
	CodeValidationFailed       = "validation_failed"
	CodeJobNotFound            = "job_not_found"
	CodeIndexNotBuilt          = "index_not_built"
	CodeEmbeddingProviderError = "embedding_provider_error"
	CodeInternalError          = "internal_error"
)

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query      string          `json:"query"`
	Location   string          `json:"location,omitempty"`
	Remote     bool            `json:"remote,omitempty"`
	Skills     string          `json:"skills,omitempty"`
	NumResults int             `json:"num_results,omitempty"`
	Explain    bool            `json:"explain,omitempty"`
	Weights    *WeightsPayload `json:"weights,omitempty"`
}

// WeightsPayload overrides the ranking weights for one request.
type WeightsPayload struct {
	Semantic float64 `json:"semantic"`
	Title    float64 `json:"title"`
	Skills   float64 `json:"skills"`
	Location float64 `json:"location"`
}

// ComponentScores is the per-factor score breakdown of one result.
type ComponentScores struct {
	Semantic float64 `json:"semantic"`
	Title    float64 `json:"title"`
	Skills   float64 `json:"skills"`
	Location float64 `json:"location"`
}

// SearchResultItem is one ranked posting in a search response.
type SearchResultItem struct {
	Rank          int             `json:"rank"`
	JobID         string          `json:"job_id"`
	Title         string          `json:"title"`
	CompanyName   string          `json:"company_name"`
	Location      string          `json:"location"`
	RemoteAllowed bool            `json:"remote_allowed"`
	Skills        string          `json:"skills,omitempty"`
	URL           string          `json:"url"`
	Score         float64         `json:"score"`
	Scores        ComponentScores `json:"scores"`
	Explanation   string          `json:"explanation,omitempty"`
}

// SearchResponse is the POST /search response.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
	Count   int                `json:"count"`
}

// JobResponse is the GET /jobs/{jobID} response.
type JobResponse struct {
	JobID         string `json:"job_id"`
	Title         string `json:"title"`
	CompanyName   string `json:"company_name"`
	Location      string `json:"location"`
	RemoteAllowed bool   `json:"remote_allowed"`
	Skills        string `json:"skills,omitempty"`
	URL           string `json:"url"`
}

// HealthResponse is the GET /healthz response.
type HealthResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	IndexedJobs int               `json:"indexed_jobs,omitempty"`
}

// ErrorResponse is the common API error shape.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server handles the HTTP API. explain may be nil when explanations are
// disabled.
type Server struct {
	search        *searchuc.Service
	explain       *explainuc.Service
	health        *healthuc.Service
	searchCfg     config.SearchConfig
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. searchCfg supplies the request
// defaults (result count, ranking weights) and the num_results upper bound.
func NewServer(
	search *searchuc.Service,
	explain *explainuc.Service,
	health *healthuc.Service,
	searchCfg config.SearchConfig,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:    search,
		explain:   explain,
		health:    health,
		searchCfg: searchCfg,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, CodeJobNotFound),
		sentinelHandler(domain.ErrInvalidWeights, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrIndexNotBuilt, http.StatusServiceUnavailable, CodeIndexNotBuilt),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/search", s.Search)
	r.Get("/jobs/{jobID}", s.GetJob)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.NumResults < 0 || req.NumResults > s.searchCfg.MaxResults {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"num_results must be between 1 and "+strconv.Itoa(s.searchCfg.MaxResults))
		return
	}

	limit := req.NumResults
	if limit == 0 {
		limit = s.searchCfg.DefaultResults
	}

	weights := query.Weights(s.searchCfg.Weights)
	if req.Weights != nil {
		weights = query.Weights(*req.Weights)
	}

	q, err := query.New(req.Query, query.Filters{
		Location: req.Location,
		Remote:   req.Remote,
		Skills:   req.Skills,
	}, limit, weights)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	matches, err := s.search.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if req.Explain && s.explain != nil {
		matches = s.explain.Annotate(r.Context(), q.Text(), matches)
	}

	items := make([]SearchResultItem, len(matches))
	for i, m := range matches {
		items[i] = matchToItem(m)
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: items, Count: len(items)})
}

// GetJob handles GET /jobs/{jobID}.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "job id is required")
		return
	}

	job, err := s.search.Job(r.Context(), jobID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, JobResponse{
		JobID:         job.JobID,
		Title:         job.TitleClean,
		CompanyName:   job.CompanyName,
		Location:      job.Location,
		RemoteAllowed: job.RemoteAllowed,
		Skills:        job.CombinedSkills,
		URL:           job.URL(),
	})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:      string(report.Status),
		Checks:      checks,
		IndexedJobs: report.IndexedJobs,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func matchToItem(m result.Match) SearchResultItem {
	job := m.Job()
	return SearchResultItem{
		Rank:          m.Rank(),
		JobID:         job.JobID,
		Title:         job.TitleClean,
		CompanyName:   job.CompanyName,
		Location:      job.Location,
		RemoteAllowed: job.RemoteAllowed,
		Skills:        job.CombinedSkills,
		URL:           job.URL(),
		Score:         m.Final(),
		Scores: ComponentScores{
			Semantic: m.Scores().Semantic,
			Title:    m.Scores().Title,
			Skills:   m.Scores().Skills,
			Location: m.Scores().Location,
		},
		Explanation: m.Explanation(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrJobNotFound,
		domain.ErrInvalidWeights,
		domain.ErrInvalidQuery,
		domain.ErrIndexNotBuilt,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
