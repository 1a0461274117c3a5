// Package search implements the ranking pipeline: normalize the query, embed
// it, retrieve a recall pool, hard-filter, score, sort, and diversify.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/talent-cloud/jobdex/internal/config"
	"github.com/talent-cloud/jobdex/internal/domain"
	"github.com/talent-cloud/jobdex/internal/domain/search/query"
	"github.com/talent-cloud/jobdex/internal/domain/search/result"
	"github.com/talent-cloud/jobdex/internal/logger"
	"github.com/talent-cloud/jobdex/internal/metrics"
	"github.com/talent-cloud/jobdex/internal/normalize"
)

// Service is the search orchestrator.
type Service struct {
	repo  Repository
	embed Embedder

	titles    *normalize.Title
	skills    *normalize.Skills
	locations *normalize.Location

	cfg         config.SearchConfig
	useGeocoder bool
}

// New creates a search service.
func New(
	repo Repository,
	embed Embedder,
	titles *normalize.Title,
	skills *normalize.Skills,
	locations *normalize.Location,
	cfg config.SearchConfig,
	useGeocoder bool,
) *Service {
	return &Service{
		repo:        repo,
		embed:       embed,
		titles:      titles,
		skills:      skills,
		locations:   locations,
		cfg:         cfg,
		useGeocoder: useGeocoder,
	}
}

// Search runs the full ranking pipeline. This is a read path with no side
// effects: per-request failures during embedding, retrieval, or scoring are
// logged and converted to an empty result list instead of surfacing to the
// caller. The one exception is a missing vector index — that is a deployment
// problem, not a transient, and is returned as domain.ErrIndexNotBuilt.
func (s *Service) Search(ctx context.Context, q query.Query) ([]result.Match, error) {
	start := time.Now()

	matches, err := s.search(ctx, q)

	metrics.SearchDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, domain.ErrIndexNotBuilt) {
			logger.FromContext(ctx).Error("Search against an unbuilt index", zap.Error(err))
			return nil, err
		}
		logger.FromContext(ctx).Error("Search pipeline failed, returning empty results",
			zap.String("query", q.Text()),
			zap.Error(err))
		return nil, nil
	}

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	metrics.SearchResultsReturned.Observe(float64(len(matches)))
	return matches, nil
}

func (s *Service) search(ctx context.Context, q query.Query) ([]result.Match, error) {
	nq, ok, err := s.normalizeAndEmbed(ctx, q)
	if err != nil {
		return nil, err
	}
	if !ok { // nothing to search with
		return nil, nil
	}

	queryVec, err := s.compositeVector(ctx, nq, q)
	if err != nil {
		return nil, err
	}

	retrieveStart := time.Now()
	pool, err := s.repo.SearchPool(ctx, queryVec, s.cfg.PoolSize)
	metrics.SearchDuration.WithLabelValues("retrieve").Observe(time.Since(retrieveStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("retrieve pool: %w", err)
	}
	metrics.SearchPoolSize.Observe(float64(len(pool)))

	pool = s.hardFilter(pool, q.Filters(), nq)

	scoreStart := time.Now()
	matches, err := s.scoreAndRank(ctx, nq, pool, q.Weights())
	metrics.SearchDuration.WithLabelValues("score").Observe(time.Since(scoreStart).Seconds())
	if err != nil {
		return nil, err
	}

	matches = diversify(matches, q.Limit(), s.cfg.MaxPerTitle, s.cfg.MaxPerCompany)

	for i := range matches {
		matches[i] = matches[i].WithRank(i + 1)
	}
	return matches, nil
}

// normalizeAndEmbed produces the shared normalized query. ok is false when
// the request carries no text and no filters worth searching with.
func (s *Service) normalizeAndEmbed(ctx context.Context, q query.Query) (*normalizedQuery, bool, error) {
	nq := &normalizedQuery{
		title:  s.titles.Normalize(q.Text()),
		skills: s.skills.Normalize(q.Filters().SkillList()),
	}
	if loc := q.Filters().Location; loc != "" {
		nq.location = s.locations.Normalize(ctx, loc, s.useGeocoder)
	}

	nq.related = make([]map[string]struct{}, len(nq.skills))
	for i, sk := range nq.skills {
		nq.related[i] = s.skills.Related(sk)
	}

	if nq.title == "" && len(nq.skills) == 0 && nq.location == "" {
		return nil, false, nil
	}

	if nq.title != "" {
		res, err := s.embed.Embed(ctx, nq.title)
		if err != nil {
			return nil, false, fmt.Errorf("embed query title: %w", err)
		}
		nq.titleVec = res.Embedding
	}
	if nq.location != "" {
		res, err := s.embed.Embed(ctx, nq.location)
		if err != nil {
			return nil, false, fmt.Errorf("embed query location: %w", err)
		}
		nq.locationVec = res.Embedding
	}

	return nq, true, nil
}

// compositeVector builds the query-side composite embedding with the same
// slot weights used at indexing time. Empty slots fall back to the closest
// available query facet so the vector stays comparable to indexed postings.
func (s *Service) compositeVector(ctx context.Context, nq *normalizedQuery, q query.Query) ([]float32, error) {
	titleText := nq.title
	if titleText == "" {
		titleText = strings.Join(nq.skills, " ")
	}
	if titleText == "" {
		titleText = nq.location
	}

	locationText := nq.location
	if locationText == "" {
		locationText = normalize.UnitedStates
	}

	skillsText := strings.Join(nq.skills, ", ")
	if skillsText == "" {
		skillsText = titleText
	}

	titleVec, err := s.embedSlot(ctx, titleText, nq.title, nq.titleVec)
	if err != nil {
		return nil, fmt.Errorf("embed title slot: %w", err)
	}
	locationVec, err := s.embedSlot(ctx, locationText, nq.location, nq.locationVec)
	if err != nil {
		return nil, fmt.Errorf("embed location slot: %w", err)
	}
	skillsVec, err := s.embedSlot(ctx, skillsText, "", nil)
	if err != nil {
		return nil, fmt.Errorf("embed skills slot: %w", err)
	}

	vec, err := domain.CompositeEmbedding(titleVec, locationVec, skillsVec)
	if err != nil {
		return nil, fmt.Errorf("compose query vector: %w", err)
	}
	return vec, nil
}

// embedSlot reuses an already-computed vector when the slot text matches the
// normalized facet it came from.
func (s *Service) embedSlot(ctx context.Context, text, knownText string, knownVec []float32) ([]float32, error) {
	if knownVec != nil && text == knownText {
		return knownVec, nil
	}
	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return res.Embedding, nil
}

// hardFilter drops candidates outright. Remote is the only unconditional
// hard filter; minimum skill overlap is an optional stricter policy.
func (s *Service) hardFilter(pool []result.Candidate, f query.Filters, nq *normalizedQuery) []result.Candidate {
	kept := pool[:0]
	for _, cand := range pool {
		if f.Remote && !cand.Job.RemoteAllowed {
			continue
		}
		if !s.passesSkillOverlap(cand.Job, nq) {
			continue
		}
		kept = append(kept, cand)
	}
	return kept
}

// passesSkillOverlap enforces search.min_skill_overlap when configured.
// With the knob at 0 (the default), skills stay soft-scored only.
func (s *Service) passesSkillOverlap(job domain.JobPosting, nq *normalizedQuery) bool {
	if s.cfg.MinSkillOverlap <= 0 || len(nq.skills) == 0 {
		return true
	}

	jobSkills := make(map[string]struct{})
	for _, sk := range job.Skills() {
		jobSkills[sk] = struct{}{}
	}

	var direct int
	for _, sk := range nq.skills {
		if _, ok := jobSkills[sk]; ok {
			direct++
		}
	}
	return float64(direct)/float64(len(nq.skills)) >= s.cfg.MinSkillOverlap
}

// scoreAndRank scores every candidate, discards those at or below the
// acceptance threshold, and sorts the rest by final score.
func (s *Service) scoreAndRank(
	ctx context.Context, nq *normalizedQuery, pool []result.Candidate, w query.Weights,
) ([]result.Match, error) {
	matches := make([]result.Match, 0, len(pool))
	for _, cand := range pool {
		scores, err := s.score(ctx, nq, cand)
		if err != nil {
			return nil, fmt.Errorf("score job %s: %w", cand.Job.JobID, err)
		}

		final := finalScore(scores, w)
		if final <= s.cfg.ScoreThreshold {
			continue
		}
		matches = append(matches, result.New(cand.Job, scores, final))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Final() != matches[j].Final() {
			return matches[i].Final() > matches[j].Final()
		}
		return matches[i].Scores().Semantic > matches[j].Scores().Semantic
	})
	return matches, nil
}

// Job returns one posting by id for the exact-lookup endpoint.
func (s *Service) Job(ctx context.Context, jobID string) (domain.JobPosting, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return domain.JobPosting{}, fmt.Errorf("lookup job %s: %w", jobID, err)
	}
	return job, nil
}
