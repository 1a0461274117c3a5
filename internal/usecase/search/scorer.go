package search

import (
	"context"
	"fmt"

	"github.com/talent-cloud/jobdex/internal/domain"
	"github.com/talent-cloud/jobdex/internal/domain/search/query"
	"github.com/talent-cloud/jobdex/internal/domain/search/result"
)

// remoteLocationScore is the fixed location score for remote-allowed jobs:
// broadly compatible with any query location, but not a perfect match.
const remoteLocationScore = 0.8

// relatedSkillCredit is the partial credit for a query skill matched only
// through its related-skill group.
const relatedSkillCredit = 0.5

// locationCosineScale discounts fuzzy location similarity against the exact
// normalized match, which always scores 1.0.
const locationCosineScale = 0.5

// normalizedQuery is the query after normalization and slot embedding,
// shared across all candidates of one request.
type normalizedQuery struct {
	title    string
	titleVec []float32

	location    string // empty when the request has no location filter
	locationVec []float32

	skills  []string
	related []map[string]struct{} // related-skill set per query skill
}

// score computes the four component scores for one candidate per the ranking
// contract. Candidate title and location embeddings go through the (cached)
// embedder.
func (s *Service) score(
	ctx context.Context, nq *normalizedQuery, cand result.Candidate,
) (result.ComponentScores, error) {
	titleScore, err := s.titleScore(ctx, nq, cand.Job)
	if err != nil {
		return result.ComponentScores{}, err
	}

	locationScore, err := s.locationScore(ctx, nq, cand.Job)
	if err != nil {
		return result.ComponentScores{}, err
	}

	return result.ComponentScores{
		Semantic: clamp01(cand.Semantic),
		Title:    titleScore,
		Skills:   s.skillsScore(nq, cand.Job),
		Location: locationScore,
	}, nil
}

func (s *Service) titleScore(ctx context.Context, nq *normalizedQuery, job domain.JobPosting) (float64, error) {
	if nq.title == "" {
		return 0, nil
	}
	if job.TitleNormalized == nq.title {
		return 1.0, nil
	}

	jobVec, err := s.embed.Embed(ctx, job.TitleNormalized)
	if err != nil {
		return 0, fmt.Errorf("embed candidate title: %w", err)
	}
	return clamp01(domain.Cosine(nq.titleVec, jobVec.Embedding)), nil
}

// skillsScore is direct overlap over the query skill count, with partial
// credit for related-skill hits, capped at 1.
func (s *Service) skillsScore(nq *normalizedQuery, job domain.JobPosting) float64 {
	if len(nq.skills) == 0 {
		return 0
	}

	jobSkills := make(map[string]struct{})
	for _, sk := range job.Skills() {
		jobSkills[sk] = struct{}{}
	}

	var credit float64
	for i, sk := range nq.skills {
		if _, ok := jobSkills[sk]; ok {
			credit += 1
			continue
		}
		for rel := range nq.related[i] {
			if _, ok := jobSkills[rel]; ok {
				credit += relatedSkillCredit
				break
			}
		}
	}

	return clamp01(credit / float64(len(nq.skills)))
}

func (s *Service) locationScore(ctx context.Context, nq *normalizedQuery, job domain.JobPosting) (float64, error) {
	if job.RemoteAllowed {
		return remoteLocationScore, nil
	}
	if nq.location == "" {
		return 0, nil
	}
	if job.LocationNormalized == nq.location {
		return 1.0, nil
	}

	jobVec, err := s.embed.Embed(ctx, job.LocationNormalized)
	if err != nil {
		return 0, fmt.Errorf("embed candidate location: %w", err)
	}
	return clamp01(domain.Cosine(nq.locationVec, jobVec.Embedding) * locationCosineScale), nil
}

// finalScore is the weighted sum of the component scores.
func finalScore(scores result.ComponentScores, w query.Weights) float64 {
	return w.Semantic*scores.Semantic +
		w.Title*scores.Title +
		w.Skills*scores.Skills +
		w.Location*scores.Location
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
