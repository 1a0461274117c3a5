// Package result holds the scored search hit returned by the ranking pipeline.
package result

import (
	"github.com/talent-cloud/jobdex/internal/domain"
)

// Candidate is an unscored posting retrieved from the vector index pool,
// carrying only its semantic similarity to the query embedding.
type Candidate struct {
	Job      domain.JobPosting
	Semantic float64
}

// ComponentScores are the per-factor similarity scores, each in [0, 1].
type ComponentScores struct {
	Semantic float64
	Title    float64
	Skills   float64
	Location float64
}

// Match is a single ranked search hit. Matches are created per request and
// never persisted.
type Match struct {
	job         domain.JobPosting
	scores      ComponentScores
	final       float64
	rank        int
	explanation string
}

// New creates a scored match with no rank assigned yet.
func New(job domain.JobPosting, scores ComponentScores, final float64) Match {
	return Match{job: job, scores: scores, final: final}
}

// Job returns the underlying posting.
func (m Match) Job() domain.JobPosting { return m.job }

// Scores returns the per-component scores.
func (m Match) Scores() ComponentScores { return m.scores }

// Final returns the weighted final ranking score.
func (m Match) Final() float64 { return m.final }

// Rank returns the 1-based position after sorting and diversity trimming,
// or 0 if the match has not been ranked yet.
func (m Match) Rank() int { return m.rank }

// Explanation returns the human-readable match explanation, if any.
func (m Match) Explanation() string { return m.explanation }

// WithRank returns a copy of the match with the given 1-based rank.
func (m Match) WithRank(rank int) Match {
	m.rank = rank
	return m
}

// WithExplanation returns a copy of the match with the explanation attached.
func (m Match) WithExplanation(text string) Match {
	m.explanation = text
	return m
}
