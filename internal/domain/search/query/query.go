// Package query holds the immutable search request value object.
package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/talent-cloud/jobdex/internal/domain"
)

// DefaultLimit is the result count used when the caller does not ask for one.
const DefaultLimit = 5

// Filters are the optional structured constraints of a search request.
// Remote is a hard filter; location and skills are soft-scored.
type Filters struct {
	Location string
	Remote   bool
	Skills   string // comma-separated, as supplied by the caller
}

// SkillList splits the raw skills filter into trimmed entries.
func (f Filters) SkillList() []string {
	if f.Skills == "" {
		return nil
	}
	parts := strings.Split(f.Skills, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Weights are the four ranking component weights. A zero value means
// "use the defaults"; anything else must be non-negative and sum to 1.
type Weights struct {
	Semantic float64
	Title    float64
	Skills   float64
	Location float64
}

// DefaultWeights returns the documented ranking defaults.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.1, Title: 0.3, Skills: 0.2, Location: 0.4}
}

const weightSumTolerance = 1e-6

// Validate rejects negative weights and weight sets that do not sum to 1.
func (w Weights) Validate() error {
	if w.Semantic < 0 || w.Title < 0 || w.Skills < 0 || w.Location < 0 {
		return fmt.Errorf("%w: components must be non-negative", domain.ErrInvalidWeights)
	}
	sum := w.Semantic + w.Title + w.Skills + w.Location
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: components sum to %v, want 1", domain.ErrInvalidWeights, sum)
	}
	return nil
}

// Query is a single immutable search request.
type Query struct {
	text    string
	filters Filters
	limit   int
	weights Weights
}

// New creates a validated query. A non-positive limit falls back to
// DefaultLimit; zero-value weights fall back to DefaultWeights. Empty query
// text is a valid query, not an error.
func New(text string, filters Filters, limit int, weights Weights) (Query, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return Query{}, err
	}

	return Query{
		text:    strings.TrimSpace(text),
		filters: filters,
		limit:   limit,
		weights: weights,
	}, nil
}

// Text returns the free-text query.
func (q Query) Text() string { return q.text }

// Filters returns the structured filters.
func (q Query) Filters() Filters { return q.filters }

// Limit returns the requested result count.
func (q Query) Limit() int { return q.limit }

// Weights returns the active ranking weights.
func (q Query) Weights() Weights { return q.weights }
