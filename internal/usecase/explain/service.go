// Package explain annotates ranked matches with short natural-language
// explanations of why each job fits the query.
package explain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/talent-cloud/jobdex/internal/domain"
	"github.com/talent-cloud/jobdex/internal/domain/search/result"
	"github.com/talent-cloud/jobdex/internal/logger"
	"github.com/talent-cloud/jobdex/internal/metrics"
)

// fallbackExplanation is attached when the provider fails or returns nothing.
// Explanation failures never fail the search request.
const fallbackExplanation = "No explanation available."

// Explainer generates one explanation for a query/job pair.
type Explainer interface {
	Explain(ctx context.Context, queryText, jobSummary string) (string, error)
}

// Service fans explanation calls out over a bounded worker pool so a slow
// provider caps at pool-size concurrent requests per search.
type Service struct {
	explainer Explainer
	pool      *ants.Pool
	timeout   time.Duration
}

// New creates an explanation service with the given worker count.
func New(explainer Explainer, workers int, timeout time.Duration) (*Service, error) {
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create explain pool: %w", err)
	}

	return &Service{explainer: explainer, pool: pool, timeout: timeout}, nil
}

// Close releases the worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

// Annotate returns a copy of matches with an explanation attached to each.
// Matches keep their order and rank; a failed candidate gets the fallback text.
func (s *Service) Annotate(ctx context.Context, queryText string, matches []result.Match) []result.Match {
	if len(matches) == 0 {
		return matches
	}

	out := make([]result.Match, len(matches))
	var wg sync.WaitGroup

	for i, m := range matches {
		i, m := i, m
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			out[i] = s.annotateOne(ctx, queryText, m)
		})
		if err != nil {
			// Pool released or overloaded, run in the caller.
			out[i] = s.annotateOne(ctx, queryText, m)
			wg.Done()
		}
	}

	wg.Wait()
	return out
}

func (s *Service) annotateOne(ctx context.Context, queryText string, m result.Match) result.Match {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.explainer.Explain(callCtx, queryText, jobSummary(m.Job()))
	if err != nil || text == "" {
		logger.FromContext(ctx).Warn("explanation failed, using fallback",
			zap.String("job_id", m.Job().JobID),
			zap.Error(err),
		)
		metrics.ExplanationsTotal.WithLabelValues("fallback").Inc()
		return m.WithExplanation(fallbackExplanation)
	}

	metrics.ExplanationsTotal.WithLabelValues("ok").Inc()
	return m.WithExplanation(text)
}

// jobSummary flattens a posting into the compact form sent to the provider.
func jobSummary(job domain.JobPosting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nCompany: %s\nLocation: %s", job.TitleClean, job.CompanyName, job.Location)
	if job.RemoteAllowed {
		b.WriteString(" (remote)")
	}
	if job.CombinedSkills != "" {
		fmt.Fprintf(&b, "\nSkills: %s", job.CombinedSkills)
	}
	return b.String()
}
