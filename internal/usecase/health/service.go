// Package health aggregates component checks for the readiness endpoint.
package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexCounter reports the number of indexed postings.
type IndexCounter interface {
	Count(ctx context.Context) (int, error)
}

// Status is the aggregated health status.
type Status string

const (
	// Healthy means every component passed.
	Healthy Status = "ok"
	// Degraded means search may still work but a component is failing.
	Degraded Status = "degraded"
	// Unhealthy means the database is unreachable and search cannot work.
	Unhealthy Status = "error"
)

// CheckResult is one component's outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
	// CheckEmpty means the vector index is reachable but has no postings.
	CheckEmpty CheckResult = "empty"
)

// Report aggregates the component checks. IndexedJobs is 0 unless the index
// check passed.
type Report struct {
	Status      Status
	Checks      map[string]CheckResult
	IndexedJobs int
}

// Service coordinates component health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	index     IndexCounter
}

// New creates a Service. embedding and index can be nil.
func New(db DBPinger, embedding EmbeddingChecker, index IndexCounter) *Service {
	return &Service{db: db, embedding: embedding, index: index}
}

// Check runs all component checks. A database failure makes the report
// Unhealthy; any other failure degrades it.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Checks: make(map[string]CheckResult)}

	dbDown := s.db.Ping(ctx) != nil
	if dbDown {
		r.Checks["database"] = CheckError
	} else {
		r.Checks["database"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			r.Checks["embedding"] = CheckError
		} else {
			r.Checks["embedding"] = CheckOK
		}
	}

	if s.index != nil && !dbDown {
		switch n, err := s.index.Count(ctx); {
		case err != nil:
			r.Checks["index"] = CheckError
		case n == 0:
			r.Checks["index"] = CheckEmpty
		default:
			r.Checks["index"] = CheckOK
			r.IndexedJobs = n
		}
	}

	if dbDown {
		r.Status = Unhealthy
		return r
	}

	r.Status = Healthy
	for _, v := range r.Checks {
		if v != CheckOK {
			r.Status = Degraded
			break
		}
	}
	return r
}
