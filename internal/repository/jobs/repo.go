// Package jobs persists job postings and their embeddings in the vector index.
package jobs

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/talent-cloud/jobdex/internal/db"
	"github.com/talent-cloud/jobdex/internal/domain"
	"github.com/talent-cloud/jobdex/internal/domain/search/result"
)

const (
	collection = "jobs"

	hnswM           = 16
	hnswEFConstruct = 200
)

// store is the consumer interface for posting storage (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// IndexedJob pairs a posting with its composite embedding for storage.
type IndexedJob struct {
	Job    domain.JobPosting
	Vector []float32
}

// Repo implements posting storage and pool retrieval on the db layer.
type Repo struct {
	store store
}

// New creates a jobs repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Key returns the hash key for a job id.
func Key(jobID string) string {
	return fmt.Sprintf("%s%s:%s", domain.KeyPrefix, collection, jobID)
}

// IndexName returns the FT index name for the jobs collection.
func IndexName() string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, collection)
}

// EnsureIndex creates the FT index for the jobs collection if it does not
// exist yet. dim is the embedding dimension.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	exists, err := r.store.IndexExists(ctx, IndexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     IndexName(),
		Prefixes: []string{fmt.Sprintf("%s%s:", domain.KeyPrefix, collection)},
		Fields: []db.IndexField{
			{Name: domain.FieldJobID, Type: db.IndexFieldTag},
			{Name: domain.FieldCompanyName, Type: db.IndexFieldTag},
			{Name: domain.FieldTitleNormalized, Type: db.IndexFieldText},
			{Name: domain.FieldLocationNormalized, Type: db.IndexFieldTag},
			{Name: domain.FieldRemoteAllowed, Type: db.IndexFieldTag},
			{
				Name:              domain.FieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           hnswM,
				VectorEFConstruct: hnswEFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// DropIndex removes the jobs FT index, keeping the stored postings.
func (r *Repo) DropIndex(ctx context.Context) error {
	return r.store.DropIndex(ctx, IndexName())
}

// Count returns how many postings are indexed.
func (r *Repo) Count(ctx context.Context) (int, error) {
	return r.store.SearchCount(ctx, IndexName(), "*")
}

// Upsert writes postings and their vectors in one pipelined batch.
func (r *Repo) Upsert(ctx context.Context, jobs []IndexedJob) error {
	if len(jobs) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(jobs))
	for i, j := range jobs {
		fields := j.Job.Fields()
		fields[domain.FieldVector] = vectorToBytes(j.Vector)
		items[i] = db.HashSetItem{Key: Key(j.Job.JobID), Fields: fields}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d jobs: %w", len(jobs), err)
	}
	return nil
}

// Get returns the posting for a job id, or domain.ErrJobNotFound.
func (r *Repo) Get(ctx context.Context, jobID string) (domain.JobPosting, error) {
	key := Key(jobID)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.JobPosting{}, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if len(fields) == 0 {
		return domain.JobPosting{}, domain.ErrJobNotFound
	}
	return domain.JobFromFields(key, fields)
}

// SearchPool retrieves the k nearest postings to the query vector, with
// semantic similarity scores. Stored postings missing required metadata are
// rejected, not skipped.
func (r *Repo) SearchPool(ctx context.Context, vector []float32, k int) ([]result.Candidate, error) {
	q := &db.KNNQuery{
		IndexName: IndexName(),
		Vector:    vector,
		K:         k,
		ReturnFields: []string{
			domain.FieldJobID,
			domain.FieldCompanyName,
			domain.FieldTitleClean,
			domain.FieldTitleNormalized,
			domain.FieldLocation,
			domain.FieldLocationNormalized,
			domain.FieldRemoteAllowed,
			domain.FieldCombinedSkills,
			domain.FieldDocument,
			"__vector_score",
		},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("search pool: %w", domain.ErrIndexNotBuilt)
		}
		return nil, fmt.Errorf("search pool: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	candidates := make([]result.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		job, err := domain.JobFromFields(entry.Key, entry.Fields)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, result.Candidate{Job: job, Semantic: entry.Score})
	}
	return candidates, nil
}

// vectorToBytes encodes float32 values as little-endian bytes for hash storage.
func vectorToBytes(vec []float32) string {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return string(buf)
}
