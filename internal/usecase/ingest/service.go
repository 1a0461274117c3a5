// Package ingest builds the vector index from the cleaned postings dataset.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/talent-cloud/jobdex/internal/db"
	"github.com/talent-cloud/jobdex/internal/domain"
	"github.com/talent-cloud/jobdex/internal/logger"
	"github.com/talent-cloud/jobdex/internal/normalize"
	"github.com/talent-cloud/jobdex/internal/repository/jobs"
)

// Dataset columns the pipeline requires. Extra columns are ignored.
var requiredColumns = []string{
	"job_id",
	"company_name",
	"title",
	"location",
	"remote_allowed",
	"combined_skills",
}

// Repository is the index storage the pipeline writes to.
type Repository interface {
	EnsureIndex(ctx context.Context, dim int) error
	DropIndex(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, items []jobs.IndexedJob) error
}

// Stats summarizes one pipeline run.
type Stats struct {
	Total   int // dataset rows read
	Indexed int // postings upserted
	Skipped int // rows dropped for missing required values
}

// Service reads postings from CSV, normalizes them, embeds them in batches,
// and upserts them into the vector index.
type Service struct {
	repo        Repository
	embed       domain.BatchEmbedder
	titles      *normalize.Title
	skills      *normalize.Skills
	locations   *normalize.Location
	dimensions  int
	batchSize   int
	useGeocoder bool
}

// New creates the build pipeline.
func New(
	repo Repository,
	embed domain.BatchEmbedder,
	titles *normalize.Title,
	skills *normalize.Skills,
	locations *normalize.Location,
	dimensions, batchSize int,
	useGeocoder bool,
) *Service {
	if batchSize < 1 {
		batchSize = 32
	}
	return &Service{
		repo:        repo,
		embed:       embed,
		titles:      titles,
		skills:      skills,
		locations:   locations,
		dimensions:  dimensions,
		batchSize:   batchSize,
		useGeocoder: useGeocoder,
	}
}

// Build runs the pipeline over the dataset. A populated index short-circuits
// the run unless rebuild is set, which drops and recreates the index first.
func (s *Service) Build(ctx context.Context, dataset io.Reader, rebuild bool) (Stats, error) {
	log := logger.FromContext(ctx)

	if rebuild {
		if err := s.repo.DropIndex(ctx); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return Stats{}, fmt.Errorf("drop index: %w", err)
		}
	} else {
		if n, err := s.repo.Count(ctx); err == nil && n > 0 {
			log.Info("index already populated, skipping build", zap.Int("postings", n))
			return Stats{Indexed: n}, nil
		}
	}

	if err := s.repo.EnsureIndex(ctx, s.dimensions); err != nil {
		return Stats{}, fmt.Errorf("ensure index: %w", err)
	}

	r := csv.NewReader(dataset)
	r.FieldsPerRecord = -1

	cols, err := readHeader(r)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	batch := make([]domain.JobPosting, 0, s.batchSize)

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read dataset row %d: %w", stats.Total+1, err)
		}
		stats.Total++

		posting, ok := s.buildPosting(ctx, cols, record)
		if !ok {
			stats.Skipped++
			continue
		}

		batch = append(batch, posting)
		if len(batch) == s.batchSize {
			if err := s.flush(ctx, batch); err != nil {
				return stats, err
			}
			stats.Indexed += len(batch)
			batch = batch[:0]
			log.Info("indexed batch",
				zap.Int("indexed", stats.Indexed),
				zap.Int("skipped", stats.Skipped),
			)
		}
	}

	if len(batch) > 0 {
		if err := s.flush(ctx, batch); err != nil {
			return stats, err
		}
		stats.Indexed += len(batch)
	}

	log.Info("build finished",
		zap.Int("rows", stats.Total),
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// buildPosting normalizes one dataset row. Rows missing a job id, company,
// title, or any skills are dropped, matching the dataset cleaning rules.
func (s *Service) buildPosting(ctx context.Context, cols map[string]int, record []string) (domain.JobPosting, bool) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	jobID := field("job_id")
	company := field("company_name")
	title := collapseSpace(field("title"))
	if jobID == "" || company == "" || title == "" {
		return domain.JobPosting{}, false
	}

	rawSkills := splitSkills(field("combined_skills"))
	skills := s.skills.Normalize(rawSkills)
	if len(skills) == 0 {
		return domain.JobPosting{}, false
	}
	combinedSkills := strings.Join(skills, ",")

	location := field("location")
	if location == "" {
		location = "Not Specified"
	}

	return domain.JobPosting{
		JobID:              jobID,
		CompanyName:        company,
		TitleClean:         title,
		TitleNormalized:    s.titles.Normalize(title),
		Location:           location,
		LocationNormalized: s.locations.Normalize(ctx, location, s.useGeocoder),
		RemoteAllowed:      parseRemote(field("remote_allowed")),
		CombinedSkills:     combinedSkills,
		Document:           fmt.Sprintf("Title: %s, Location: %s, Skills: %s", title, location, combinedSkills),
	}, true
}

// flush embeds one batch and upserts it. Each posting contributes three
// sub-embedding texts so one provider call covers the whole batch.
func (s *Service) flush(ctx context.Context, batch []domain.JobPosting) error {
	texts := make([]string, 0, len(batch)*3)
	for _, p := range batch {
		texts = append(texts, p.TitleNormalized, p.LocationNormalized, p.CombinedSkills)
	}

	res, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return fmt.Errorf("embed batch: got %d vectors for %d texts", len(res.Embeddings), len(texts))
	}

	items := make([]jobs.IndexedJob, len(batch))
	for i, p := range batch {
		vec, err := domain.CompositeEmbedding(
			res.Embeddings[i*3],
			res.Embeddings[i*3+1],
			res.Embeddings[i*3+2],
		)
		if err != nil {
			return fmt.Errorf("composite embedding for job %s: %w", p.JobID, err)
		}
		items[i] = jobs.IndexedJob{Job: p, Vector: vec}
	}

	if err := s.repo.Upsert(ctx, items); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("dataset missing column %q", name)
		}
	}
	return cols, nil
}

func splitSkills(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseRemote accepts the dataset's flag encodings ("1", "1.0", "true").
func parseRemote(s string) bool {
	if s == "" {
		return false
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
