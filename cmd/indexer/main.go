// Command indexer builds the job vector index from the cleaned postings CSV.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/talent-cloud/jobdex/internal/config"
	dbRedis "github.com/talent-cloud/jobdex/internal/db/redis"
	logpkg "github.com/talent-cloud/jobdex/internal/logger"
	"github.com/talent-cloud/jobdex/internal/metrics"
	"github.com/talent-cloud/jobdex/internal/normalize"
	budgetrepo "github.com/talent-cloud/jobdex/internal/repository/budget"
	"github.com/talent-cloud/jobdex/internal/repository/embcache"
	jobsrepo "github.com/talent-cloud/jobdex/internal/repository/jobs"
	"github.com/talent-cloud/jobdex/internal/transport/nominatim"
	openaiTransport "github.com/talent-cloud/jobdex/internal/transport/openai"
	embeddinguc "github.com/talent-cloud/jobdex/internal/usecase/embedding"
	ingestuc "github.com/talent-cloud/jobdex/internal/usecase/ingest"
	"github.com/talent-cloud/jobdex/internal/version"
)

func main() {
	dataPath := flag.String("data", "data/jobs_sample.csv", "path to the cleaned postings CSV")
	rebuild := flag.Bool("rebuild", false, "drop and rebuild a populated index")
	flag.Parse()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting jobdex indexer",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("data", *dataPath),
		zap.Bool("rebuild", *rebuild),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := logpkg.ContextWithLogger(context.Background(), logger)
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	metrics.RegisterEmbeddingMetrics()

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	// Bulk embedding is where tokens actually burn, so the indexer shares the
	// same budget counters as the API server.
	var budget embeddinguc.BudgetChecker
	if cfg.Embedding.Budget.DailyTokenLimit > 0 || cfg.Embedding.Budget.MonthlyTokenLimit > 0 {
		budget = embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider,
			cfg.Embedding.Budget.DailyTokenLimit,
			cfg.Embedding.Budget.MonthlyTokenLimit,
			embeddinguc.BudgetAction(cfg.Embedding.Budget.Action),
			logger,
		).WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
	}
	budgeted := embeddinguc.NewBudgetedEmbedder(base, cfg.Embedding.Provider, budget, logger)

	embedder := embcache.New(budgeted, store,
		time.Duration(cfg.Embedding.CacheTTL)*time.Second, metrics.EmbeddingCacheTotal, logger)

	var geocoder normalize.Geocoder
	if cfg.Geocoder.Enabled {
		geocoder = nominatim.New(&nominatim.Config{
			BaseURL:   cfg.Geocoder.BaseURL,
			UserAgent: cfg.Geocoder.UserAgent,
			Timeout:   time.Duration(cfg.Geocoder.TimeoutSec) * time.Second,
			Logger:    logger,
		})
	}

	svc := ingestuc.New(
		jobsrepo.New(store),
		embedder,
		normalize.NewTitle(),
		normalize.NewSkills(),
		normalize.NewLocation(geocoder),
		cfg.Embedding.Dimensions,
		cfg.Embedding.BatchSize,
		cfg.Geocoder.Enabled,
	)

	f, err := os.Open(*dataPath)
	if err != nil {
		logger.Fatal("Failed to open dataset", zap.Error(err))
	}
	defer f.Close()

	start := time.Now()
	stats, err := svc.Build(ctx, f, *rebuild)
	if err != nil {
		logger.Fatal("Index build failed",
			zap.Error(err),
			zap.Int("rows", stats.Total),
			zap.Int("indexed", stats.Indexed),
		)
	}

	logger.Info("Index build complete",
		zap.Int("rows", stats.Total),
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
}
