package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/talent-cloud/jobdex/internal/config"
	dbRedis "github.com/talent-cloud/jobdex/internal/db/redis"
	"github.com/talent-cloud/jobdex/internal/domain"
	logpkg "github.com/talent-cloud/jobdex/internal/logger"
	"github.com/talent-cloud/jobdex/internal/metrics"
	"github.com/talent-cloud/jobdex/internal/normalize"
	budgetrepo "github.com/talent-cloud/jobdex/internal/repository/budget"
	"github.com/talent-cloud/jobdex/internal/repository/embcache"
	jobsrepo "github.com/talent-cloud/jobdex/internal/repository/jobs"
	chiTransport "github.com/talent-cloud/jobdex/internal/transport/chi"
	"github.com/talent-cloud/jobdex/internal/transport/nominatim"
	openaiTransport "github.com/talent-cloud/jobdex/internal/transport/openai"
	embeddinguc "github.com/talent-cloud/jobdex/internal/usecase/embedding"
	explainuc "github.com/talent-cloud/jobdex/internal/usecase/explain"
	healthuc "github.com/talent-cloud/jobdex/internal/usecase/health"
	searchuc "github.com/talent-cloud/jobdex/internal/usecase/search"
	"github.com/talent-cloud/jobdex/internal/version"
)

func main() {
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

	logger.Info("Starting jobdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	embedder := buildEmbedder(ctx, cfg.Embedding, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	var geocoder normalize.Geocoder
	if cfg.Geocoder.Enabled {
		geocoder = nominatim.New(&nominatim.Config{
			BaseURL:   cfg.Geocoder.BaseURL,
			UserAgent: cfg.Geocoder.UserAgent,
			Timeout:   time.Duration(cfg.Geocoder.TimeoutSec) * time.Second,
			Logger:    logger,
		})
	}

	repo := jobsrepo.New(store)

	searchSvc := searchuc.New(
		repo,
		embedder,
		normalize.NewTitle(),
		normalize.NewSkills(),
		normalize.NewLocation(geocoder),
		cfg.Search,
		cfg.Geocoder.Enabled,
	)

	var explainSvc *explainuc.Service
	if cfg.Explain.Enabled {
		explainer := openaiTransport.NewExplainer(&openaiTransport.ExplainerConfig{
			APIKey:         cfg.Explain.APIKey,
			BaseURL:        cfg.Explain.BaseURL,
			Model:          cfg.Explain.Model,
			RequestsPerSec: cfg.Explain.RequestsPerSec,
			Timeout:        time.Duration(cfg.Explain.TimeoutSec) * time.Second,
			Logger:         logger,
		})
		explainSvc, err = explainuc.New(explainer, cfg.Explain.Workers,
			time.Duration(cfg.Explain.TimeoutSec)*time.Second)
		if err != nil {
			logger.Fatal("Failed to create explain service", zap.Error(err))
		}
		defer explainSvc.Close()
		logger.Info("Explanations enabled",
			zap.String("model", cfg.Explain.Model),
			zap.Int("workers", cfg.Explain.Workers),
		)
	}

	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder), repo)

	server := chiTransport.NewServer(searchSvc, explainSvc, healthSvc, cfg.Search, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI base with transport
// metrics, token budget enforcement, then the Redis-backed embedding cache.
// The cache is outermost so cache hits consume no budget.
func buildEmbedder(ctx context.Context, cfg config.EmbeddingConfig, store *dbRedis.Store, logger *zap.Logger) *embcache.CachedEmbedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	budgeted := embeddinguc.NewBudgetedEmbedder(base, cfg.Provider, buildBudget(ctx, cfg, store, logger), logger)

	ttl := time.Duration(cfg.CacheTTL) * time.Second
	return embcache.New(budgeted, store, ttl, metrics.EmbeddingCacheTotal, logger)
}

// buildBudget creates the store-backed token budget tracker, or nil when no limits are set.
func buildBudget(ctx context.Context, cfg config.EmbeddingConfig, store *dbRedis.Store, logger *zap.Logger) embeddinguc.BudgetChecker {
	if cfg.Budget.DailyTokenLimit <= 0 && cfg.Budget.MonthlyTokenLimit <= 0 {
		return nil
	}
	tracker := embeddinguc.NewBudgetTracker(
		cfg.Provider,
		cfg.Budget.DailyTokenLimit,
		cfg.Budget.MonthlyTokenLimit,
		embeddinguc.BudgetAction(cfg.Budget.Action),
		logger,
	)
	return tracker.WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
}

// embeddingHealthChecker adapts the embedder chain to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
