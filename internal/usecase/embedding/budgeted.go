package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/talent-cloud/jobdex/internal/domain"
	"github.com/talent-cloud/jobdex/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// BudgetedEmbedder wraps an embedder with token budget enforcement.
// Transport metrics (requests, duration, tokens) stay in transport/openai;
// this layer owns budget checks and the remaining-budget gauge only.
// A nil budget passes everything through.
type BudgetedEmbedder struct {
	inner    domain.Embedder
	provider string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewBudgetedEmbedder wraps an embedder with budget enforcement.
func NewBudgetedEmbedder(
	inner domain.Embedder, provider string,
	budget BudgetChecker, logger *zap.Logger,
) *BudgetedEmbedder {
	return &BudgetedEmbedder{
		inner:    inner,
		provider: provider,
		budget:   budget,
		logger:   logger,
	}
}

// Embed checks the budget, delegates to the inner embedder, and records usage.
func (p *BudgetedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	if err := p.check(ctx, 1); err != nil {
		return domain.EmbeddingResult{}, err
	}

	result, err := p.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	p.record(result.TotalTokens)
	return result, nil
}

// BatchEmbed checks the budget once for the whole batch, then records actual usage.
func (p *BudgetedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	if err := p.check(ctx, len(texts)); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	result, err := p.batchInner(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	p.record(result.TotalTokens)
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *BudgetedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (p *BudgetedEmbedder) check(ctx context.Context, batchSize int) error {
	if p.budget == nil {
		return nil
	}
	if err := p.budget.Check(ctx); err != nil {
		p.logger.Error("Budget exceeded",
			zap.String("provider", p.provider),
			zap.Int("batch_size", batchSize),
			zap.Error(err),
		)
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func (p *BudgetedEmbedder) record(totalTokens int) {
	if p.budget == nil || totalTokens <= 0 {
		return
	}
	p.budget.Record(int64(totalTokens))
	remaining := metrics.EmbeddingBudgetTokensRemaining
	remaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
	remaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
}

func (p *BudgetedEmbedder) batchInner(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, p.inner, texts)
}
