package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/query/request"
	"github.com/kailas-cloud/reag/internal/domain/query/response"
	"github.com/kailas-cloud/reag/internal/logger"
	"github.com/kailas-cloud/reag/internal/metrics"
)

// Engine is the reasoning engine being decorated.
type Engine interface {
	Send(ctx context.Context, req *request.Request) (response.Response, error)
}

// HealthChecker is implemented by engines that can probe their provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedEngine wraps an Engine with budget enforcement and logging.
// Per-call transport metrics are recorded by the provider adapters.
type InstrumentedEngine struct {
	inner    Engine
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedEngine wraps an engine. budget may be nil.
func NewInstrumentedEngine(
	inner Engine, provider, model string,
	budget BudgetChecker, log *zap.Logger,
) *InstrumentedEngine {
	return &InstrumentedEngine{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger.OrNop(log),
	}
}

// Send checks the budget, delegates to the inner engine and records usage.
func (p *InstrumentedEngine) Send(ctx context.Context, req *request.Request) (response.Response, error) {
	log := logger.FromContext(ctx, p.logger)

	if p.budget != nil {
		if err := p.budget.Check(ctx); err != nil {
			log.Error("Budget exceeded",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.String("query_id", req.ID()),
				zap.Error(err),
			)
			return response.Response{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()

	resp, err := p.inner.Send(ctx, req)

	duration := time.Since(start)

	// Tokens spent before a failure are billed all the same.
	p.recordUsage(ctx, resp.Usage)

	if err != nil {
		log.Error("Engine request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.String("query_id", req.ID()),
			zap.Int("sources", req.Len()),
			zap.Duration("duration", duration),
			zap.Int("total_tokens", resp.Usage.TotalTokens),
			zap.Error(err),
		)
		return response.Response{Usage: resp.Usage}, fmt.Errorf("engine send: %w", err)
	}

	log.Debug("Engine request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.String("query_id", req.ID()),
		zap.Duration("duration", duration),
		zap.Int("sources", req.Len()),
		zap.Int("entries", len(resp.Entries)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp, nil
}

func (p *InstrumentedEngine) recordUsage(ctx context.Context, u response.Usage) {
	domain.UsageFromContext(ctx).Add(u.PromptTokens, u.CompletionTokens, u.TotalTokens)

	if p.budget == nil || u.TotalTokens <= 0 {
		return
	}
	p.budget.Record(int64(u.TotalTokens))
	remaining := metrics.EngineBudgetTokensRemaining
	remaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
	remaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
}

// HealthCheck delegates to the inner engine when it supports probing.
func (p *InstrumentedEngine) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Provider returns the provider label.
func (p *InstrumentedEngine) Provider() string { return p.provider }

// Model returns the reasoning model name.
func (p *InstrumentedEngine) Model() string { return p.model }
