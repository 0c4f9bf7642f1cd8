package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reag/internal/config"
	"github.com/kailas-cloud/reag/internal/db"
	budgetrepo "github.com/kailas-cloud/reag/internal/repository/budget"
	anthropicEng "github.com/kailas-cloud/reag/internal/transport/anthropic"
	openaiEng "github.com/kailas-cloud/reag/internal/transport/openai"
	engineuc "github.com/kailas-cloud/reag/internal/usecase/engine"
)

const (
	budgetDailyTTL   = 48 * time.Hour
	budgetMonthlyTTL = 62 * 24 * time.Hour
)

// baseEngine is what the provider adapters have in common.
type baseEngine interface {
	engineuc.Engine
	engineuc.HealthChecker
	Provider() string
	Model() string
}

// buildEngine assembles the decorator chain: provider -> Instrumented (budget + metrics).
// budget may be nil.
func buildEngine(cfg config.EngineConfig, budget engineuc.BudgetChecker, logger *zap.Logger) (*engineuc.InstrumentedEngine, error) {
	hc := &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second}

	var base baseEngine
	switch cfg.Provider {
	case "openai":
		base = openaiEng.NewEngine(&openaiEng.Config{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			FiltrationModel:   cfg.FiltrationModel,
			System:            cfg.System,
			MaxTokens:         cfg.MaxTokens,
			Temperature:       cfg.Temperature,
			BatchSize:         cfg.BatchSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
			HTTPClient:        hc,
			Logger:            logger,
		})
	case "anthropic":
		base = anthropicEng.NewEngine(&anthropicEng.Config{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			FiltrationModel:   cfg.FiltrationModel,
			System:            cfg.System,
			MaxTokens:         cfg.MaxTokens,
			MaxRetries:        cfg.MaxRetries,
			BatchSize:         cfg.BatchSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
			HTTPClient:        hc,
			Logger:            logger,
		})
	default:
		return nil, fmt.Errorf("unknown engine provider %q", cfg.Provider)
	}

	return engineuc.NewInstrumentedEngine(base, base.Provider(), base.Model(), budget, logger), nil
}

// buildBudget returns nil when no limit is configured. Counters persist to
// counters when it is non-nil.
func buildBudget(
	ctx context.Context, cfg config.BudgetConfig, provider string,
	counters db.Counters, logger *zap.Logger,
) *engineuc.BudgetTracker {
	if !cfg.Enabled() {
		return nil
	}
	action := engineuc.BudgetActionWarn
	if cfg.Action == "reject" {
		action = engineuc.BudgetActionReject
	}
	tracker := engineuc.NewBudgetTracker(provider, cfg.DailyTokenLimit, cfg.MonthlyTokenLimit, action, logger)
	if counters != nil {
		// Loads the current counters from the store.
		tracker.WithStore(ctx, budgetrepo.New(counters, budgetDailyTTL, budgetMonthlyTTL))
	}
	return tracker
}
