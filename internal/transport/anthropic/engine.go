// Package anthropic implements the reasoning engine on the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/query/request"
	"github.com/kailas-cloud/reag/internal/domain/query/response"
	"github.com/kailas-cloud/reag/internal/logger"
	"github.com/kailas-cloud/reag/internal/metrics"
	"github.com/kailas-cloud/reag/internal/transport/fanout"
	"github.com/kailas-cloud/reag/internal/transport/prompt"
)

const defaultMaxTokens = 1024

// Engine is a reasoning engine backed by Claude models.
type Engine struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	provider  string
	runner    *fanout.Runner
	judge     fanout.Judge
	logger    *zap.Logger
}

// Config holds the engine settings.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	FiltrationModel   string
	System            string
	MaxTokens         int
	MaxRetries        int
	BatchSize         int
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// NewEngine creates an Anthropic reasoning engine.
func NewEngine(cfg *Config) *Engine {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	base := cfg.System
	if base == "" {
		base = prompt.DefaultSystem
	}
	// No native structured output: the schema travels in the prompt.
	base += "\n\n" + prompt.JSONInstruction

	e := &Engine{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
		provider:  "anthropic",
		runner:    fanout.NewRunner(cfg.BatchSize, cfg.RequestsPerSecond),
		logger:    logger.OrNop(cfg.Logger),
	}
	e.judge = fanout.TwoStage(base, cfg.FiltrationModel, cfg.Model, e.complete)
	return e
}

// Provider returns the provider label used in metrics.
func (e *Engine) Provider() string { return e.provider }

// Model returns the reasoning model name.
func (e *Engine) Model() string { return e.model }

// Send judges every source of the request and returns the raw entries.
func (e *Engine) Send(ctx context.Context, req *request.Request) (response.Response, error) {
	start := time.Now()
	resp, err := e.runner.Run(ctx, req, e.judge)
	if err != nil {
		return response.Response{Usage: resp.Usage}, err
	}
	resp.Model = e.model

	e.logger.Debug("Engine round trip finished",
		zap.String("query_id", req.ID()),
		zap.Int("sources", req.Len()),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (e *Engine) complete(
	ctx context.Context, stage fanout.Stage, model, system, question string,
) (json.RawMessage, response.Usage, error) {
	labels := []string{e.provider, model, string(stage)}
	start := time.Now()

	msg, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: e.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
	})

	duration := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, response.Usage{}, ctxErr
		}
		metrics.EngineRequestsTotal.WithLabelValues(append(labels, "error")...).Inc()
		metrics.EngineErrorsTotal.WithLabelValues(e.provider, model, "api_error").Inc()
		return nil, response.Usage{}, parseAPIError(err)
	}

	metrics.EngineRequestsTotal.WithLabelValues(append(labels, "success")...).Inc()
	metrics.EngineRequestDuration.WithLabelValues(labels...).Observe(duration.Seconds())

	usage := response.Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	if usage.TotalTokens > 0 {
		metrics.EngineTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(usage.PromptTokens))
		metrics.EngineTokensTotal.WithLabelValues(e.provider, model, "completion").Add(float64(usage.CompletionTokens))
		metrics.EngineTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(usage.TotalTokens))
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	body, err := prompt.ExtractJSON(text.String())
	if err != nil {
		metrics.EngineErrorsTotal.WithLabelValues(e.provider, model, "invalid_json").Inc()
		e.logger.Warn("Model returned non-JSON output",
			zap.String("model", model),
			zap.String("stage", string(stage)),
			zap.String("stop_reason", string(msg.StopReason)),
		)
		return json.RawMessage(text.String()), usage, nil
	}
	return body, usage, nil
}

// HealthCheck verifies API availability by listing models.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if _, err := e.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("list models: %w", parseAPIError(err))
	}
	return nil
}

// parseAPIError wraps SDK errors with domain.ErrTransport; HTTP 429 also
// wraps domain.ErrRateLimited.
func parseAPIError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("engine API error %d: %w: %w", apiErr.StatusCode, domain.ErrRateLimited, domain.ErrTransport)
		}
		return fmt.Errorf("engine API error %d: %w", apiErr.StatusCode, domain.ErrTransport)
	}
	return fmt.Errorf("engine request failed: %v: %w", err, domain.ErrTransport)
}
