package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/query/request"
	"github.com/kailas-cloud/reag/internal/domain/query/response"
	"github.com/kailas-cloud/reag/internal/logger"
	"github.com/kailas-cloud/reag/internal/metrics"
	"github.com/kailas-cloud/reag/internal/transport/fanout"
	"github.com/kailas-cloud/reag/internal/transport/prompt"
)

// judgementSchema is the strict structured output every call must follow.
var judgementSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"content": {
			Type:        jsonschema.String,
			Description: "The source of the information, relevant passage",
		},
		"reasoning": {
			Type:        jsonschema.String,
			Description: "The reasoning behind why the source is relevant",
		},
		"isIrrelevant": {
			Type:        jsonschema.Boolean,
			Description: "Whether the source is relevant to the question",
		},
	},
	Required:             []string{"content", "reasoning", "isIrrelevant"},
	AdditionalProperties: false,
}

// Engine is a reasoning engine on the OpenAI-compatible chat completions API.
type Engine struct {
	client          *openai.Client
	model           string
	filtrationModel string
	maxTokens       int
	temperature     float32
	provider        string
	runner          *fanout.Runner
	judge           fanout.Judge
	logger          *zap.Logger
}

// Config holds the engine settings.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	FiltrationModel   string // empty: single-stage
	System            string // empty: prompt.DefaultSystem
	MaxTokens         int
	Temperature       float32
	BatchSize         int
	RequestsPerSecond float64
	Provider          string
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// NewEngine creates an OpenAI-compatible reasoning engine.
func NewEngine(cfg *Config) *Engine {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	e := &Engine{
		client:          openai.NewClientWithConfig(clientCfg),
		model:           cfg.Model,
		filtrationModel: cfg.FiltrationModel,
		maxTokens:       cfg.MaxTokens,
		temperature:     cfg.Temperature,
		provider:        provider,
		runner:          fanout.NewRunner(cfg.BatchSize, cfg.RequestsPerSecond),
		logger:          logger.OrNop(cfg.Logger),
	}
	e.judge = fanout.TwoStage(cfg.System, cfg.FiltrationModel, cfg.Model, e.complete)
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
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "reag_judgement",
				Schema: &judgementSchema,
				Strict: true,
			},
		},
		Temperature: e.temperature,
	}
	if e.maxTokens > 0 {
		req.MaxTokens = e.maxTokens
	}

	labels := []string{e.provider, model, string(stage)}
	start := time.Now()

	resp, err := e.client.CreateChatCompletion(ctx, req)

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
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if usage.TotalTokens > 0 {
		metrics.EngineTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(usage.PromptTokens))
		metrics.EngineTokensTotal.WithLabelValues(e.provider, model, "completion").Add(float64(usage.CompletionTokens))
		metrics.EngineTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(usage.TotalTokens))
	}

	// Unusable output is passed on; the result validator rejects it.
	if len(resp.Choices) == 0 {
		metrics.EngineErrorsTotal.WithLabelValues(e.provider, model, "empty_response").Inc()
		return nil, usage, nil
	}
	content := resp.Choices[0].Message.Content
	body, err := prompt.ExtractJSON(content)
	if err != nil {
		metrics.EngineErrorsTotal.WithLabelValues(e.provider, model, "invalid_json").Inc()
		e.logger.Warn("Model returned non-JSON output",
			zap.String("model", model),
			zap.String("stage", string(stage)),
			zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		)
		return json.RawMessage(content), usage, nil
	}
	return body, usage, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Engine) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", parseAPIError(err))
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors wrap domain.ErrTransport; HTTP 429 also wraps domain.ErrRateLimited.
func parseAPIError(err error) error {
	wrap := func(status int, msg string) error {
		if status == http.StatusTooManyRequests {
			return fmt.Errorf("engine API error %d: %s: %w: %w", status, msg, domain.ErrRateLimited, domain.ErrTransport)
		}
		return fmt.Errorf("engine API error %d: %s: %w", status, msg, domain.ErrTransport)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return wrap(reqErr.HTTPStatusCode, detail)
		}
		return wrap(reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return wrap(apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("engine request failed: %v: %w", err, domain.ErrTransport)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
