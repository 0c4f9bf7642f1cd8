package reag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/metadata"
	"github.com/kailas-cloud/reag/internal/domain/query/request"
	"github.com/kailas-cloud/reag/internal/domain/query/response"
	anthropiceng "github.com/kailas-cloud/reag/internal/transport/anthropic"
	openaieng "github.com/kailas-cloud/reag/internal/transport/openai"
	engineuc "github.com/kailas-cloud/reag/internal/usecase/engine"
)

// buildEngine assembles the configured engine behind the instrumented
// decorator and returns the functions that release its resources.
func buildEngine(cfg *clientConfig) (*engineuc.InstrumentedEngine, []func() error, error) {
	switch {
	case cfg.openai != nil:
		oc := cfg.openai
		if oc.Model == "" {
			return nil, nil, errors.New("reag: openai model required")
		}
		hc, release := ownedHTTPClient(oc.HTTPClient, oc)
		eng := openaieng.NewEngine(&openaieng.Config{
			APIKey:            oc.APIKey,
			BaseURL:           oc.BaseURL,
			Model:             oc.Model,
			FiltrationModel:   oc.FiltrationModel,
			System:            oc.System,
			MaxTokens:         oc.MaxTokens,
			Temperature:       oc.Temperature,
			BatchSize:         cfg.batchSize,
			RequestsPerSecond: cfg.rps,
			HTTPClient:        hc,
			Logger:            cfg.logger,
		})
		return engineuc.NewInstrumentedEngine(eng, eng.Provider(), eng.Model(), nil, cfg.logger), release, nil

	case cfg.anthropic != nil:
		ac := cfg.anthropic
		if ac.Model == "" {
			return nil, nil, errors.New("reag: anthropic model required")
		}
		hc, release := ownedHTTPClient(ac.HTTPClient, ac)
		eng := anthropiceng.NewEngine(&anthropiceng.Config{
			APIKey:            ac.APIKey,
			BaseURL:           ac.BaseURL,
			Model:             ac.Model,
			FiltrationModel:   ac.FiltrationModel,
			System:            ac.System,
			MaxTokens:         ac.MaxTokens,
			MaxRetries:        ac.MaxRetries,
			BatchSize:         cfg.batchSize,
			RequestsPerSecond: cfg.rps,
			HTTPClient:        hc,
			Logger:            cfg.logger,
		})
		return engineuc.NewInstrumentedEngine(eng, eng.Provider(), eng.Model(), nil, cfg.logger), release, nil

	default:
		adapter := &engineAdapter{inner: cfg.engine}
		var release []func() error
		if c, ok := cfg.engine.(interface{ Close() error }); ok {
			release = append(release, c.Close)
		}
		return engineuc.NewInstrumentedEngine(adapter, "custom", "", nil, cfg.logger), release, nil
	}
}

type timeoutConfig interface{ timeout() time.Duration }

func (c *OpenAIConfig) timeout() time.Duration    { return c.Timeout }
func (c *AnthropicConfig) timeout() time.Duration { return c.Timeout }

// ownedHTTPClient returns the caller's client untouched, or a client owned
// by reag whose idle connections are closed on release.
func ownedHTTPClient(hc *http.Client, tc timeoutConfig) (*http.Client, []func() error) {
	if hc != nil {
		return hc, nil
	}
	hc = &http.Client{Timeout: tc.timeout()}
	return hc, []func() error{func() error {
		hc.CloseIdleConnections()
		return nil
	}}
}

// engineAdapter exposes a public Engine as the internal engine contract.
type engineAdapter struct {
	inner Engine
}

func (a *engineAdapter) Send(ctx context.Context, req *request.Request) (response.Response, error) {
	sources := req.Sources()
	out := EngineRequest{
		ID:           req.ID(),
		Question:     req.Question(),
		Instructions: req.Instructions(),
		Sources:      make([]Source, len(sources)),
	}
	for i, s := range sources {
		out.Sources[i] = Source{
			Index:    s.Index,
			Name:     s.Name,
			Content:  s.Content,
			Metadata: metadataToAny(s.Metadata),
		}
	}

	resp, err := a.inner.Send(ctx, out)
	usage := response.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, domain.ErrTransport) {
			return response.Response{Usage: usage}, err
		}
		return response.Response{Usage: usage}, fmt.Errorf("custom engine: %w: %w", domain.ErrTransport, err)
	}

	entries := make([]response.Entry, len(resp.Entries))
	for i, e := range resp.Entries {
		entries[i] = response.Entry{Index: e.Index, Body: e.Body}
	}
	return response.Response{Entries: entries, Model: resp.Model, Usage: usage}, nil
}

func (a *engineAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func metadataToAny(m metadata.Map) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}
