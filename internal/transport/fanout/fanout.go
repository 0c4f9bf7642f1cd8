// Package fanout runs per-source engine calls in sequential batches with
// bounded concurrency inside each batch.
package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/reag/internal/domain/query/request"
	"github.com/kailas-cloud/reag/internal/domain/query/response"
	"github.com/kailas-cloud/reag/internal/transport/prompt"
)

// DefaultBatchSize is the number of sources judged concurrently.
const DefaultBatchSize = 20

// Stage names a model call inside a two-stage judgement.
type Stage string

// Model call stages.
const (
	StageFiltration Stage = "filtration"
	StageReasoning  Stage = "reasoning"
)

// Judge produces the judgement body for a single source.
type Judge func(ctx context.Context, req *request.Request, src request.Source) (json.RawMessage, response.Usage, error)

// Runner executes a Judge over every source of a request.
// Safe for concurrent use.
type Runner struct {
	batchSize int
	limiter   *rate.Limiter
}

// NewRunner creates a runner. batchSize <= 0 selects DefaultBatchSize;
// rps <= 0 disables client-side rate limiting.
func NewRunner(batchSize int, rps float64) *Runner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	r := &Runner{batchSize: batchSize}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return r
}

// BatchSize returns the effective batch size.
func (r *Runner) BatchSize() int { return r.batchSize }

// Run judges all sources. Batches run in sequence; the first failing call
// cancels its batch and no further batches start. Entries are returned in
// submission order. On error the response holds no entries, only the usage
// of the calls that were made.
func (r *Runner) Run(ctx context.Context, req *request.Request, judge Judge) (response.Response, error) {
	sources := req.Sources()
	entries := make([]response.Entry, len(sources))

	var (
		mu    sync.Mutex
		usage response.Usage
	)

	for lo := 0; lo < len(sources); lo += r.batchSize {
		hi := min(lo+r.batchSize, len(sources))

		g, gctx := errgroup.WithContext(ctx)
		for i := lo; i < hi; i++ {
			src := sources[i]
			g.Go(func() error {
				if err := r.wait(gctx); err != nil {
					return err
				}
				body, u, err := judge(gctx, req, src)
				mu.Lock()
				usage = usage.Add(u)
				mu.Unlock()
				if err != nil {
					return fmt.Errorf("source %d (%s): %w", src.Index, src.Name, err)
				}
				entries[i] = response.Entry{Index: src.Index, Body: body}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return response.Response{Usage: usage}, err
		}
	}

	return response.Response{Entries: entries, Usage: usage}, nil
}

func (r *Runner) wait(ctx context.Context) error {
	if r.limiter == nil {
		return ctx.Err()
	}
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// CompleteFunc performs one model call and returns the judgement body.
type CompleteFunc func(ctx context.Context, stage Stage, model, system, question string) (json.RawMessage, response.Usage, error)

// TwoStage builds a Judge that first asks filtrationModel whether the source
// is relevant and only then asks reasoningModel for the final judgement.
// With an empty filtrationModel a single reasoning call decides both.
// Filtration output without a readable isIrrelevant flag is passed on as-is
// so the result validator can reject it.
func TwoStage(system, filtrationModel, reasoningModel string, complete CompleteFunc) Judge {
	return func(ctx context.Context, req *request.Request, src request.Source) (json.RawMessage, response.Usage, error) {
		sys, err := prompt.System(system, req.Instructions(), src)
		if err != nil {
			return nil, response.Usage{}, err
		}

		var used response.Usage
		if filtrationModel != "" {
			body, u, err := complete(ctx, StageFiltration, filtrationModel, sys, req.Question())
			if err != nil {
				return nil, u, err
			}
			used = u
			if irrelevant, ok := prompt.Irrelevant(body); !ok || irrelevant {
				return body, used, nil
			}
		}

		body, u, err := complete(ctx, StageReasoning, reasoningModel, sys, req.Question())
		if err != nil {
			return nil, used.Add(u), err
		}
		return body, used.Add(u), nil
	}
}
