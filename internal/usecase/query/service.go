package query

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/document"
	"github.com/kailas-cloud/reag/internal/domain/query/filter"
	"github.com/kailas-cloud/reag/internal/domain/query/request"
	"github.com/kailas-cloud/reag/internal/domain/query/result"
	"github.com/kailas-cloud/reag/internal/logger"
	"github.com/kailas-cloud/reag/internal/metrics"
)

// Options are per-invocation query settings.
type Options struct {
	Filter       []filter.Clause
	Policy       Policy // empty: service default
	Instructions string // empty: service default
}

// Service runs the filter -> engine -> validate pipeline.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	engine       Engine
	policy       Policy
	instructions string
	newID        func() string
	logger       *zap.Logger
}

// New creates a query service.
func New(engine Engine, log *zap.Logger) *Service {
	return &Service{
		engine: engine,
		policy: PolicyDrop,
		newID:  uuid.NewString,
		logger: logger.OrNop(log),
	}
}

// WithPolicy sets the default irrelevance policy.
func (s *Service) WithPolicy(p Policy) *Service {
	if p != "" {
		s.policy = p
	}
	return s
}

// WithInstructions sets default reasoning instructions.
func (s *Service) WithInstructions(instructions string) *Service {
	s.instructions = instructions
	return s
}

// Query filters docs, sends the survivors to the engine and returns the
// validated results in submission order. Each result's Position is the
// index of its document in docs. Errors abort the whole query;
// no partial list is ever returned.
func (s *Service) Query(
	ctx context.Context, question string, docs []document.Document, opts Options,
) (results []result.Result, err error) {
	start := time.Now()
	id := s.newID()
	log := logger.FromContext(ctx, s.logger).With(zap.String("query_id", id))

	stage := domain.StageBuilt
	defer func() {
		metrics.QueriesTotal.WithLabelValues(string(stage)).Inc()
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}()

	fail := func(st domain.Stage, cause error) ([]result.Result, error) {
		stage = st
		log.Warn("Query failed", zap.String("stage", string(st)), zap.Error(cause))
		return nil, &domain.QueryError{Stage: st, Err: cause}
	}

	policy, err := s.resolvePolicy(opts.Policy)
	if err != nil {
		return fail(domain.StageRequestInvalid, err)
	}
	if err = filter.Validate(opts.Filter); err != nil {
		return fail(domain.StageRequestInvalid, err)
	}

	if err = request.ValidateQuestion(question); err != nil {
		return fail(domain.StageRequestInvalid, err)
	}

	// Nothing to reason over: no engine call, empty result.
	if len(docs) == 0 {
		stage = domain.StageReturned
		return []result.Result{}, nil
	}

	positions := filter.Select(docs, opts.Filter)
	filtered := make([]document.Document, len(positions))
	for i, p := range positions {
		filtered[i] = docs[p]
	}
	metrics.QueryDocumentsTotal.WithLabelValues("filtered_out").Add(float64(len(docs) - len(filtered)))

	instructions := s.instructions
	if opts.Instructions != "" {
		instructions = opts.Instructions
	}
	req, err := request.Build(id, question, filtered, instructions)
	if err != nil {
		return fail(domain.StageRequestInvalid, err)
	}
	log.Debug("Query built",
		zap.Int("documents", len(docs)),
		zap.Int("submitted", req.Len()),
		zap.Int("clauses", len(opts.Filter)),
	)

	if err = ctx.Err(); err != nil {
		return fail(domain.StageTransportFailed, err)
	}

	stage = domain.StageSent
	metrics.QueryDocumentsTotal.WithLabelValues("submitted").Add(float64(req.Len()))
	log.Debug("Query sent")

	stage = domain.StageAwaitingResponse
	resp, err := s.engine.Send(ctx, &req)
	if err != nil {
		return fail(domain.StageTransportFailed, err)
	}
	// The engine may have returned after the caller gave up: all or nothing.
	if err = ctx.Err(); err != nil {
		return fail(domain.StageTransportFailed, err)
	}

	validated, err := Validate(resp, filtered)
	if err != nil {
		return fail(domain.StageResponseInvalid, err)
	}
	for i, r := range validated {
		validated[i] = r.WithPosition(positions[r.Position()])
	}
	stage = domain.StageValidated

	results = validated
	if policy == PolicyDrop {
		results = ExcludeIrrelevant(validated)
	}
	stage = domain.StageFiltered
	irrelevant := countIrrelevant(validated)
	metrics.QueryDocumentsTotal.WithLabelValues("irrelevant").Add(float64(irrelevant))
	metrics.QueryDocumentsTotal.WithLabelValues("returned").Add(float64(len(results)))

	stage = domain.StageReturned
	log.Debug("Query completed",
		zap.Int("entries", len(resp.Entries)),
		zap.Int("irrelevant", irrelevant),
		zap.Int("returned", len(results)),
		zap.String("policy", string(policy)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return results, nil
}

func (s *Service) resolvePolicy(p Policy) (Policy, error) {
	if p == "" {
		return s.policy, nil
	}
	parsed, err := ParsePolicy(string(p))
	if err != nil {
		return "", fmt.Errorf("resolve policy: %w", err)
	}
	return parsed, nil
}

func countIrrelevant(results []result.Result) int {
	n := 0
	for _, r := range results {
		if r.IsIrrelevant() {
			n++
		}
	}
	return n
}
