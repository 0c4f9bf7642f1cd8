package reag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/document"
	"github.com/kailas-cloud/reag/internal/domain/metadata"
	"github.com/kailas-cloud/reag/internal/domain/query/filter"
	"github.com/kailas-cloud/reag/internal/domain/query/result"
	healthuc "github.com/kailas-cloud/reag/internal/usecase/health"
	queryuc "github.com/kailas-cloud/reag/internal/usecase/query"
)

// Internal interfaces for substitution in tests.
type queryUseCase interface {
	Query(ctx context.Context, question string, docs []document.Document, opts queryuc.Options) ([]result.Result, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the reag SDK entry point. It is safe for concurrent use.
// Release it with Close, or use With for a scoped lifetime.
type Client struct {
	query   queryUseCase
	health  healthUseCase
	obs     *observer
	release []func() error

	closed   atomic.Bool
	once     sync.Once
	closeErr error
}

// New creates a Client. Exactly one of WithOpenAI, WithAnthropic or
// WithEngine is required. ctx bounds the optional startup check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	switch cfg.engines() {
	case 0:
		return nil, errors.New("reag: engine required (use WithOpenAI, WithAnthropic or WithEngine)")
	case 1:
	default:
		return nil, errors.New("reag: only one engine may be configured")
	}

	policy, err := queryuc.ParsePolicy(string(cfg.policy))
	if err != nil {
		return nil, fmt.Errorf("reag: %w", err)
	}
	if cfg.batchSize < 0 || cfg.rps < 0 {
		return nil, errors.New("reag: batch size and rate limit must not be negative")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	eng, release, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		query: queryuc.New(eng, cfg.logger).
			WithPolicy(policy).
			WithInstructions(cfg.instructions),
		health:  healthuc.New(eng, nil),
		obs:     obs,
		release: release,
	}

	if cfg.startupCheck {
		if err := eng.HealthCheck(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("reag: engine not ready: %w", err)
		}
	}
	return c, nil
}

// With creates a Client, runs fn and closes the client whatever fn returns.
func With(ctx context.Context, fn func(*Client) error, opts ...Option) (err error) {
	c, err := New(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(c)
}

// Close releases the client's resources. It is idempotent; queries issued
// after Close fail with ErrClosed.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.closed.Store(true)
		var errs []error
		for _, release := range c.release {
			if err := release(); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			c.closeErr = fmt.Errorf("reag: close: %w", errors.Join(errs...))
		}
	})
	return c.closeErr
}

// Query asks question over docs. Documents failing any filter clause are
// never sent to the engine. Results come back in submission order; with the
// default policy documents judged irrelevant are dropped, so a query with
// no relevant document returns an empty slice and no error.
func (c *Client) Query(
	ctx context.Context, question string, docs []Document, opts ...QueryOption,
) (results []QueryResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query", start, err) }()

	if c.closed.Load() {
		return nil, ErrClosed
	}

	qc := queryConfig{}
	for _, o := range opts {
		o(&qc)
	}

	domDocs, err := toDomainDocuments(docs)
	if err != nil {
		return nil, &QueryError{Stage: StageRequestInvalid, Err: err}
	}
	clauses, err := toDomainClauses(qc.clauses)
	if err != nil {
		return nil, &QueryError{Stage: StageRequestInvalid, Err: err}
	}

	res, err := c.query.Query(ctx, question, domDocs, queryuc.Options{
		Filter:       clauses,
		Policy:       queryuc.Policy(qc.policy),
		Instructions: qc.instructions,
	})
	if err != nil {
		return nil, err
	}

	results = make([]QueryResult, len(res))
	for i, r := range res {
		results[i] = fromDomainResult(r, docs)
	}
	return results, nil
}

// Health probes the engine.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	if c.closed.Load() {
		return HealthStatus{}, ErrClosed
	}
	start := time.Now()
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	var err error
	if report.Status != healthuc.Healthy {
		err = fmt.Errorf("health %s: %w", report.Status, report.Err)
	}
	c.obs.observe("health", start, err)
	return HealthStatus{Status: string(report.Status), Checks: checks}, nil
}

func toDomainDocuments(docs []Document) ([]document.Document, error) {
	out := make([]document.Document, len(docs))
	for i, d := range docs {
		field := fmt.Sprintf("documents[%d]", i)
		md, err := metadata.FromAny(d.Metadata)
		if err != nil {
			return nil, domain.NewValidationError(field, err.Error())
		}
		doc, err := document.New(d.Name, d.Content, md)
		if err != nil {
			return nil, domain.NewValidationError(field, err.Error())
		}
		out[i] = doc
	}
	return out, nil
}

func toDomainClauses(clauses []FilterClause) ([]filter.Clause, error) {
	if len(clauses) == 0 {
		return nil, nil
	}
	out := make([]filter.Clause, len(clauses))
	for i, c := range clauses {
		op, err := filter.ParseOperator(string(c.Operator))
		if err != nil {
			return nil, err
		}
		v, err := metadata.Of(c.Value)
		if err != nil {
			return nil, domain.NewValidationError("filter.value", err.Error())
		}
		clause, err := filter.NewClause(c.Key, op, v)
		if err != nil {
			return nil, err
		}
		out[i] = clause
	}
	return out, nil
}

// fromDomainResult hands back the caller's own Document, located by position.
func fromDomainResult(r result.Result, submitted []Document) QueryResult {
	return QueryResult{
		Content:      r.Content(),
		Reasoning:    r.Reasoning(),
		IsIrrelevant: r.IsIrrelevant(),
		Document:     submitted[r.Position()],
	}
}
