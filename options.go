package reag

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	openai    *OpenAIConfig
	anthropic *AnthropicConfig
	engine    Engine

	instructions string
	policy       IrrelevantPolicy
	batchSize    int
	rps          float64
	startupCheck bool

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// engines counts configured engines; exactly one is required.
func (c *clientConfig) engines() int {
	n := 0
	if c.openai != nil {
		n++
	}
	if c.anthropic != nil {
		n++
	}
	if c.engine != nil {
		n++
	}
	return n
}

// WithOpenAI uses an OpenAI-compatible chat completions endpoint as the engine.
func WithOpenAI(cfg OpenAIConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.openai = &cfg
	})
}

// WithAnthropic uses the Anthropic Messages API as the engine.
func WithAnthropic(cfg AnthropicConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.anthropic = &cfg
	})
}

// WithEngine uses a custom engine. Batch size and rate limit options do not
// apply to it.
func WithEngine(e Engine) Option {
	return optionFunc(func(c *clientConfig) {
		c.engine = e
	})
}

// WithInstructions sets default reasoning instructions for every query.
func WithInstructions(instructions string) Option {
	return optionFunc(func(c *clientConfig) {
		c.instructions = instructions
	})
}

// WithIrrelevantPolicy sets the default irrelevance policy (PolicyDrop by default).
func WithIrrelevantPolicy(p IrrelevantPolicy) Option {
	return optionFunc(func(c *clientConfig) {
		c.policy = p
	})
}

// WithBatchSize sets how many documents are judged concurrently. Default: 20.
func WithBatchSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = n
	})
}

// WithRateLimit caps engine calls per second across all queries of the client.
// Zero disables client-side limiting (default).
func WithRateLimit(rps float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.rps = rps
	})
}

// WithStartupCheck makes New probe the engine before returning.
func WithStartupCheck() Option {
	return optionFunc(func(c *clientConfig) {
		c.startupCheck = true
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client and engine metrics on the given
// registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// QueryOption configures a single Query call.
type QueryOption func(*queryConfig)

type queryConfig struct {
	clauses      []FilterClause
	policy       IrrelevantPolicy
	instructions string
}

// Where adds a filter clause.
func Where(key string, op Operator, value any) QueryOption {
	return func(q *queryConfig) {
		q.clauses = append(q.clauses, FilterClause{Key: key, Operator: op, Value: value})
	}
}

// WithFilter adds filter clauses.
func WithFilter(clauses ...FilterClause) QueryOption {
	return func(q *queryConfig) {
		q.clauses = append(q.clauses, clauses...)
	}
}

// WithQueryPolicy overrides the irrelevance policy for one query.
func WithQueryPolicy(p IrrelevantPolicy) QueryOption {
	return func(q *queryConfig) {
		q.policy = p
	}
}

// WithQueryInstructions overrides the reasoning instructions for one query.
func WithQueryInstructions(instructions string) QueryOption {
	return func(q *queryConfig) {
		q.instructions = instructions
	}
}
