package reag

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Document is a candidate source for reasoning.
// Metadata values must be strings, booleans, integers or floats.
type Document struct {
	Name     string
	Content  string
	Metadata map[string]any
}

// Operator is a metadata comparison used in filter clauses.
type Operator string

// Filter operators. An empty Operator means Equals.
const (
	Equals             Operator = "equals"
	NotEquals          Operator = "notEquals"
	GreaterThan        Operator = "greaterThan"
	GreaterThanOrEqual Operator = "greaterThanOrEqual"
	LessThan           Operator = "lessThan"
	LessThanOrEqual    Operator = "lessThanOrEqual"
)

// FilterClause is a metadata test applied before the engine is called.
// A document is submitted only when it passes every clause.
type FilterClause struct {
	Key      string
	Operator Operator
	Value    any
}

// QueryResult is one document's outcome.
type QueryResult struct {
	Content      string
	Reasoning    string
	IsIrrelevant bool
	Document     Document // the caller's Document, metadata map included
}

// IrrelevantPolicy decides what happens to documents judged irrelevant.
type IrrelevantPolicy string

// Irrelevance policies.
const (
	// PolicyDrop removes irrelevant documents from the results (default).
	PolicyDrop IrrelevantPolicy = "drop"
	// PolicyAnnotate keeps them with IsIrrelevant set.
	PolicyAnnotate IrrelevantPolicy = "annotate"
)

// HealthStatus represents the aggregated engine health.
type HealthStatus struct {
	Status string            // "ok", "error"
	Checks map[string]string // component -> "ok"/"error"
}

// OpenAIConfig configures an engine on the OpenAI-compatible chat completions API.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string // empty: api.openai.com
	Model           string
	FiltrationModel string // empty: one call per document
	System          string // empty: built-in prompt
	MaxTokens       int
	Temperature     float32
	Timeout         time.Duration
	HTTPClient      *http.Client
}

// AnthropicConfig configures an engine on the Anthropic Messages API.
type AnthropicConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	FiltrationModel string
	System          string
	MaxTokens       int
	MaxRetries      int
	Timeout         time.Duration
	HTTPClient      *http.Client
}

// Engine is a custom reasoning engine. Implementations must be safe for
// concurrent use, honour ctx cancellation and answer every source with a
// JSON body of the form {"content": ..., "reasoning": ..., "isIrrelevant": ...}.
// A failing Send may still report the tokens it spent in Usage.
type Engine interface {
	Send(ctx context.Context, req EngineRequest) (EngineResponse, error)
}

// EngineRequest is what a custom Engine receives.
type EngineRequest struct {
	ID           string
	Question     string
	Instructions string
	Sources      []Source
}

// Source is a document as submitted to the engine. Index is its submission
// position and must be echoed in the matching EngineEntry.
type Source struct {
	Index    int
	Name     string
	Content  string
	Metadata map[string]any
}

// EngineResponse is what a custom Engine returns.
type EngineResponse struct {
	Model   string
	Entries []EngineEntry
	Usage   Usage
}

// EngineEntry is the raw judgement for one source.
type EngineEntry struct {
	Index int
	Body  json.RawMessage
}

// Usage is token consumption reported by the engine.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
