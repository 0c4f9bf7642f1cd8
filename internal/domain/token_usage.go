package domain

import "context"

type tokenUsageKey struct{}

// TokenUsage collects engine token usage for a single request.
// The HTTP handler puts a pointer into the context, the instrumented engine
// adds to it after each round trip, and the handler reports it in headers.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Used             bool // the engine was called, even if it reported no tokens
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *TokenUsage) {
	u := &TokenUsage{}
	return context.WithValue(ctx, tokenUsageKey{}, u), u
}

// UsageFromContext returns the collector, or nil if none was installed.
func UsageFromContext(ctx context.Context) *TokenUsage {
	u, _ := ctx.Value(tokenUsageKey{}).(*TokenUsage)
	return u
}

// Add records one round trip. Safe on a nil receiver.
func (u *TokenUsage) Add(prompt, completion, total int) {
	if u == nil {
		return
	}
	u.PromptTokens += prompt
	u.CompletionTokens += completion
	u.TotalTokens += total
	u.Used = true
}
