// Package response holds the raw reasoning engine output before validation.
package response

import "encoding/json"

// Entry is one engine judgement. Index refers to request.Source.Index;
// Body is the structured payload exactly as the engine produced it.
type Entry struct {
	Index int
	Body  json.RawMessage
}

// Usage is the token consumption of a single engine round trip.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add returns the sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// Response is the raw engine answer for a request.
type Response struct {
	Entries []Entry
	Usage   Usage
	Model   string
}
