// Package prompt renders the per-source system prompt and extracts the
// structured judgement from model output.
package prompt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/reag/internal/domain/query/request"
)

// DefaultSystem is the reasoning prompt used when none is configured.
const DefaultSystem = `You are a retrieval assistant. You are given a question and exactly one source document.

Decide whether the source helps answer the question.
- If it does, quote or closely paraphrase the passage that answers the question in "content", explain in "reasoning" why the passage is relevant, and set "isIrrelevant" to false.
- If it does not, set "isIrrelevant" to true, leave "content" empty and explain briefly in "reasoning" why the source does not help.

Use only the information in the source. Do not invent facts.`

// JSONInstruction is appended for providers without native structured output.
const JSONInstruction = `Respond with a single JSON object and nothing else, in the form:
{"content": string, "reasoning": string, "isIrrelevant": boolean}`

// ErrNoJSON is returned when model output contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in model output")

// System renders the system message for one source:
// base, optional instructions, then the "# Available source" block.
func System(base, instructions string, src request.Source) (string, error) {
	if base == "" {
		base = DefaultSystem
	}

	md := []byte("{}")
	if len(src.Metadata) > 0 {
		var err error
		if md, err = json.Marshal(src.Metadata); err != nil {
			return "", fmt.Errorf("encode metadata of %q: %w", src.Name, err)
		}
	}

	var b strings.Builder
	b.WriteString(base)
	if instructions != "" {
		b.WriteString("\n\n# Instructions\n\n")
		b.WriteString(instructions)
	}
	b.WriteString("\n\n# Available source\n\n")
	fmt.Fprintf(&b, "Name: %s\nMetadata: %s\nContent: %s", src.Name, md, src.Content)
	return b.String(), nil
}

// ExtractJSON returns the outermost JSON object in text, tolerating
// markdown code fences and surrounding prose.
func ExtractJSON(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}
	raw := []byte(text[start : end+1])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrNoJSON)
	}
	return bytes.Clone(raw), nil
}

// Irrelevant reports the isIrrelevant flag of a judgement body.
// ok is false when the flag cannot be read.
func Irrelevant(body json.RawMessage) (irrelevant, ok bool) {
	var peek struct {
		IsIrrelevant *bool `json:"isIrrelevant"`
	}
	if err := json.Unmarshal(body, &peek); err != nil || peek.IsIrrelevant == nil {
		return false, false
	}
	return *peek.IsIrrelevant, true
}
