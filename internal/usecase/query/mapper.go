package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/document"
	"github.com/kailas-cloud/reag/internal/domain/query/response"
	"github.com/kailas-cloud/reag/internal/domain/query/result"
)

// judgement is the structured payload every engine entry must carry.
type judgement struct {
	Content      *string `json:"content"`
	Reasoning    *string `json:"reasoning"`
	IsIrrelevant *bool   `json:"isIrrelevant"`
}

// Validate decodes engine entries and re-associates them with the submitted
// documents by index; a result's Position is its index in docs. Output follows submission order; documents without an
// entry are skipped. Out-of-range, duplicate or malformed entries fail with
// domain.ErrResponseShape.
func Validate(resp response.Response, docs []document.Document) ([]result.Result, error) {
	if len(resp.Entries) > len(docs) {
		return nil, domain.NewResponseShapeError(-1,
			fmt.Sprintf("got %d entries for %d documents", len(resp.Entries), len(docs)))
	}

	slots := make([]*result.Result, len(docs))
	for _, e := range resp.Entries {
		if e.Index < 0 || e.Index >= len(docs) {
			return nil, domain.NewResponseShapeError(e.Index, "index out of range")
		}
		if slots[e.Index] != nil {
			return nil, domain.NewResponseShapeError(e.Index, "duplicate entry")
		}
		j, err := decodeJudgement(e.Body)
		if err != nil {
			return nil, domain.NewResponseShapeError(e.Index, err.Error())
		}
		r := result.New(*j.Content, *j.Reasoning, *j.IsIrrelevant, docs[e.Index]).WithPosition(e.Index)
		slots[e.Index] = &r
	}

	out := make([]result.Result, 0, len(resp.Entries))
	for _, r := range slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// ExcludeIrrelevant drops results flagged irrelevant, keeping order.
func ExcludeIrrelevant(results []result.Result) []result.Result {
	out := make([]result.Result, 0, len(results))
	for _, r := range results {
		if !r.IsIrrelevant() {
			out = append(out, r)
		}
	}
	return out
}

func decodeJudgement(body json.RawMessage) (judgement, error) {
	var j judgement
	if len(bytes.TrimSpace(body)) == 0 {
		return j, fmt.Errorf("empty body")
	}
	if err := json.Unmarshal(body, &j); err != nil {
		return j, fmt.Errorf("decode: %w", err)
	}
	switch {
	case j.IsIrrelevant == nil:
		return j, fmt.Errorf("missing field %q", "isIrrelevant")
	case j.Reasoning == nil:
		return j, fmt.Errorf("missing field %q", "reasoning")
	case j.Content == nil:
		return j, fmt.Errorf("missing field %q", "content")
	}
	if !*j.IsIrrelevant {
		if strings.TrimSpace(*j.Content) == "" {
			return j, fmt.Errorf("relevant entry has empty content")
		}
		if strings.TrimSpace(*j.Reasoning) == "" {
			return j, fmt.Errorf("relevant entry has empty reasoning")
		}
	}
	return j, nil
}
