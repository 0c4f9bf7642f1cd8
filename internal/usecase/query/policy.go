package query

import (
	"fmt"

	"github.com/kailas-cloud/reag/internal/domain"
)

// Policy decides what happens to documents the engine judged irrelevant.
type Policy string

const (
	// PolicyDrop removes irrelevant documents from the result list.
	PolicyDrop Policy = "drop"
	// PolicyAnnotate keeps irrelevant documents with IsIrrelevant set.
	PolicyAnnotate Policy = "annotate"
)

// ParsePolicy validates a policy name. An empty name means PolicyDrop.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyDrop:
		return PolicyDrop, nil
	case PolicyAnnotate:
		return PolicyAnnotate, nil
	default:
		return "", domain.NewValidationError("policy", fmt.Sprintf("unknown irrelevant policy %q", s))
	}
}
