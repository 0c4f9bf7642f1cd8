package chi

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/document"
	"github.com/kailas-cloud/reag/internal/domain/metadata"
	"github.com/kailas-cloud/reag/internal/domain/query/filter"
	"github.com/kailas-cloud/reag/internal/domain/query/result"
	domusage "github.com/kailas-cloud/reag/internal/domain/usage"
	queryuc "github.com/kailas-cloud/reag/internal/usecase/query"
)

// ErrorCode is a machine-readable error category.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeValidationFailed    ErrorCode = "validation_failed"
	ErrorCodeNoMatchingDocuments ErrorCode = "no_matching_documents"
	ErrorCodeRateLimited         ErrorCode = "rate_limited"
	ErrorCodeBudgetExceeded      ErrorCode = "budget_exceeded"
	ErrorCodeEngineUnavailable   ErrorCode = "engine_unavailable"
	ErrorCodeEngineResponse      ErrorCode = "engine_response_invalid"
	ErrorCodeTimeout             ErrorCode = "timeout"
	ErrorCodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Stage   string    `json:"stage,omitempty"`
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Question     string        `json:"question"`
	Documents    []DocumentDTO `json:"documents"`
	Filter       []ClauseDTO   `json:"filter,omitempty"`
	Policy       string        `json:"irrelevant_policy,omitempty"`
	Instructions string        `json:"instructions,omitempty"`
}

// DocumentDTO is a candidate document on the wire.
type DocumentDTO struct {
	Name     string       `json:"name"`
	Content  string       `json:"content"`
	Metadata metadata.Map `json:"metadata,omitempty"`
}

// ClauseDTO is a filter clause on the wire. An empty operator means equals.
type ClauseDTO struct {
	Key      string         `json:"key"`
	Operator string         `json:"operator,omitempty"`
	Value    metadata.Value `json:"value"`
}

// QueryResponse is the body of a successful POST /v1/query.
type QueryResponse struct {
	Results []ResultDTO `json:"results"`
	Count   int         `json:"count"`
}

// ResultDTO is one document's outcome.
type ResultDTO struct {
	Content      string      `json:"content"`
	Reasoning    string      `json:"reasoning"`
	IsIrrelevant bool        `json:"is_irrelevant"`
	Document     DocumentDTO `json:"document"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageResponse is the body of GET /v1/usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	Provider      string       `json:"provider"`
	PeriodStartAt time.Time    `json:"period_start_at"`
	PeriodEndAt   time.Time    `json:"period_end_at"`
	Budget        BudgetStatus `json:"budget"`
}

// BudgetStatus is the token budget part of UsageResponse.
type BudgetStatus struct {
	TokensUsed      int64      `json:"tokens_used"`
	TokensLimit     *int64     `json:"tokens_limit,omitempty"`
	TokensRemaining *int64     `json:"tokens_remaining,omitempty"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

func documentsFromDTO(dd []DocumentDTO) ([]document.Document, error) {
	docs := make([]document.Document, len(dd))
	for i, d := range dd {
		doc, err := document.New(d.Name, d.Content, d.Metadata)
		if err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("documents[%d]", i), err.Error())
		}
		docs[i] = doc
	}
	return docs, nil
}

func clausesFromDTO(cc []ClauseDTO) ([]filter.Clause, error) {
	if len(cc) == 0 {
		return nil, nil
	}
	clauses := make([]filter.Clause, len(cc))
	for i, c := range cc {
		op, err := filter.ParseOperator(c.Operator)
		if err != nil {
			return nil, err
		}
		clause, err := filter.NewClause(c.Key, op, c.Value)
		if err != nil {
			return nil, err
		}
		clauses[i] = clause
	}
	return clauses, nil
}

func optionsFromDTO(req QueryRequest) (queryuc.Options, error) {
	clauses, err := clausesFromDTO(req.Filter)
	if err != nil {
		return queryuc.Options{}, err
	}
	return queryuc.Options{
		Filter:       clauses,
		Policy:       queryuc.Policy(req.Policy),
		Instructions: req.Instructions,
	}, nil
}

func resultToDTO(r result.Result) ResultDTO {
	doc := r.Document()
	return ResultDTO{
		Content:      r.Content(),
		Reasoning:    r.Reasoning(),
		IsIrrelevant: r.IsIrrelevant(),
		Document: DocumentDTO{
			Name:     doc.Name(),
			Content:  doc.Content(),
			Metadata: doc.Metadata(),
		},
	}
}

func usageToDTO(report domusage.Report) UsageResponse {
	b := report.Budget()
	resp := UsageResponse{
		Period:        string(report.Period()),
		Provider:      report.Provider(),
		PeriodStartAt: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEndAt:   time.UnixMilli(report.PeriodEnd()).UTC(),
		Budget: BudgetStatus{
			TokensUsed:  b.TokensUsed(),
			IsExhausted: b.IsExhausted(),
		},
	}
	if !b.Unlimited() {
		limit, left := b.TokensLimit(), b.TokensRemaining()
		resp.Budget.TokensLimit = &limit
		resp.Budget.TokensRemaining = &left
		if b.ResetsAt() > 0 {
			resetsAt := time.UnixMilli(b.ResetsAt()).UTC()
			resp.Budget.ResetsAt = &resetsAt
		}
	}
	return resp
}
