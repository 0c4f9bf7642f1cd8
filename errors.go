package reag

import "github.com/kailas-cloud/reag/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation          = domain.ErrValidation
	ErrNoMatchingDocuments = domain.ErrNoMatchingDocuments
	ErrTransport           = domain.ErrTransport
	ErrResponseShape       = domain.ErrResponseShape
	ErrRateLimited         = domain.ErrRateLimited
	ErrBudgetExceeded      = domain.ErrBudgetExceeded
	ErrClosed              = domain.ErrClosed
)

// Typed errors. Use errors.As() to inspect.
type (
	// ValidationError names the offending input field.
	ValidationError = domain.ValidationError
	// ResponseShapeError names the engine entry that broke the contract.
	ResponseShapeError = domain.ResponseShapeError
	// QueryError carries the stage a query terminated in.
	QueryError = domain.QueryError
	// Stage is a step of a query invocation.
	Stage = domain.Stage
)

// Terminal failure stages reported by QueryError.
const (
	StageRequestInvalid  = domain.StageRequestInvalid
	StageTransportFailed = domain.StageTransportFailed
	StageResponseInvalid = domain.StageResponseInvalid
)
