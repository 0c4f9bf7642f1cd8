package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed query input (empty question, unknown operator).
	ErrValidation = errors.New("validation failed")
	// ErrNoMatchingDocuments signals that the filter excluded every supplied document.
	ErrNoMatchingDocuments = fmt.Errorf("%w: no documents matched the filter", ErrValidation)
	// ErrTransport signals that the reasoning engine could not be reached or failed at transport level.
	ErrTransport = errors.New("reasoning engine transport failed")
	// ErrResponseShape signals an engine response that cannot be mapped 1:1 to submitted documents.
	ErrResponseShape = errors.New("malformed engine response")
	// ErrRateLimited signals a provider-side rate limit. Always wrapped together with ErrTransport.
	ErrRateLimited = errors.New("rate limited")
	// ErrBudgetExceeded signals an exhausted token budget.
	ErrBudgetExceeded = errors.New("token budget exceeded")
	// ErrClosed signals use of a released client.
	ErrClosed = errors.New("client closed")
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ResponseShapeError wraps ErrResponseShape with the entry position.
// Index is -1 when the response as a whole is malformed.
type ResponseShapeError struct {
	Index  int
	Reason string
}

func (e *ResponseShapeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrResponseShape.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: entry %d: %s", ErrResponseShape.Error(), e.Index, e.Reason)
}

func (e *ResponseShapeError) Unwrap() error { return ErrResponseShape }

// NewResponseShapeError creates a response shape error for the entry at index.
func NewResponseShapeError(index int, reason string) error {
	return &ResponseShapeError{Index: index, Reason: reason}
}

// Stage is a step of a single query invocation.
type Stage string

// Query stages. The last three are terminal failure states.
const (
	StageBuilt            Stage = "built"
	StageSent             Stage = "sent"
	StageAwaitingResponse Stage = "awaiting_response"
	StageValidated        Stage = "validated"
	StageFiltered         Stage = "filtered"
	StageReturned         Stage = "returned"
	StageRequestInvalid   Stage = "request_invalid"
	StageTransportFailed  Stage = "transport_failed"
	StageResponseInvalid  Stage = "response_invalid"
)

// QueryError reports the terminal stage a query failed in.
type QueryError struct {
	Stage Stage
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
