package result

import "github.com/kailas-cloud/reag/internal/domain/document"

// Result is one document's validated outcome.
type Result struct {
	content    string
	reasoning  string
	irrelevant bool
	doc        document.Document
	position   int
}

// New creates a Result.
func New(content, reasoning string, irrelevant bool, doc document.Document) Result {
	return Result{content: content, reasoning: reasoning, irrelevant: irrelevant, doc: doc}
}

// Content returns the extracted answer span.
func (r Result) Content() string { return r.content }

// Reasoning returns the engine's justification.
func (r Result) Reasoning() string { return r.reasoning }

// IsIrrelevant reports whether the engine judged the document unable to answer.
func (r Result) IsIrrelevant() bool { return r.irrelevant }

// Document returns the originating document.
func (r Result) Document() document.Document { return r.doc }

// Position returns the index of the originating document in the list the
// caller submitted, before filtering.
func (r Result) Position() int { return r.position }

// WithPosition returns a copy of r pointing at position p.
func (r Result) WithPosition(p int) Result {
	r.position = p
	return r
}
