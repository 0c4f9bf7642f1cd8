package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/document"
	"github.com/kailas-cloud/reag/internal/domain/metadata"
)

// MaxQuestionLength is the maximum question size in bytes.
const MaxQuestionLength = 8192

// Source is a document as submitted to the engine. Index is the submission
// position used to re-associate engine entries.
type Source struct {
	Index    int
	Name     string
	Content  string
	Metadata metadata.Map
}

// Request is an engine-ready query (immutable value object).
type Request struct {
	id           string
	question     string
	instructions string
	sources      []Source
}

// ValidateQuestion rejects blank or oversized questions.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return domain.NewValidationError("question", "question is required")
	}
	if len(question) > MaxQuestionLength {
		return domain.NewValidationError("question", fmt.Sprintf("question too long (max %d bytes)", MaxQuestionLength))
	}
	return nil
}

// Build validates the question and packages the filtered documents.
// An empty document list fails with domain.ErrNoMatchingDocuments.
func Build(id, question string, docs []document.Document, instructions string) (Request, error) {
	if err := ValidateQuestion(question); err != nil {
		return Request{}, err
	}
	if len(docs) == 0 {
		return Request{}, domain.ErrNoMatchingDocuments
	}

	sources := make([]Source, len(docs))
	for i, d := range docs {
		sources[i] = Source{
			Index:    i,
			Name:     d.Name(),
			Content:  d.Content(),
			Metadata: d.Metadata(),
		}
	}

	return Request{
		id:           id,
		question:     question,
		instructions: strings.TrimSpace(instructions),
		sources:      sources,
	}, nil
}

// ID returns the query identifier.
func (r *Request) ID() string { return r.id }

// Question returns the natural-language question.
func (r *Request) Question() string { return r.question }

// Instructions returns the optional reasoning instructions.
func (r *Request) Instructions() string { return r.instructions }

// Sources returns a copy of the submitted sources in submission order.
func (r *Request) Sources() []Source {
	out := make([]Source, len(r.sources))
	for i, s := range r.sources {
		s.Metadata = s.Metadata.Clone()
		out[i] = s
	}
	return out
}

// Len returns the number of submitted sources.
func (r *Request) Len() int { return len(r.sources) }
