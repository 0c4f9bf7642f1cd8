package filter

import (
	"fmt"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/document"
	"github.com/kailas-cloud/reag/internal/domain/metadata"
)

// MaxClauses is the maximum number of clauses in a single filter.
const MaxClauses = 32

// Operator is a metadata comparison.
type Operator string

// Supported operators.
const (
	Equals             Operator = "equals"
	NotEquals          Operator = "notEquals"
	GreaterThan        Operator = "greaterThan"
	GreaterThanOrEqual Operator = "greaterThanOrEqual"
	LessThan           Operator = "lessThan"
	LessThanOrEqual    Operator = "lessThanOrEqual"
)

// ParseOperator validates an operator name. An empty name means Equals.
func ParseOperator(s string) (Operator, error) {
	if s == "" {
		return Equals, nil
	}
	op := Operator(s)
	if !op.IsValid() {
		return "", domain.NewValidationError("filter.operator", fmt.Sprintf("unknown operator %q", s))
	}
	return op, nil
}

// IsValid reports whether the operator is one of the supported comparisons.
func (o Operator) IsValid() bool {
	switch o {
	case Equals, NotEquals, GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
		return true
	default:
		return false
	}
}

// IsOrdering reports whether the operator requires numeric operands.
func (o Operator) IsOrdering() bool {
	switch o {
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
		return true
	default:
		return false
	}
}

// Clause is a single metadata test: key, operator and comparand.
type Clause struct {
	key   string
	op    Operator
	value metadata.Value
}

// NewClause validates and creates a Clause.
func NewClause(key string, op Operator, value metadata.Value) (Clause, error) {
	if key == "" {
		return Clause{}, domain.NewValidationError("filter.key", "key is required")
	}
	if !op.IsValid() {
		return Clause{}, domain.NewValidationError("filter.operator", fmt.Sprintf("unknown operator %q", op))
	}
	if !value.IsValid() {
		return Clause{}, domain.NewValidationError("filter.value", fmt.Sprintf("value is required for key %q", key))
	}
	return Clause{key: key, op: op, value: value}, nil
}

// Key returns the metadata field name.
func (c Clause) Key() string { return c.key }

// Operator returns the comparison operator.
func (c Clause) Operator() Operator { return c.op }

// Value returns the comparand.
func (c Clause) Value() metadata.Value { return c.value }

func (c Clause) String() string {
	return fmt.Sprintf("%s %s %v", c.key, c.op, c.value)
}

// Matches reports whether d satisfies the clause.
//
// A missing key fails every operator except NotEquals. Ordering operators
// only compare numbers; any other stored kind is a non-match.
func (c Clause) Matches(d document.Document) bool {
	stored, ok := d.Lookup(c.key)
	if !ok {
		return c.op == NotEquals
	}

	switch c.op {
	case Equals:
		return stored.Equal(c.value)
	case NotEquals:
		return !stored.Equal(c.value)
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
		cmp, ok := metadata.Compare(stored, c.value)
		if !ok {
			return false
		}
		return ordered(c.op, cmp)
	default:
		return false
	}
}

func ordered(op Operator, cmp int) bool {
	switch op {
	case GreaterThan:
		return cmp > 0
	case GreaterThanOrEqual:
		return cmp >= 0
	case LessThan:
		return cmp < 0
	case LessThanOrEqual:
		return cmp <= 0
	default:
		return false
	}
}

// Validate checks a clause list built outside NewClause.
func Validate(clauses []Clause) error {
	if len(clauses) > MaxClauses {
		return domain.NewValidationError("filter", fmt.Sprintf("too many clauses (max %d)", MaxClauses))
	}
	for _, c := range clauses {
		if _, err := NewClause(c.key, c.op, c.value); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate reports whether d satisfies every clause. Stops at the first failure.
func Evaluate(d document.Document, clauses []Clause) bool {
	for _, c := range clauses {
		if !c.Matches(d) {
			return false
		}
	}
	return true
}

// Apply returns the documents that satisfy every clause, in input order.
// With no clauses the input slice is returned unchanged.
func Apply(docs []document.Document, clauses []Clause) []document.Document {
	if len(clauses) == 0 {
		return docs
	}
	positions := Select(docs, clauses)
	out := make([]document.Document, len(positions))
	for i, p := range positions {
		out[i] = docs[p]
	}
	return out
}

// Select returns the indexes of the documents matching every clause, in
// order. Without clauses every index is returned.
func Select(docs []document.Document, clauses []Clause) []int {
	out := make([]int, 0, len(docs))
	for i, d := range docs {
		if Evaluate(d, clauses) {
			out = append(out, i)
		}
	}
	return out
}
