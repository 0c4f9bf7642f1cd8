package filter

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/document"
	"github.com/kailas-cloud/reag/internal/domain/metadata"
)

func mustDoc(t *testing.T, name string, md metadata.Map) document.Document {
	t.Helper()
	d, err := document.New(name, "Superagent is a workspace for AI-agents.", md)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return d
}

func mustClause(t *testing.T, key string, op Operator, v metadata.Value) Clause {
	t.Helper()
	c, err := NewClause(key, op, v)
	if err != nil {
		t.Fatalf("NewClause: %v", err)
	}
	return c
}

func names(docs []document.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name()
	}
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- Operator tests ---

func TestParseOperator(t *testing.T) {
	valid := []string{"equals", "notEquals", "greaterThan", "greaterThanOrEqual", "lessThan", "lessThanOrEqual"}
	for _, s := range valid {
		op, err := ParseOperator(s)
		if err != nil {
			t.Errorf("ParseOperator(%q): %v", s, err)
		}
		if string(op) != s {
			t.Errorf("ParseOperator(%q) = %q", s, op)
		}
	}
}

func TestParseOperator_EmptyIsEquals(t *testing.T) {
	op, err := ParseOperator("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op != Equals {
		t.Errorf("op = %q, want %q", op, Equals)
	}
}

func TestParseOperator_Unknown(t *testing.T) {
	for _, s := range []string{"contains", "regex", "EQUALS", "gt"} {
		_, err := ParseOperator(s)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ParseOperator(%q) err = %v, want ErrValidation", s, err)
		}
	}
}

// --- Clause tests ---

func TestNewClause_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		op   Operator
		val  metadata.Value
	}{
		{"empty key", "", Equals, metadata.String("x")},
		{"unknown operator", "k", Operator("startsWith"), metadata.String("x")},
		{"unset value", "k", Equals, metadata.Value{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClause(tt.key, tt.op, tt.val)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestClause_Matches(t *testing.T) {
	doc := mustDoc(t, "doc", metadata.Map{
		"id":      metadata.String("sa-1"),
		"version": metadata.Int(2),
		"score":   metadata.Float(0.5),
		"draft":   metadata.Bool(false),
	})

	tests := []struct {
		name string
		key  string
		op   Operator
		val  metadata.Value
		want bool
	}{
		{"equals string", "id", Equals, metadata.String("sa-1"), true},
		{"equals other string", "id", Equals, metadata.String("sa-2"), false},
		{"equals int", "version", Equals, metadata.Int(2), true},
		{"equals int vs string", "version", Equals, metadata.String("2"), false},
		{"equals int vs float", "version", Equals, metadata.Float(2), false},
		{"equals bool", "draft", Equals, metadata.Bool(false), true},
		{"notEquals same", "id", NotEquals, metadata.String("sa-1"), false},
		{"notEquals other", "id", NotEquals, metadata.String("sa-2"), true},
		{"notEquals cross type", "version", NotEquals, metadata.String("2"), true},
		{"gt", "version", GreaterThan, metadata.Int(1), true},
		{"gt equal", "version", GreaterThan, metadata.Int(2), false},
		{"gte equal", "version", GreaterThanOrEqual, metadata.Int(2), true},
		{"lt", "version", LessThan, metadata.Int(3), true},
		{"lte equal", "version", LessThanOrEqual, metadata.Int(2), true},
		{"lte below", "version", LessThanOrEqual, metadata.Int(1), false},
		{"float vs int comparand", "score", LessThan, metadata.Int(1), true},
		{"int vs float comparand", "version", GreaterThan, metadata.Float(1.5), true},
		{"ordering on string", "id", GreaterThan, metadata.Int(0), false},
		{"ordering on bool", "draft", LessThanOrEqual, metadata.Int(1), false},
		{"ordering with string comparand", "version", GreaterThanOrEqual, metadata.String("1"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustClause(t, tt.key, tt.op, tt.val)
			if got := c.Matches(doc); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClause_MissingKey(t *testing.T) {
	doc := mustDoc(t, "doc", metadata.Map{"source": metadata.String("web")})

	ops := []Operator{Equals, GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual}
	for _, op := range ops {
		c := mustClause(t, "version", op, metadata.Int(1))
		if c.Matches(doc) {
			t.Errorf("%s on missing key should not match", op)
		}
	}

	// notEquals treats a missing key as trivially different.
	c := mustClause(t, "version", NotEquals, metadata.Int(1))
	if !c.Matches(doc) {
		t.Error("notEquals on missing key should match")
	}
}

// --- Apply tests ---

func TestApply_EmptyFilterReturnsInput(t *testing.T) {
	docs := []document.Document{
		mustDoc(t, "a", nil),
		mustDoc(t, "b", metadata.Map{"k": metadata.Int(1)}),
		mustDoc(t, "c", nil),
	}

	got := Apply(docs, nil)
	if !equalNames(names(got), []string{"a", "b", "c"}) {
		t.Errorf("Apply(nil) = %v", names(got))
	}

	got = Apply(docs, []Clause{})
	if len(got) != 3 {
		t.Errorf("Apply(empty) returned %d docs", len(got))
	}
}

func TestApply_StringEquals(t *testing.T) {
	docs := []document.Document{
		mustDoc(t, "first", metadata.Map{"source": metadata.String("web"), "id": metadata.String("sa-1")}),
		mustDoc(t, "second", metadata.Map{"source": metadata.String("web"), "id": metadata.String("sa-2")}),
	}

	got := Apply(docs, []Clause{mustClause(t, "id", Equals, metadata.String("sa-1"))})
	if len(got) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(got))
	}
	if v, _ := got[0].Lookup("id"); !v.Equal(metadata.String("sa-1")) {
		t.Errorf("id = %v, want sa-1", v)
	}
}

func TestApply_IntegerGreaterThanOrEqual(t *testing.T) {
	docs := []document.Document{
		mustDoc(t, "v1", metadata.Map{"version": metadata.Int(1)}),
		mustDoc(t, "v2", metadata.Map{"version": metadata.Int(2)}),
	}

	got := Apply(docs, []Clause{mustClause(t, "version", GreaterThanOrEqual, metadata.Int(2))})
	if !equalNames(names(got), []string{"v2"}) {
		t.Errorf("Apply() = %v, want [v2]", names(got))
	}
}

func TestApply_NumericClauseOnNonNumericValue(t *testing.T) {
	docs := []document.Document{
		mustDoc(t, "text", metadata.Map{"version": metadata.String("2")}),
		mustDoc(t, "flag", metadata.Map{"version": metadata.Bool(true)}),
		mustDoc(t, "num", metadata.Map{"version": metadata.Int(3)}),
	}

	got := Apply(docs, []Clause{mustClause(t, "version", GreaterThanOrEqual, metadata.Int(2))})
	if !equalNames(names(got), []string{"num"}) {
		t.Errorf("Apply() = %v, want [num]", names(got))
	}
}

func TestApply_PreservesOrder(t *testing.T) {
	docs := []document.Document{
		mustDoc(t, "a", metadata.Map{"n": metadata.Int(5)}),
		mustDoc(t, "b", metadata.Map{"n": metadata.Int(1)}),
		mustDoc(t, "c", metadata.Map{"n": metadata.Int(9)}),
		mustDoc(t, "d", metadata.Map{"n": metadata.Int(7)}),
	}

	got := Apply(docs, []Clause{mustClause(t, "n", GreaterThan, metadata.Int(4))})
	if !equalNames(names(got), []string{"a", "c", "d"}) {
		t.Errorf("Apply() = %v, want [a c d]", names(got))
	}
}

func TestApply_ClauseOrderIndependent(t *testing.T) {
	docs := []document.Document{
		mustDoc(t, "a", metadata.Map{"n": metadata.Int(5), "src": metadata.String("web")}),
		mustDoc(t, "b", metadata.Map{"n": metadata.Int(1), "src": metadata.String("web")}),
		mustDoc(t, "c", metadata.Map{"n": metadata.Int(9), "src": metadata.String("pdf")}),
		mustDoc(t, "d", metadata.Map{"n": metadata.Int(7)}),
	}
	first := mustClause(t, "n", GreaterThan, metadata.Int(2))
	second := mustClause(t, "src", Equals, metadata.String("web"))

	combined := names(Apply(docs, []Clause{first, second}))
	reversed := names(Apply(docs, []Clause{second, first}))
	chained := names(Apply(Apply(docs, []Clause{first}), []Clause{second}))

	want := []string{"a"}
	for label, got := range map[string][]string{"combined": combined, "reversed": reversed, "chained": chained} {
		if !equalNames(got, want) {
			t.Errorf("%s = %v, want %v", label, got, want)
		}
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	docs := []document.Document{
		mustDoc(t, "a", metadata.Map{"n": metadata.Int(1)}),
		mustDoc(t, "b", metadata.Map{"n": metadata.Int(2)}),
	}

	_ = Apply(docs, []Clause{mustClause(t, "n", Equals, metadata.Int(2))})

	if !equalNames(names(docs), []string{"a", "b"}) {
		t.Errorf("input mutated: %v", names(docs))
	}
}

func TestSelect_ReturnsPositions(t *testing.T) {
	docs := []document.Document{
		mustDoc(t, "a", metadata.Map{"n": metadata.Int(5)}),
		mustDoc(t, "b", metadata.Map{"n": metadata.Int(1)}),
		mustDoc(t, "c", nil),
		mustDoc(t, "d", metadata.Map{"n": metadata.Float(7.5)}),
	}

	got := Select(docs, []Clause{mustClause(t, "n", GreaterThan, metadata.Int(4))})
	if len(got) != 2 || got[0] != 0 || got[1] != 3 {
		t.Errorf("Select() = %v, want [0 3]", got)
	}
	if all := Select(docs, nil); len(all) != 4 || all[3] != 3 {
		t.Errorf("Select(nil) = %v, want every index", all)
	}
}

func TestValidate_TooManyClauses(t *testing.T) {
	clauses := make([]Clause, MaxClauses+1)
	for i := range clauses {
		clauses[i] = mustClause(t, "k", Equals, metadata.Int(int64(i)))
	}
	if err := Validate(clauses); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if err := Validate(clauses[:MaxClauses]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ZeroClause(t *testing.T) {
	if err := Validate([]Clause{{}}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
