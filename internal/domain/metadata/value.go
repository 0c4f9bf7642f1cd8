// Package metadata models document metadata as tagged scalar values.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind is the scalar type carried by a Value.
type Kind uint8

// Supported kinds. The zero Kind marks an unset Value.
const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	default:
		return "invalid"
	}
}

// Value is a string, integer, float or boolean scalar.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int creates an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float creates a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Of converts a Go scalar into a Value.
func Of(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint:
		return fromUint(uint64(x))
	case uint64:
		return fromUint(x)
	case uintptr:
		return fromUint(uint64(x))
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case json.Number:
		return fromNumber(x.String())
	default:
		return Value{}, fmt.Errorf("unsupported metadata type %T", v)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

func fromFloat(f float64) (Value, error) {
	if !isFinite(f) {
		return Value{}, fmt.Errorf("non-finite float %v", f)
	}
	return Float(f), nil
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Kind returns the scalar kind.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value was set.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// IsNumeric reports whether the value is an integer or a float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Int64 returns the integer payload.
func (v Value) Int64() (int64, bool) { return v.i, v.kind == KindInt }

// Float64 returns the numeric payload widened to float64.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// IsFinite reports false for NaN and infinite floats, true otherwise.
func (v Value) IsFinite() bool { return v.kind != KindFloat || isFinite(v.f) }

// Boolean returns the boolean payload.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Any returns the payload as a plain Go value.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// Equal reports exact equality. Values of different kinds are never equal,
// so Int(2) and Float(2) differ just like String("2") and Int(2).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	default:
		return false
	}
}

// Compare orders two numeric values. ok is false when either side is not
// numeric or a float is NaN.
func Compare(a, b Value) (cmp int, ok bool) {
	if a.kind == KindInt && b.kind == KindInt {
		switch {
		case a.i < b.i:
			return -1, true
		case a.i > b.i:
			return 1, true
		default:
			return 0, true
		}
	}

	af, aok := a.Float64()
	bf, bok := b.Float64()
	if !aok || !bok || math.IsNaN(af) || math.IsNaN(bf) {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

// MarshalJSON encodes the payload as a JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.IsFinite() {
		return nil, fmt.Errorf("metadata: cannot encode %v as JSON", v.f)
	}
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes a JSON scalar. Numbers without a fraction or exponent
// become integers.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("metadata: null is not a supported value")
	}
	parsed, err := Of(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// UnmarshalYAML decodes a YAML scalar using its resolved tag.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("metadata: line %d: expected scalar", node.Line)
	}
	switch node.ShortTag() {
	case "!!str":
		*v = String(node.Value)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		*v = Bool(b)
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		*v = Int(i)
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		*v = Float(f)
	default:
		return fmt.Errorf("metadata: line %d: unsupported tag %s", node.Line, node.ShortTag())
	}
	return nil
}

// MarshalYAML encodes the payload as a YAML scalar.
func (v Value) MarshalYAML() (any, error) {
	return v.Any(), nil
}

// Parse infers a Value from its textual form: integers, floats and booleans
// are recognised, anything else is a string.
func Parse(s string) Value {
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return Bool(b)
	}
	if v, err := fromNumber(s); err == nil {
		if v.IsFinite() {
			return v
		}
	}
	return String(s)
}

func fromNumber(s string) (Value, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("metadata: invalid number %q", s)
	}
	return Float(f), nil
}
