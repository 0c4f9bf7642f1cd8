package metadata

import (
	"fmt"
	"sort"
)

// Map holds metadata fields keyed by name.
type Map map[string]Value

// FromAny converts loosely typed metadata into a Map.
func FromAny(m map[string]any) (Map, error) {
	if m == nil {
		return nil, nil
	}
	out := make(Map, len(m))
	for k, raw := range m {
		v, err := Of(raw)
		if err != nil {
			return nil, fmt.Errorf("metadata key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Clone returns an independent copy.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	c := make(Map, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Get returns the value stored under key.
func (m Map) Get(key string) (Value, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns the keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate rejects empty keys, unset values and non-finite floats.
func (m Map) Validate() error {
	for k, v := range m {
		if k == "" {
			return fmt.Errorf("metadata key must not be empty")
		}
		if !v.IsValid() {
			return fmt.Errorf("metadata key %q has no value", k)
		}
		if !v.IsFinite() {
			return fmt.Errorf("metadata key %q: non-finite float %v", k, v.f)
		}
	}
	return nil
}
