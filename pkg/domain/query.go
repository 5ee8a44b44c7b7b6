package domain

import (
	"encoding/json"
	"reflect"
	"strconv"
)

// Condition is one member of a disjunction query. It is either a field equality
// {Field: Value} or, when Any is non-nil, a nested disjunction {Field: {or: Any}}
// evaluated against the object stored under Field.
type Condition struct {
	Field string
	Value interface{}
	Any   []Condition
}

// Eq builds a field-equality condition
func Eq(field string, value interface{}) Condition {
	return Condition{Field: field, Value: value}
}

// AnyOf builds a nested disjunction on the object stored under field
func AnyOf(field string, conds ...Condition) Condition {
	if conds == nil {
		conds = []Condition{}
	}
	return Condition{Field: field, Any: conds}
}

// IsNested reports whether the condition is a nested disjunction
func (c Condition) IsNested() bool {
	return c.Any != nil
}

// Matches reports whether the document satisfies the condition
func (c Condition) Matches(doc Document) bool {
	return c.matchesIn(map[string]interface{}(doc))
}

func (c Condition) matchesIn(container interface{}) bool {
	actual, ok := lookup(container, c.Field)
	if !ok {
		return false
	}

	if !c.IsNested() {
		return valueMatches(actual, c.Value)
	}

	switch actual.(type) {
	case map[string]interface{}, Document, []interface{}:
	default:
		return false
	}
	for _, nested := range c.Any {
		if nested.matchesIn(actual) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether the document satisfies at least one condition
func MatchesAny(doc Document, conds []Condition) bool {
	for _, cond := range conds {
		if cond.Matches(doc) {
			return true
		}
	}
	return false
}

// PathMatch is a condition flattened to an equality on a nested field path
type PathMatch struct {
	Path  []string
	Value interface{}
}

// Flatten rewrites the condition as a list of path equalities, any of which
// satisfies it. Stores with dotted-path queries use this form.
func (c Condition) Flatten() []PathMatch {
	if !c.IsNested() {
		return []PathMatch{{Path: []string{c.Field}, Value: c.Value}}
	}

	var out []PathMatch
	for _, nested := range c.Any {
		for _, pm := range nested.Flatten() {
			path := append([]string{c.Field}, pm.Path...)
			out = append(out, PathMatch{Path: path, Value: pm.Value})
		}
	}
	return out
}

// MarshalJSON renders {"field": value} or {"field": {"or": [...]}}
func (c Condition) MarshalJSON() ([]byte, error) {
	if c.IsNested() {
		return json.Marshal(map[string]interface{}{
			c.Field: map[string]interface{}{"or": c.Any},
		})
	}
	return json.Marshal(map[string]interface{}{c.Field: c.Value})
}

// lookup resolves key inside an object, or inside an array by decimal index
func lookup(container interface{}, key string) (interface{}, bool) {
	switch v := container.(type) {
	case map[string]interface{}:
		value, ok := v[key]
		return value, ok
	case Document:
		value, ok := v[key]
		return value, ok
	case []interface{}:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil, false
		}
		return v[idx], true
	}
	return nil, false
}

// valueMatches applies equality with array membership: an array field matches
// when the whole array or one of its elements equals the expected value.
func valueMatches(actual, expected interface{}) bool {
	if ValuesEqual(actual, expected) {
		return true
	}
	if items, ok := actual.([]interface{}); ok {
		for _, item := range items {
			if ValuesEqual(item, expected) {
				return true
			}
		}
	}
	return false
}

// ValuesEqual compares two document values. Strings compare exactly and
// numbers compare by value regardless of their Go kind.
func ValuesEqual(actual, expected interface{}) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	if a, ok := ToFloat64(actual); ok {
		if e, ok := ToFloat64(expected); ok {
			return a == e
		}
		return false
	}

	return reflect.DeepEqual(Normalize(actual), Normalize(expected))
}
