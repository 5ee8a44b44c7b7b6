// Package search implements the substring search over stored documents.
//
// A search runs in two passes. The first pass scans every document and records,
// for each string field containing the term, an equality condition carrying the
// field's own value. The second pass asks the store for every document matching
// any of those conditions, so documents sharing an exact value with a matching
// document are returned as well.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/adfharrison1/sheetstore/pkg/domain"
)

// Conditions walks the document and returns one condition per field that
// contains term as a case-insensitive substring. Objects and arrays are walked
// recursively; numbers, booleans and nulls never match. The store identity
// field is opaque and skipped.
func Conditions(doc domain.Document, term string) []domain.Condition {
	if term == "" {
		return nil
	}
	return walkObject(map[string]interface{}(doc), strings.ToLower(term), true)
}

func walkObject(obj map[string]interface{}, needle string, top bool) []domain.Condition {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		if top && key == domain.IDField {
			continue
		}
		keys = append(keys, key)
	}
	// map iteration is random; keep the condition order stable
	sort.Strings(keys)

	var conds []domain.Condition
	for _, key := range keys {
		if cond, ok := walkValue(key, obj[key], needle); ok {
			conds = append(conds, cond)
		}
	}
	return conds
}

func walkArray(items []interface{}, needle string) []domain.Condition {
	var conds []domain.Condition
	for i, item := range items {
		if cond, ok := walkValue(strconv.Itoa(i), item, needle); ok {
			conds = append(conds, cond)
		}
	}
	return conds
}

func walkValue(field string, value interface{}, needle string) (domain.Condition, bool) {
	var nested []domain.Condition

	switch v := value.(type) {
	case string:
		if strings.Contains(strings.ToLower(v), needle) {
			return domain.Eq(field, v), true
		}
		return domain.Condition{}, false
	case map[string]interface{}:
		nested = walkObject(v, needle, false)
	case domain.Document:
		nested = walkObject(v, needle, false)
	case []interface{}:
		nested = walkArray(v, needle)
	default:
		return domain.Condition{}, false
	}

	if len(nested) == 0 {
		return domain.Condition{}, false
	}
	return domain.AnyOf(field, nested...), true
}

// BuildQuery flattens the per-document conditions of every document into one
// disjunction. Identical conditions are collapsed.
func BuildQuery(docs []domain.Document, term string) []domain.Condition {
	seen := make(map[string]struct{})
	var query []domain.Condition

	for _, doc := range docs {
		for _, cond := range Conditions(doc, term) {
			key, err := json.Marshal(cond)
			if err == nil {
				if _, dup := seen[string(key)]; dup {
					continue
				}
				seen[string(key)] = struct{}{}
			}
			query = append(query, cond)
		}
	}
	return query
}

// Search runs the two-pass search against the store
func Search(ctx context.Context, store domain.DocumentStore, term string) ([]domain.Document, error) {
	if term == "" {
		return nil, domain.ErrMissingTerm
	}

	docs, err := store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}

	query := BuildQuery(docs, term)
	if len(query) == 0 {
		return []domain.Document{}, nil
	}

	results, err := store.FindAny(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %d conditions: %w", len(query), err)
	}
	if results == nil {
		results = []domain.Document{}
	}
	return results, nil
}
