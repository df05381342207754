package normalize

import (
	"fmt"
	"strings"
)

// ContainerKeys are the mapping keys searched, in priority order, for the
// list of results.
var ContainerKeys = []string{"results", "suggestions", "completions", "data", "items"}

// nameKey is the member read from mapping elements of a result list.
const nameKey = "name"

// Terms extracts candidate terms from v. It never fails; unknown shapes yield
// an empty, non-nil slice.
func Terms(v Value) []string {
	switch v.Kind {
	case KindList:
		return listTerms(v.Items)
	case KindMapping:
		for _, key := range ContainerKeys {
			if c, ok := v.Get(key); ok && c.Kind == KindList {
				return listTerms(c.Items)
			}
		}
		return valueTerms(v.Fields)
	default:
		return []string{}
	}
}

// Extract decodes body and returns its terms.
func Extract(body []byte) ([]string, error) {
	v, err := Decode(body)
	if err != nil {
		return nil, err
	}
	return Terms(v), nil
}

// listTerms applies the element rule: strings verbatim, mappings by their
// "name" member, everything else dropped.
func listTerms(items []Value) []string {
	terms := make([]string, 0, len(items))
	for _, item := range items {
		if term, ok := elementTerm(item); ok {
			terms = append(terms, term)
		}
	}
	return terms
}

// valueTerms is the fallback for mappings with no known container key.
// Scalars other than null are kept as their JSON text.
func valueTerms(fields []Field) []string {
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if term, ok := elementTerm(f.Value); ok {
			terms = append(terms, term)
			continue
		}
		if f.Value.Kind == KindOther && !f.Value.IsNull() {
			terms = append(terms, f.Value.Literal)
		}
	}
	return terms
}

func elementTerm(v Value) (string, bool) {
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindMapping:
		name, ok := v.Get(nameKey)
		if !ok || name.Kind != KindString {
			return "", false
		}
		return name.Str, true
	default:
		return "", false
	}
}

// Describe summarises the shape of v for diagnostics.
func Describe(v Value) string {
	switch v.Kind {
	case KindList:
		return fmt.Sprintf("list with %d items", len(v.Items))
	case KindMapping:
		if len(v.Fields) == 0 {
			return "mapping with no keys"
		}
		return "mapping with keys: " + strings.Join(v.Keys(), ", ")
	case KindString:
		return "string scalar"
	default:
		return "scalar " + v.Literal
	}
}
