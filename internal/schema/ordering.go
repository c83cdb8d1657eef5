package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/queryir"
)

// ParseOrdering normalizes a raw ordering value into tokens.
//
// A string is split on commas; a sequence is taken as is. Every token is
// trimmed and empty tokens are dropped, so " name , ,-age" yields
// ["name", "-age"]. An empty result means ordering is unset.
func ParseOrdering(raw any) ([]string, error) {
	var parts []string
	switch val := raw.(type) {
	case string:
		parts = strings.Split(val, ",")
	case ir.String:
		parts = strings.Split(string(val), ",")
	case []string:
		parts = val
	case []any:
		for i, item := range val {
			s, ok := orderingToken(item)
			if !ok {
				return nil, fmt.Errorf("[%d]: ordering entries must be strings, got %T", i, item)
			}
			parts = append(parts, s)
		}
	case ir.List:
		for i, item := range val {
			s, ok := orderingToken(item)
			if !ok {
				return nil, fmt.Errorf("[%d]: ordering entries must be strings, got %T", i, item)
			}
			parts = append(parts, s)
		}
	default:
		return nil, fmt.Errorf("ordering must be a string or a list of strings, got %T", raw)
	}

	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens, nil
}

func orderingToken(item any) (string, bool) {
	switch s := item.(type) {
	case string:
		return s, true
	case ir.String:
		return string(s), true
	}
	return "", false
}

// SplitSigil strips one leading '+' or '-' and returns the attribute name
// with its direction. No sigil means ascending.
func SplitSigil(token string) (string, queryir.Direction) {
	switch {
	case strings.HasPrefix(token, "-"):
		return token[1:], queryir.Desc
	case strings.HasPrefix(token, "+"):
		return token[1:], queryir.Asc
	}
	return token, queryir.Asc
}

// CheckOrdering compares ordering tokens against the entity.
//
// invalid lists names that are not attributes; duplicated lists names that
// occur more than once after the sigil is stripped. Both are sorted and
// free of repeats.
func (e *Entity) CheckOrdering(tokens []string) (invalid, duplicated []string) {
	seen := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		name, _ := SplitSigil(tok)
		seen[name]++
		if seen[name] == 1 && !e.HasAttribute(name) {
			invalid = append(invalid, name)
		}
		if seen[name] == 2 {
			duplicated = append(duplicated, name)
		}
	}
	slices.Sort(invalid)
	slices.Sort(duplicated)
	return invalid, duplicated
}
