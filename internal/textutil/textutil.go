// Package textutil holds small string helpers shared by the ingestion,
// matching, and filtering packages.
package textutil

import (
	"sort"
	"strings"

	"github.com/avasiliev/semkit/pkg/stem"
)

// Normalize prepares a query for indexing and lookup: trimmed and lowercased.
// Every string that enters an index key or a filter comparison goes through
// here so the two sides always agree.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tokens splits a normalized query on whitespace runs.
func Tokens(s string) []string {
	return strings.Fields(s)
}

// WordSetKey returns the order-insensitive key for a query: its tokens
// sorted and rejoined with single spaces.
func WordSetKey(s string) string {
	tokens := Tokens(Normalize(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// StemSetKey returns the fuzzy key for a query: each token stemmed, stems of
// one rune or less dropped, the rest sorted and rejoined. An empty string
// means the query has no stemmable content and cannot participate in the
// stem tier.
func StemSetKey(s string) string {
	tokens := Tokens(Normalize(s))
	stems := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		st := stem.Stem(tok)
		if len([]rune(st)) <= 1 {
			continue
		}
		stems = append(stems, st)
	}
	sort.Strings(stems)
	return strings.Join(stems, " ")
}

// CollapseSpaces squeezes runs of whitespace into single spaces and trims.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
