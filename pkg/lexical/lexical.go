// Package lexical implements a dependency-free token overlap similarity
// measure over raw text. It is the retrieval tier of last resort: always
// available, deterministic, and requiring no external calls.
package lexical

import (
	"strings"
	"unicode"
)

// minQueryTokens is the floor for the overlap denominator so short queries
// are not over-rewarded by trivial full overlap.
const minQueryTokens = 3

// Score returns a similarity in [0,1] between a query and a candidate text.
// Both are normalized to lowercase alphanumeric tokens; the score is the
// fraction of distinct query tokens present in the candidate, with the
// denominator floored at minQueryTokens and the result clamped to 1.0.
func Score(query, candidate string) float32 {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	candidateSet := make(map[string]struct{})
	for _, tok := range Tokenize(candidate) {
		candidateSet[tok] = struct{}{}
	}

	querySet := make(map[string]struct{}, len(queryTokens))
	for _, tok := range queryTokens {
		querySet[tok] = struct{}{}
	}

	matched := 0
	for tok := range querySet {
		if _, ok := candidateSet[tok]; ok {
			matched++
		}
	}

	denom := len(querySet)
	if denom < minQueryTokens {
		denom = minQueryTokens
	}

	score := float32(matched) / float32(denom)
	if score > 1 {
		score = 1
	}
	return score
}

// Tokenize lowercases the input and splits on every non-alphanumeric rune.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
