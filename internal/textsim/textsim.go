// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package textsim compares short strings that went through different text
// extraction paths. All measures work on runes.
package textsim

import (
	"strings"
	"unicode"
)

// Normalize lower-cases s, collapses whitespace and drops every character
// that is not a letter, digit or space.
func Normalize(s string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(s)), " ")

	var result strings.Builder
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// EditDistance returns the Levenshtein distance between a and b
func EditDistance(a, b string) int {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		cur[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			cur[j] = min(
				prev[j]+1,      // deletion
				cur[j-1]+1,     // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, cur = cur, prev
	}
	return prev[len(s2)]
}

// EditSimilarity is one minus the edit distance over the longer length
func EditSimilarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(EditDistance(a, b))/float64(maxLen)
}

// Jaccard is the Jaccard similarity of the character bigram sets
func Jaccard(a, b string) float64 {
	g1, g2 := bigrams(a), bigrams(b)
	if len(g1) == 0 && len(g2) == 0 {
		return 1.0
	}
	union := len(g1)
	intersection := 0
	for g := range g2 {
		if g1[g] {
			intersection++
		} else {
			union++
		}
	}
	return float64(intersection) / float64(union)
}

// LCSRatio is the longest common subsequence length over the longer length
func LCSRatio(a, b string) float64 {
	s1, s2 := []rune(a), []rune(b)
	maxLen := max(len(s1), len(s2))
	if maxLen == 0 {
		return 1.0
	}
	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			if s1[i-1] == s2[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return float64(prev[len(s2)]) / float64(maxLen)
}

// Similarity combines the three measures over the normalized strings
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	n1, n2 := Normalize(a), Normalize(b)
	if n1 == "" || n2 == "" {
		return 0.0
	}
	return 0.5*EditSimilarity(n1, n2) + 0.3*Jaccard(n1, n2) + 0.2*LCSRatio(n1, n2)
}

// MinFuzzyLength is the rune length above which a fuzzy match is accepted
const MinFuzzyLength = 5

// Matches reports whether found is consistent with expected: equal or
// containing it after normalization, or, for expected strings longer than
// MinFuzzyLength runes, at least minSimilarity by edit distance.
func Matches(expected, found string, minSimilarity float64) bool {
	e, f := Normalize(expected), Normalize(found)
	if e == "" || f == "" {
		return false
	}
	if e == f || strings.Contains(f, e) {
		return true
	}
	// a long fragment of the expected text, e.g. a line-wrapped half
	if strings.Contains(e, f) && len([]rune(f)) > MinFuzzyLength {
		return true
	}
	if len([]rune(e)) <= MinFuzzyLength {
		return false
	}
	return EditSimilarity(e, f) >= minSimilarity
}

func bigrams(s string) map[string]bool {
	r := []rune(s)
	out := make(map[string]bool)
	if len(r) < 2 {
		if len(r) == 1 {
			out[s] = true
		}
		return out
	}
	for i := 0; i+2 <= len(r); i++ {
		out[string(r[i:i+2])] = true
	}
	return out
}
