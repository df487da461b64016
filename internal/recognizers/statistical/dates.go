// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package statistical

import (
	"regexp"
	"strconv"
	"strings"

	"lexredact/internal/detector"
)

const (
	numericDateScore = 0.86
	textualDateScore = 0.92
	birthDateBonus   = 0.05
)

var monthNames = map[string]int{
	"gennaio": 1, "febbraio": 2, "marzo": 3, "aprile": 4, "maggio": 5, "giugno": 6,
	"luglio": 7, "agosto": 8, "settembre": 9, "ottobre": 10, "novembre": 11, "dicembre": 12,
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

type datePattern struct {
	regex *regexp.Regexp
	score float64
	// submatch indexes of day and month
	day, month int
}

type dateMatcher struct {
	patterns      []datePattern
	birthKeywords []string
	extractor     *detector.ContextExtractor
}

func newDateMatcher() *dateMatcher {
	months := `(gennaio|febbraio|marzo|aprile|maggio|giugno|luglio|agosto|settembre|ottobre|novembre|dicembre|january|february|march|april|may|june|july|august|september|october|november|december)`
	return &dateMatcher{
		patterns: []datePattern{
			{regexp.MustCompile(`(?i)\b(\d{1,2})(?:°|º)?\s+` + months + `\s+(\d{4})\b`), textualDateScore, 1, 2},
			{regexp.MustCompile(`(?i)\b` + months + `\s+(\d{1,2}),?\s+(\d{4})\b`), textualDateScore, 2, 1},
			{regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})\b`), numericDateScore, 1, 2},
		},
		birthKeywords: []string{"nato il", "nata il", "nato in data", "nata in data", "data di nascita", "born on", "date of birth"},
		extractor:     detector.NewContextExtractor().WithContextChars(30),
	}
}

func (m *dateMatcher) find(text string) []detector.Candidate {
	var out []detector.Candidate
	var taken []detector.Span
	for _, p := range m.patterns {
		for _, sm := range p.regex.FindAllStringSubmatchIndex(text, -1) {
			span := detector.Span{Start: sm[0], End: sm[1]}
			if overlapsAny(taken, span) {
				continue
			}
			day, _ := strconv.Atoi(text[sm[2*p.day]:sm[2*p.day+1]])
			month := monthValue(text[sm[2*p.month]:sm[2*p.month+1]])
			if !validDate(day, month) {
				continue
			}

			features := []string{"date"}
			c := detector.Candidate{
				Type:   detector.TypeDate,
				Text:   text[span.Start:span.End],
				Score:  p.score,
				Source: detector.SourceStatistical,
			}
			if m.extractor.Extract(text, span).HasKeyword(m.birthKeywords) {
				c.Score += birthDateBonus
				features = append(features, "birth_context")
			}
			c.Metadata = map[string]any{"features": features}
			taken = append(taken, span)
			out = append(out, c.WithSpan(span.Start, span.End))
		}
	}
	return out
}

func monthValue(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return monthNames[strings.ToLower(s)]
}

func validDate(day, month int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	limits := [...]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	return day <= limits[month-1]
}
