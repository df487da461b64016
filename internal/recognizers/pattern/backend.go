// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pattern implements the deterministic recognizer backend: regular
// expressions plus checksum validation for structured identifiers.
package pattern

import (
	"context"
	"sort"

	"lexredact/internal/detector"
)

// recognizer finds one entity type in text
type recognizer interface {
	entityType() detector.EntityType
	find(text string, ce *detector.ContextExtractor) []detector.Candidate
}

// Backend runs every enabled structured-identifier recognizer
type Backend struct {
	recognizers []recognizer
	extractor   *detector.ContextExtractor
}

// New creates a pattern backend. A nil or empty types set enables every
// recognizer.
func New(types map[detector.EntityType]bool) *Backend {
	all := []recognizer{
		newFiscalCodeRecognizer(),
		newVATRecognizer(),
		newIBANRecognizer(),
		newCreditCardRecognizer(),
		newPhoneRecognizer(),
		newEmailRecognizer(),
		newAddressRecognizer(),
	}
	b := &Backend{extractor: detector.NewContextExtractor().WithContextChars(40)}
	for _, r := range all {
		if len(types) == 0 || types[r.entityType()] {
			b.recognizers = append(b.recognizers, r)
		}
	}
	return b
}

func (b *Backend) Name() string { return detector.SourcePattern }

func (b *Backend) Kind() string { return detector.SourcePattern }

// Detect runs each recognizer in turn and returns candidates ordered by span
func (b *Backend) Detect(ctx context.Context, text string) ([]detector.Candidate, error) {
	var out []detector.Candidate
	for _, r := range b.recognizers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, r.find(text, b.extractor)...)
	}
	sortBySpan(out)
	return out, nil
}

func newCandidate(t detector.EntityType, text string, start, end int, score float64, checks map[string]bool) detector.Candidate {
	c := detector.Candidate{
		Type:   t,
		Text:   text[start:end],
		Score:  clampScore(score),
		Source: detector.SourcePattern,
	}
	if len(checks) > 0 {
		c.Metadata = map[string]any{"checks": checks}
	}
	return c.WithSpan(start, end)
}

func clampScore(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}

func sortBySpan(cs []detector.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Span.Start != cs[j].Span.Start {
			return cs[i].Span.Start < cs[j].Span.Start
		}
		return cs[i].Span.End > cs[j].Span.End
	})
}

func onlyDigits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
