// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"strings"
)

// ContextInfo stores the text around a candidate
type ContextInfo struct {
	BeforeText string
	AfterText  string

	// Line containing the candidate
	FullLine string
}

// ContextExtractor extracts context windows around spans
type ContextExtractor struct {
	// Number of characters before and after the span to consider
	ContextChars int
}

// NewContextExtractor creates a new context extractor with default settings
func NewContextExtractor() *ContextExtractor {
	return &ContextExtractor{
		ContextChars: 50,
	}
}

// WithContextChars sets the number of context characters
func (ce *ContextExtractor) WithContextChars(chars int) *ContextExtractor {
	ce.ContextChars = chars
	return ce
}

// Extract returns the context surrounding span in text
func (ce *ContextExtractor) Extract(text string, span Span) ContextInfo {
	if span.Start < 0 || span.End > len(text) || span.Start > span.End {
		return ContextInfo{}
	}

	info := ContextInfo{}

	start := max(0, span.Start-ce.ContextChars)
	end := min(len(text), span.End+ce.ContextChars)
	info.BeforeText = text[start:span.Start]
	info.AfterText = text[span.End:end]

	lineStart := strings.LastIndexByte(text[:span.Start], '\n') + 1
	lineEnd := strings.IndexByte(text[span.End:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text)
	} else {
		lineEnd += span.End
	}
	info.FullLine = text[lineStart:lineEnd]

	return info
}

// HasKeyword reports whether any keyword appears (case-insensitively) in the
// text immediately before the span.
func (ci ContextInfo) HasKeyword(keywords []string) bool {
	before := strings.ToLower(ci.BeforeText)
	for _, kw := range keywords {
		if strings.Contains(before, kw) {
			return true
		}
	}
	return false
}
