// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"context"
	"fmt"
	"strings"
)

// EntityType is the PII category of a detected entity
type EntityType string

const (
	TypePerson       EntityType = "PERSON"
	TypeOrganization EntityType = "ORGANIZATION"
	TypeLocation     EntityType = "LOCATION"
	TypeDate         EntityType = "DATE"
	TypeEmail        EntityType = "EMAIL"
	TypePhone        EntityType = "PHONE"
	TypeFiscalCode   EntityType = "FISCAL_CODE"
	TypeVATNumber    EntityType = "VAT_NUMBER"
	TypeIBAN         EntityType = "IBAN"
	TypeCreditCard   EntityType = "CREDIT_CARD"
	TypeAddress      EntityType = "ADDRESS"
	TypeCustom       EntityType = "CUSTOM"
)

// AllTypes lists every entity type in a stable order
var AllTypes = []EntityType{
	TypePerson, TypeOrganization, TypeLocation, TypeDate,
	TypeEmail, TypePhone, TypeFiscalCode, TypeVATNumber,
	TypeIBAN, TypeCreditCard, TypeAddress, TypeCustom,
}

// ParseEntityType accepts the canonical name in any case
func ParseEntityType(s string) (EntityType, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range AllTypes {
		if string(t) == want {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Structured reports whether the type is a checksum/format identifier
// rather than free text.
func (t EntityType) Structured() bool {
	switch t {
	case TypeEmail, TypePhone, TypeFiscalCode, TypeVATNumber, TypeIBAN, TypeCreditCard:
		return true
	}
	return false
}

// Depth trades recall against processing cost
type Depth int

const (
	DepthFast Depth = iota
	DepthBalanced
	DepthThorough
	DepthMaximum
)

func (d Depth) String() string {
	switch d {
	case DepthFast:
		return "fast"
	case DepthBalanced:
		return "balanced"
	case DepthThorough:
		return "thorough"
	case DepthMaximum:
		return "maximum"
	default:
		return "unknown"
	}
}

// ParseDepth converts a configuration value into a Depth
func ParseDepth(s string) (Depth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast":
		return DepthFast, nil
	case "", "balanced":
		return DepthBalanced, nil
	case "thorough":
		return DepthThorough, nil
	case "maximum", "max":
		return DepthMaximum, nil
	}
	return DepthBalanced, fmt.Errorf("unknown depth %q (want fast, balanced, thorough or maximum)", s)
}

// Span is a half-open byte range [Start, End) over a text buffer
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span width in bytes
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one byte
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Source tags identifying where a candidate came from
const (
	SourcePattern     = "pattern"
	SourceStatistical = "statistical"
	SourceTransformer = "transformer"
	SourceKeyword     = "keyword"
	SourceLearned     = "learned"
	SourceInjected    = "injected"
)

// Candidate is a detected entity before location resolution.
// Span is nil for entities supplied without a text position.
type Candidate struct {
	Type       EntityType     `json:"type"`
	Text       string         `json:"text"`
	Span       *Span          `json:"span,omitempty"`
	Page       int            `json:"page"`
	Score      float64        `json:"score"`
	Source     string         `json:"source"`
	Learned    bool           `json:"learned,omitempty"`
	Suppressed bool           `json:"suppressed,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// WithSpan returns a copy of the candidate with the given span
func (c Candidate) WithSpan(start, end int) Candidate {
	c.Span = &Span{Start: start, End: end}
	return c
}

// Clear drops the sensitive text held by the candidate
func (c *Candidate) Clear() {
	c.Text = ""
	c.Metadata = nil
}

// Rect is an axis-aligned rectangle in page points, origin top-left
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Location is one visible occurrence of an entity on a page
type Location struct {
	Page int  `json:"page"`
	Rect Rect `json:"rect"`
	// TextSpan is the byte range covered by Rect in the page text layer
	TextSpan Span `json:"text_span"`
	// Match is the whole occurrence TextSpan belongs to; an occurrence
	// wrapped over two lines has one location per line
	Match    Span   `json:"match"`
	Strategy string `json:"strategy"`
}

// Resolved is a candidate together with every location it was found at.
// A Resolved with no locations is never exported.
type Resolved struct {
	Candidate
	Locations []Location `json:"locations"`
}

// Backend is implemented by every recognizer. Implementations must be safe
// for concurrent use and must not mutate shared state during Detect.
type Backend interface {
	// Name returns the source id attached to emitted candidates
	Name() string

	// Kind returns one of SourcePattern, SourceStatistical or SourceTransformer
	Kind() string

	// Detect returns candidates with spans over text
	Detect(ctx context.Context, text string) ([]Candidate, error)
}

// NormalizeText is the key used wherever entities are compared by text:
// lower-cased with whitespace runs collapsed.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
