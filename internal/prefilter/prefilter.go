// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package prefilter removes structural sections of legal filings that never
// carry personal data: tables of contents, bibliographies, appendices and
// noise lines such as page numbers or signature rules.
package prefilter

import (
	"regexp"
	"strings"
	"unicode"

	"lexredact/internal/remap"
)

// SegmentKind classifies a line
type SegmentKind int

const (
	KindContent SegmentKind = iota
	KindSkipHeader
	KindNoise
	KindSkipped
)

func (k SegmentKind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindSkipHeader:
		return "skip_header"
	case KindNoise:
		return "noise"
	default:
		return "skipped"
	}
}

// Segment is one line of the input, newline included
type Segment struct {
	Start int
	End   int
	Kind  SegmentKind
}

// minHeadingLetters is the shortest ALL-CAPS heading that ends a skipped section
const minHeadingLetters = 5

var (
	skipHeaders = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(indice( generale| sommario)?|sommario|table of contents|contents)[:.]?$`),
		regexp.MustCompile(`(?i)^(bibliografia|bibliography|references|riferimenti bibliografici|note bibliografiche)[:.]?$`),
		regexp.MustCompile(`(?i)^(appendice|appendix)(\s+[a-z0-9]{1,4})?[:.]?$`),
	}

	noiseLines = []*regexp.Regexp{
		// bare page numbers: "5", "- 5 -", "Pag. 3 di 10", "Page 2/7"
		regexp.MustCompile(`(?i)^[-–\s]*((pag\.?|pagina|page|p\.)\s*)?\d{1,4}(\s*(di|of|/)\s*\d{1,4})?[-–\s]*$`),
		// separator rules
		regexp.MustCompile(`^[\-_=*·•~.]{3,}$`),
		// blank signature lines
		regexp.MustCompile(`(?i)^((firma|f\.to|signature|sottoscritto)\s*:?\s*)?_{3,}\s*$`),
	}
)

// Filter classifies lines and drops everything that is not content
type Filter struct {
	headers []*regexp.Regexp
	noise   []*regexp.Regexp
}

// New creates a filter with the built-in header and noise patterns
func New() *Filter {
	return &Filter{headers: skipHeaders, noise: noiseLines}
}

// Classify splits text into line segments and labels each one. A skip
// header puts the filter into skipping state until the next ALL-CAPS
// heading that is not itself a skip header.
func (f *Filter) Classify(text string) []Segment {
	var segments []Segment
	skipping := false
	for start := 0; start < len(text); {
		end := strings.IndexByte(text[start:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += start + 1
		}
		line := strings.TrimSpace(text[start:end])

		kind := KindContent
		switch {
		case f.isSkipHeader(line):
			kind = KindSkipHeader
			skipping = true
		case skipping && isCapsHeading(line):
			skipping = false
		case skipping:
			kind = KindSkipped
		case f.isNoise(line):
			kind = KindNoise
		}
		segments = append(segments, Segment{Start: start, End: end, Kind: kind})
		start = end
	}
	return segments
}

// Filter returns only the content lines and the table that maps filtered
// offsets back to text.
func (f *Filter) Filter(text string) (string, *remap.Table) {
	return keepContent(text, f.Classify(text))
}

// FilterAligned classifies the lines of source but removes the regions from
// work, which t derives from source. Headings are thus recognized before any
// case rewriting. A nil t means work is source.
func (f *Filter) FilterAligned(source, work string, t *remap.Table) (string, *remap.Table) {
	if t == nil {
		return f.Filter(work)
	}
	segments := f.Classify(source)
	for i := range segments {
		segments[i].Start = t.ToTransformed(segments[i].Start)
		segments[i].End = t.ToTransformed(segments[i].End)
	}
	return keepContent(work, segments)
}

func keepContent(text string, segments []Segment) (string, *remap.Table) {
	var out strings.Builder
	out.Grow(len(text))
	b := remap.NewBuilder()
	for _, seg := range segments {
		if seg.Kind == KindContent {
			out.WriteString(text[seg.Start:seg.End])
			b.Keep(seg.End - seg.Start)
			continue
		}
		b.Delete(seg.End - seg.Start)
	}
	return out.String(), b.Table()
}

func (f *Filter) isSkipHeader(line string) bool {
	if line == "" {
		return false
	}
	for _, re := range f.headers {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func (f *Filter) isNoise(line string) bool {
	if line == "" {
		return false
	}
	for _, re := range f.noise {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// isCapsHeading reports whether line has no lowercase letters and at least
// minHeadingLetters uppercase ones.
func isCapsHeading(line string) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters >= minHeadingLetters
}
