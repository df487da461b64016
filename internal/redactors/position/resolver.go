// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package position maps entity text back onto page geometry.
package position

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"lexredact/internal/detector"
	"lexredact/internal/document"
	"lexredact/internal/textsim"
)

// Strategy is the search step that located an occurrence
type Strategy int

const (
	// StrategyExact is a byte-for-byte substring match
	StrategyExact Strategy = iota
	// StrategyWhitespace matches with whitespace runs collapsed
	StrategyWhitespace
	// StrategyCase matches a lower, upper or title cased variant
	StrategyCase
	// StrategyWordBoundary pairs the first and last word on one line
	StrategyWordBoundary
	// StrategyFuzzy accepts a run of words on one line that is close to
	// the entity by combined similarity
	StrategyFuzzy
)

// String returns the string representation of the strategy
func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyWhitespace:
		return "whitespace"
	case StrategyCase:
		return "case"
	case StrategyWordBoundary:
		return "word-boundary"
	case StrategyFuzzy:
		return "fuzzy"
	default:
		return "unknown"
	}
}

// DefaultLineTolerance is the vertical distance in points under which two
// word centres are on the same line
const DefaultLineTolerance = 3.0

// FuzzyThreshold is the textsim.Similarity a run of words needs to stand
// for an entity. Tuned on a small corpus; recalibrate on the target one.
const FuzzyThreshold = 0.85

// Resolver runs the fallback search cascade
type Resolver struct {
	lineTolerance float64
}

// NewResolver creates a resolver. A non-positive tolerance selects
// DefaultLineTolerance.
func NewResolver(lineTolerance float64) *Resolver {
	if lineTolerance <= 0 {
		lineTolerance = DefaultLineTolerance
	}
	return &Resolver{lineTolerance: lineTolerance}
}

// ResolvePage runs the cascade on one page and stops at the first strategy
// that yields a visible location.
func (r *Resolver) ResolvePage(c detector.Candidate, p *document.Page) []detector.Location {
	text := strings.TrimSpace(c.Text)
	if text == "" || p == nil || p.Text == "" {
		return nil
	}

	if c.Span != nil && c.Span.Start >= 0 && c.Span.End <= len(p.Text) && c.Span.Start < c.Span.End &&
		p.Text[c.Span.Start:c.Span.End] == c.Text {
		if locs := r.locate(p, *c.Span, StrategyExact); len(locs) > 0 {
			return locs
		}
	}

	if locs := r.fromSpans(p, exactSpans(p.Text, text), StrategyExact); len(locs) > 0 {
		return locs
	}

	words := strings.Fields(text)
	if locs := r.fromSpans(p, regexSpans(p.Text, words), StrategyWhitespace); len(locs) > 0 {
		return locs
	}

	for _, variant := range caseVariants(words) {
		if locs := r.fromSpans(p, regexSpans(p.Text, variant), StrategyCase); len(locs) > 0 {
			return locs
		}
	}

	if locs := r.wordBoundary(p, words); len(locs) > 0 {
		return locs
	}

	return r.fuzzy(p, text, len(words))
}

func (r *Resolver) fromSpans(p *document.Page, spans []detector.Span, s Strategy) []detector.Location {
	var out []detector.Location
	for _, sp := range spans {
		out = append(out, r.locate(p, sp, s)...)
	}
	return out
}

// locate turns a byte range of the page text into one rectangle per visual
// line, covering only the visible glyphs inside the range
func (r *Resolver) locate(p *document.Page, span detector.Span, s Strategy) []detector.Location {
	type lineBox struct {
		rect   detector.Rect
		span   detector.Span
		centre float64
	}
	var boxes []lineBox

	for _, i := range p.WordsIn(span) {
		w := p.Words[i]
		if w.Hidden {
			continue
		}
		rect, sub := clipWord(p.Text, w, span)
		cy := (w.Rect.Y0 + w.Rect.Y1) / 2

		placed := false
		for k := range boxes {
			if absf(boxes[k].centre-cy) < r.lineTolerance {
				boxes[k].rect = document.Union(boxes[k].rect, rect)
				boxes[k].span.Start = min(boxes[k].span.Start, sub.Start)
				boxes[k].span.End = max(boxes[k].span.End, sub.End)
				placed = true
				break
			}
		}
		if !placed {
			boxes = append(boxes, lineBox{rect: rect, span: sub, centre: cy})
		}
	}

	out := make([]detector.Location, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, detector.Location{Page: p.Index, Rect: b.rect, TextSpan: b.span, Match: span, Strategy: s.String()})
	}
	return out
}

// clipWord narrows a word rectangle to the part of the word inside span,
// assuming evenly spaced glyphs
func clipWord(text string, w document.Word, span detector.Span) (detector.Rect, detector.Span) {
	sub := detector.Span{Start: max(span.Start, w.Span.Start), End: min(span.End, w.Span.End)}
	if sub == w.Span || w.Span.End > len(text) || w.Span.Start < 0 {
		return w.Rect, sub
	}
	total := utf8.RuneCountInString(text[w.Span.Start:w.Span.End])
	if total == 0 {
		return w.Rect, sub
	}
	before := utf8.RuneCountInString(text[w.Span.Start:sub.Start])
	inside := utf8.RuneCountInString(text[sub.Start:sub.End])

	width := w.Rect.X1 - w.Rect.X0
	rect := w.Rect
	rect.X0 = w.Rect.X0 + width*float64(before)/float64(total)
	rect.X1 = w.Rect.X0 + width*float64(before+inside)/float64(total)
	return rect, sub
}

// wordBoundary pairs each visible match of the first word with the nearest
// match of the last word to its right on the same line
func (r *Resolver) wordBoundary(p *document.Page, words []string) []detector.Location {
	if len(words) < 2 {
		return nil
	}
	first := textsim.Normalize(trimPunct(words[0]))
	last := textsim.Normalize(trimPunct(words[len(words)-1]))
	if first == "" || last == "" {
		return nil
	}

	var out []detector.Location
	for i, a := range p.Words {
		if a.Hidden || textsim.Normalize(trimPunct(a.Text)) != first {
			continue
		}
		ay := (a.Rect.Y0 + a.Rect.Y1) / 2
		best := -1
		for j, b := range p.Words {
			if j == i || b.Hidden || b.Rect.X0 < a.Rect.X1 {
				continue
			}
			if absf((b.Rect.Y0+b.Rect.Y1)/2-ay) >= r.lineTolerance {
				continue
			}
			if textsim.Normalize(trimPunct(b.Text)) != last {
				continue
			}
			if best < 0 || b.Rect.X0 < p.Words[best].Rect.X0 {
				best = j
			}
		}
		if best < 0 {
			continue
		}
		b := p.Words[best]
		span := detector.Span{Start: min(a.Span.Start, b.Span.Start), End: max(a.Span.End, b.Span.End)}
		out = append(out, detector.Location{
			Page:     p.Index,
			Rect:     document.Union(a.Rect, b.Rect),
			TextSpan: span,
			Match:    span,
			Strategy: StrategyWordBoundary.String(),
		})
	}
	return out
}

// fuzzy slides a window of n visible words over each line and keeps the
// non-overlapping windows similar enough to text. Short entities are never
// matched this way.
func (r *Resolver) fuzzy(p *document.Page, text string, n int) []detector.Location {
	if n == 0 || utf8.RuneCountInString(text) <= textsim.MinFuzzyLength {
		return nil
	}
	var visible []document.Word
	for _, w := range p.Words {
		if !w.Hidden {
			visible = append(visible, w)
		}
	}

	var out []detector.Location
	for k := 0; k+n <= len(visible); k++ {
		window := visible[k : k+n]
		if !r.oneLine(window) {
			continue
		}
		parts := make([]string, n)
		rects := make([]detector.Rect, n)
		for i, w := range window {
			parts[i] = w.Text
			rects[i] = w.Rect
		}
		if textsim.Similarity(strings.Join(parts, " "), text) < FuzzyThreshold {
			continue
		}
		span := detector.Span{Start: window[0].Span.Start, End: window[n-1].Span.End}
		out = append(out, detector.Location{
			Page:     p.Index,
			Rect:     document.Union(rects...),
			TextSpan: span,
			Match:    span,
			Strategy: StrategyFuzzy.String(),
		})
		k += n - 1
	}
	return out
}

func (r *Resolver) oneLine(words []document.Word) bool {
	cy := (words[0].Rect.Y0 + words[0].Rect.Y1) / 2
	for _, w := range words[1:] {
		if absf((w.Rect.Y0+w.Rect.Y1)/2-cy) >= r.lineTolerance {
			return false
		}
	}
	return true
}

// exactSpans returns the non-overlapping occurrences of needle in text
func exactSpans(text, needle string) []detector.Span {
	var out []detector.Span
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], needle)
		if i < 0 {
			break
		}
		start := offset + i
		out = append(out, detector.Span{Start: start, End: start + len(needle)})
		offset = start + len(needle)
	}
	return out
}

// regexSpans matches words separated by any whitespace run
func regexSpans(text string, words []string) []detector.Span {
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(strings.Join(quoted, `\s+`))
	if err != nil {
		return nil
	}
	var out []detector.Span
	for _, m := range re.FindAllStringIndex(text, -1) {
		out = append(out, detector.Span{Start: m[0], End: m[1]})
	}
	return out
}

func caseVariants(words []string) [][]string {
	lower := make([]string, len(words))
	upper := make([]string, len(words))
	title := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
		upper[i] = strings.ToUpper(w)
		title[i] = titleWord(w)
	}
	return [][]string{lower, upper, title}
}

func titleWord(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
