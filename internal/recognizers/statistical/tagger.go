// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package statistical implements the general-purpose entity tagger for
// person, organization, location and date entities. Each candidate span is
// scored by a log-linear model over lexical and contextual features.
package statistical

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"lexredact/internal/detector"
)

// minEmitScore drops spans the model considers unlikely before they reach
// the policy filter.
const minEmitScore = 0.30

// feature weights of the log-linear scorer
var weights = map[string]float64{
	"bias":           -1.0,
	"honorific":      2.5,
	"person_trigger": 0.8,
	"first_name":     1.8,
	"surname_last":   1.2,
	"inverse_order":  2.2,
	"inner_first":    0.6,
	"multi_token":    0.6,
	"single_token":   -1.2,
	"all_places":     -2.5,

	"org_suffix":  3.8,
	"org_trigger": 2.5,

	"place":         2.0,
	"place_trigger": 2.2,
}

var tokenRegex = regexp.MustCompile(`\p{L}[\p{L}\p{M}'’\-]*(?:\.\p{L}+)*\.?`)

type token struct {
	raw   string
	word  string // raw without trailing dot
	lower string
	start int
	end   int
}

// Backend is the statistical tagger
type Backend struct {
	types map[detector.EntityType]bool
	dates *dateMatcher
}

// New creates a tagger. A nil or empty types set enables every type it knows.
func New(types map[detector.EntityType]bool) *Backend {
	return &Backend{types: types, dates: newDateMatcher()}
}

func (b *Backend) Name() string { return detector.SourceStatistical }

func (b *Backend) Kind() string { return detector.SourceStatistical }

func (b *Backend) enabled(t detector.EntityType) bool {
	return len(b.types) == 0 || b.types[t]
}

// Detect tags text and returns candidates ordered by span
func (b *Backend) Detect(ctx context.Context, text string) ([]detector.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	toks := tokenize(text)

	var out []detector.Candidate
	var taken []detector.Span
	if b.enabled(detector.TypeOrganization) {
		orgs := tagOrganizations(text, toks)
		out = append(out, orgs...)
		taken = appendSpans(taken, orgs)
	}
	if b.enabled(detector.TypePerson) {
		persons := tagPersons(text, toks, taken)
		out = append(out, persons...)
		taken = appendSpans(taken, persons)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.enabled(detector.TypeLocation) {
		out = append(out, tagLocations(text, toks, taken)...)
	}
	if b.enabled(detector.TypeDate) {
		out = append(out, b.dates.find(text)...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Span.Start < out[j].Span.Start })
	return out, nil
}

func tokenize(text string) []token {
	locs := tokenRegex.FindAllStringIndex(text, -1)
	toks := make([]token, 0, len(locs))
	for _, loc := range locs {
		raw := text[loc[0]:loc[1]]
		word := strings.TrimRight(raw, ".")
		// keep the dot of abbreviations such as "S.p.A." inside the word
		if strings.Contains(word, ".") {
			word = raw
		}
		toks = append(toks, token{
			raw:   raw,
			word:  word,
			lower: strings.ToLower(raw),
			start: loc[0],
			end:   loc[0] + len(word),
		})
	}
	return toks
}

// adjacent reports whether only blanks separate two tokens
func adjacent(text string, a, b token) bool {
	if strings.HasSuffix(a.raw, ".") && a.word != a.raw {
		return false
	}
	return strings.Trim(text[a.end:b.start], " \t") == ""
}

func isCapitalized(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

// isNameToken reports whether w looks like a proper-name token: capitalized
// with at least one lower-case letter.
func isNameToken(w string) bool {
	if !isCapitalized(w) {
		return false
	}
	for _, r := range w {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func (t token) bare() string { return strings.TrimRight(t.lower, ".") }

// isHonorific also matches titles behind an elided article ("dall'avv.")
func isHonorific(t token) bool {
	if honorifics[t.lower] {
		return true
	}
	if i := strings.LastIndexAny(t.lower, "'’"); i >= 0 {
		_, size := utf8.DecodeRuneInString(t.lower[i:])
		return honorifics[t.lower[i+size:]]
	}
	return false
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func score(features []string) float64 {
	sum := weights["bias"]
	for _, f := range features {
		sum += weights[f]
	}
	return math.Min(0.99, sigmoid(sum))
}

func newCandidate(t detector.EntityType, text string, start, end int, features []string) detector.Candidate {
	c := detector.Candidate{
		Type:     t,
		Text:     text[start:end],
		Score:    score(features),
		Source:   detector.SourceStatistical,
		Metadata: map[string]any{"features": features},
	}
	return c.WithSpan(start, end)
}

func overlapsAny(spans []detector.Span, s detector.Span) bool {
	for _, t := range spans {
		if t.Overlaps(s) {
			return true
		}
	}
	return false
}

func appendSpans(spans []detector.Span, cands []detector.Candidate) []detector.Span {
	for _, c := range cands {
		spans = append(spans, *c.Span)
	}
	return spans
}

// nameRun returns the end index (exclusive) of the proper-name run starting
// at i, allowing surname particles between name tokens. At most limit name
// tokens are taken.
func nameRun(text string, toks []token, i, limit int) int {
	j := i + 1
	names := 1
	for j < len(toks) && names < limit && adjacent(text, toks[j-1], toks[j]) {
		t := toks[j]
		switch {
		case surnameParticles[t.bare()] && j+1 < len(toks) && adjacent(text, t, toks[j+1]) && isNameToken(toks[j+1].word):
			j += 2
			names++
		case isNameToken(t.word) && !stopCapitalized[t.bare()] && !isHonorific(t):
			j++
			names++
		default:
			return j
		}
	}
	return j
}

func tagPersons(text string, toks []token, taken []detector.Span) []detector.Candidate {
	var out []detector.Candidate
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !isNameToken(t.word) || stopCapitalized[t.bare()] || isHonorific(t) || isOrgSuffix(t.lower) {
			continue
		}
		j := nameRun(text, toks, i, 4)
		span := detector.Span{Start: toks[i].start, End: toks[j-1].end}
		if overlapsAny(taken, span) {
			i = j - 1
			continue
		}

		run := toks[i:j]
		var features []string
		honorific := i > 0 && isHonorific(toks[i-1])
		if honorific {
			features = append(features, "honorific")
		}
		for k := max(0, i-3); k < i; k++ {
			if personTriggers[toks[k].bare()] {
				features = append(features, "person_trigger")
				break
			}
		}

		first, last := run[0].bare(), lastName(run)
		switch {
		case firstNames[first]:
			features = append(features, "first_name")
			if surnames[last] {
				features = append(features, "surname_last")
			}
		case len(run) >= 2 && surnames[first] && firstNames[run[1].bare()]:
			features = append(features, "inverse_order")
		default:
			for _, r := range run[1:] {
				if firstNames[r.bare()] {
					features = append(features, "inner_first")
					break
				}
			}
			if surnames[last] {
				features = append(features, "surname_last")
			}
		}

		if len(run) >= 2 {
			features = append(features, "multi_token")
		} else {
			features = append(features, "single_token")
		}
		if allPlaces(run) {
			features = append(features, "all_places")
		}

		i = j - 1
		if len(run) == 1 && !honorific {
			continue
		}
		c := newCandidate(detector.TypePerson, text, span.Start, span.End, features)
		if c.Score >= minEmitScore {
			out = append(out, c)
		}
	}
	return out
}

// lastName joins a trailing particle with the final token so "De Luca" can
// be looked up as one surname.
func lastName(run []token) string {
	n := len(run)
	if n >= 2 && surnameParticles[run[n-2].bare()] {
		return run[n-2].bare() + " " + run[n-1].bare()
	}
	return run[n-1].bare()
}

func allPlaces(run []token) bool {
	for _, t := range run {
		if !cities[t.bare()] {
			return false
		}
	}
	return true
}

func isOrgSuffix(lower string) bool {
	for _, s := range orgSuffixes {
		if lower == s {
			return true
		}
	}
	return false
}

func tagOrganizations(text string, toks []token) []detector.Candidate {
	var out []detector.Candidate
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !isCapitalized(t.word) || stopCapitalized[t.bare()] || isHonorific(t) || isOrgSuffix(t.lower) {
			continue
		}
		// capitalized run of up to five tokens
		j := i + 1
		for j < len(toks) && j-i < 5 && adjacent(text, toks[j-1], toks[j]) && isCapitalized(toks[j].word) && !isOrgSuffix(toks[j].lower) {
			j++
		}

		var features []string
		end := toks[j-1].end
		if j < len(toks) && adjacent(text, toks[j-1], toks[j]) && isOrgSuffix(toks[j].lower) {
			features = append(features, "org_suffix")
			end = toks[j].end
			j++
		} else if i > 0 && orgTriggers[toks[i-1].lower] {
			features = append(features, "org_trigger")
		} else {
			continue
		}
		if j-i > 2 {
			features = append(features, "multi_token")
		}

		out = append(out, newCandidate(detector.TypeOrganization, text, t.start, end, features))
		i = j - 1
	}
	return out
}

func tagLocations(text string, toks []token, taken []detector.Span) []detector.Candidate {
	var out []detector.Candidate
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !isNameToken(t.word) {
			continue
		}

		end, j := t.end, i+1
		name := t.bare()
		if i+1 < len(toks) && adjacent(text, t, toks[i+1]) && cities[name+" "+toks[i+1].bare()] {
			name += " " + toks[i+1].bare()
			end, j = toks[i+1].end, i+2
		} else if !cities[name] {
			continue
		}

		span := detector.Span{Start: t.start, End: end}
		if overlapsAny(taken, span) {
			i = j - 1
			continue
		}
		features := []string{"place"}
		if i > 0 && locationTriggers[toks[i-1].lower] {
			features = append(features, "place_trigger")
		}
		out = append(out, newCandidate(detector.TypeLocation, text, span.Start, span.End, features))
		i = j - 1
	}
	return out
}
