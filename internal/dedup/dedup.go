// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package dedup merges learned entities with fresh detections so that no two
// kept entities cover the same text.
package dedup

import (
	"sort"

	"lexredact/internal/detector"
)

type ranked struct {
	detector.Candidate
	learned bool
}

// Merge returns the union of learned and fresh with overlaps removed.
// Candidates are ranked learned first, then by descending score, then by
// span start; each is kept only if its span overlaps no kept span on the
// same page. Candidates without a span are deduplicated by their text,
// ignoring case. The result is ordered by page and position and does not
// depend on the input order.
func Merge(learned, fresh []detector.Candidate) []detector.Candidate {
	all := make([]ranked, 0, len(learned)+len(fresh))
	for _, c := range learned {
		all = append(all, ranked{Candidate: c, learned: true})
	}
	for _, c := range fresh {
		all = append(all, ranked{Candidate: c, learned: c.Learned})
	}
	sort.SliceStable(all, func(i, j int) bool { return before(all[i], all[j]) })

	kept := make(map[int][]detector.Span)
	seenText := make(map[string]bool)
	var spanned, spanless []detector.Candidate

	for _, r := range all {
		if r.Span == nil {
			key := detector.NormalizeText(r.Text)
			if key == "" || seenText[key] {
				continue
			}
			seenText[key] = true
			spanless = append(spanless, r.Candidate)
			continue
		}
		if overlapsAny(*r.Span, kept[r.Page]) {
			continue
		}
		kept[r.Page] = append(kept[r.Page], *r.Span)
		spanned = append(spanned, r.Candidate)
	}

	sort.SliceStable(spanned, func(i, j int) bool {
		a, b := spanned[i], spanned[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		return a.Span.End < b.Span.End
	})
	return append(spanned, spanless...)
}

// before orders candidates by priority. The trailing keys only break ties so
// that the result never depends on backend completion order.
func before(a, b ranked) bool {
	if a.learned != b.learned {
		return a.learned
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if (a.Span == nil) != (b.Span == nil) {
		return a.Span != nil
	}
	if a.Span != nil {
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Span.End != b.Span.End {
			return a.Span.End > b.Span.End
		}
	}
	if a.Page != b.Page {
		return a.Page < b.Page
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if a.Text != b.Text {
		return a.Text < b.Text
	}
	return a.Source < b.Source
}

func overlapsAny(s detector.Span, spans []detector.Span) bool {
	for _, k := range spans {
		if s.Overlaps(k) {
			return true
		}
	}
	return false
}
