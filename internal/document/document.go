// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package document holds the page model shared by the loaders, the location
// resolver, the safety checker and the exporter.
package document

import (
	"sort"
	"strings"

	"lexredact/internal/detector"
)

// Source formats
const (
	FormatPDF   = "pdf"
	FormatText  = "text"
	FormatJSON  = "json"
	FormatImage = "image"
)

// Document is an ordered sequence of pages plus document-level metadata
type Document struct {
	Name     string   `json:"name"`
	Format   string   `json:"format"`
	Metadata Metadata `json:"metadata"`
	Pages    []*Page  `json:"pages"`
}

// Metadata is the document information that identifies its author
type Metadata struct {
	Title        string            `json:"title,omitempty"`
	Author       string            `json:"author,omitempty"`
	Creator      string            `json:"creator,omitempty"`
	Producer     string            `json:"producer,omitempty"`
	CreationDate string            `json:"creation_date,omitempty"`
	ModDate      string            `json:"mod_date,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Page is one rendered page. Words index into Text through their Span, so a
// byte range of Text can be mapped back to page geometry.
type Page struct {
	Index    int     `json:"index"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	HasImage bool    `json:"has_image,omitempty"`

	// Background is an image file rendered under the page content
	Background string `json:"background,omitempty"`

	Text        string       `json:"text"`
	Words       []Word       `json:"words,omitempty"`
	Fills       []Fill       `json:"fills,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Word is a positioned run of non-space text
type Word struct {
	Text string        `json:"text"`
	Rect detector.Rect `json:"rect"`
	Span detector.Span `json:"span"`

	// Gray is the fill level of the glyphs, 0 black to 1 white
	Gray float64 `json:"gray,omitempty"`

	// Hidden words are present in the text layer but not painted
	Hidden bool `json:"hidden,omitempty"`
}

// Fill is a painted vector rectangle
type Fill struct {
	Rect detector.Rect `json:"rect"`
	Gray float64       `json:"gray"`

	// Redaction marks fills added by a redaction
	Redaction bool `json:"redaction,omitempty"`
	// Over marks fills painted after the page text
	Over bool `json:"over,omitempty"`
}

// Annotation is a page annotation such as a redaction mark
type Annotation struct {
	Subtype string        `json:"subtype"`
	Rect    detector.Rect `json:"rect"`
}

// Opaque fills at or below this gray level hide whatever is under them
const OpaqueGray = 0.2

// OpaqueRegions returns the rectangles already covered on the page: dark
// vector fills and redaction annotations.
func (p *Page) OpaqueRegions() []detector.Rect {
	var out []detector.Rect
	for _, f := range p.Fills {
		if f.Gray <= OpaqueGray {
			out = append(out, f.Rect)
		}
	}
	for _, a := range p.Annotations {
		if strings.EqualFold(a.Subtype, "Redact") || strings.EqualFold(a.Subtype, "Square") {
			out = append(out, a.Rect)
		}
	}
	return out
}

// WordsIn returns the indexes of the words whose span intersects span
func (p *Page) WordsIn(span detector.Span) []int {
	var out []int
	for i, w := range p.Words {
		if w.Span.Overlaps(span) {
			out = append(out, i)
		}
	}
	return out
}

// TextInRect returns the visible words whose centre lies inside r, in
// reading order and joined by single spaces.
func (p *Page) TextInRect(r detector.Rect) string {
	var hits []Word
	for _, w := range p.Words {
		if w.Hidden {
			continue
		}
		cx := (w.Rect.X0 + w.Rect.X1) / 2
		cy := (w.Rect.Y0 + w.Rect.Y1) / 2
		if cx >= r.X0 && cx <= r.X1 && cy >= r.Y0 && cy <= r.Y1 {
			hits = append(hits, w)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Span.Start != hits[j].Span.Start {
			return hits[i].Span.Start < hits[j].Span.Start
		}
		return hits[i].Rect.X0 < hits[j].Rect.X0
	})
	parts := make([]string, len(hits))
	for i, w := range hits {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// Union returns the smallest rectangle covering all rects
func Union(rects ...detector.Rect) detector.Rect {
	if len(rects) == 0 {
		return detector.Rect{}
	}
	u := rects[0]
	for _, r := range rects[1:] {
		u.X0 = min(u.X0, r.X0)
		u.Y0 = min(u.Y0, r.Y0)
		u.X1 = max(u.X1, r.X1)
		u.Y1 = max(u.Y1, r.Y1)
	}
	return u
}

// Area returns the rectangle area, zero for inverted rectangles
func Area(r detector.Rect) float64 {
	w, h := r.X1-r.X0, r.Y1-r.Y0
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Intersect returns the overlap of a and b, empty when they do not overlap
func Intersect(a, b detector.Rect) detector.Rect {
	r := detector.Rect{X0: max(a.X0, b.X0), Y0: max(a.Y0, b.Y0), X1: min(a.X1, b.X1), Y1: min(a.Y1, b.Y1)}
	if r.X1 <= r.X0 || r.Y1 <= r.Y0 {
		return detector.Rect{}
	}
	return r
}

// Pad grows r by d on every side, clipped to the page
func (p *Page) Pad(r detector.Rect, d float64) detector.Rect {
	r = detector.Rect{X0: r.X0 - d, Y0: r.Y0 - d, X1: r.X1 + d, Y1: r.Y1 + d}
	if p.Width > 0 && p.Height > 0 {
		r = Intersect(r, detector.Rect{X1: p.Width, Y1: p.Height})
	}
	return r
}

// Lines splits the words of the page into visual lines: words whose vertical
// centres differ by less than tolerance share a line.
func (p *Page) Lines(tolerance float64) [][]int {
	idx := make([]int, len(p.Words))
	for i := range idx {
		idx[i] = i
	}
	centre := func(i int) float64 { return (p.Words[i].Rect.Y0 + p.Words[i].Rect.Y1) / 2 }
	sort.SliceStable(idx, func(a, b int) bool {
		ca, cb := centre(idx[a]), centre(idx[b])
		if ca != cb {
			return ca < cb
		}
		return p.Words[idx[a]].Rect.X0 < p.Words[idx[b]].Rect.X0
	})

	var lines [][]int
	for _, i := range idx {
		if n := len(lines); n > 0 {
			last := lines[n-1]
			if abs(centre(last[0])-centre(i)) < tolerance {
				lines[n-1] = append(last, i)
				continue
			}
		}
		lines = append(lines, []int{i})
	}
	for _, line := range lines {
		sort.SliceStable(line, func(a, b int) bool { return p.Words[line[a]].Rect.X0 < p.Words[line[b]].Rect.X0 })
	}
	return lines
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	out := &Document{Name: d.Name, Format: d.Format, Metadata: d.Metadata}
	if d.Metadata.Extra != nil {
		out.Metadata.Extra = make(map[string]string, len(d.Metadata.Extra))
		for k, v := range d.Metadata.Extra {
			out.Metadata.Extra[k] = v
		}
	}
	out.Pages = make([]*Page, len(d.Pages))
	for i, p := range d.Pages {
		cp := *p
		cp.Words = append([]Word(nil), p.Words...)
		cp.Fills = append([]Fill(nil), p.Fills...)
		cp.Annotations = append([]Annotation(nil), p.Annotations...)
		out.Pages[i] = &cp
	}
	return out
}
