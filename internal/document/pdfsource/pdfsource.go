// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pdfsource loads a PDF into the page model: positioned words from
// the text layer, painted rectangles with their fill level, annotations and
// the document information dictionary.
package pdfsource

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"lexredact/internal/detector"
	"lexredact/internal/document"
)

// Letter size is used when a page has no usable MediaBox
const (
	defaultWidth  = 612.0
	defaultHeight = 792.0
)

// Options tune glyph grouping
type Options struct {
	// RowTolerance is the baseline difference, in points, under which two
	// glyphs share a row
	RowTolerance float64

	// WordSpaceMultiplier times the font size is the gap that starts a new word
	WordSpaceMultiplier float64
}

// DefaultOptions returns the grouping used by Load
func DefaultOptions() Options {
	return Options{RowTolerance: 2.0, WordSpaceMultiplier: 0.25}
}

// Load validates the file with pdfcpu in relaxed mode, then reads every page.
// A page whose content cannot be interpreted is kept with an empty text layer.
func Load(path string, opts Options) (*document.Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return nil, fmt.Errorf("invalid PDF %s: %w", path, err)
	}
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("counting pages of %s: %w", path, err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	doc := &document.Document{
		Name:     filepath.Base(path),
		Format:   document.FormatPDF,
		Metadata: readInfo(r.Trailer().Key("Info")),
	}
	for i := 1; i <= pageCount; i++ {
		doc.Pages = append(doc.Pages, readPage(r.Page(i), i-1, opts))
	}
	return doc, nil
}

func readInfo(info pdf.Value) document.Metadata {
	if info.IsNull() {
		return document.Metadata{}
	}
	md := document.Metadata{
		Title:        info.Key("Title").Text(),
		Author:       info.Key("Author").Text(),
		Creator:      info.Key("Creator").Text(),
		Producer:     info.Key("Producer").Text(),
		CreationDate: info.Key("CreationDate").Text(),
		ModDate:      info.Key("ModDate").Text(),
	}
	for _, key := range info.Keys() {
		switch key {
		case "Title", "Author", "Creator", "Producer", "CreationDate", "ModDate":
			continue
		}
		if v := info.Key(key).Text(); v != "" {
			if md.Extra == nil {
				md.Extra = make(map[string]string)
			}
			md.Extra[key] = v
		}
	}
	return md
}

func readPage(p pdf.Page, index int, opts Options) *document.Page {
	page := &document.Page{Index: index, Width: defaultWidth, Height: defaultHeight}
	if p.V.IsNull() {
		return page
	}
	if box := p.V.Key("MediaBox"); box.Len() == 4 {
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		if w > 0 && h > 0 {
			page.Width, page.Height = w, h
		}
	}
	page.HasImage = hasImages(p.Resources())

	glyphs := safeContent(p)
	page.Text, page.Words = buildTextLayer(glyphs, page.Height, opts)
	page.Fills = readFills(p, page.Height)
	page.Annotations = readAnnotations(p.V.Key("Annots"), page.Height)
	return page
}

// safeContent returns the page glyphs; the interpreter panics on malformed
// content streams
func safeContent(p pdf.Page) (glyphs []pdf.Text) {
	defer func() {
		if recover() != nil {
			glyphs = nil
		}
	}()
	return p.Content().Text
}

func hasImages(resources pdf.Value) bool {
	xobjects := resources.Key("XObject")
	for _, name := range xobjects.Keys() {
		if xobjects.Key(name).Key("Subtype").Name() == "Image" {
			return true
		}
	}
	return false
}

// buildTextLayer groups glyphs into rows and words. Rows become lines of the
// page text, words are separated by single spaces.
func buildTextLayer(glyphs []pdf.Text, height float64, opts Options) (string, []document.Word) {
	var filtered []pdf.Text
	for _, g := range glyphs {
		if strings.TrimSpace(g.S) != "" {
			filtered = append(filtered, g)
		}
	}
	rows := groupRows(filtered, opts.RowTolerance)

	var sb strings.Builder
	var words []document.Word
	for ri, row := range rows {
		if ri > 0 {
			sb.WriteByte('\n')
		}
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })

		var cur *document.Word
		var curEnd float64
		flush := func() {
			if cur == nil {
				return
			}
			if len(words) > 0 && sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
				sb.WriteByte(' ')
			}
			cur.Span = detector.Span{Start: sb.Len(), End: sb.Len() + len(cur.Text)}
			sb.WriteString(cur.Text)
			words = append(words, *cur)
			cur = nil
		}
		for _, g := range row {
			gap := g.X - curEnd
			threshold := opts.WordSpaceMultiplier * g.FontSize
			if threshold <= 0 {
				threshold = 1.5
			}
			rect := glyphRect(g, height)
			if cur != nil && gap <= threshold {
				cur.Text += g.S
				cur.Rect = document.Union(cur.Rect, rect)
			} else {
				flush()
				cur = &document.Word{Text: g.S, Rect: rect}
			}
			curEnd = g.X + g.W
		}
		flush()
	}
	return sb.String(), words
}

// glyphRect converts a baseline glyph to a top-left origin rectangle
func glyphRect(g pdf.Text, height float64) detector.Rect {
	size := math.Abs(g.FontSize)
	if size == 0 {
		size = 10
	}
	return detector.Rect{
		X0: g.X,
		Y0: height - (g.Y + 0.8*size),
		X1: g.X + math.Max(g.W, 0.3*size),
		Y1: height - (g.Y - 0.2*size),
	}
}

// groupRows buckets glyphs by baseline, top row first
func groupRows(glyphs []pdf.Text, tolerance float64) [][]pdf.Text {
	type bucket struct {
		yMin, yMax float64
		glyphs     []pdf.Text
	}
	var buckets []*bucket
	for _, g := range glyphs {
		var hit *bucket
		for _, b := range buckets {
			if g.Y >= b.yMin-tolerance && g.Y <= b.yMax+tolerance {
				hit = b
				break
			}
		}
		if hit == nil {
			buckets = append(buckets, &bucket{yMin: g.Y, yMax: g.Y, glyphs: []pdf.Text{g}})
			continue
		}
		hit.glyphs = append(hit.glyphs, g)
		hit.yMin = math.Min(hit.yMin, g.Y)
		hit.yMax = math.Max(hit.yMax, g.Y)
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].yMax > buckets[j].yMax })

	rows := make([][]pdf.Text, len(buckets))
	for i, b := range buckets {
		rows[i] = b.glyphs
	}
	return rows
}

// readFills replays the path painting operators of the content stream and
// records every filled rectangle with the current non-stroking gray level.
// A fill that follows a text showing operator is marked as painted over
// the text.
// Transformations are not applied, which matches the common case of
// redaction boxes drawn in page space.
func readFills(p pdf.Page, height float64) (fills []document.Fill) {
	defer func() {
		if recover() != nil {
			fills = nil
		}
	}()
	contents := p.V.Key("Contents")
	if contents.IsNull() {
		return nil
	}

	gray := 0.0
	textShown := false
	var stack []float64
	var path []detector.Rect
	pdf.Interpret(contents, func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "q":
			stack = append(stack, gray)
		case "Q":
			if l := len(stack); l > 0 {
				gray, stack = stack[l-1], stack[:l-1]
			}
		case "g":
			if len(args) == 1 {
				gray = args[0].Float64()
			}
		case "rg", "sc", "scn":
			if len(args) == 3 {
				gray = luminance(args[0].Float64(), args[1].Float64(), args[2].Float64())
			} else if len(args) == 1 && args[0].Kind() != pdf.Name {
				gray = args[0].Float64()
			}
		case "k":
			if len(args) == 4 {
				c, m, y, k := args[0].Float64(), args[1].Float64(), args[2].Float64(), args[3].Float64()
				gray = luminance((1-c)*(1-k), (1-m)*(1-k), (1-y)*(1-k))
			}
		case "re":
			if len(args) == 4 {
				x, y, w, h := args[0].Float64(), args[1].Float64(), args[2].Float64(), args[3].Float64()
				path = append(path, normalizeRect(x, y, w, h, height))
			}
		case "f", "F", "f*", "B", "B*", "b", "b*":
			for _, r := range path {
				fills = append(fills, document.Fill{Rect: r, Gray: gray, Over: textShown})
			}
			path = nil
		case "n", "S", "s":
			path = nil
		case "Tj", "TJ", "'", "\"":
			textShown = true
		}
	})
	return fills
}

func luminance(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

func normalizeRect(x, y, w, h, height float64) detector.Rect {
	x0, x1 := math.Min(x, x+w), math.Max(x, x+w)
	y0, y1 := math.Min(y, y+h), math.Max(y, y+h)
	return detector.Rect{X0: x0, Y0: height - y1, X1: x1, Y1: height - y0}
}

func readAnnotations(annots pdf.Value, height float64) []document.Annotation {
	var out []document.Annotation
	for i := 0; i < annots.Len(); i++ {
		a := annots.Index(i)
		rect := a.Key("Rect")
		if rect.Len() != 4 {
			continue
		}
		x0, y0 := rect.Index(0).Float64(), rect.Index(1).Float64()
		x1, y1 := rect.Index(2).Float64(), rect.Index(3).Float64()
		out = append(out, document.Annotation{
			Subtype: a.Key("Subtype").Name(),
			Rect:    normalizeRect(x0, y0, x1-x0, y1-y0, height),
		})
	}
	return out
}
