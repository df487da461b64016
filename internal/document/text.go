// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"lexredact/internal/detector"
)

// Plain text is laid onto a monospace grid on A4 pages
const (
	textPageWidth  = 595.0
	textPageHeight = 842.0
	textMargin     = 36.0
	textCharWidth  = 6.0
	textLineHeight = 12.0
	textGlyphTop   = 2.0
)

// maxLinesPerPage is how many grid lines fit between the margins
var maxLinesPerPage = int(math.Floor((textPageHeight - 2*textMargin) / textLineHeight))

// FromText builds a document from plain text. Form feeds start a new page,
// as do lines overflowing the page height.
func FromText(name, text string) *Document {
	doc := &Document{Name: name, Format: FormatText}
	for _, chunk := range strings.Split(text, "\f") {
		for _, pageText := range splitLines(chunk, maxLinesPerPage) {
			doc.Pages = append(doc.Pages, layoutPage(len(doc.Pages), pageText))
		}
	}
	return doc
}

// LoadText reads a plain text file
func LoadText(path string) (*Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: text is not valid UTF-8", path)
	}
	return FromText(filepath.Base(path), string(data)), nil
}

// splitLines cuts text into chunks of at most limit lines
func splitLines(text string, limit int) []string {
	lines := strings.SplitAfter(text, "\n")
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) <= limit {
		return []string{text}
	}
	var out []string
	for len(lines) > 0 {
		n := min(limit, len(lines))
		out = append(out, strings.Join(lines[:n], ""))
		lines = lines[n:]
	}
	return out
}

// layoutPage places every whitespace-delimited word at its grid cell
func layoutPage(index int, text string) *Page {
	p := &Page{Index: index, Width: textPageWidth, Height: textPageHeight, Text: text}

	line, col := 0, 0
	wordStart, wordCol := -1, 0
	flush := func(end int) {
		if wordStart < 0 {
			return
		}
		width := utf8.RuneCountInString(text[wordStart:end])
		y := textMargin + float64(line)*textLineHeight
		p.Words = append(p.Words, Word{
			Text: text[wordStart:end],
			Span: detector.Span{Start: wordStart, End: end},
			Rect: detector.Rect{
				X0: textMargin + float64(wordCol)*textCharWidth,
				Y0: y + textGlyphTop,
				X1: textMargin + float64(wordCol+width)*textCharWidth,
				Y1: y + textLineHeight - textGlyphTop,
			},
		})
		wordStart = -1
	}

	for i, r := range text {
		switch {
		case r == '\n':
			flush(i)
			line++
			col = 0
		case unicode.IsSpace(r):
			flush(i)
			col++
		default:
			if wordStart < 0 {
				wordStart, wordCol = i, col
			}
			col++
		}
	}
	flush(len(text))
	return p
}
