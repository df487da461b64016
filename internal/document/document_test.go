// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexredact/internal/detector"
)

func TestFromTextLayout(t *testing.T) {
	doc := FromText("atto.txt", "Il sig. Mario Rossi\n  nato a Roma\fPagina due")
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, FormatText, doc.Format)

	p := doc.Pages[0]
	require.Len(t, p.Words, 7)
	for _, w := range p.Words {
		assert.Equal(t, w.Text, p.Text[w.Span.Start:w.Span.End])
	}

	mario := p.Words[2]
	assert.Equal(t, "Mario", mario.Text)
	assert.InDelta(t, textMargin+8*textCharWidth, mario.Rect.X0, 1e-9)
	assert.InDelta(t, textMargin+13*textCharWidth, mario.Rect.X1, 1e-9)

	nato := p.Words[4]
	assert.Equal(t, "nato", nato.Text)
	assert.InDelta(t, textMargin+2*textCharWidth, nato.Rect.X0, 1e-9)
	assert.Greater(t, nato.Rect.Y0, mario.Rect.Y0)

	assert.Equal(t, 1, doc.Pages[1].Index)
	assert.Equal(t, "Pagina due", doc.Pages[1].Text)
}

func TestFromTextOverflowsToNewPage(t *testing.T) {
	// 770pt between the margins holds 64 lines of 12pt
	require.Equal(t, 64, maxLinesPerPage)

	text := strings.Repeat("riga\n", maxLinesPerPage+3)
	doc := FromText("lungo.txt", text)
	require.Len(t, doc.Pages, 2)
	assert.Len(t, doc.Pages[0].Words, maxLinesPerPage)
	assert.Len(t, doc.Pages[1].Words, 3)
}

func TestTextInRect(t *testing.T) {
	p := FromText("a.txt", "Il sig. Mario Rossi, CF RSSMRA85C15H501X").Pages[0]
	first, last := p.Words[2], p.Words[3]
	r := Union(first.Rect, last.Rect)
	assert.Equal(t, "Mario Rossi,", p.TextInRect(r))

	p.Words[3].Hidden = true
	assert.Equal(t, "Mario", p.TextInRect(r))
	assert.Empty(t, p.TextInRect(detector.Rect{X0: 500, Y0: 500, X1: 510, Y1: 510}))
}

func TestWordsInAndLines(t *testing.T) {
	p := FromText("a.txt", "uno due\ntre").Pages[0]
	assert.Equal(t, []int{0, 1}, p.WordsIn(detector.Span{Start: 2, End: 5}))

	lines := p.Lines(textLineHeight / 2)
	require.Len(t, lines, 2)
	assert.Equal(t, []int{0, 1}, lines[0])
	assert.Equal(t, []int{2}, lines[1])
}

func TestOpaqueRegions(t *testing.T) {
	p := &Page{
		Fills: []Fill{
			{Rect: detector.Rect{X1: 10, Y1: 10}, Gray: 0},
			{Rect: detector.Rect{X1: 20, Y1: 20}, Gray: 0.9},
		},
		Annotations: []Annotation{
			{Subtype: "Redact", Rect: detector.Rect{X0: 30, X1: 40, Y1: 5}},
			{Subtype: "Link", Rect: detector.Rect{X1: 1, Y1: 1}},
		},
	}
	regions := p.OpaqueRegions()
	require.Len(t, regions, 2)
	assert.InDelta(t, 10, regions[0].X1, 1e-9)
	assert.InDelta(t, 30, regions[1].X0, 1e-9)
}

func TestRectHelpers(t *testing.T) {
	a := detector.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	b := detector.Rect{X0: 5, Y0: 5, X1: 20, Y1: 20}
	assert.InDelta(t, 25, Area(Intersect(a, b)), 1e-9)
	assert.InDelta(t, 0, Area(Intersect(a, detector.Rect{X0: 11, Y0: 11, X1: 12, Y1: 12})), 1e-9)
	assert.Equal(t, detector.Rect{X0: 0, Y0: 0, X1: 20, Y1: 20}, Union(a, b))

	p := &Page{Width: 15, Height: 15}
	assert.Equal(t, detector.Rect{X0: 0, Y0: 0, X1: 12, Y1: 12}, p.Pad(a, 2))
}

func TestJSONRoundTrip(t *testing.T) {
	doc := FromText("atto.txt", "Mario Rossi")
	doc.Metadata.Author = "Studio Verdi"

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, doc))
	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestLoadJSONValidates(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"pages":[{"index":0,"text":"ab","words":[{"text":"x","span":{"start":1,"end":5}}]}]}`), 0o600))
	_, err := LoadJSON(bad)
	assert.Error(t, err)

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"pages":[{"index":0,"text":"ab"}]}`), 0o600))
	doc, err := LoadJSON(good)
	require.NoError(t, err)
	assert.Equal(t, "good.json", doc.Name)
	assert.Equal(t, FormatJSON, doc.Format)
}

func TestCloneIsDeep(t *testing.T) {
	doc := FromText("t", "Mario Rossi")
	doc.Metadata.Extra = map[string]string{"k": "v"}
	cp := doc.Clone()

	cp.Pages[0].Text = "changed"
	cp.Pages[0].Words[0].Text = "changed"
	cp.Pages[0].Fills = append(cp.Pages[0].Fills, Fill{Gray: 0})
	cp.Metadata.Extra["k"] = "changed"

	assert.Equal(t, "Mario Rossi", doc.Pages[0].Text)
	assert.Equal(t, "Mario", doc.Pages[0].Words[0].Text)
	assert.Empty(t, doc.Pages[0].Fills)
	assert.Equal(t, "v", doc.Metadata.Extra["k"])
}
