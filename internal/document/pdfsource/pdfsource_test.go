// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdfsource

import (
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// glyphs lays s out as 6pt-wide glyphs starting at x on baseline y
func glyphs(s string, x, y float64) []pdf.Text {
	var out []pdf.Text
	for _, r := range s {
		out = append(out, pdf.Text{Font: "Helvetica", FontSize: 10, X: x, Y: y, W: 6, S: string(r)})
		x += 6
	}
	return out
}

func TestBuildTextLayer(t *testing.T) {
	var in []pdf.Text
	in = append(in, glyphs("Rossi", 80, 700)...)
	in = append(in, glyphs("Mario", 40, 700.5)...)
	in = append(in, glyphs("Roma", 40, 680)...)

	text, words := buildTextLayer(in, 792, DefaultOptions())
	assert.Equal(t, "Mario Rossi\nRoma", text)
	require.Len(t, words, 3)
	for _, w := range words {
		assert.Equal(t, w.Text, text[w.Span.Start:w.Span.End])
	}

	mario := words[0]
	assert.InDelta(t, 40, mario.Rect.X0, 1e-9)
	assert.InDelta(t, 70, mario.Rect.X1, 1e-9)
	assert.InDelta(t, 792-(700.5+8), mario.Rect.Y0, 1e-9)
	assert.Less(t, mario.Rect.Y1, words[2].Rect.Y0+1)
}

func TestBuildTextLayerSkipsBlankGlyphs(t *testing.T) {
	in := append(glyphs("ab", 0, 100), pdf.Text{FontSize: 10, X: 12, Y: 100, W: 3, S: " "})
	in = append(in, glyphs("cd", 30, 100)...)
	text, words := buildTextLayer(in, 200, DefaultOptions())
	assert.Equal(t, "ab cd", text)
	assert.Len(t, words, 2)
}

func TestNormalizeRect(t *testing.T) {
	r := normalizeRect(100, 700, 50, -20, 792)
	assert.InDelta(t, 100, r.X0, 1e-9)
	assert.InDelta(t, 150, r.X1, 1e-9)
	assert.InDelta(t, 92, r.Y0, 1e-9)
	assert.InDelta(t, 112, r.Y1, 1e-9)
}

func TestLuminance(t *testing.T) {
	assert.InDelta(t, 0, luminance(0, 0, 0), 1e-9)
	assert.InDelta(t, 1, luminance(1, 1, 1), 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.pdf"), DefaultOptions())
	assert.Error(t, err)
}
