// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package raster

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexredact/internal/detector"
	"lexredact/internal/document"
)

func TestNearWhiteFraction(t *testing.T) {
	page := document.FromText("t", "Il sig. Mario Rossi").Pages[0]
	mario := page.Words[2].Rect

	tests := []struct {
		name  string
		setup func(p *document.Page)
		rect  detector.Rect
		check func(t *testing.T, frac float64)
	}{
		{
			name: "printed word",
			rect: mario,
			check: func(t *testing.T, frac float64) {
				assert.Greater(t, frac, 0.3)
				assert.Less(t, frac, 0.6)
			},
		},
		{
			name: "blank margin",
			rect: detector.Rect{X0: 300, Y0: 300, X1: 340, Y1: 310},
			check: func(t *testing.T, frac float64) {
				assert.Equal(t, 1.0, frac)
			},
		},
		{
			name:  "white text",
			setup: func(p *document.Page) { p.Words[2].Gray = 1 },
			rect:  mario,
			check: func(t *testing.T, frac float64) {
				assert.Equal(t, 1.0, frac)
			},
		},
		{
			name:  "hidden text",
			setup: func(p *document.Page) { p.Words[2].Hidden = true },
			rect:  mario,
			check: func(t *testing.T, frac float64) {
				assert.Equal(t, 1.0, frac)
			},
		},
		{
			name:  "white box painted over text",
			setup: func(p *document.Page) { p.Fills = []document.Fill{{Rect: mario, Gray: 1, Over: true}} },
			rect:  mario,
			check: func(t *testing.T, frac float64) {
				assert.Equal(t, 1.0, frac)
			},
		},
		{
			name:  "white box painted under text",
			setup: func(p *document.Page) { p.Fills = []document.Fill{{Rect: mario, Gray: 1}} },
			rect:  mario,
			check: func(t *testing.T, frac float64) {
				assert.Less(t, frac, 0.6)
			},
		},
		{
			name:  "dark fill",
			setup: func(p *document.Page) { p.Fills = []document.Fill{{Rect: mario, Gray: 1}, {Rect: mario, Gray: 0}} },
			rect:  mario,
			check: func(t *testing.T, frac float64) {
				assert.Equal(t, 0.0, frac)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := document.FromText("t", "Il sig. Mario Rossi").Pages[0]
			if tt.setup != nil {
				tt.setup(p)
			}
			img, err := NewRenderer().Render(p, tt.rect, 3)
			require.NoError(t, err)
			assert.Equal(t, int((tt.rect.X1-tt.rect.X0)*3), img.Bounds().Dx())
			tt.check(t, NearWhiteFraction(img, 240))
		})
	}
}

func TestRenderBackground(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	src := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range src.Pix {
		src.Pix[i] = 10
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	p := &document.Page{Width: 20, Height: 20, HasImage: true, Background: path}
	r := NewRenderer()
	img, err := r.Render(p, detector.Rect{X0: 5, Y0: 5, X1: 15, Y1: 15}, 2)
	require.NoError(t, err)
	assert.Less(t, NearWhiteFraction(img, 240), 0.05)

	// cached decode survives the file going away
	require.NoError(t, os.Remove(path))
	_, err = r.Render(p, detector.Rect{X0: 0, Y0: 0, X1: 4, Y1: 4}, 1)
	assert.NoError(t, err)
}

func TestRenderErrors(t *testing.T) {
	p := document.FromText("t", "x").Pages[0]
	r := NewRenderer()

	_, err := r.Render(p, detector.Rect{X0: 10, Y0: 10, X1: 10, Y1: 20}, 3)
	assert.Error(t, err)

	_, err = r.Render(p, detector.Rect{X1: 10, Y1: 10}, 0)
	assert.Error(t, err)

	p.Background = filepath.Join(t.TempDir(), "missing.png")
	_, err = r.Render(p, detector.Rect{X1: 10, Y1: 10}, 1)
	assert.Error(t, err)
}

func TestGrayColor(t *testing.T) {
	assert.Equal(t, color.Gray{Y: 0}, grayColor(-1))
	assert.Equal(t, color.Gray{Y: 255}, grayColor(2))
	assert.Equal(t, color.Gray{Y: 128}, grayColor(0.5))
}
