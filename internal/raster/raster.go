// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package raster renders a region of a page model to pixels. The output is
// only meant for ink coverage checks: glyphs are drawn as solid cells in the
// word colour rather than as real font outlines.
package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // background decoders
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"lexredact/internal/detector"
	"lexredact/internal/document"
)

// MaxPixels bounds a single render
const MaxPixels = 16 << 20

// Glyph cells leave this share of the cell unpainted on each side
const (
	glyphInsetX = 0.15
	glyphInsetY = 0.10
)

// Renderer draws page regions. Decoded background images are cached per
// path, so one renderer should be shared across the pages of a document.
type Renderer struct {
	mu          sync.Mutex
	backgrounds map[string]image.Image
}

// NewRenderer creates a renderer with an empty background cache
func NewRenderer() *Renderer {
	return &Renderer{backgrounds: make(map[string]image.Image)}
}

// Render draws rect of page p at zoom pixels per point: white paper, the
// background image, fills painted before the text, visible glyphs, then
// fills painted over the text.
func (rr *Renderer) Render(p *document.Page, rect detector.Rect, zoom float64) (*image.RGBA, error) {
	if zoom <= 0 {
		return nil, fmt.Errorf("invalid zoom %v", zoom)
	}
	w := int(math.Ceil((rect.X1 - rect.X0) * zoom))
	h := int(math.Ceil((rect.Y1 - rect.Y0) * zoom))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty region %+v", rect)
	}
	if w*h > MaxPixels {
		return nil, fmt.Errorf("region %dx%d exceeds %d pixels", w, h, MaxPixels)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	if p.Background != "" {
		bg, err := rr.background(p.Background)
		if err != nil {
			return nil, err
		}
		drawBackground(dst, bg, p, rect)
	}

	toPixels := func(r detector.Rect) image.Rectangle {
		return image.Rect(
			int(math.Floor((r.X0-rect.X0)*zoom)),
			int(math.Floor((r.Y0-rect.Y0)*zoom)),
			int(math.Ceil((r.X1-rect.X0)*zoom)),
			int(math.Ceil((r.Y1-rect.Y0)*zoom)),
		).Intersect(dst.Bounds())
	}

	fills := func(over bool) {
		for _, f := range p.Fills {
			if f.Over != over {
				continue
			}
			if box := toPixels(f.Rect); !box.Empty() {
				draw.Draw(dst, box, image.NewUniform(grayColor(f.Gray)), image.Point{}, draw.Src)
			}
		}
	}

	fills(false)
	for _, word := range p.Words {
		if word.Hidden || word.Text == "" {
			continue
		}
		if document.Area(document.Intersect(word.Rect, rect)) == 0 {
			continue
		}
		ink := image.NewUniform(grayColor(word.Gray))
		for _, cell := range glyphCells(word) {
			box := toPixels(cell)
			if !box.Empty() {
				draw.Draw(dst, box, ink, image.Point{}, draw.Over)
			}
		}
	}
	fills(true)
	return dst, nil
}

// background decodes an image once and keeps it for later renders
func (rr *Renderer) background(path string) (image.Image, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if img, ok := rr.backgrounds[path]; ok {
		return img, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening page background: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding page background %s: %w", path, err)
	}
	rr.backgrounds[path] = img
	return img, nil
}

// drawBackground scales the part of bg under rect into dst. The image is
// stretched over the whole page.
func drawBackground(dst *image.RGBA, bg image.Image, p *document.Page, rect detector.Rect) {
	b := bg.Bounds()
	if p.Width <= 0 || p.Height <= 0 || b.Empty() {
		return
	}
	sx := float64(b.Dx()) / p.Width
	sy := float64(b.Dy()) / p.Height
	src := image.Rect(
		b.Min.X+int(math.Floor(rect.X0*sx)),
		b.Min.Y+int(math.Floor(rect.Y0*sy)),
		b.Min.X+int(math.Ceil(rect.X1*sx)),
		b.Min.Y+int(math.Ceil(rect.Y1*sy)),
	).Intersect(b)
	if src.Empty() {
		return
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), bg, src, draw.Over, nil)
}

// glyphCells splits a word rectangle into one inked cell per non-space rune
func glyphCells(w document.Word) []detector.Rect {
	runes := []rune(w.Text)
	if len(runes) == 0 {
		return nil
	}
	cellW := (w.Rect.X1 - w.Rect.X0) / float64(len(runes))
	height := w.Rect.Y1 - w.Rect.Y0
	cells := make([]detector.Rect, 0, len(runes))
	for i, r := range runes {
		if r == ' ' {
			continue
		}
		x0 := w.Rect.X0 + float64(i)*cellW
		cells = append(cells, detector.Rect{
			X0: x0 + cellW*glyphInsetX,
			Y0: w.Rect.Y0 + height*glyphInsetY,
			X1: x0 + cellW*(1-glyphInsetX),
			Y1: w.Rect.Y1 - height*glyphInsetY,
		})
	}
	return cells
}

func grayColor(level float64) color.Gray {
	level = math.Max(0, math.Min(1, level))
	return color.Gray{Y: uint8(math.Round(level * 255))}
}

// NearWhiteFraction returns the share of pixels whose RGB channels are all
// at or above level
func NearWhiteFraction(img image.Image, level uint8) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 1
	}
	threshold := uint32(level) * 0x101
	white := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r >= threshold && g >= threshold && bl >= threshold {
				white++
			}
		}
	}
	return float64(white) / float64(total)
}
