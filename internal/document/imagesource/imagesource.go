// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package imagesource loads a scanned page image as a one-page document.
// The text layer comes from OCR, which happens elsewhere; this package only
// records the page size, the image itself and its EXIF metadata.
package imagesource

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for DecodeConfig
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"lexredact/internal/document"
)

// exifFields maps EXIF tags onto the metadata fields that are reset on export
var exifFields = map[exif.FieldName]func(*document.Metadata, string){
	exif.Artist:           func(m *document.Metadata, v string) { m.Author = v },
	exif.Software:         func(m *document.Metadata, v string) { m.Producer = v },
	exif.ImageDescription: func(m *document.Metadata, v string) { m.Title = v },
	exif.DateTimeOriginal: func(m *document.Metadata, v string) { m.CreationDate = v },
	exif.DateTime:         func(m *document.Metadata, v string) { m.ModDate = v },
}

// exifWalker collects every tag not mapped to a named field
type exifWalker struct {
	meta *document.Metadata
}

func (w *exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag == nil {
		return nil
	}
	value := tagString(tag)
	if set, ok := exifFields[name]; ok {
		set(w.meta, value)
		return nil
	}
	if w.meta.Extra == nil {
		w.meta.Extra = make(map[string]string)
	}
	w.meta.Extra[string(name)] = value
	return nil
}

// tagString returns string tags without the quotes tiff.Tag.String adds
func tagString(tag *tiff.Tag) string {
	if s, err := tag.StringVal(); err == nil {
		return s
	}
	return tag.String()
}

// Load reads the image dimensions and metadata. Pixels map to points one to
// one. Images without EXIF data load with empty metadata.
func Load(path string) (*document.Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("error opening image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", path, err)
	}

	doc := &document.Document{
		Name:   filepath.Base(path),
		Format: document.FormatImage,
		Pages: []*document.Page{{
			Width:      float64(cfg.Width),
			Height:     float64(cfg.Height),
			HasImage:   true,
			Background: path,
		}},
	}
	doc.Metadata.Extra = map[string]string{"ImageFormat": format}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewinding image: %w", err)
	}
	if x, err := exif.Decode(f); err == nil {
		x.Walk(&exifWalker{meta: &doc.Metadata})
	}
	return doc, nil
}
