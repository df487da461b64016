// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package imagesource

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexredact/internal/document"
)

func TestLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	img := image.NewGray(image.Rect(0, 0, 40, 30))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(1, 1, color.Black)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, document.FormatImage, doc.Format)
	require.Len(t, doc.Pages, 1)
	p := doc.Pages[0]
	assert.InDelta(t, 40, p.Width, 1e-9)
	assert.InDelta(t, 30, p.Height, 1e-9)
	assert.True(t, p.HasImage)
	assert.Equal(t, path, p.Background)
	assert.Empty(t, p.Text)
	assert.Equal(t, "png", doc.Metadata.Extra["ImageFormat"])
	assert.Empty(t, doc.Metadata.Author)
}

func TestLoadRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}
