// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDepth(t *testing.T) {
	tests := []struct {
		in      string
		want    Depth
		wantErr bool
	}{
		{"fast", DepthFast, false},
		{"", DepthBalanced, false},
		{"Balanced", DepthBalanced, false},
		{"thorough", DepthThorough, false},
		{"max", DepthMaximum, false},
		{"extreme", DepthBalanced, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDepth(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEntityType(t *testing.T) {
	got, err := ParseEntityType(" fiscal_code ")
	require.NoError(t, err)
	assert.Equal(t, TypeFiscalCode, got)

	_, err = ParseEntityType("SSN")
	assert.Error(t, err)
}

func TestSpanOverlaps(t *testing.T) {
	a := Span{Start: 0, End: 5}
	assert.True(t, a.Overlaps(Span{Start: 4, End: 8}))
	assert.False(t, a.Overlaps(Span{Start: 5, End: 8}), "half-open spans that touch do not overlap")
	assert.False(t, a.Overlaps(Span{Start: 10, End: 12}))
}

func TestContextExtractor(t *testing.T) {
	text := "riga uno\nIl sig. Mario Rossi, CF ABC\nfine"
	start := len("riga uno\nIl sig. ")
	span := Span{Start: start, End: start + len("Mario Rossi")}

	info := NewContextExtractor().WithContextChars(8).Extract(text, span)
	assert.Equal(t, "Il sig. Mario Rossi, CF ABC", info.FullLine)
	assert.Equal(t, "Il sig. ", info.BeforeText)
	assert.Equal(t, ", CF ABC", info.AfterText)

	wider := NewContextExtractor().WithContextChars(9).Extract(text, span)
	assert.Equal(t, "\nIl sig. ", wider.BeforeText)
	assert.True(t, info.HasKeyword([]string{"sig."}))
	assert.False(t, info.HasKeyword([]string{"dott."}))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "mario rossi", NormalizeText("  MARIO \n\t Rossi "))
}
