// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lexredact/internal/detector"
	"lexredact/internal/document"
)

// marioRossi is the rectangle of "Mario Rossi" on the page built by newPage
var marioRossi = detector.Rect{X0: 84, Y0: 38, X1: 150, Y1: 46}

func newPage() *document.Page {
	return document.FromText("t", "Il sig. Mario Rossi, avvocato").Pages[0]
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(p *document.Page)
		expected string
		existing []detector.Rect
		safe     bool
		reason   string
	}{
		{
			name:     "visible matching text",
			expected: "Mario Rossi",
			safe:     true,
		},
		{
			name:     "scenario C: 80% covered by an opaque fill",
			expected: "Mario Rossi",
			existing: []detector.Rect{{X0: 84, Y0: 38, X1: 136.8, Y1: 46}},
			reason:   ReasonAlreadyRedacted,
		},
		{
			name:     "half covered is not enough",
			expected: "Mario Rossi",
			existing: []detector.Rect{{X0: 84, Y0: 38, X1: 117, Y1: 46}},
			safe:     true,
		},
		{
			name: "white on white",
			setup: func(p *document.Page) {
				for i := range p.Words {
					p.Words[i].Gray = 1
				}
			},
			expected: "Mario Rossi",
			reason:   ReasonInvisible,
		},
		{
			name: "white box painted over the text",
			setup: func(p *document.Page) {
				p.Fills = append(p.Fills, document.Fill{Rect: marioRossi, Gray: 1, Over: true})
			},
			expected: "Mario Rossi",
			reason:   ReasonInvisible,
		},
		{
			name: "white box under the text",
			setup: func(p *document.Page) {
				p.Fills = append(p.Fills, document.Fill{Rect: marioRossi, Gray: 1})
			},
			expected: "Mario Rossi",
			safe:     true,
		},
		{
			name:     "stale coordinates",
			expected: "Giulia Bianchi",
			reason:   ReasonTextMismatch,
		},
		{
			name:     "near miss above the similarity cutoff",
			expected: "Mario Rosso",
			safe:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPage()
			if tt.setup != nil {
				tt.setup(p)
			}
			c := NewChecker(Config{}, nil, nil)
			v := c.Check(p, marioRossi, tt.expected, tt.existing)
			assert.Equal(t, tt.safe, v.Safe)
			assert.Equal(t, tt.reason, v.Reason)

			stats := c.Stats()
			if tt.safe {
				assert.Equal(t, 1, stats.Approved)
				assert.Empty(t, stats.Rejected)
			} else {
				assert.Equal(t, 0, stats.Approved)
				assert.Equal(t, map[string]int{tt.reason: 1}, stats.Rejected)
			}
		})
	}
}

func TestCheckRenderFailure(t *testing.T) {
	p := newPage()
	p.Background = "/nonexistent/scan.png"
	v := NewChecker(DefaultConfig(), nil, nil).Check(p, marioRossi, "Mario Rossi", nil)
	assert.False(t, v.Safe)
	assert.Equal(t, ReasonRenderFailed, v.Reason)
}

func TestStatsReasons(t *testing.T) {
	c := NewChecker(Config{}, nil, nil)
	p := newPage()
	c.Check(p, marioRossi, "Giulia Bianchi", nil)
	c.Check(p, marioRossi, "Mario Rossi", []detector.Rect{marioRossi})
	c.Check(p, marioRossi, "Mario Rossi", nil)

	s := c.Stats()
	assert.Equal(t, 1, s.Approved)
	assert.Equal(t, []string{ReasonAlreadyRedacted, ReasonTextMismatch}, s.Reasons())
}

func TestMaxOverlap(t *testing.T) {
	r := detector.Rect{X1: 10, Y1: 10}
	assert.Equal(t, 0.0, MaxOverlap(r, nil))
	assert.InDelta(t, 0.5, MaxOverlap(r, []detector.Rect{{X1: 5, Y1: 10}, {X0: 8, X1: 20, Y1: 10}}), 1e-9)
	assert.Equal(t, 0.0, MaxOverlap(detector.Rect{}, []detector.Rect{r}))
}

func TestNewCheckerDefaults(t *testing.T) {
	c := NewChecker(Config{Zoom: 2}, nil, nil)
	cfg := c.Config()
	assert.Equal(t, 2.0, cfg.Zoom)
	assert.Equal(t, DefaultMaxWhiteFraction, cfg.MaxWhiteFraction)
	assert.Equal(t, DefaultNearWhiteLevel, cfg.NearWhiteLevel)
	assert.Equal(t, DefaultMinSimilarity, cfg.MinSimilarity)
	assert.Equal(t, DefaultOverlapRatio, cfg.OverlapRatio)
}
