// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package safety decides whether a located region may be redacted. A region
// is approved only when it is not already covered, its text is actually
// painted, and the painted text is the text we expect to remove.
package safety

import (
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"lexredact/internal/detector"
	"lexredact/internal/document"
	"lexredact/internal/observability"
	"lexredact/internal/raster"
	"lexredact/internal/textsim"
)

// Defaults were tuned on a small corpus of Italian court filings and should
// be recalibrated when the document mix changes.
const (
	// DefaultMaxWhiteFraction is the near-white pixel share above which a
	// region counts as blank
	DefaultMaxWhiteFraction = 0.92

	// DefaultNearWhiteLevel is the channel value from which a pixel is near-white
	DefaultNearWhiteLevel uint8 = 240

	// DefaultMinSimilarity is the edit similarity required for texts longer
	// than textsim.MinFuzzyLength runes
	DefaultMinSimilarity = 0.85

	// DefaultOverlapRatio is the share of the region an opaque area must
	// cover for the region to count as already redacted
	DefaultOverlapRatio = 0.50

	// DefaultZoom is the render resolution in pixels per point
	DefaultZoom = 3.0
)

// Rejection reasons
const (
	ReasonAlreadyRedacted = "already redacted"
	ReasonInvisible       = "not visible"
	ReasonTextMismatch    = "text mismatch"
	ReasonRenderFailed    = "render failed"
)

// Config holds the check thresholds
type Config struct {
	MaxWhiteFraction float64 `yaml:"max_white_fraction"`
	NearWhiteLevel   uint8   `yaml:"near_white_level"`
	MinSimilarity    float64 `yaml:"min_similarity"`
	OverlapRatio     float64 `yaml:"overlap_ratio"`
	Zoom             float64 `yaml:"zoom"`
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MaxWhiteFraction: DefaultMaxWhiteFraction,
		NearWhiteLevel:   DefaultNearWhiteLevel,
		MinSimilarity:    DefaultMinSimilarity,
		OverlapRatio:     DefaultOverlapRatio,
		Zoom:             DefaultZoom,
	}
}

// Verdict is the outcome of one check
type Verdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`

	// Overlap is the largest share of the region covered by one opaque area
	Overlap float64 `json:"overlap"`

	// WhiteFraction is the near-white share of the rendered region
	WhiteFraction float64 `json:"white_fraction"`
}

// Stats counts approvals and rejections by reason
type Stats struct {
	Approved int            `json:"approved"`
	Rejected map[string]int `json:"rejected"`
}

// Checker runs the safety checks. It is safe for concurrent use by the page
// workers.
type Checker struct {
	cfg      Config
	renderer *raster.Renderer
	observer *observability.StandardObserver

	mu       sync.Mutex
	approved int
	rejected map[string]int
}

// NewChecker creates a checker. Zero config fields fall back to the defaults.
func NewChecker(cfg Config, renderer *raster.Renderer, observer *observability.StandardObserver) *Checker {
	def := DefaultConfig()
	if cfg.MaxWhiteFraction <= 0 {
		cfg.MaxWhiteFraction = def.MaxWhiteFraction
	}
	if cfg.NearWhiteLevel == 0 {
		cfg.NearWhiteLevel = def.NearWhiteLevel
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = def.MinSimilarity
	}
	if cfg.OverlapRatio <= 0 {
		cfg.OverlapRatio = def.OverlapRatio
	}
	if cfg.Zoom <= 0 {
		cfg.Zoom = def.Zoom
	}
	if renderer == nil {
		renderer = raster.NewRenderer()
	}
	return &Checker{cfg: cfg, renderer: renderer, observer: observer, rejected: make(map[string]int)}
}

// Config returns the effective thresholds
func (c *Checker) Config() Config { return c.cfg }

// Check verifies rect on page p. existing are the opaque regions present on
// the page before this export run started.
func (c *Checker) Check(p *document.Page, rect detector.Rect, expected string, existing []detector.Rect) Verdict {
	v := c.check(p, rect, expected, existing)
	c.record(p.Index, expected, v)
	return v
}

func (c *Checker) check(p *document.Page, rect detector.Rect, expected string, existing []detector.Rect) Verdict {
	var v Verdict

	v.Overlap = MaxOverlap(rect, existing)
	if v.Overlap > c.cfg.OverlapRatio {
		v.Reason = ReasonAlreadyRedacted
		return v
	}

	img, err := c.renderer.Render(p, rect, c.cfg.Zoom)
	if err != nil {
		v.Reason = ReasonRenderFailed
		return v
	}
	v.WhiteFraction = raster.NearWhiteFraction(img, c.cfg.NearWhiteLevel)
	if v.WhiteFraction > c.cfg.MaxWhiteFraction {
		v.Reason = ReasonInvisible
		return v
	}

	if !textsim.Matches(expected, p.TextInRect(rect), c.cfg.MinSimilarity) {
		v.Reason = ReasonTextMismatch
		return v
	}

	v.Safe = true
	return v
}

// record counts the verdict and logs rejections without the text itself
func (c *Checker) record(page int, expected string, v Verdict) {
	c.mu.Lock()
	if v.Safe {
		c.approved++
	} else {
		c.rejected[v.Reason]++
	}
	c.mu.Unlock()

	if v.Safe {
		return
	}
	c.observer.LogOperation(observability.StandardObservabilityData{
		Component: "safety",
		Operation: "check",
		Page:      page,
		Success:   false,
		Error:     v.Reason,
		Metadata: map[string]interface{}{
			"length":         utf8.RuneCountInString(expected),
			"overlap":        v.Overlap,
			"white_fraction": v.WhiteFraction,
		},
	})
	if c.observer != nil && c.observer.DebugObserver != nil {
		c.observer.DebugObserver.LogDetail("safety", fmt.Sprintf("page %d region rejected: %s", page, v.Reason))
	}
}

// Stats returns a snapshot of the counters
func (c *Checker) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{Approved: c.approved, Rejected: make(map[string]int, len(c.rejected))}
	for k, n := range c.rejected {
		s.Rejected[k] = n
	}
	return s
}

// Reasons returns the rejection reasons seen so far, sorted
func (s Stats) Reasons() []string {
	out := make([]string, 0, len(s.Rejected))
	for k := range s.Rejected {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MaxOverlap returns the largest share of rect covered by a single region
func MaxOverlap(rect detector.Rect, regions []detector.Rect) float64 {
	area := document.Area(rect)
	if area == 0 {
		return 0
	}
	best := 0.0
	for _, r := range regions {
		best = max(best, document.Area(document.Intersect(rect, r))/area)
	}
	return best
}
