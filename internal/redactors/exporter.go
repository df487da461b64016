// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package redactors commits approved redactions to a page document and
// produces the audit artifacts.
package redactors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"lexredact/internal/detector"
	"lexredact/internal/document"
	"lexredact/internal/observability"
	"lexredact/internal/parallel"
	"lexredact/internal/redactors/placeholder"
)

// NeutralProducer replaces the producer field when metadata is reset
const NeutralProducer = "lexredact"

// DefaultPadding grows each redaction box so glyph edges are covered
const DefaultPadding = 1.0

// Target is one location that passed the safety checks
type Target struct {
	Type     detector.EntityType
	Score    float64
	Source   string
	Location detector.Location
}

// ExportOptions configures an exporter
type ExportOptions struct {
	// Padding in points around each redaction box; negative means none
	Padding       float64
	ResetMetadata bool

	// OriginalPath and RedactedPath are recorded in the audit log
	OriginalPath string
	RedactedPath string
	Version      string
}

// ExportResult is the redacted document with its audit artifacts
type ExportResult struct {
	Document *document.Document
	Mapping  MappingTable
	Audit    *RedactionAuditLog

	// Redacted is the number of committed locations
	Redacted int
	Skipped  int
}

// Exporter commits redactions. Pages are edited concurrently, each under its
// own lock.
type Exporter struct {
	opts     ExportOptions
	pool     *parallel.Pool
	locks    *parallel.PageLocks
	observer *observability.StandardObserver
}

// NewExporter creates an exporter. A nil pool runs with the default size.
func NewExporter(opts ExportOptions, pool *parallel.Pool, observer *observability.StandardObserver) *Exporter {
	if pool == nil {
		pool = parallel.NewPool(0, observer)
	}
	return &Exporter{opts: opts, pool: pool, locks: parallel.NewPageLocks(), observer: observer}
}

// edit replaces one byte range of a page text
type edit struct {
	target      Target
	start, end  int
	replacement string
}

// occurrence groups the locations sharing one Match span
type occurrence struct {
	page        int
	match       detector.Span
	placeholder string
}

// Export returns a redacted copy of doc; doc itself is not modified. Targets
// that do not fit the page text are reported to errs and skipped.
func (e *Exporter) Export(ctx context.Context, doc *document.Document, targets []Target, errs *RedactionErrorCollection) (*ExportResult, error) {
	start := time.Now()
	finishTiming := e.observer.StartTiming("exporter", "export", doc.Name)

	out := doc.Clone()
	assigner := placeholder.NewAssigner()

	kept, skipped := e.selectTargets(out, targets, errs)

	// placeholders are assigned in page and text order so numbering does not
	// depend on scheduling
	edits := make([]edit, 0, len(kept))
	var current *occurrence
	for _, t := range kept {
		loc := t.Location
		p := out.Pages[loc.Page]
		if current == nil || current.page != loc.Page || current.match != loc.Match {
			current = &occurrence{
				page:        loc.Page,
				match:       loc.Match,
				placeholder: assigner.Assign(t.Type, p.Text[loc.Match.Start:loc.Match.End]),
			}
		}
		seg := segment(p.Text, current.match, loc.TextSpan, current.placeholder)
		edits = append(edits, edit{
			target:      t,
			start:       loc.TextSpan.Start,
			end:         loc.TextSpan.End,
			replacement: overlay(p.Text[loc.TextSpan.Start:loc.TextSpan.End], seg),
		})
	}
	byPage := make(map[int][]edit)
	for _, ed := range edits {
		byPage[ed.target.Location.Page] = append(byPage[ed.target.Location.Page], ed)
	}

	padding := e.opts.Padding
	if padding < 0 {
		padding = 0
	}
	_, err := e.pool.ForEachPage(ctx, "export", len(out.Pages), func(ctx context.Context, page int) error {
		edits := byPage[page]
		if len(edits) == 0 {
			return nil
		}
		unlock := e.locks.Lock(page)
		defer unlock()

		p := out.Pages[page]
		// text first, so no rendered box ever sits over live text
		applyEdits(p, edits)
		for _, ed := range edits {
			p.Fills = append(p.Fills, document.Fill{
				Rect:      p.Pad(ed.target.Location.Rect, padding),
				Gray:      0,
				Redaction: true,
			})
		}
		return nil
	})
	if err != nil {
		finishTiming(false, nil)
		assigner.Clear()
		return nil, NewRedactionError(ErrorCancelled, "export interrupted", doc.Name, "exporter", err)
	}

	audit := NewRedactionAuditLog(documentID(doc), e.opts.OriginalPath, e.opts.RedactedPath, e.opts.Version)
	for _, ed := range edits {
		loc := ed.target.Location
		audit.AddContentRedaction(ContentRedaction{
			Page:        loc.Page,
			Rect:        out.Pages[loc.Page].Pad(loc.Rect, padding),
			DataType:    ed.target.Type,
			Placeholder: ed.replacement,
			Strategy:    loc.Strategy,
			Source:      ed.target.Source,
			Confidence:  clamp01(ed.target.Score),
		})
	}
	if e.opts.ResetMetadata {
		for _, m := range resetMetadata(&out.Metadata) {
			audit.AddMetadataRedaction(m)
		}
	}

	mapping := MappingTable(assigner.Records())
	audit.SetMapping(mapping)
	audit.RedactionSummary.Skipped = skipped
	audit.RedactionSummary.ProcessingTime = time.Since(start)

	finishTiming(true, map[string]interface{}{
		"redacted": len(kept),
		"skipped":  skipped,
		"unique":   len(mapping),
	})
	return &ExportResult{Document: out, Mapping: mapping, Audit: audit, Redacted: len(kept), Skipped: skipped}, nil
}

// selectTargets drops targets that do not fit the page text and those
// overlapping an earlier target, and sorts the rest in page and text order
func (e *Exporter) selectTargets(doc *document.Document, targets []Target, errs *RedactionErrorCollection) ([]Target, int) {
	valid := make([]Target, 0, len(targets))
	for _, t := range targets {
		if err := checkTarget(doc, t.Location); err != nil {
			if errs != nil {
				errs.AddError(ErrorPositionMapping, "location does not fit the page text", doc.Name, "exporter", err)
			}
			continue
		}
		valid = append(valid, t)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		a, b := valid[i].Location, valid[j].Location
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Match.Start != b.Match.Start {
			return a.Match.Start < b.Match.Start
		}
		if a.Match.End != b.Match.End {
			return a.Match.End > b.Match.End
		}
		return a.TextSpan.Start < b.TextSpan.Start
	})

	var kept []Target
	skipped := 0
	for _, t := range valid {
		if conflicts(kept, t.Location) {
			skipped++
			continue
		}
		kept = append(kept, t)
	}
	return kept, skipped
}

// conflicts reports whether loc overlaps a kept location on the same page.
// Locations of one occurrence share a Match and never overlap each other.
func conflicts(kept []Target, loc detector.Location) bool {
	for i := len(kept) - 1; i >= 0; i-- {
		k := kept[i].Location
		if k.Page != loc.Page {
			break
		}
		if k.TextSpan.Overlaps(loc.TextSpan) {
			return true
		}
		if k.Match != loc.Match && k.Match.Overlaps(loc.Match) {
			return true
		}
	}
	return false
}

func checkTarget(doc *document.Document, loc detector.Location) error {
	if loc.Page < 0 || loc.Page >= len(doc.Pages) {
		return fmt.Errorf("page %d out of range", loc.Page)
	}
	n := len(doc.Pages[loc.Page].Text)
	m, s := loc.Match, loc.TextSpan
	if m.Start < 0 || m.End > n || m.Start >= m.End {
		return fmt.Errorf("match %d-%d outside page text of %d bytes", m.Start, m.End, n)
	}
	if s.Start < m.Start || s.End > m.End || s.Start >= s.End {
		return fmt.Errorf("text span %d-%d outside match %d-%d", s.Start, s.End, m.Start, m.End)
	}
	if document.Area(loc.Rect) == 0 {
		return fmt.Errorf("empty rectangle")
	}
	return nil
}

// segment returns the runes of placeholder that line up with span inside match
func segment(text string, match, span detector.Span, placeholder string) string {
	offset := utf8.RuneCountInString(text[match.Start:span.Start])
	n := utf8.RuneCountInString(text[span.Start:span.End])
	runes := []rune(placeholder)
	if offset >= len(runes) {
		return ""
	}
	return string(runes[offset:min(len(runes), offset+n)])
}

// overlay writes replacement over original rune by rune, keeping line and
// page breaks so the page layout is unchanged
func overlay(original, replacement string) string {
	rep := []rune(replacement)
	var b strings.Builder
	i := 0
	for _, r := range original {
		switch {
		case r == '\n' || r == '\r' || r == '\f':
			b.WriteRune(r)
		case i < len(rep):
			b.WriteRune(rep[i])
		default:
			b.WriteRune(placeholder.Filler)
		}
		i++
	}
	return b.String()
}

// applyEdits rewrites the page text and moves every word onto the new text.
// Edits must be sorted and must not overlap.
func applyEdits(p *document.Page, edits []edit) {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var b strings.Builder
	last := 0
	for _, ed := range edits {
		b.WriteString(p.Text[last:ed.start])
		b.WriteString(ed.replacement)
		last = ed.end
	}
	b.WriteString(p.Text[last:])
	oldText, newText := p.Text, b.String()

	for i := range p.Words {
		w := &p.Words[i]
		w.Span = detector.Span{
			Start: mapOffset(oldText, edits, w.Span.Start),
			End:   mapOffset(oldText, edits, w.Span.End),
		}
		if w.Span.Start >= 0 && w.Span.End <= len(newText) && w.Span.Start <= w.Span.End {
			w.Text = newText[w.Span.Start:w.Span.End]
		}
	}
	p.Text = newText
}

// mapOffset translates a byte offset of the old text into the new text
func mapOffset(old string, edits []edit, x int) int {
	delta := 0
	for _, ed := range edits {
		if x >= ed.end {
			delta += len(ed.replacement) - (ed.end - ed.start)
			continue
		}
		if x <= ed.start {
			break
		}
		k := utf8.RuneCountInString(old[ed.start:x])
		return ed.start + delta + runeOffset(ed.replacement, k)
	}
	return x + delta
}

// runeOffset returns the byte offset of the k-th rune of s
func runeOffset(s string, k int) int {
	for i := range s {
		if k == 0 {
			return i
		}
		k--
	}
	return len(s)
}

// resetMetadata replaces identifying metadata with neutral values
func resetMetadata(m *document.Metadata) []MetadataRedaction {
	var out []MetadataRedaction
	reset := func(field string, v *string, neutral string) {
		if *v == "" || *v == neutral {
			return
		}
		*v = neutral
		action := "removed"
		if neutral != "" {
			action = "replaced"
		}
		out = append(out, MetadataRedaction{Field: field, RedactedValue: neutral, Action: action})
	}
	reset("title", &m.Title, "")
	reset("author", &m.Author, "")
	reset("creator", &m.Creator, "")
	reset("producer", &m.Producer, NeutralProducer)
	reset("creation_date", &m.CreationDate, "")
	reset("mod_date", &m.ModDate, "")

	keys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, MetadataRedaction{Field: k, Action: "removed"})
	}
	m.Extra = nil
	return out
}

func documentID(doc *document.Document) string {
	var b strings.Builder
	b.WriteString(doc.Name)
	for _, p := range doc.Pages {
		b.WriteString("\f")
		b.WriteString(p.Text)
	}
	return GenerateDocumentHash([]byte(b.String()))[:16]
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
