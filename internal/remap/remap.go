// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package remap records how a text transformation moved byte offsets so that
// spans found in the transformed text can be translated back to the source.
// Tables are immutable once built and safe to share between goroutines.
package remap

// Edit is one non-identity region of a transformation. Regions between
// edits map one to one.
type Edit struct {
	Orig     int `json:"orig"`
	Trans    int `json:"trans"`
	OrigLen  int `json:"orig_len"`
	TransLen int `json:"trans_len"`

	// Original and Replacement are kept for rewrites; deletions leave them empty
	Original    string `json:"original,omitempty"`
	Replacement string `json:"replacement,omitempty"`
}

// Delta is the change in length introduced by the edit
func (e Edit) Delta() int { return e.TransLen - e.OrigLen }

// Table is an ordered list of edits, monotonic in both offsets
type Table struct {
	edits    []Edit
	origLen  int
	transLen int
}

// Identity returns a table for a transformation that changed nothing
func Identity(n int) *Table {
	return &Table{origLen: n, transLen: n}
}

// Edits returns a copy of the recorded edits
func (t *Table) Edits() []Edit {
	out := make([]Edit, len(t.edits))
	copy(out, t.edits)
	return out
}

// OriginalLen is the length of the source text
func (t *Table) OriginalLen() int { return t.origLen }

// TransformedLen is the length of the transformed text
func (t *Table) TransformedLen() int { return t.transLen }

// ToOriginal maps a start offset in the transformed text to the source text.
// An offset that lands on a deleted region maps past the deletion.
func (t *Table) ToOriginal(pos int) int {
	delta := 0
	for _, e := range t.edits {
		if e.Trans > pos {
			break
		}
		if pos < e.Trans+e.TransLen {
			return e.Orig + min(pos-e.Trans, e.OrigLen)
		}
		delta += e.OrigLen - e.TransLen
	}
	return clamp(pos+delta, 0, t.origLen)
}

// ToTransformed maps a source offset forward. An offset inside a rewritten
// or deleted region maps into (or to the end of) its replacement.
func (t *Table) ToTransformed(pos int) int {
	delta := 0
	for _, e := range t.edits {
		if e.Orig > pos {
			break
		}
		if pos < e.Orig+e.OrigLen {
			return e.Trans + min(pos-e.Orig, e.TransLen)
		}
		delta += e.TransLen - e.OrigLen
	}
	return clamp(pos+delta, 0, t.transLen)
}

// endToOriginal maps an exclusive end offset. A deletion starting exactly at
// end is not included in the result.
func (t *Table) endToOriginal(end int) int {
	delta := 0
	for _, e := range t.edits {
		if e.Trans >= end {
			break
		}
		if end <= e.Trans+e.TransLen {
			if end == e.Trans+e.TransLen {
				return e.Orig + e.OrigLen
			}
			return e.Orig + min(end-e.Trans, e.OrigLen)
		}
		delta += e.OrigLen - e.TransLen
	}
	return clamp(end+delta, 0, t.origLen)
}

// SpanToOriginal maps the half-open span [start, end) back to the source text
func (t *Table) SpanToOriginal(start, end int) (int, int) {
	s := t.ToOriginal(start)
	if end <= start {
		return s, s
	}
	e := t.endToOriginal(end)
	if e < s {
		e = s
	}
	return s, e
}

// Chain composes tables applied in order: Chain{a, b} describes a
// transformation a followed by b.
type Chain []*Table

// SpanToOriginal translates a span from the final text back through every
// table to the first source text.
func (c Chain) SpanToOriginal(start, end int) (int, int) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i] == nil {
			continue
		}
		start, end = c[i].SpanToOriginal(start, end)
	}
	return start, end
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Builder accumulates a transformation left to right
type Builder struct {
	edits []Edit
	orig  int
	trans int
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Keep copies n bytes unchanged
func (b *Builder) Keep(n int) {
	b.orig += n
	b.trans += n
}

// Replace records original rewritten as replacement
func (b *Builder) Replace(original, replacement string) {
	if original == replacement {
		b.Keep(len(original))
		return
	}
	b.edits = append(b.edits, Edit{
		Orig:        b.orig,
		Trans:       b.trans,
		OrigLen:     len(original),
		TransLen:    len(replacement),
		Original:    original,
		Replacement: replacement,
	})
	b.orig += len(original)
	b.trans += len(replacement)
}

// Delete records n source bytes dropped from the output
func (b *Builder) Delete(n int) {
	if n <= 0 {
		return
	}
	if last := len(b.edits) - 1; last >= 0 {
		prev := &b.edits[last]
		if prev.TransLen == 0 && prev.Orig+prev.OrigLen == b.orig {
			prev.OrigLen += n
			b.orig += n
			return
		}
	}
	b.edits = append(b.edits, Edit{Orig: b.orig, Trans: b.trans, OrigLen: n})
	b.orig += n
}

// Table freezes the builder into an immutable table
func (b *Builder) Table() *Table {
	edits := make([]Edit, len(b.edits))
	copy(edits, b.edits)
	return &Table{edits: edits, origLen: b.orig, transLen: b.trans}
}
