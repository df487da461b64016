// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package placeholder assigns the layout-preserving replacement text written
// in place of redacted entities.
package placeholder

import (
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"lexredact/internal/detector"
	"lexredact/internal/security"
)

// Filler pads a placeholder to the length of the text it replaces
const Filler = '_'

// typeCodes are the short codes shown inside placeholders
var typeCodes = map[detector.EntityType]string{
	detector.TypePerson:       "PER",
	detector.TypeOrganization: "ORG",
	detector.TypeLocation:     "LOC",
	detector.TypeDate:         "DATA",
	detector.TypeEmail:        "MAIL",
	detector.TypePhone:        "TEL",
	detector.TypeFiscalCode:   "CF",
	detector.TypeVATNumber:    "PIVA",
	detector.TypeIBAN:         "IBAN",
	detector.TypeCreditCard:   "CC",
	detector.TypeAddress:      "IND",
	detector.TypeCustom:       "RIS",
}

// blockGlyphs are the Unicode block elements U+2580 to U+259F, used as
// base-32 digits when no bracketed form fits
var blockGlyphs = func() []rune {
	out := make([]rune, 0, 32)
	for r := rune(0x2580); r <= 0x259F; r++ {
		out = append(out, r)
	}
	return out
}()

// Code returns the placeholder code for t
func Code(t detector.EntityType) string {
	if c, ok := typeCodes[t]; ok {
		return c
	}
	return "RED"
}

// Stem returns the minimal placeholder for the n-th entity of type t
func Stem(t detector.EntityType, n int) string {
	return "[" + Code(t) + strconv.Itoa(n) + "]"
}

// Fit stretches stem to exactly length runes by padding before the closing
// bracket. When stem is longer than length it returns the block-glyph
// encoding of seq instead, and fallback is true.
func Fit(stem string, seq, length int) (placeholder string, fallback bool) {
	if length <= 0 {
		return "", false
	}
	n := utf8.RuneCountInString(stem)
	if n <= length {
		return stem[:len(stem)-1] + strings.Repeat(string(Filler), length-n) + "]", false
	}
	return Blocks(seq, length), true
}

// Blocks writes seq in base 32 using block glyphs, left-padded to length.
// Values that need more than length digits keep their low digits, so
// distinctness holds for seq below 32^length.
func Blocks(seq, length int) string {
	digits := make([]rune, length)
	for i := length - 1; i >= 0; i-- {
		digits[i] = blockGlyphs[seq%32]
		seq /= 32
	}
	return string(digits)
}

// Record is one row of the mapping table
type Record struct {
	Seq         int                    `json:"seq" yaml:"seq"`
	Type        detector.EntityType    `json:"type" yaml:"type"`
	Original    *security.SecureString `json:"original" yaml:"original"`
	Placeholder string                 `json:"placeholder" yaml:"placeholder"`
	Fallback    bool                   `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	Occurrences int                    `json:"occurrences" yaml:"occurrences"`

	stem string
}

// Assigner hands out placeholders for one export run. Entities are keyed by
// type and normalized text; every occurrence of a key shares the same stem,
// fitted to that occurrence's own length.
type Assigner struct {
	mu       sync.Mutex
	byKey    map[string]*Record
	counters map[detector.EntityType]int
	records  []*Record
}

// NewAssigner creates an empty assigner
func NewAssigner() *Assigner {
	return &Assigner{
		byKey:    make(map[string]*Record),
		counters: make(map[detector.EntityType]int),
	}
}

// Assign returns the placeholder for one occurrence of text
func (a *Assigner) Assign(t detector.EntityType, text string) string {
	key := string(t) + "\x00" + detector.NormalizeText(text)

	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.byKey[key]
	if !ok {
		a.counters[t]++
		rec = &Record{
			Seq:      len(a.records) + 1,
			Type:     t,
			Original: security.NewSecureString(text),
			stem:     Stem(t, a.counters[t]),
		}
		rec.Placeholder, rec.Fallback = Fit(rec.stem, rec.Seq, utf8.RuneCountInString(text))
		a.byKey[key] = rec
		a.records = append(a.records, rec)
	}
	rec.Occurrences++
	p, _ := Fit(rec.stem, rec.Seq, utf8.RuneCountInString(text))
	return p
}

// Records returns the mapping rows in first-seen order
func (a *Assigner) Records() []*Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Record, len(a.records))
	copy(out, a.records)
	return out
}

// Clear scrubs every original held by the assigner
func (a *Assigner) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.records {
		r.Original.Clear()
	}
}
