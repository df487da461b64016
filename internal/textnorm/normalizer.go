// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package textnorm rewrites ALL-CAPS runs into capitalized form before
// recognition and records every rewrite so spans can be mapped back.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"lexredact/internal/remap"
)

// DefaultAcronyms are kept verbatim even inside an ALL-CAPS run
var DefaultAcronyms = []string{
	"SPA", "S.P.A", "SRL", "S.R.L", "SNC", "SAS", "SS", "ONLUS",
	"IVA", "CF", "IBAN", "BIC", "SWIFT", "PEC", "INPS", "INAIL", "ASL", "USL",
	"TAR", "CDS", "TRIB", "CC", "CPC", "CPP", "DPR", "DL", "DLGS", "LGS",
	"UE", "EU", "USA", "UK", "ONU", "NATO", "ISTAT", "ISO", "GDPR", "RG", "NRG",
	"LLC", "LTD", "INC", "PLC", "GMBH", "AG", "NV", "BV", "SA",
}

// email-like token, matched case-insensitively
var emailToken = regexp.MustCompile(`(?i)^[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}$`)

// Normalizer rewrites ALL-CAPS runs. It is immutable and safe for concurrent use.
type Normalizer struct {
	acronyms map[string]bool
	minRun   int
}

// New creates a normalizer preserving the given acronyms
func New(acronyms []string) *Normalizer {
	n := &Normalizer{
		acronyms: make(map[string]bool, len(acronyms)),
		minRun:   2,
	}
	for _, a := range acronyms {
		n.acronyms[strings.ToUpper(a)] = true
	}
	return n
}

// NewDefault creates a normalizer with DefaultAcronyms
func NewDefault() *Normalizer {
	return New(DefaultAcronyms)
}

type token struct {
	start, end int
	text       string
}

// Normalize returns the rewritten text and the table mapping it back to text
func (n *Normalizer) Normalize(text string) (string, *remap.Table) {
	tokens := splitTokens(text)
	if len(tokens) == 0 {
		return text, remap.Identity(len(text))
	}

	replacements := make(map[int]string)

	// ALL-CAPS email tokens are lowercased on their own
	for i, tok := range tokens {
		if emailToken.MatchString(tok.text) && isAllCaps(tok.text) {
			replacements[i] = strings.ToLower(tok.text)
		}
	}

	// maximal runs of consecutive ALL-CAPS words, same line
	for i := 0; i < len(tokens); {
		if !n.isCapsWord(tokens[i].text) || replacements[i] != "" {
			i++
			continue
		}
		j := i + 1
		for j < len(tokens) && n.isCapsWord(tokens[j].text) && replacements[j] == "" &&
			!strings.ContainsRune(text[tokens[j-1].end:tokens[j].start], '\n') {
			j++
		}
		if j-i >= n.minRun {
			for k := i; k < j; k++ {
				if n.acronyms[trimPunct(tokens[k].text)] {
					continue
				}
				replacements[k] = capitalize(tokens[k].text)
			}
		}
		i = j
	}

	if len(replacements) == 0 {
		return text, remap.Identity(len(text))
	}

	var out strings.Builder
	out.Grow(len(text))
	b := remap.NewBuilder()
	cursor := 0
	for i, tok := range tokens {
		repl, ok := replacements[i]
		if !ok {
			continue
		}
		out.WriteString(text[cursor:tok.start])
		b.Keep(tok.start - cursor)
		out.WriteString(repl)
		b.Replace(tok.text, repl)
		cursor = tok.end
	}
	out.WriteString(text[cursor:])
	b.Keep(len(text) - cursor)

	return out.String(), b.Table()
}

// isCapsWord reports whether a token is an ALL-CAPS word: at least two
// letters, no lowercase letters. Apostrophes and hyphens may appear inside.
func (n *Normalizer) isCapsWord(tok string) bool {
	letters := 0
	for _, r := range tok {
		switch {
		case unicode.IsLower(r):
			return false
		case unicode.IsUpper(r):
			letters++
		case unicode.IsDigit(r):
			return false
		}
	}
	return letters >= 2
}

func isAllCaps(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}

// capitalize lowercases a word and uppercases the first letter of each
// apostrophe- or hyphen-separated part: D'ANGELO -> D'Angelo.
func capitalize(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	upperNext := true
	for _, r := range word {
		if unicode.IsLetter(r) {
			if upperNext {
				b.WriteRune(unicode.ToUpper(r))
				upperNext = false
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			continue
		}
		b.WriteRune(r)
		upperNext = r == '\'' || r == '’' || r == '-'
	}
	return b.String()
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != '.'
	})
}

// splitTokens splits on whitespace and on punctuation that cannot be part
// of a name or email. Offsets are byte offsets into text.
func splitTokens(text string) []token {
	var tokens []token
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if isTokenRune(r) {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			tokens = append(tokens, trimToken(text, start, i))
			start = -1
		}
		i += size
	}
	if start >= 0 {
		tokens = append(tokens, trimToken(text, start, len(text)))
	}
	out := tokens[:0]
	for _, t := range tokens {
		if t.end > t.start {
			out = append(out, t)
		}
	}
	return out
}

func isTokenRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '\'', '’', '-', '.', '@', '_', '%', '+':
		return true
	}
	return false
}

// trimToken drops trailing dots and hyphens that belong to the sentence
func trimToken(text string, start, end int) token {
	for end > start && (text[end-1] == '.' || text[end-1] == '-') {
		end--
	}
	for start < end && (text[start] == '-' || text[start] == '\'') {
		start++
	}
	return token{start: start, end: end, text: text[start:end]}
}
