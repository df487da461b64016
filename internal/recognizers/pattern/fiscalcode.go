// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pattern

import (
	"regexp"
	"strings"

	"lexredact/internal/detector"
)

// Scores for Italian fiscal codes. A code with a wrong check letter is still
// reported above the base threshold since garbled check letters are common
// in scanned filings.
const (
	fiscalCodeStructural = 0.92
	fiscalCodeChecksum   = 0.99
	fiscalCodeKeyword    = 0.02
)

// Omocodia replaces digits with these letters when codes collide
const omocodiaLetters = "LMNPQRSTUV"

var fiscalMonthLetters = "ABCDEHLMPRST"

type fiscalCodeRecognizer struct {
	regex            *regexp.Regexp
	positiveKeywords []string
}

func newFiscalCodeRecognizer() *fiscalCodeRecognizer {
	return &fiscalCodeRecognizer{
		regex: regexp.MustCompile(`(?i)\b[A-Z]{6}[0-9LMNPQRSTUV]{2}[ABCDEHLMPRST][0-9LMNPQRSTUV]{2}[A-Z][0-9LMNPQRSTUV]{3}[A-Z]\b`),
		positiveKeywords: []string{
			"codice fiscale", "cod. fisc", "c.f.", "c.f", "cf", "fiscal code", "tax code",
		},
	}
}

func (r *fiscalCodeRecognizer) entityType() detector.EntityType { return detector.TypeFiscalCode }

func (r *fiscalCodeRecognizer) find(text string, ce *detector.ContextExtractor) []detector.Candidate {
	var out []detector.Candidate
	for _, loc := range r.regex.FindAllStringIndex(text, -1) {
		code := strings.ToUpper(text[loc[0]:loc[1]])
		if !fiscalCodeStructureValid(code) {
			continue
		}
		checks := map[string]bool{
			"structure": true,
			"checksum":  fiscalCodeChecksumValid(code),
			"context":   ce.Extract(text, detector.Span{Start: loc[0], End: loc[1]}).HasKeyword(r.positiveKeywords),
		}
		score := fiscalCodeStructural
		if checks["checksum"] {
			score = fiscalCodeChecksum
		}
		if checks["context"] {
			score += fiscalCodeKeyword
		}
		out = append(out, newCandidate(detector.TypeFiscalCode, text, loc[0], loc[1], score, checks))
	}
	return out
}

// fiscalCodeStructureValid checks the birth-date fields after undoing omocodia
func fiscalCodeStructureValid(code string) bool {
	if len(code) != 16 {
		return false
	}
	if !strings.ContainsRune(fiscalMonthLetters, rune(code[8])) {
		return false
	}
	day := decodeOmocodia(code[9])*10 + decodeOmocodia(code[10])
	if day < 0 {
		return false
	}
	return (day >= 1 && day <= 31) || (day >= 41 && day <= 71)
}

func decodeOmocodia(c byte) int {
	if c >= '0' && c <= '9' {
		return int(c - '0')
	}
	if i := strings.IndexByte(omocodiaLetters, c); i >= 0 {
		return i
	}
	return -100
}

// odd-position values of the fiscal code check algorithm, indexed by 0-9 then A-Z
var fiscalOddValues = [36]int{
	1, 0, 5, 7, 9, 13, 15, 17, 19, 21,
	1, 0, 5, 7, 9, 13, 15, 17, 19, 21, 2, 4, 18, 20, 11, 3, 6, 8, 12, 14, 16, 10, 22, 25, 24, 23,
}

func fiscalCodeChecksumValid(code string) bool {
	sum := 0
	for i := 0; i < 15; i++ {
		c := code[i]
		var idx, even int
		switch {
		case c >= '0' && c <= '9':
			idx = int(c - '0')
			even = idx
		case c >= 'A' && c <= 'Z':
			idx = 10 + int(c-'A')
			even = int(c - 'A')
		default:
			return false
		}
		// positions are 1-based in the algorithm, so index 0 is "odd"
		if i%2 == 0 {
			sum += fiscalOddValues[idx]
		} else {
			sum += even
		}
	}
	return code[15] == byte('A'+sum%26)
}
