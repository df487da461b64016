// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pattern

import (
	"regexp"

	"lexredact/internal/detector"
)

type vatRecognizer struct {
	regex            *regexp.Regexp
	positiveKeywords []string
}

func newVATRecognizer() *vatRecognizer {
	return &vatRecognizer{
		regex: regexp.MustCompile(`\b(?:IT[ ]?)?\d{11}\b`),
		positiveKeywords: []string{
			"partita iva", "p.iva", "p. iva", "p.i.", "iva", "vat", "codice fiscale e partita",
		},
	}
}

func (r *vatRecognizer) entityType() detector.EntityType { return detector.TypeVATNumber }

func (r *vatRecognizer) find(text string, ce *detector.ContextExtractor) []detector.Candidate {
	var out []detector.Candidate
	for _, loc := range r.regex.FindAllStringIndex(text, -1) {
		digits := onlyDigits(text[loc[0]:loc[1]])
		checks := map[string]bool{
			"checksum": vatChecksumValid(digits),
			"context":  ce.Extract(text, detector.Span{Start: loc[0], End: loc[1]}).HasKeyword(r.positiveKeywords),
			"prefix":   loc[1]-loc[0] > 11,
		}

		var score float64
		switch {
		case checks["checksum"] && (checks["context"] || checks["prefix"]):
			score = 0.98
		case checks["checksum"]:
			score = 0.93
		case checks["context"]:
			// right shape, wrong check digit: clears the VAT threshold at maximum depth only
			score = 0.72
		default:
			continue
		}
		if allSameDigit(digits) {
			continue
		}
		out = append(out, newCandidate(detector.TypeVATNumber, text, loc[0], loc[1], score, checks))
	}
	return out
}

// vatChecksumValid verifies the Italian partita IVA control digit
func vatChecksumValid(digits string) bool {
	if len(digits) != 11 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		d := int(digits[i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return int(digits[10]-'0') == (10-sum%10)%10
}

func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
