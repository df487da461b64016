// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pattern

import (
	"regexp"

	"lexredact/internal/detector"
)

type phonePattern struct {
	kind  string
	regex *regexp.Regexp
	score float64
}

type phoneRecognizer struct {
	patterns         []phonePattern
	positiveKeywords []string
	negativeKeywords []string
}

func newPhoneRecognizer() *phoneRecognizer {
	return &phoneRecognizer{
		patterns: []phonePattern{
			// +39 06 1234567, 0039 333 1234567, +44 20 7946 0958
			{"international", regexp.MustCompile(`(?:\+|\b00)\d{1,3}[ .-]?\(?\d{1,4}\)?(?:[ .-]?\d{2,4}){2,4}\b`), 0.93},
			// 333 1234567, 333-123-4567, 3331234567
			{"mobile", regexp.MustCompile(`\b3\d{2}[ .-]?\d{3}[ .-]?\d{3,4}\b`), 0.92},
			// 06 1234567, 02/12345678, 011-123-4567
			{"landline", regexp.MustCompile(`\b0\d{1,3}[ ./-]?\d{3,4}[ .-]?\d{3,4}\b`), 0.88},
		},
		positiveKeywords: []string{
			"tel", "telefono", "cell", "cellulare", "mobile", "phone", "fax", "recapito", "contatto", "chiamare",
		},
		negativeKeywords: []string{
			"r.g.", "rg n", "prot.", "protocollo", "iban", "p.iva", "partita iva", "c.f.", "codice fiscale",
			"sentenza n", "n. ruolo", "repertorio", "art.", "euro", "€",
		},
	}
}

func (r *phoneRecognizer) entityType() detector.EntityType { return detector.TypePhone }

func (r *phoneRecognizer) find(text string, ce *detector.ContextExtractor) []detector.Candidate {
	var out []detector.Candidate
	var taken []detector.Span
	for _, p := range r.patterns {
	next:
		for _, loc := range p.regex.FindAllStringIndex(text, -1) {
			span := detector.Span{Start: loc[0], End: loc[1]}
			for _, t := range taken {
				if t.Overlaps(span) {
					continue next
				}
			}
			digits := onlyDigits(text[loc[0]:loc[1]])
			if len(digits) < 8 || len(digits) > 15 || allSameDigit(digits) {
				continue
			}
			// a VAT number or card number is not a phone number
			if p.kind != "international" && len(digits) == 11 && !hasSeparator(text[loc[0]:loc[1]]) {
				continue
			}

			info := ce.Extract(text, span)
			checks := map[string]bool{
				p.kind:    true,
				"context": info.HasKeyword(r.positiveKeywords),
			}
			score := p.score
			if checks["context"] {
				score += 0.06
			}
			if info.HasKeyword(r.negativeKeywords) {
				score -= 0.30
			}
			taken = append(taken, span)
			out = append(out, newCandidate(detector.TypePhone, text, loc[0], loc[1], score, checks))
		}
	}
	return out
}

func hasSeparator(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '.', '-', '/':
			return true
		}
	}
	return false
}
