// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pattern

import (
	"regexp"
	"strings"

	"lexredact/internal/detector"
)

// ibanLengths holds the national IBAN lengths for the countries most often
// seen in Italian filings. Other countries fall back to mod-97 over the whole
// match.
var ibanLengths = map[string]int{
	"IT": 27, "SM": 27, "VA": 22, "DE": 22, "FR": 27, "ES": 24, "GB": 22,
	"CH": 21, "AT": 20, "BE": 16, "NL": 18, "PT": 25, "IE": 22, "LU": 20,
	"MT": 31, "GR": 27, "PL": 28, "RO": 24, "SI": 19, "HR": 21, "MC": 27,
}

type ibanRecognizer struct {
	regex            *regexp.Regexp
	positiveKeywords []string
}

func newIBANRecognizer() *ibanRecognizer {
	return &ibanRecognizer{
		regex:            regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:[ ]?[A-Z0-9]){11,30}\b`),
		positiveKeywords: []string{"iban", "conto corrente", "c/c", "bonifico", "coordinate bancarie", "bank account"},
	}
}

func (r *ibanRecognizer) entityType() detector.EntityType { return detector.TypeIBAN }

func (r *ibanRecognizer) find(text string, ce *detector.ContextExtractor) []detector.Candidate {
	var out []detector.Candidate
	for _, loc := range r.regex.FindAllStringIndex(text, -1) {
		start, end, ok := trimIBAN(text, loc[0], loc[1])
		if !ok {
			continue
		}
		checks := map[string]bool{
			"checksum": true,
			"context":  ce.Extract(text, detector.Span{Start: start, End: end}).HasKeyword(r.positiveKeywords),
		}
		score := 0.97
		if checks["context"] {
			score = 0.99
		}
		out = append(out, newCandidate(detector.TypeIBAN, text, start, end, score, checks))
	}
	return out
}

// trimIBAN cuts a greedy match down to the national length so trailing
// uppercase words are not swallowed, then validates mod-97.
func trimIBAN(text string, start, end int) (int, int, bool) {
	match := text[start:end]
	want, known := ibanLengths[match[:2]]
	if !known {
		compact := strings.ReplaceAll(match, " ", "")
		return start, end, len(compact) >= 15 && len(compact) <= 34 && ibanMod97(compact)
	}

	var compact strings.Builder
	cut := -1
	for i := 0; i < len(match); i++ {
		if match[i] == ' ' {
			continue
		}
		compact.WriteByte(match[i])
		if compact.Len() == want {
			cut = i + 1
			break
		}
	}
	if cut < 0 {
		return 0, 0, false
	}
	// the cut must fall on a word boundary
	if cut < len(match) && match[cut] != ' ' {
		return 0, 0, false
	}
	return start, start + cut, ibanMod97(compact.String())
}

// ibanMod97 rotates the country code and check digits to the end and
// computes the remainder digit by digit.
func ibanMod97(iban string) bool {
	if len(iban) < 5 {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	rem := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return false
		}
	}
	return rem == 1
}
