// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pattern

import (
	"regexp"
	"strings"

	"lexredact/internal/detector"
)

const (
	addressWithNumber = 0.92
	addressStreetOnly = 0.86
)

type addressRecognizer struct {
	italian *regexp.Regexp
	english *regexp.Regexp
	number  *regexp.Regexp
}

func newAddressRecognizer() *addressRecognizer {
	street := `(?i:via|viale|v\.le|piazza|p\.zza|piazzale|corso|c\.so|largo|vicolo|strada|contrada|localit[àa]|loc\.|lungomare|lungotevere|borgo|salita|vico)`
	word := `\p{Lu}[\p{L}'’.]*`
	connector := `(?:d[aei]\p{L}{0,4}|d['’]|san|santa|s\.)`
	name := `(?:` + word + `|\d{1,2}\s+` + word + `)(?:\s+(?:` + connector + `\s*)?` + word + `){0,4}`
	civic := `(?:,?\s*(?:n\.|nr\.|n°)?\s*\d{1,4}(?:\s*/\s*\p{L}|\p{L}\b)?)?`

	return &addressRecognizer{
		italian: regexp.MustCompile(`\b` + street + `\s+` + name + civic),
		english: regexp.MustCompile(`\b\d{1,5}\s+(?:\p{Lu}\p{L}+\s+){1,3}(?:Street|St\.|Avenue|Ave\.|Road|Rd\.|Boulevard|Blvd\.|Lane|Ln\.|Drive|Dr\.|Court|Ct\.|Way|Place|Pl\.)`),
		number:  regexp.MustCompile(`\d\s*(?:/\s*\p{L}|\p{L})?$`),
	}
}

func (r *addressRecognizer) entityType() detector.EntityType { return detector.TypeAddress }

func (r *addressRecognizer) find(text string, _ *detector.ContextExtractor) []detector.Candidate {
	var out []detector.Candidate
	for _, re := range []*regexp.Regexp{r.italian, r.english} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			start, end := loc[0], trimAddressEnd(text, loc[0], loc[1])
			if end-start < 6 {
				continue
			}
			checks := map[string]bool{
				"civic_number": re == r.english || r.number.MatchString(text[start:end]),
			}
			score := addressStreetOnly
			if checks["civic_number"] {
				score = addressWithNumber
			}
			out = append(out, newCandidate(detector.TypeAddress, text, start, end, score, checks))
		}
	}
	return out
}

// trimAddressEnd drops trailing punctuation and whitespace swallowed by the
// optional groups.
func trimAddressEnd(text string, start, end int) int {
	trimmed := strings.TrimRight(text[start:end], " \t\n,;:")
	// a final dot belongs to the sentence unless it ends an abbreviation such as "n."
	if strings.HasSuffix(trimmed, ".") && !strings.HasSuffix(trimmed, " n.") && !strings.HasSuffix(trimmed, " S.") {
		trimmed = trimmed[:len(trimmed)-1]
	}
	return start + len(trimmed)
}
