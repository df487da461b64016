// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pattern

import (
	"regexp"
	"strings"

	"lexredact/internal/detector"
)

type emailRecognizer struct {
	regex *regexp.Regexp
}

func newEmailRecognizer() *emailRecognizer {
	return &emailRecognizer{
		regex: regexp.MustCompile(`(?i)\b[A-Z0-9][A-Z0-9._%+\-]*@[A-Z0-9](?:[A-Z0-9\-]*[A-Z0-9])?(?:\.[A-Z0-9](?:[A-Z0-9\-]*[A-Z0-9])?)*\.[A-Z]{2,24}\b`),
	}
}

func (r *emailRecognizer) entityType() detector.EntityType { return detector.TypeEmail }

func (r *emailRecognizer) find(text string, _ *detector.ContextExtractor) []detector.Candidate {
	var out []detector.Candidate
	for _, loc := range r.regex.FindAllStringIndex(text, -1) {
		addr := text[loc[0]:loc[1]]
		local := addr[:strings.IndexByte(addr, '@')]
		if strings.Contains(local, "..") || strings.HasSuffix(local, ".") {
			continue
		}
		checks := map[string]bool{
			"pec": strings.Contains(strings.ToLower(addr), "pec."),
		}
		out = append(out, newCandidate(detector.TypeEmail, text, loc[0], loc[1], 0.98, checks))
	}
	return out
}
