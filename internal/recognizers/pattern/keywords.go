// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pattern

import (
	"context"
	"regexp"
	"strings"

	"lexredact/internal/detector"
)

// KeywordBackend emits a CUSTOM candidate for every whole-word occurrence of
// a user supplied keyword. These candidates are never dropped by the allow
// list.
type KeywordBackend struct {
	keywords []keywordPattern
}

type keywordPattern struct {
	keyword string
	regex   *regexp.Regexp
}

// NewKeywordBackend compiles the force-include keywords. Blank keywords are ignored.
func NewKeywordBackend(keywords []string) *KeywordBackend {
	kb := &KeywordBackend{}
	seen := make(map[string]bool)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		key := detector.NormalizeText(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		kb.keywords = append(kb.keywords, keywordPattern{keyword: kw, regex: phraseRegex(kw)})
	}
	return kb
}

// phraseRegex matches phrase as whole words, case-insensitively, with any
// whitespace run between its words.
func phraseRegex(phrase string) *regexp.Regexp {
	parts := strings.Fields(phrase)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	expr := `(?i)(?:^|[^\p{L}\p{N}])(` + strings.Join(parts, `\s+`) + `)(?:$|[^\p{L}\p{N}])`
	return regexp.MustCompile(expr)
}

// Occurrences returns the spans of every whole-word occurrence of phrase in
// text, ignoring case and whitespace differences.
func Occurrences(text, phrase string) []detector.Span {
	if strings.TrimSpace(phrase) == "" {
		return nil
	}
	return findAll(phraseRegex(phrase), text)
}

func findAll(re *regexp.Regexp, text string) []detector.Span {
	var spans []detector.Span
	for offset := 0; offset < len(text); {
		m := re.FindStringSubmatchIndex(text[offset:])
		if m == nil {
			break
		}
		spans = append(spans, detector.Span{Start: offset + m[2], End: offset + m[3]})
		// the trailing boundary character may start the next match
		offset += m[3]
	}
	return spans
}

// Empty reports whether no keyword is configured
func (kb *KeywordBackend) Empty() bool { return len(kb.keywords) == 0 }

func (kb *KeywordBackend) Name() string { return detector.SourceKeyword }

func (kb *KeywordBackend) Kind() string { return detector.SourcePattern }

// Detect finds every keyword occurrence, overlapping matches included
func (kb *KeywordBackend) Detect(ctx context.Context, text string) ([]detector.Candidate, error) {
	var out []detector.Candidate
	for _, kp := range kb.keywords {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, sp := range findAll(kp.regex, text) {
			c := detector.Candidate{
				Type:     detector.TypeCustom,
				Text:     text[sp.Start:sp.End],
				Score:    1.0,
				Source:   detector.SourceKeyword,
				Metadata: map[string]any{"keyword": kp.keyword},
			}
			out = append(out, c.WithSpan(sp.Start, sp.End))
		}
	}
	sortBySpan(out)
	return out, nil
}
