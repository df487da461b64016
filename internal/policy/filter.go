// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"regexp"

	"lexredact/internal/detector"
)

// Drop reasons reported by Apply
const (
	ReasonThreshold = "threshold"
	ReasonAllowList = "allow-list"
	ReasonDenyList  = "deny-list"
)

// Rules is an external source of allow and deny decisions, such as a lists
// file maintained by reviewers.
type Rules interface {
	Allowed(t detector.EntityType, text string) bool
	Denied(t detector.EntityType, text string) bool
}

// Options configures a Filter
type Options struct {
	// Allow is added to DefaultAllow unless NoDefaults is set
	Allow []string

	// DenyPatterns are regular expressions matched against the entity text
	DenyPatterns []string

	// DeniedTexts are texts reviewers rejected earlier
	DeniedTexts []string

	Rules      Rules
	NoDefaults bool
}

// Filter applies thresholds, then the allow and deny lists
type Filter struct {
	allow  map[string]bool
	deny   []*regexp.Regexp
	denied map[string]bool
	rules  Rules
}

// Result is the outcome of Apply
type Result struct {
	Kept         []detector.Candidate
	DocumentType DocumentType

	// Dropped counts removed candidates by reason
	Dropped map[string]int
}

// New compiles a filter
func New(opts Options) (*Filter, error) {
	f := &Filter{
		allow:  make(map[string]bool),
		denied: make(map[string]bool),
		rules:  opts.Rules,
	}

	allow := opts.Allow
	patterns := opts.DenyPatterns
	if !opts.NoDefaults {
		allow = append(append([]string{}, DefaultAllow...), allow...)
		patterns = append(append([]string{}, DefaultDenyPatterns...), patterns...)
	}
	for _, a := range allow {
		if key := detector.NormalizeText(a); key != "" {
			f.allow[key] = true
		}
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", p, err)
		}
		f.deny = append(f.deny, re)
	}
	for _, d := range opts.DeniedTexts {
		f.denied[detector.NormalizeText(d)] = true
	}
	return f, nil
}

// Allowed reports whether text is on the allow list
func (f *Filter) Allowed(t detector.EntityType, text string) bool {
	if f.allow[detector.NormalizeText(text)] {
		return true
	}
	return f.rules != nil && f.rules.Allowed(t, text)
}

// Denied reports whether text is a known false positive
func (f *Filter) Denied(t detector.EntityType, text string) bool {
	if f.denied[detector.NormalizeText(text)] {
		return true
	}
	for _, re := range f.deny {
		if re.MatchString(text) {
			return true
		}
	}
	return f.rules != nil && f.rules.Denied(t, text)
}

// Apply keeps the entities whose score reaches the combined threshold and
// that neither list removes. An empty docType is detected from text.
// Force-included keyword candidates are exempt from the allow list.
func (f *Filter) Apply(entities []detector.Candidate, text string, docType DocumentType, depth detector.Depth) Result {
	if docType == "" {
		docType = DetectDocumentType(text).Type
	}
	res := Result{DocumentType: docType, Dropped: make(map[string]int)}

	for _, c := range entities {
		if c.Score < Threshold(c.Type, docType, depth) {
			res.Dropped[ReasonThreshold]++
			continue
		}
		if c.Source != detector.SourceKeyword && f.Allowed(c.Type, c.Text) {
			res.Dropped[ReasonAllowList]++
			continue
		}
		if f.Denied(c.Type, c.Text) {
			res.Dropped[ReasonDenyList]++
			continue
		}
		res.Kept = append(res.Kept, c)
	}
	return res
}
