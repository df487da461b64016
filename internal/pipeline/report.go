// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"sort"
	"time"

	"lexredact/internal/redactors"
)

// ReasonDisabledType counts candidates of a type the configuration turned off
const ReasonDisabledType = "disabled type"

// Report summarizes one run. Counts follow the candidates through the
// stages, so a degraded but completed run can be told apart from a clean one.
type Report struct {
	Document     string `json:"document" yaml:"document"`
	DocumentType string `json:"document_type" yaml:"document_type"`
	Depth        string `json:"depth" yaml:"depth"`
	Pages        int    `json:"pages" yaml:"pages"`

	// Detected counts ensemble and injected candidates before filtering
	Detected int `json:"detected" yaml:"detected"`
	Injected int `json:"injected" yaml:"injected"`

	// Filtered counts dropped candidates by reason
	Filtered map[string]int `json:"filtered" yaml:"filtered"`

	Learned      int `json:"learned" yaml:"learned"`
	Deduplicated int `json:"deduplicated" yaml:"deduplicated"`
	Proposed     int `json:"proposed" yaml:"proposed"`

	// Unresolved entities had no visible location on any page
	Unresolved int `json:"unresolved" yaml:"unresolved"`
	Locations  int `json:"locations" yaml:"locations"`

	// Blocked counts safety rejections by reason
	Blocked map[string]int `json:"blocked" yaml:"blocked"`

	Redacted       int `json:"redacted" yaml:"redacted"`
	Skipped        int `json:"skipped" yaml:"skipped"`
	UniqueEntities int `json:"unique_entities" yaml:"unique_entities"`

	Degraded []string                   `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Errors   []redactors.RedactionError `json:"errors,omitempty" yaml:"errors,omitempty"`
	// ErrorCounts tallies Errors by type name
	ErrorCounts map[string]int `json:"error_counts,omitempty" yaml:"error_counts,omitempty"`

	Outputs  *redactors.OutputPaths `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Duration time.Duration          `json:"duration" yaml:"duration"`
}

func newReport(name string) *Report {
	return &Report{
		Document: name,
		Filtered: make(map[string]int),
		Blocked:  make(map[string]int),
	}
}

// FilteredTotal returns the number of candidates dropped by the filters
func (r *Report) FilteredTotal() int {
	return sum(r.Filtered)
}

// BlockedTotal returns the number of locations the safety checks rejected
func (r *Report) BlockedTotal() int {
	return sum(r.Blocked)
}

// IsDegraded reports whether some capability was lost during the run
func (r *Report) IsDegraded() bool {
	return len(r.Degraded) > 0 || len(r.Errors) > 0
}

// SortedKeys returns the keys of a count map in order
func SortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Report) clone() *Report {
	c := *r
	c.Filtered = copyCounts(r.Filtered)
	c.Blocked = copyCounts(r.Blocked)
	c.Degraded = append([]string(nil), r.Degraded...)
	c.Errors = append([]redactors.RedactionError(nil), r.Errors...)
	c.ErrorCounts = copyCounts(r.ErrorCounts)
	return &c
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
