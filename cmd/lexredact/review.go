// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"lexredact/internal/detector"
	"lexredact/internal/pipeline"
	"lexredact/internal/store"
)

// ReasonReviewer counts candidates a reviewer rejected
const ReasonReviewer = "reviewer"

type decision int

const (
	undecided decision = iota
	keep
	drop
)

// review asks once per distinct entity whether to redact it. Decisions are
// committed to the learned store and the proposal is narrowed to the kept
// candidates. End of input or "a" accepts everything still undecided.
func (a *application) review(ctx context.Context, p *pipeline.Pipeline, proposal *pipeline.Proposal) (*pipeline.Proposal, error) {
	type entity struct {
		sample detector.Candidate
		count  int
	}
	var order []string
	entities := make(map[string]*entity)
	for _, c := range proposal.Candidates {
		key := store.Key(c.Type, c.Text)
		if e, ok := entities[key]; ok {
			e.count++
			continue
		}
		entities[key] = &entity{sample: c, count: 1}
		order = append(order, key)
	}

	in := bufio.NewScanner(a.stdin)
	decisions := make(map[string]decision, len(order))
	acceptRest := false
	for i, key := range order {
		if acceptRest {
			decisions[key] = keep
			continue
		}
		e := entities[key]
		fmt.Fprintf(a.stderr, "[%d/%d] %s %q (%d occurrences, score %.2f, %s) redact? [Y/n/a] ",
			i+1, len(order), e.sample.Type, e.sample.Text, e.count, e.sample.Score, e.sample.Source)
		if !in.Scan() {
			acceptRest = true
			decisions[key] = keep
			fmt.Fprintln(a.stderr)
			continue
		}
		switch strings.ToLower(strings.TrimSpace(in.Text())) {
		case "n", "no":
			decisions[key] = drop
		case "a", "all":
			acceptRest = true
			decisions[key] = keep
		default:
			decisions[key] = keep
		}
	}
	if err := in.Err(); err != nil {
		return nil, fmt.Errorf("reading review input: %w", err)
	}

	var confirmed, denied []detector.Candidate
	var kept []detector.Candidate
	for _, key := range order {
		if decisions[key] == drop {
			denied = append(denied, entities[key].sample)
		} else {
			confirmed = append(confirmed, entities[key].sample)
		}
	}
	for _, c := range proposal.Candidates {
		if decisions[store.Key(c.Type, c.Text)] != drop {
			kept = append(kept, c)
		}
	}

	if err := p.Commit(ctx, confirmed, denied); err != nil {
		return nil, err
	}

	reviewed := *proposal
	reviewed.Candidates = kept
	if n := len(proposal.Candidates) - len(kept); n > 0 {
		proposal.Report.Filtered[ReasonReviewer] += n
	}
	return &reviewed, nil
}
