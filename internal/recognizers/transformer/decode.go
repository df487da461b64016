// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package transformer

import (
	"math"
	"sort"
	"strings"
)

// span is a decoded entity before it becomes a candidate
type span struct {
	Label string
	Start int
	End   int
	Score float64
	count int
}

// decodeTokens turns per-token logits (row-major, numLabels per token) into
// labelled spans. The span score is the mean softmax probability of its tokens.
func decodeTokens(logits []float32, numLabels int, labels []string, offsets []tokenOffset) []span {
	if numLabels <= 0 || len(labels) == 0 {
		return nil
	}
	tokLabels := make([]string, len(offsets))
	tokScores := make([]float64, len(offsets))
	for i := range offsets {
		base := i * numLabels
		if base+numLabels > len(logits) {
			break
		}
		probs := softmax(logits[base : base+numLabels])
		best := 0
		for j := 1; j < len(probs); j++ {
			if probs[j] > probs[best] {
				best = j
			}
		}
		if best < len(labels) {
			tokLabels[i] = labels[best]
			tokScores[i] = probs[best]
		}
	}
	return entitiesFromTokenLabels(tokLabels, tokScores, offsets)
}

func entitiesFromTokenLabels(labels []string, scores []float64, offsets []tokenOffset) []span {
	var out []span
	var cur *span
	closeSpan := func() {
		if cur != nil {
			cur.Score /= float64(cur.count)
			out = append(out, *cur)
			cur = nil
		}
	}

	for i, lbl := range labels {
		if i >= len(offsets) {
			break
		}
		off := offsets[i]
		if off.Start < 0 || off.End <= off.Start {
			continue
		}
		prefix, typ := splitLabel(lbl)
		if typ == "" || strings.EqualFold(lbl, "O") {
			closeSpan()
			continue
		}
		if prefix == "B" || prefix == "S" || cur == nil || !strings.EqualFold(cur.Label, typ) {
			closeSpan()
			cur = &span{Label: typ, Start: off.Start, End: off.End, Score: scores[i], count: 1}
			continue
		}
		if off.End > cur.End {
			cur.End = off.End
		}
		cur.Score += scores[i]
		cur.count++
	}
	closeSpan()
	return mergeSpans(out)
}

func splitLabel(lbl string) (string, string) {
	lbl = strings.TrimSpace(lbl)
	if lbl == "" {
		return "", ""
	}
	parts := strings.SplitN(lbl, "-", 2)
	if len(parts) == 1 {
		return "", lbl
	}
	return strings.ToUpper(parts[0]), parts[1]
}

// mergeSpans joins overlapping or touching spans of the same label, keeping
// the lower score.
func mergeSpans(in []span) []span {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool {
		if in[i].Start == in[j].Start {
			return in[i].End < in[j].End
		}
		return in[i].Start < in[j].Start
	})
	out := make([]span, 0, len(in))
	cur := in[0]
	for _, s := range in[1:] {
		if s.Start <= cur.End && strings.EqualFold(s.Label, cur.Label) {
			cur.End = max(cur.End, s.End)
			cur.Score = math.Min(cur.Score, s.Score)
			continue
		}
		out = append(out, cur)
		cur = s
	}
	return append(out, cur)
}

func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = math.Exp(float64(v - maxVal))
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
