// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexredact/internal/detector"
)

func at(typ detector.EntityType, text string, start int, score float64, source string) detector.Candidate {
	return detector.Candidate{Type: typ, Text: text, Score: score, Source: source}.WithSpan(start, start+len(text))
}

func texts(cands []detector.Candidate) []string {
	var out []string
	for _, c := range cands {
		out = append(out, c.Text)
	}
	return out
}

func TestMergeHigherScoreWins(t *testing.T) {
	fresh := []detector.Candidate{
		at(detector.TypeLocation, "Mario Rossi", 8, 0.76, "statistical"),
		at(detector.TypePerson, "Mario Rossi", 8, 0.97, "statistical"),
		at(detector.TypePerson, "Rossi", 14, 0.85, "transformer"),
		at(detector.TypeFiscalCode, "RSSMRA85C15H501X", 24, 0.92, "pattern"),
	}
	got := Merge(nil, fresh)
	require.Len(t, got, 2)
	assert.Equal(t, detector.TypePerson, got[0].Type)
	assert.Equal(t, detector.TypeFiscalCode, got[1].Type)
}

func TestMergeLearnedWins(t *testing.T) {
	learned := []detector.Candidate{at(detector.TypePerson, "Rossi", 14, 0.5, detector.SourceLearned)}
	fresh := []detector.Candidate{at(detector.TypePerson, "Mario Rossi", 8, 0.99, "statistical")}

	got := Merge(learned, fresh)
	require.Len(t, got, 1)
	assert.Equal(t, "Rossi", got[0].Text)
	assert.Equal(t, detector.SourceLearned, got[0].Source)
}

func TestMergePagesAreIndependent(t *testing.T) {
	a := at(detector.TypePerson, "Mario Rossi", 0, 0.9, "statistical")
	b := a
	b.Page = 1
	got := Merge(nil, []detector.Candidate{b, a})
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Page)
	assert.Equal(t, 1, got[1].Page)
}

func TestMergeSpanlessByText(t *testing.T) {
	fresh := []detector.Candidate{
		{Type: detector.TypePerson, Text: "Mario Rossi", Score: 0.9, Source: detector.SourceInjected},
		{Type: detector.TypePerson, Text: "MARIO  ROSSI", Score: 0.8, Source: detector.SourceInjected},
		{Type: detector.TypePerson, Text: "  ", Score: 0.8, Source: detector.SourceInjected},
		at(detector.TypePerson, "Mario Rossi", 0, 0.95, "statistical"),
	}
	got := Merge(nil, fresh)
	assert.Equal(t, []string{"Mario Rossi", "Mario Rossi"}, texts(got))
	assert.NotNil(t, got[0].Span)
	assert.Nil(t, got[1].Span)
	assert.InDelta(t, 0.9, got[1].Score, 1e-9)
}

func TestMergeIdempotent(t *testing.T) {
	fresh := []detector.Candidate{
		at(detector.TypePerson, "Giulia Bianchi", 30, 0.91, "statistical"),
		at(detector.TypePerson, "Bianchi", 37, 0.88, "transformer"),
		at(detector.TypeEmail, "g.bianchi@pec.it", 50, 0.98, "pattern"),
		at(detector.TypeDate, "1 marzo 2020", 5, 0.92, "statistical"),
		{Type: detector.TypeOrganization, Text: "Beta Srl", Score: 0.9, Source: detector.SourceInjected},
	}
	learned := []detector.Candidate{at(detector.TypePerson, "Giulia", 30, 1, detector.SourceLearned)}

	once := Merge(learned, fresh)
	assert.Equal(t, once, Merge(once, once))
	assert.Equal(t, once, Merge(nil, once))
}

func TestMergeOrderIndependent(t *testing.T) {
	a := at(detector.TypePerson, "Anna Neri", 0, 0.9, "statistical")
	b := at(detector.TypeOrganization, "Anna Neri", 0, 0.9, "transformer")
	c := at(detector.TypeLocation, "Neri", 5, 0.9, "statistical")

	first := Merge(nil, []detector.Candidate{a, b, c})
	second := Merge(nil, []detector.Candidate{c, b, a})
	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.Equal(t, detector.TypeOrganization, first[0].Type)
}
