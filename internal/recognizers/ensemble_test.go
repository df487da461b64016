// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package recognizers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexredact/internal/detector"
)

type stubBackend struct {
	name  string
	kind  string
	cands []detector.Candidate
	err   error
	panic bool
}

func (s stubBackend) Name() string { return s.name }
func (s stubBackend) Kind() string { return s.kind }
func (s stubBackend) Detect(ctx context.Context, text string) ([]detector.Candidate, error) {
	if s.panic {
		panic("model exploded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.cands, s.err
}

func cand(t detector.EntityType, text string, score float64, source string) detector.Candidate {
	return detector.Candidate{Type: t, Text: text, Score: score, Source: source}.WithSpan(0, len(text))
}

func TestScenarioAEnsemble(t *testing.T) {
	e := New(Options{})
	res, err := e.Detect(context.Background(), "Il sig. Mario Rossi, CF RSSMRA85C15H501X", detector.DepthBalanced)
	require.NoError(t, err)
	assert.Empty(t, res.Degraded)

	byType := map[detector.EntityType]string{}
	for _, c := range res.Candidates {
		byType[c.Type] = c.Text
	}
	assert.Equal(t, "Mario Rossi", byType[detector.TypePerson])
	assert.Equal(t, "RSSMRA85C15H501X", byType[detector.TypeFiscalCode])
}

func TestDepthSelectsTransformers(t *testing.T) {
	tr := stubBackend{name: "transformer", kind: detector.SourceTransformer}
	e := New(Options{Transformers: []detector.Backend{tr}, Keywords: []string{"aurora"}})

	assert.Len(t, e.Backends(detector.DepthFast), 3)
	assert.Len(t, e.Backends(detector.DepthBalanced), 4)
	assert.Len(t, e.Backends(detector.DepthMaximum), 4)
}

func TestTransformerFloor(t *testing.T) {
	tr := stubBackend{
		name: "transformer:a",
		kind: detector.SourceTransformer,
		cands: []detector.Candidate{
			cand(detector.TypePerson, "Anna", 0.70, "transformer:a"),
			cand(detector.TypePerson, "Luisa", 0.60, "transformer:a"),
			cand(detector.TypePerson, "Carla", 0.50, "transformer:a"),
		},
	}
	quiet := stubBackend{name: "quiet", kind: detector.SourcePattern}
	e := New(Options{Transformers: []detector.Backend{tr}, Pattern: quiet, Statistical: quiet})

	tests := []struct {
		depth detector.Depth
		want  int
	}{
		{detector.DepthFast, 0},
		{detector.DepthBalanced, 0},
		{detector.DepthThorough, 1},
		{detector.DepthMaximum, 2},
	}
	for _, tt := range tests {
		t.Run(tt.depth.String(), func(t *testing.T) {
			res, err := e.Detect(context.Background(), "x", tt.depth)
			require.NoError(t, err)
			assert.Len(t, res.Candidates, tt.want)
		})
	}

	assert.GreaterOrEqual(t, TransformerFloor(detector.DepthBalanced), TransformerFloor(detector.DepthThorough))
	assert.GreaterOrEqual(t, TransformerFloor(detector.DepthThorough), TransformerFloor(detector.DepthMaximum))
}

func TestFailingBackendsAreDegraded(t *testing.T) {
	good := stubBackend{name: "pattern", kind: detector.SourcePattern,
		cands: []detector.Candidate{cand(detector.TypeEmail, "a@b.it", 0.98, "pattern")}}
	broken := stubBackend{name: "transformer:x", kind: detector.SourceTransformer, err: errors.New("session lost")}
	panicky := stubBackend{name: "statistical", kind: detector.SourceStatistical, panic: true}

	e := New(Options{Pattern: good, Statistical: panicky, Transformers: []detector.Backend{broken}})
	res, err := e.Detect(context.Background(), "a@b.it", detector.DepthBalanced)
	require.NoError(t, err)
	assert.Equal(t, []string{"statistical", "transformer:x"}, res.Degraded)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "a@b.it", res.Candidates[0].Text)
}

func TestEnabledTypesFilter(t *testing.T) {
	mixed := stubBackend{name: "pattern", kind: detector.SourcePattern, cands: []detector.Candidate{
		cand(detector.TypeEmail, "a@b.it", 0.98, "pattern"),
		cand(detector.TypePhone, "333 1234567", 0.95, "pattern"),
	}}
	quiet := stubBackend{name: "quiet", kind: detector.SourceStatistical}
	e := New(Options{
		EnabledTypes: map[detector.EntityType]bool{detector.TypeEmail: true},
		Pattern:      mixed,
		Statistical:  quiet,
		Keywords:     []string{"segreto"},
	})
	res, err := e.Detect(context.Background(), "progetto segreto", detector.DepthFast)
	require.NoError(t, err)

	var types []detector.EntityType
	for _, c := range res.Candidates {
		types = append(types, c.Type)
	}
	assert.ElementsMatch(t, []detector.EntityType{detector.TypeEmail, detector.TypeCustom}, types)
	assert.Equal(t, 1, res.Disabled)
}

func TestDetectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Detect(ctx, "Mario Rossi", detector.DepthFast)
	assert.ErrorIs(t, err, context.Canceled)
}
