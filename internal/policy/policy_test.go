// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexredact/internal/detector"
)

var depths = []detector.Depth{detector.DepthFast, detector.DepthBalanced, detector.DepthThorough, detector.DepthMaximum}

var docTypes = []DocumentType{DocumentGeneral, DocumentLegal, DocumentMedical, DocumentAdministrative}

func TestThresholdValues(t *testing.T) {
	tests := []struct {
		name  string
		typ   detector.EntityType
		doc   DocumentType
		depth detector.Depth
		want  float64
	}{
		{"fiscal balanced", detector.TypeFiscalCode, DocumentGeneral, detector.DepthBalanced, 0.90},
		{"fiscal fast", detector.TypeFiscalCode, DocumentGeneral, detector.DepthFast, 0.95},
		{"person medical", detector.TypePerson, DocumentMedical, detector.DepthBalanced, 0.70},
		{"person legal maximum", detector.TypePerson, DocumentLegal, detector.DepthMaximum, 0.55},
		{"address administrative thorough", detector.TypeAddress, DocumentAdministrative, detector.DepthThorough, 0.70},
		{"location thorough", detector.TypeLocation, DocumentGeneral, detector.DepthThorough, 0.65},
		{"custom clamps", detector.TypeCustom, DocumentGeneral, detector.DepthMaximum, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Threshold(tt.typ, tt.doc, tt.depth), 1e-9)
		})
	}
}

func TestThresholdNonIncreasingWithDepth(t *testing.T) {
	for _, typ := range detector.AllTypes {
		for _, doc := range docTypes {
			prev := 2.0
			for _, d := range depths {
				th := Threshold(typ, doc, d)
				assert.LessOrEqual(t, th, prev, "%s/%s/%s", typ, doc, d)
				assert.GreaterOrEqual(t, th, 0.0)
				prev = th
			}
		}
	}
}

func TestApplyDropsIffBelowThreshold(t *testing.T) {
	f, err := New(Options{NoDefaults: true})
	require.NoError(t, err)

	for _, typ := range detector.AllTypes {
		for _, d := range depths {
			th := Threshold(typ, DocumentGeneral, d)
			below := detector.Candidate{Type: typ, Text: "x", Score: th - 0.001}
			at := detector.Candidate{Type: typ, Text: "x", Score: th}
			res := f.Apply([]detector.Candidate{below, at}, "", DocumentGeneral, d)
			require.Len(t, res.Kept, 1, "%s/%s", typ, d)
			assert.Equal(t, 1, res.Dropped[ReasonThreshold])
			assert.InDelta(t, th, res.Kept[0].Score, 1e-9)
		}
	}
}

func TestDetectDocumentType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want DocumentType
	}{
		{"legal", "TRIBUNALE DI ROMA. Sentenza nel ricorso promosso dal ricorrente, assistito dall'avv. Bianchi", DocumentLegal},
		{"medical", "Il paziente, ricoverato in ospedale, riceve la diagnosi e la terapia indicata nel referto", DocumentMedical},
		{"administrative", "Comune di Torino, protocollo 123. Il richiedente, residente in via Po, presenta istanza", DocumentAdministrative},
		{"too few matches", "Il giudice ha letto la memoria.", DocumentGeneral},
		{"nothing", "Una giornata di sole al mare.", DocumentGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDocumentType(tt.text).Type)
		})
	}

	long := strings.Repeat("x", classifierSample) + " paziente diagnosi terapia ospedale"
	assert.Equal(t, DocumentGeneral, DetectDocumentType(long).Type)
}

func TestParseDocumentType(t *testing.T) {
	dt, err := ParseDocumentType("auto")
	require.NoError(t, err)
	assert.Equal(t, DocumentType(""), dt)

	dt, err = ParseDocumentType(" Medical ")
	require.NoError(t, err)
	assert.Equal(t, DocumentMedical, dt)

	_, err = ParseDocumentType("fiscal")
	assert.Error(t, err)
}

type staticRules struct{ allow, deny string }

func (r staticRules) Allowed(_ detector.EntityType, text string) bool {
	return detector.NormalizeText(text) == r.allow
}

func (r staticRules) Denied(_ detector.EntityType, text string) bool {
	return detector.NormalizeText(text) == r.deny
}

func TestAllowAndDenyLists(t *testing.T) {
	f, err := New(Options{
		Allow:        []string{"Studio Legale Associato"},
		DenyPatterns: []string{`(?i)^lorem`},
		DeniedTexts:  []string{"Ufficio  Beta"},
		Rules:        staticRules{allow: "acme", deny: "zeta srl"},
	})
	require.NoError(t, err)

	person := func(text string) detector.Candidate {
		return detector.Candidate{Type: detector.TypePerson, Text: text, Score: 0.99, Source: detector.SourceStatistical}
	}
	tests := []struct {
		name   string
		c      detector.Candidate
		reason string
	}{
		{"curated institution", person("corte di  cassazione"), ReasonAllowList},
		{"section label", person("P.Q.M."), ReasonAllowList},
		{"configured allow", person("STUDIO LEGALE ASSOCIATO"), ReasonAllowList},
		{"rules allow", person("Acme"), ReasonAllowList},
		{"law reference", detector.Candidate{Type: detector.TypeDate, Text: "196/2003", Score: 0.99}, ReasonDenyList},
		{"article", person("art. 2043"), ReasonDenyList},
		{"configured pattern", person("Lorem Ipsum"), ReasonDenyList},
		{"previously denied", person("ufficio beta"), ReasonDenyList},
		{"rules deny", person("Zeta Srl"), ReasonDenyList},
		{"kept", person("Mario Rossi"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.Apply([]detector.Candidate{tt.c}, "", DocumentGeneral, detector.DepthBalanced)
			if tt.reason == "" {
				assert.Len(t, res.Kept, 1)
				assert.Empty(t, res.Dropped)
				return
			}
			assert.Empty(t, res.Kept)
			assert.Equal(t, 1, res.Dropped[tt.reason])
		})
	}
}

func TestKeywordBypassesAllowList(t *testing.T) {
	f, err := New(Options{})
	require.NoError(t, err)
	kw := detector.Candidate{Type: detector.TypeCustom, Text: "Tribunale", Score: 1, Source: detector.SourceKeyword}
	res := f.Apply([]detector.Candidate{kw}, "", DocumentGeneral, detector.DepthFast)
	assert.Len(t, res.Kept, 1)
}

func TestApplyDetectsDocumentType(t *testing.T) {
	f, err := New(Options{})
	require.NoError(t, err)
	text := "Il paziente Mario Rossi, ricoverato in ospedale. Diagnosi: frattura. Terapia: riposo."
	c := detector.Candidate{Type: detector.TypePerson, Text: "Mario Rossi", Score: 0.72}
	res := f.Apply([]detector.Candidate{c}, text, "", detector.DepthBalanced)
	assert.Equal(t, DocumentMedical, res.DocumentType)
	assert.Len(t, res.Kept, 1)
}

func TestInvalidDenyPattern(t *testing.T) {
	_, err := New(Options{DenyPatterns: []string{"("}})
	assert.Error(t, err)
}
