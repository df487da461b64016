// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package policy decides which candidates survive detection: per-type
// confidence thresholds adjusted by document type and depth, followed by
// allow and deny lists.
package policy

import (
	"math"

	"lexredact/internal/detector"
)

var baseThresholds = map[detector.EntityType]float64{
	detector.TypeFiscalCode:   0.90,
	detector.TypeVATNumber:    0.90,
	detector.TypeIBAN:         0.90,
	detector.TypeCreditCard:   0.90,
	detector.TypePhone:        0.90,
	detector.TypeEmail:        0.90,
	detector.TypeAddress:      0.85,
	detector.TypePerson:       0.80,
	detector.TypeOrganization: 0.80,
	detector.TypeDate:         0.80,
	detector.TypeLocation:     0.75,
	detector.TypeCustom:       0,
}

var depthModifiers = map[detector.Depth]float64{
	detector.DepthFast:     0.05,
	detector.DepthBalanced: 0,
	detector.DepthThorough: -0.10,
	detector.DepthMaximum:  -0.20,
}

// documentModifiers lower thresholds where a miss is costly for the genre
var documentModifiers = map[DocumentType]map[detector.EntityType]float64{
	DocumentMedical: {
		detector.TypePerson: -0.10,
		detector.TypeDate:   -0.10,
	},
	DocumentLegal: {
		detector.TypePerson:       -0.05,
		detector.TypeOrganization: -0.05,
	},
	DocumentAdministrative: {
		detector.TypeFiscalCode: -0.05,
		detector.TypeAddress:    -0.05,
		detector.TypePhone:      -0.05,
	},
}

// BaseThreshold returns the threshold of t before any modifier. Unknown
// types use the PERSON threshold.
func BaseThreshold(t detector.EntityType) float64 {
	if v, ok := baseThresholds[t]; ok {
		return v
	}
	return baseThresholds[detector.TypePerson]
}

// Threshold returns the combined threshold for an entity type in a document
// of the given type at depth, clamped to [0, 1].
func Threshold(t detector.EntityType, doc DocumentType, depth detector.Depth) float64 {
	th := BaseThreshold(t) + documentModifiers[doc][t] + depthModifiers[depth]
	// sums like 0.90+0.05 are not exact in binary
	th = math.Round(th*1e6) / 1e6
	return math.Max(0, math.Min(1, th))
}
