// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"strings"
)

// DocumentType is the genre of a document, used to relax thresholds
type DocumentType string

const (
	DocumentGeneral        DocumentType = "general"
	DocumentLegal          DocumentType = "legal"
	DocumentMedical        DocumentType = "medical"
	DocumentAdministrative DocumentType = "administrative"
)

// ParseDocumentType accepts a genre name. "auto" and "" return an empty type,
// meaning the genre is detected from the text.
func ParseDocumentType(s string) (DocumentType, error) {
	switch v := DocumentType(strings.ToLower(strings.TrimSpace(s))); v {
	case "", "auto":
		return "", nil
	case DocumentGeneral, DocumentLegal, DocumentMedical, DocumentAdministrative:
		return v, nil
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

const (
	// classifierSample bounds how much of the text is scanned
	classifierSample = 5000

	// minKeywordMatches is the number of distinct vocabulary hits a genre
	// needs before it is chosen over general
	minKeywordMatches = 3

	// minGenreShare is the fraction of all hits the winning genre must hold
	minGenreShare = 0.3
)

// genreOrder breaks ties deterministically
var genreOrder = []DocumentType{DocumentLegal, DocumentMedical, DocumentAdministrative}

var genreKeywords = map[DocumentType][]string{
	DocumentLegal: {
		"tribunale", "sentenza", "ricorso", "ricorrente", "resistente", "convenuto",
		"attore", "parte attrice", "udienza", "giudice", "avvocato", "avv.",
		"procura", "cassazione", "corte d'appello", "atto di citazione", "decreto ingiuntivo",
		"p.q.m.", "c.p.c.", "c.c.", "memoria", "difensore", "contratto",
		"court", "plaintiff", "defendant", "counsel", "hereby", "judgment", "attorney",
	},
	DocumentMedical: {
		"paziente", "diagnosi", "terapia", "ricovero", "anamnesi", "referto",
		"medico", "ospedale", "azienda sanitaria", "asl", "cartella clinica", "dimissione",
		"prescrizione", "esame obiettivo", "farmaco",
		"patient", "diagnosis", "treatment", "hospital", "physician", "medication", "clinic",
	},
	DocumentAdministrative: {
		"comune di", "protocollo", "prot. n", "determina", "delibera", "istanza",
		"richiedente", "residente in", "codice fiscale", "domicilio", "ufficio anagrafe",
		"certificato", "pubblica amministrazione", "modulo", "marca da bollo",
		"applicant", "form", "municipality", "registry office",
	},
}

// Classification is the result of document type detection
type Classification struct {
	Type    DocumentType
	Matches int
	Share   float64
}

// DetectDocumentType scores each genre by the number of its keywords present
// in the leading part of text. The best genre wins when it has at least
// minKeywordMatches hits and holds minGenreShare of all hits.
func DetectDocumentType(text string) Classification {
	sample := strings.ToLower(text)
	if len(sample) > classifierSample {
		sample = sample[:classifierSample]
	}

	scores := make(map[DocumentType]int)
	total := 0
	for _, genre := range genreOrder {
		for _, kw := range genreKeywords[genre] {
			if strings.Contains(sample, kw) {
				scores[genre]++
				total++
			}
		}
	}
	if total == 0 {
		return Classification{Type: DocumentGeneral}
	}

	best, bestScore := DocumentGeneral, 0
	for _, genre := range genreOrder {
		if scores[genre] > bestScore {
			best, bestScore = genre, scores[genre]
		}
	}

	share := float64(bestScore) / float64(total)
	if bestScore < minKeywordMatches || share < minGenreShare {
		return Classification{Type: DocumentGeneral, Matches: bestScore, Share: share}
	}
	return Classification{Type: best, Matches: bestScore, Share: share}
}
