// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package transformer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lexredact/internal/detector"
)

// DefaultLabelMap maps the label vocabulary of common PII token-classification
// models onto entity types. Keys are upper case.
var DefaultLabelMap = map[string]detector.EntityType{
	"PER":          detector.TypePerson,
	"PERSON":       detector.TypePerson,
	"NAME":         detector.TypePerson,
	"GIVENNAME":    detector.TypePerson,
	"SURNAME":      detector.TypePerson,
	"ORG":          detector.TypeOrganization,
	"ORGANIZATION": detector.TypeOrganization,
	"LOC":          detector.TypeLocation,
	"LOCATION":     detector.TypeLocation,
	"CITY":         detector.TypeLocation,
	"GPE":          detector.TypeLocation,
	"DATE":         detector.TypeDate,
	"DATEOFBIRTH":  detector.TypeDate,
	"EMAIL":        detector.TypeEmail,
	"PHONE":        detector.TypePhone,
	"TELEPHONENUM": detector.TypePhone,
	"FISCAL_CODE":  detector.TypeFiscalCode,
	"TAXNUM":       detector.TypeFiscalCode,
	"CF":           detector.TypeFiscalCode,
	"IBAN":         detector.TypeIBAN,
	"BANK_ACCOUNT": detector.TypeIBAN,
	"ACCOUNTNUM":   detector.TypeIBAN,
	"CREDITCARD":   detector.TypeCreditCard,
	"ADDRESS":      detector.TypeAddress,
	"STREET":       detector.TypeAddress,
}

// mapLabel resolves a model label to an entity type, first through the
// configured overrides and then through DefaultLabelMap.
func mapLabel(label string, overrides map[string]string) (detector.EntityType, bool) {
	key := strings.ToUpper(strings.TrimSpace(label))
	if v, ok := overrides[key]; ok {
		t, err := detector.ParseEntityType(v)
		return t, err == nil
	}
	t, ok := DefaultLabelMap[key]
	return t, ok
}

// loadLabels reads the id-ordered label list from label_map.json (a list or
// an id map) or from the id2label field of config.json in dir.
func loadLabels(dir string) ([]string, error) {
	if data, err := os.ReadFile(filepath.Join(dir, "label_map.json")); err == nil {
		var list []string
		if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 {
			return list, nil
		}
		var idMap map[string]string
		if err := json.Unmarshal(data, &idMap); err != nil {
			return nil, fmt.Errorf("parse label_map.json: %w", err)
		}
		return labelsFromIDMap(idMap), nil
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("no label_map.json or config.json in %s", dir)
	}
	var cfg struct {
		ID2Label map[string]string `json:"id2label"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config.json: %w", err)
	}
	labels := labelsFromIDMap(cfg.ID2Label)
	if len(labels) == 0 {
		return nil, fmt.Errorf("config.json in %s has no id2label", dir)
	}
	return labels, nil
}

func labelsFromIDMap(id2label map[string]string) []string {
	maxID := -1
	byID := make(map[int]string, len(id2label))
	for k, v := range id2label {
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || id < 0 {
			continue
		}
		byID[id] = v
		maxID = max(maxID, id)
	}
	if maxID < 0 {
		return nil
	}
	labels := make([]string, maxID+1)
	for id, lbl := range byID {
		labels[id] = lbl
	}
	return labels
}
