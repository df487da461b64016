// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"lexredact/internal/detector"
	"lexredact/internal/redactors/placeholder"
)

// MappingTable is the audit table pairing each original with its
// placeholder, one row per distinct entity, in first-seen order
type MappingTable []*placeholder.Record

// Clear scrubs the originals held by the table
func (mt MappingTable) Clear() {
	for _, r := range mt {
		r.Original.Clear()
	}
}

// RedactionAuditLog contains audit information about redactions performed on a document
type RedactionAuditLog struct {
	// DocumentID is derived from the original document hash
	DocumentID         string    `json:"document_id"`
	RedactionTimestamp time.Time `json:"redaction_timestamp"`
	Version            string    `json:"version"`
	OriginalPath       string    `json:"original_path"`
	RedactedPath       string    `json:"redacted_path"`

	// OriginalFileHash and RedactedFileHash allow integrity verification
	OriginalFileHash string `json:"original_file_hash,omitempty"`
	RedactedFileHash string `json:"redacted_file_hash,omitempty"`

	RedactionSummary   RedactionSummary    `json:"redaction_summary"`
	Mapping            MappingTable        `json:"mapping"`
	ContentRedactions  []ContentRedaction  `json:"content_redactions"`
	MetadataRedactions []MetadataRedaction `json:"metadata_redactions"`
}

// RedactionSummary contains summary statistics about redactions performed
type RedactionSummary struct {
	TotalRedactions int      `json:"total_redactions"`
	DataTypes       []string `json:"data_types"`

	// UniqueEntities is the number of mapping rows
	UniqueEntities int `json:"unique_entities"`

	// Skipped counts approved locations not committed because they overlap
	// a location already committed on the same page
	Skipped        int           `json:"skipped"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// ContentRedaction is one committed region
type ContentRedaction struct {
	ID          string              `json:"id"`
	Page        int                 `json:"page"`
	Rect        detector.Rect       `json:"rect"`
	DataType    detector.EntityType `json:"data_type"`
	Placeholder string              `json:"placeholder"`
	Strategy    string              `json:"strategy"`
	Source      string              `json:"source"`
	Confidence  float64             `json:"confidence"`
	Timestamp   time.Time           `json:"timestamp"`
}

// MetadataRedaction records a document metadata field reset on export
type MetadataRedaction struct {
	Field string `json:"field"`

	// RedactedValue is the neutral value written in place of the original
	RedactedValue string    `json:"redacted_value"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewRedactionAuditLog creates a new RedactionAuditLog
func NewRedactionAuditLog(documentID, originalPath, redactedPath, version string) *RedactionAuditLog {
	return &RedactionAuditLog{
		DocumentID:         documentID,
		RedactionTimestamp: time.Now(),
		Version:            version,
		OriginalPath:       originalPath,
		RedactedPath:       redactedPath,
		RedactionSummary:   RedactionSummary{DataTypes: []string{}},
		ContentRedactions:  make([]ContentRedaction, 0),
		MetadataRedactions: make([]MetadataRedaction, 0),
	}
}

// AddContentRedaction adds a content redaction to the log
func (ri *RedactionAuditLog) AddContentRedaction(redaction ContentRedaction) {
	if redaction.ID == "" {
		redaction.ID = ri.generateRedactionID()
	}
	if redaction.Timestamp.IsZero() {
		redaction.Timestamp = time.Now()
	}
	ri.ContentRedactions = append(ri.ContentRedactions, redaction)
	ri.RedactionSummary.TotalRedactions++

	dt := string(redaction.DataType)
	for _, seen := range ri.RedactionSummary.DataTypes {
		if seen == dt {
			return
		}
	}
	ri.RedactionSummary.DataTypes = append(ri.RedactionSummary.DataTypes, dt)
	sort.Strings(ri.RedactionSummary.DataTypes)
}

// AddMetadataRedaction adds a metadata redaction to the log
func (ri *RedactionAuditLog) AddMetadataRedaction(redaction MetadataRedaction) {
	if redaction.Timestamp.IsZero() {
		redaction.Timestamp = time.Now()
	}
	ri.MetadataRedactions = append(ri.MetadataRedactions, redaction)
}

// SetMapping attaches the mapping table
func (ri *RedactionAuditLog) SetMapping(mt MappingTable) {
	ri.Mapping = mt
	ri.RedactionSummary.UniqueEntities = len(mt)
}

// generateRedactionID derives a stable ID from the document and position
func (ri *RedactionAuditLog) generateRedactionID() string {
	data := fmt.Sprintf("%s-%d", ri.DocumentID, len(ri.ContentRedactions))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}

// ToJSON converts the audit log to JSON
func (ri *RedactionAuditLog) ToJSON() ([]byte, error) {
	return json.MarshalIndent(ri, "", "  ")
}

// Validate checks the log for completeness and consistency
func (ri *RedactionAuditLog) Validate() error {
	if ri.DocumentID == "" {
		return fmt.Errorf("document_id cannot be empty")
	}
	if ri.RedactionTimestamp.IsZero() {
		return fmt.Errorf("redaction_timestamp cannot be zero")
	}
	for i, redaction := range ri.ContentRedactions {
		if redaction.ID == "" {
			return fmt.Errorf("content_redactions[%d].id cannot be empty", i)
		}
		if redaction.DataType == "" {
			return fmt.Errorf("content_redactions[%d].data_type cannot be empty", i)
		}
		if redaction.Confidence < 0 || redaction.Confidence > 1 {
			return fmt.Errorf("content_redactions[%d].confidence must be between 0 and 1", i)
		}
	}
	for i, redaction := range ri.MetadataRedactions {
		if redaction.Field == "" {
			return fmt.Errorf("metadata_redactions[%d].field cannot be empty", i)
		}
		if redaction.Action == "" {
			return fmt.Errorf("metadata_redactions[%d].action cannot be empty", i)
		}
	}
	seen := make(map[string]bool, len(ri.Mapping))
	for i, row := range ri.Mapping {
		key := string(row.Type) + "\x00" + row.Placeholder
		if seen[key] {
			return fmt.Errorf("mapping[%d] repeats placeholder %q", i, row.Placeholder)
		}
		seen[key] = true
	}
	return nil
}

// GenerateDocumentHash generates a hash for document content
func GenerateDocumentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
