// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// RedactionErrorType defines the type of redaction error
type RedactionErrorType int

const (
	// ErrorDocumentProcessing indicates malformed or empty page content
	ErrorDocumentProcessing RedactionErrorType = iota

	// ErrorBackend indicates a recognizer that failed to load or run
	ErrorBackend

	// ErrorPositionMapping indicates an entity with no visible location
	ErrorPositionMapping

	// ErrorSafety indicates a region rejected by the safety checks
	ErrorSafety

	// ErrorFileSystem indicates a failure reading input or writing output
	ErrorFileSystem

	// ErrorConfiguration indicates a configuration error
	ErrorConfiguration

	// ErrorCancelled indicates the run was cancelled or timed out
	ErrorCancelled

	// ErrorValidation indicates an inconsistent artifact that must not be written
	ErrorValidation
)

// String returns the string representation of the error type
func (ret RedactionErrorType) String() string {
	switch ret {
	case ErrorDocumentProcessing:
		return "document_processing"
	case ErrorBackend:
		return "backend"
	case ErrorPositionMapping:
		return "position_mapping"
	case ErrorSafety:
		return "safety"
	case ErrorFileSystem:
		return "file_system"
	case ErrorConfiguration:
		return "configuration"
	case ErrorCancelled:
		return "cancelled"
	case ErrorValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// MarshalText writes the type name into JSON and YAML reports
func (ret RedactionErrorType) MarshalText() ([]byte, error) {
	return []byte(ret.String()), nil
}

// RedactionError represents an error that occurred during redaction
type RedactionError struct {
	Type      RedactionErrorType `json:"type" yaml:"type"`
	Message   string             `json:"message" yaml:"message"`
	FilePath  string             `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	Component string             `json:"component" yaml:"component"`

	// Recoverable errors only reduce recall; the run still produces output
	Recoverable bool      `json:"recoverable" yaml:"recoverable"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Cause       error     `json:"-" yaml:"-"`
}

// Error implements the error interface
func (re *RedactionError) Error() string {
	msg := fmt.Sprintf("[%s] %s (component: %s)", re.Type, re.Message, re.Component)
	if re.FilePath != "" {
		msg = fmt.Sprintf("[%s] %s (file: %s, component: %s)", re.Type, re.Message, re.FilePath, re.Component)
	}
	if re.Cause != nil {
		msg += ": " + re.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping
func (re *RedactionError) Unwrap() error {
	return re.Cause
}

// NewRedactionError creates a new RedactionError
func NewRedactionError(errorType RedactionErrorType, message, filePath, component string, cause error) *RedactionError {
	return &RedactionError{
		Type:        errorType,
		Message:     message,
		FilePath:    filePath,
		Component:   component,
		Recoverable: isRecoverable(errorType),
		Timestamp:   time.Now(),
		Cause:       cause,
	}
}

// isRecoverable reports whether an error type leaves a safe artifact possible
func isRecoverable(errorType RedactionErrorType) bool {
	switch errorType {
	case ErrorDocumentProcessing, ErrorBackend, ErrorPositionMapping, ErrorSafety:
		return true
	default:
		return false
	}
}

// IsType reports whether err wraps a RedactionError of type t
func IsType(err error, t RedactionErrorType) bool {
	var re *RedactionError
	return errors.As(err, &re) && re.Type == t
}

// RedactionErrorCollection gathers the recoverable errors of one run. It is
// safe for concurrent use.
type RedactionErrorCollection struct {
	mu     sync.Mutex
	errors []RedactionError
}

// NewRedactionErrorCollection creates a new error collection
func NewRedactionErrorCollection() *RedactionErrorCollection {
	return &RedactionErrorCollection{errors: make([]RedactionError, 0)}
}

// Add adds an error to the collection
func (rec *RedactionErrorCollection) Add(err RedactionError) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.errors = append(rec.errors, err)
}

// AddError adds an error with the specified parameters
func (rec *RedactionErrorCollection) AddError(errorType RedactionErrorType, message, filePath, component string, cause error) {
	rec.Add(*NewRedactionError(errorType, message, filePath, component, cause))
}

// GetErrors returns a copy of the collected errors
func (rec *RedactionErrorCollection) GetErrors() []RedactionError {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]RedactionError, len(rec.errors))
	copy(out, rec.errors)
	return out
}

// HasErrors returns true if the collection contains any errors
func (rec *RedactionErrorCollection) HasErrors() bool {
	return rec.Count() > 0
}

// CountByType returns the number of errors per type name
func (rec *RedactionErrorCollection) CountByType() map[string]int {
	out := make(map[string]int)
	for _, err := range rec.GetErrors() {
		out[err.Type.String()]++
	}
	return out
}

// Count returns the number of errors in the collection
func (rec *RedactionErrorCollection) Count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.errors)
}
