// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package security holds helpers for keeping redacted originals in memory
// no longer than needed.
package security

import (
	"encoding/json"
	"unicode/utf8"
)

// SecureString holds an original text in a byte slice that Clear zeroes.
// Go may still have copied the bytes elsewhere (every String call makes an
// immutable copy), so this shortens exposure and nothing more.
type SecureString struct {
	data []byte
}

// NewSecureString copies s into a new SecureString
func NewSecureString(s string) *SecureString {
	data := make([]byte, len(s))
	copy(data, s)
	return &SecureString{data: data}
}

// String returns a copy of the value, empty after Clear
func (ss *SecureString) String() string {
	if ss == nil {
		return ""
	}
	return string(ss.data)
}

// RuneLen returns the length of the value in runes
func (ss *SecureString) RuneLen() int {
	if ss == nil {
		return 0
	}
	return utf8.RuneCount(ss.data)
}

// Cleared reports whether Clear has been called
func (ss *SecureString) Cleared() bool {
	return ss == nil || ss.data == nil
}

// Clear zeroes and releases the value. Calling it again is a no-op.
func (ss *SecureString) Clear() {
	if ss == nil || ss.data == nil {
		return
	}
	for i := range ss.data {
		ss.data[i] = 0
	}
	ss.data = nil
}

// MarshalJSON writes the value as a JSON string; the audit log is the one
// place where originals are meant to be persisted
func (ss *SecureString) MarshalJSON() ([]byte, error) {
	return json.Marshal(ss.String())
}

// MarshalYAML writes the value as a plain YAML string
func (ss *SecureString) MarshalYAML() (interface{}, error) {
	return ss.String(), nil
}
