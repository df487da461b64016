// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"lexredact/internal/detector"
)

func TestEveryTypeIsDescribed(t *testing.T) {
	for _, typ := range detector.AllTypes {
		assert.NotEmpty(t, typeInfo[typ].ShortDescription, typ)
	}
}

func TestShowTypesHelp(t *testing.T) {
	var buf bytes.Buffer
	NewSystem(&buf, true).ShowTypesHelp()

	out := buf.String()
	assert.Contains(t, out, "FISCAL_CODE")
	assert.Contains(t, out, "CF")
	assert.Contains(t, out, "0.90")
	assert.NotContains(t, out, "\x1b[")
}

func TestShowTypeHelp(t *testing.T) {
	tests := []struct {
		name     string
		found    bool
		contains []string
	}{
		{"person", true, []string{"PERSON (Names of natural persons)", "[PER1]", "[PER1____]", "MAXIMUM", "legal"}},
		{"FISCAL_CODE", true, []string{"Structured identifier", "[CF1]"}},
		{"SSN", false, []string{"not found"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Equal(t, tt.found, NewSystem(&buf, true).ShowTypeHelp(tt.name))
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestShowGeneralHelpIncludesFlags(t *testing.T) {
	var buf bytes.Buffer
	NewSystem(&buf, true).ShowGeneralHelp("  -f, --file string   Input document\n")
	assert.Contains(t, buf.String(), "--file string")
	assert.Contains(t, buf.String(), "LEXREDACT_CONFIG_DIR")
}
